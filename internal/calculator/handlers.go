package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"calculator-api/internal/handlers"
	"calculator-api/internal/observability"
	"calculator-api/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

const (
	defaultHistoryLimit = 50
	maxRequestBodyBytes = 1 << 20

	msgInternal = "Internal server error"
)

// Repository is the persistence the handlers need. *store.Store satisfies it.
type Repository interface {
	Create(ctx context.Context, expression string, result float64) (store.Calculation, error)
	List(ctx context.Context, offset, limit int) ([]store.Calculation, int64, error)
	ClearAll(ctx context.Context) (int64, error)
}

// Handler serves the calculator API. It keeps no state between requests;
// every call goes straight to the repository with the request's context.
type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// ---------------------------------------------------------------------------
// Compute
// ---------------------------------------------------------------------------

// Calculate handles POST /api/calculator/calculate: evaluates the expression
// and stores the result.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	const opName = "calculate"

	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, "calculator.calculate",
		trace.WithAttributes(
			attribute.String("calculator.operation", opName),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	var req CalculateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "invalid request body", err, http.StatusBadRequest, w)
		return
	}
	if req.Expression == nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "expression is required", errors.New("missing expression field"), http.StatusBadRequest, w)
		return
	}
	expression := *req.Expression

	span.SetAttributes(attribute.String("calculator.expression", expression))

	start := time.Now()
	result, err := Evaluate(expression)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	outcome := "ok"
	if err != nil {
		outcome = "invalid"
	}
	evalHistogram.Record(ctx, elapsed, metric.WithAttributes(
		attribute.String("operation", opName),
		attribute.String("outcome", outcome),
	))

	// Evaluate only fails with a *ValidationError.
	if err != nil {
		msg := err.Error()
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			msg = vErr.Msg
		}
		observability.RecordError(ctx, span, logger, errorCounter, opName, msg, err, http.StatusBadRequest, w)
		return
	}

	attrs := metric.WithAttributes(attribute.String("operation", opName))

	calc, err := h.repo.Create(ctx, expression, result)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, msgInternal, fmt.Errorf("store calculation: %w", err), http.StatusInternalServerError, w)
		return
	}

	opsCounter.Add(ctx, 1, attrs)
	resultGauge.Record(ctx, result, attrs)

	span.AddEvent("calculation.stored", trace.WithAttributes(
		attribute.Int64("calculation.id", int64(calc.ID)),
		attribute.Float64("result", result),
		attribute.Float64("duration_ms", elapsed),
	))
	span.SetAttributes(attribute.Float64("calculator.result", result))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculation stored",
		zap.Uint("id", calc.ID),
		zap.String("expression", expression),
		zap.Float64("result", result),
		zap.String("request_id", requestID),
		zap.Float64("duration_ms", elapsed),
	)

	handlers.WriteJSON(w, http.StatusOK, newCalculationResponse(calc))
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

// History handles GET /api/calculator/history?limit=&offset=
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	const opName = "history"

	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, "calculator.history",
		trace.WithAttributes(
			attribute.String("calculator.operation", opName),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	query := r.URL.Query()

	limit, err := nonNegativeQueryInt(query.Get("limit"), defaultHistoryLimit)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "limit must be a non-negative integer", err, http.StatusBadRequest, w)
		return
	}
	offset, err := nonNegativeQueryInt(query.Get("offset"), 0)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "offset must be a non-negative integer", err, http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(
		attribute.Int("history.limit", limit),
		attribute.Int("history.offset", offset),
	)

	calcs, total, err := h.repo.List(ctx, offset, limit)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, msgInternal, fmt.Errorf("list calculations: %w", err), http.StatusInternalServerError, w)
		return
	}

	resp := HistoryResponse{
		Calculations: make([]CalculationResponse, 0, len(calcs)),
		Total:        total,
	}
	for _, c := range calcs {
		resp.Calculations = append(resp.Calculations, newCalculationResponse(c))
	}

	opsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", opName)))

	span.SetAttributes(
		attribute.Int("history.returned", len(resp.Calculations)),
		attribute.Int64("history.total", total),
	)
	span.SetStatus(codes.Ok, "")

	logger.Debug("history listed",
		zap.Int("limit", limit),
		zap.Int("offset", offset),
		zap.Int("returned", len(resp.Calculations)),
		zap.Int64("total", total),
		zap.String("request_id", requestID),
	)

	handlers.WriteJSON(w, http.StatusOK, resp)
}

// ClearHistory handles DELETE /api/calculator/history
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	const opName = "clear_history"

	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, "calculator.clear_history",
		trace.WithAttributes(
			attribute.String("calculator.operation", opName),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	deleted, err := h.repo.ClearAll(ctx)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, msgInternal, fmt.Errorf("clear calculations: %w", err), http.StatusInternalServerError, w)
		return
	}

	attrs := metric.WithAttributes(attribute.String("operation", opName))
	opsCounter.Add(ctx, 1, attrs)
	clearedCounter.Add(ctx, deleted, attrs)

	span.SetAttributes(attribute.Int64("history.deleted", deleted))
	span.SetStatus(codes.Ok, "")

	logger.Info("history cleared",
		zap.Int64("deleted", deleted),
		zap.String("request_id", requestID),
	)

	handlers.WriteJSON(w, http.StatusOK, MessageResponse{Message: "History cleared successfully"})
}

// decodeJSONBody decodes a single JSON value from a size-limited body and
// rejects anything after it.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// nonNegativeQueryInt parses a query value, returning def when it is absent.
func nonNegativeQueryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}
