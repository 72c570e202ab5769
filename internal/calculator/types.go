package calculator

import (
	"time"

	"calculator-api/internal/store"
)

// CalculateRequest is the JSON body for POST /api/calculator/calculate.
type CalculateRequest struct {
	Expression *string `json:"expression"`
}

// CalculationResponse is one stored calculation as returned by the API.
type CalculationResponse struct {
	ID         uint      `json:"id"`
	Expression string    `json:"expression"`
	Result     float64   `json:"result"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryResponse is the JSON response for GET /api/calculator/history.
type HistoryResponse struct {
	Calculations []CalculationResponse `json:"calculations"`
	Total        int64                 `json:"total"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

func newCalculationResponse(c store.Calculation) CalculationResponse {
	return CalculationResponse{
		ID:         c.ID,
		Expression: c.Expression,
		Result:     c.Result,
		CreatedAt:  c.CreatedAt,
	}
}
