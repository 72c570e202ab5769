package calculator

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

// maxDepth bounds parenthesis and unary-sign nesting.
const maxDepth = 256

var (
	errDivisionByZero = errors.New("division by zero")
	errUnexpectedEnd  = errors.New("unexpected end of expression")
	errUnbalanced     = errors.New("unbalanced parentheses")
	errOutOfRange     = errors.New("result out of range")
	errTooDeep        = errors.New("expression nested too deeply")
)

// parser is a recursive-descent evaluator over a whitespace-free ASCII input:
//
//	expr    := term {('+' | '-') term}
//	term    := unary {('*' | '/') unary}
//	unary   := ('+' | '-') unary | primary
//	primary := number | '(' expr ')'
type parser struct {
	input string
	pos   int
	depth int
}

func newParser(input string) *parser {
	return &parser{input: input}
}

func (p *parser) parse() (float64, error) {
	n, err := p.parseExpr()
	if err != nil {
		return 0, err
	}

	if p.pos < len(p.input) {
		if p.peek() == ')' {
			return 0, errUnbalanced
		}
		return 0, p.unexpected()
	}

	v, err := n.toFloat()
	if err != nil {
		return 0, err
	}

	// -0 is reported as 0.
	if v == 0 {
		v = 0
	}
	return v, nil
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) unexpected() error {
	if p.pos >= len(p.input) {
		return errUnexpectedEnd
	}
	return fmt.Errorf("unexpected token '%c' at position %d", p.input[p.pos], p.pos)
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return errTooDeep
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) parseExpr() (number, error) {
	return p.parseBinary(p.parseTerm, '+', '-')
}

func (p *parser) parseTerm() (number, error) {
	return p.parseBinary(p.parseUnary, '*', '/')
}

// parseBinary folds left-associative operands joined by either operator.
func (p *parser) parseBinary(operand func() (number, error), op1, op2 byte) (number, error) {
	v, err := operand()
	if err != nil {
		return number{}, err
	}

	for {
		op := p.peek()
		if op != op1 && op != op2 {
			return v, nil
		}
		p.pos++

		rhs, err := operand()
		if err != nil {
			return number{}, err
		}

		v, err = apply(op, v, rhs)
		if err != nil {
			return number{}, err
		}
	}
}

func (p *parser) parseUnary() (number, error) {
	op := p.peek()
	if op != '+' && op != '-' {
		return p.parsePrimary()
	}
	p.pos++

	if err := p.enter(); err != nil {
		return number{}, err
	}
	defer p.leave()

	v, err := p.parseUnary()
	if err != nil {
		return number{}, err
	}
	if op == '-' {
		v = v.neg()
	}
	return v, nil
}

func (p *parser) parsePrimary() (number, error) {
	switch c := p.peek(); {
	case c == '(':
		p.pos++
		if err := p.enter(); err != nil {
			return number{}, err
		}
		defer p.leave()

		v, err := p.parseExpr()
		if err != nil {
			return number{}, err
		}
		if p.peek() != ')' {
			if p.pos >= len(p.input) {
				return number{}, errUnbalanced
			}
			return number{}, p.unexpected()
		}
		p.pos++
		return v, nil

	case c == '.' || isDigit(c):
		return p.parseNumber()

	default:
		return number{}, p.unexpected()
	}
}

// parseNumber reads digits ['.' [digits]] or '.' digits. Integer literals
// stay exact and may not carry a leading zero unless every digit is zero.
func (p *parser) parseNumber() (number, error) {
	start := p.pos
	intDigits := p.skipDigits()

	hasDot := false
	fracDigits := 0
	if p.peek() == '.' {
		hasDot = true
		p.pos++
		fracDigits = p.skipDigits()
	}

	// Swallow the rest of a malformed literal such as "1.2.3" so the error
	// names all of it.
	malformed := intDigits+fracDigits == 0
	for p.peek() == '.' || isDigit(p.peek()) {
		malformed = true
		p.pos++
	}

	lit := p.input[start:p.pos]
	if malformed {
		return number{}, fmt.Errorf("invalid number literal '%s'", lit)
	}

	if !hasDot {
		if len(lit) > 1 && lit[0] == '0' && !allZeros(lit) {
			return number{}, fmt.Errorf("invalid number literal '%s'", lit)
		}
		i, ok := new(big.Int).SetString(lit, 10)
		if !ok {
			return number{}, fmt.Errorf("invalid number literal '%s'", lit)
		}
		return intNumber(i), nil
	}

	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return number{}, errOutOfRange
		}
		return number{}, fmt.Errorf("invalid number literal '%s'", lit)
	}
	return floatNumber(v), nil
}

func (p *parser) skipDigits() int {
	n := 0
	for isDigit(p.peek()) {
		p.pos++
		n++
	}
	return n
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func allZeros(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '0' {
			return false
		}
	}
	return true
}
