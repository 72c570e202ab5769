package calculator

import (
	"math"
	"math/big"
)

// number is an exact integer until a decimal literal or a division makes it a
// float64, mirroring int/float promotion in ordinary arithmetic.
type number struct {
	i *big.Int // non-nil while the value is an exact integer
	f float64
}

func intNumber(i *big.Int) number {
	return number{i: i}
}

func floatNumber(f float64) number {
	return number{f: f}
}

func (n number) isInt() bool {
	return n.i != nil
}

// toFloat converts n, failing when an integer does not fit.
func (n number) toFloat() (float64, error) {
	if !n.isInt() {
		return n.f, nil
	}
	f, _ := new(big.Float).SetInt(n.i).Float64()
	if math.IsInf(f, 0) {
		return 0, errOutOfRange
	}
	return f, nil
}

func (n number) isZero() bool {
	if n.isInt() {
		return n.i.Sign() == 0
	}
	return n.f == 0
}

func (n number) neg() number {
	if n.isInt() {
		return intNumber(new(big.Int).Neg(n.i))
	}
	return floatNumber(-n.f)
}

// apply evaluates a op b for op in "+-*/".
func apply(op byte, a, b number) (number, error) {
	if op == '/' {
		return divide(a, b)
	}

	if a.isInt() && b.isInt() {
		r := new(big.Int)
		switch op {
		case '+':
			r.Add(a.i, b.i)
		case '-':
			r.Sub(a.i, b.i)
		case '*':
			r.Mul(a.i, b.i)
		}
		return intNumber(r), nil
	}

	x, y, err := floatOperands(a, b)
	if err != nil {
		return number{}, err
	}

	var r float64
	switch op {
	case '+':
		r = x + y
	case '-':
		r = x - y
	case '*':
		r = x * y
	}
	if err := checkFinite(r); err != nil {
		return number{}, err
	}
	return floatNumber(r), nil
}

// divide is true division; integer operands are divided exactly and rounded
// once.
func divide(a, b number) (number, error) {
	if a.isInt() && b.isInt() {
		if b.isZero() {
			return number{}, errDivisionByZero
		}
		f, _ := new(big.Rat).SetFrac(a.i, b.i).Float64()
		if err := checkFinite(f); err != nil {
			return number{}, err
		}
		return floatNumber(f), nil
	}

	x, y, err := floatOperands(a, b)
	if err != nil {
		return number{}, err
	}
	if y == 0 {
		return number{}, errDivisionByZero
	}
	r := x / y
	if err := checkFinite(r); err != nil {
		return number{}, err
	}
	return floatNumber(r), nil
}

func floatOperands(a, b number) (float64, float64, error) {
	x, err := a.toFloat()
	if err != nil {
		return 0, 0, err
	}
	y, err := b.toFloat()
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func checkFinite(v float64) error {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return errOutOfRange
	}
	return nil
}
