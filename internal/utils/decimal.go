package utils

import "github.com/shopspring/decimal"

// sqrtEpsilon is the convergence bound for DecimalSqrt (1e-10).
var sqrtEpsilon = decimal.New(1, -10)

var two = decimal.NewFromInt(2)

// DecimalSqrt computes the square root of a decimal value using Newton's
// method. Iterates until successive estimates differ by less than 1e-10 or
// 100 iterations elapse. Returns zero for zero or negative input.
func DecimalSqrt(value decimal.Decimal) decimal.Decimal {
	if value.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	guess := value.Div(two)

	for i := 0; i < 100; i++ {
		next := guess.Add(value.Div(guess)).Div(two)
		diff := next.Sub(guess).Abs()
		guess = next

		if diff.LessThan(sqrtEpsilon) {
			break
		}
	}

	return guess
}

// Mean computes the arithmetic mean of a slice of decimals. Returns zero for
// an empty slice.
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}

	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}

	return sum.Div(decimal.NewFromInt(int64(len(values))))
}
