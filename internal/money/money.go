// Package money holds monetary amounts as integer minor currency units.
// Line totals are products of a non-negative unit price and an integer
// quantity, so arithmetic on Cents is exact and needs no rounding.
package money

import "fmt"

// Cents is an amount in minor currency units (e.g. 1050 = 10.50).
type Cents int64

// Times returns the amount multiplied by an integer quantity.
func (c Cents) Times(quantity int) Cents {
	return c * Cents(quantity)
}

// String formats the amount with two decimal places, e.g. "25.00".
func (c Cents) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
