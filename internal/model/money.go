package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Money is an amount in pence. It encodes to JSON as a decimal number of pounds.
type Money int64

// Pounds converts a decimal amount to Money, rounding to the nearest penny.
func Pounds(v float64) Money {
	return Money(math.Round(v * 100))
}

func (m Money) Float() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f", m.Float())
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(m.Float(), 'f', -1, 64)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("money: %w", err)
	}
	*m = Pounds(v)
	return nil
}
