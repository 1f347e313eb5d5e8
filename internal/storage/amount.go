package storage

import (
	"math"

	"github.com/shopspring/decimal"
)

// amounts are persisted with two decimal places, matching NUMERIC(12, 2)
const amountPlaces = 2

func roundAmount(amount float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	return decimal.NewFromFloat(amount).Round(amountPlaces).InexactFloat64()
}
