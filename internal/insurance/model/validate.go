package model

import (
	"fmt"
	"math"
)

// Device id length bounds.
const (
	MinDeviceIDLen = 8
	MaxDeviceIDLen = 128
)

// ValidateDeviceID checks the device identifier format.
func ValidateDeviceID(deviceID string) error {
	if len(deviceID) < MinDeviceIDLen || len(deviceID) > MaxDeviceIDLen {
		return &ErrInvalidScore{
			Field: "device_id",
			Msg:   fmt.Sprintf("length must be between %d and %d characters", MinDeviceIDLen, MaxDeviceIDLen),
		}
	}
	return nil
}

// ValidateScore checks that a probability-like score lies in [0,1].
func ValidateScore(field string, score float64) error {
	if math.IsNaN(score) || score < 0.0 || score > 1.0 {
		return &ErrInvalidScore{Field: field, Msg: "must be within [0,1]"}
	}
	return nil
}

// ClampScore bounds a score to [0,1].
func ClampScore(score float64) float64 {
	return math.Max(0.0, math.Min(1.0, score))
}

// RoundCents rounds a monetary amount to two decimals, half away from zero.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// FormatCurrency renders an amount for display. Only USD and EUR get a
// symbol; everything else is suffixed with the currency code.
func FormatCurrency(amount float64, currency string) string {
	switch currency {
	case "USD":
		return fmt.Sprintf("$%.2f", amount)
	case "EUR":
		return fmt.Sprintf("€%.2f", amount)
	default:
		return fmt.Sprintf("%.2f %s", amount, currency)
	}
}
