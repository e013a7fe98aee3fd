package model_test

import (
	"math"
	"strings"
	"testing"

	"github.com/securepremium/securepremium/internal/insurance/model"
)

func TestValidateDeviceID(t *testing.T) {
	if err := model.ValidateDeviceID("laptop-001-alpha"); err != nil {
		t.Errorf("valid id rejected: %v", err)
	}
	if err := model.ValidateDeviceID("1234567"); err == nil {
		t.Error("7-char id should be rejected")
	}
	if err := model.ValidateDeviceID("12345678"); err != nil {
		t.Errorf("8-char id should be accepted: %v", err)
	}
	if err := model.ValidateDeviceID(strings.Repeat("x", 129)); err == nil {
		t.Error("129-char id should be rejected")
	}
	if err := model.ValidateDeviceID(""); err == nil {
		t.Error("empty id should be rejected")
	}
}

func TestValidateScore(t *testing.T) {
	for _, ok := range []float64{0.0, 0.5, 1.0} {
		if err := model.ValidateScore("score", ok); err != nil {
			t.Errorf("ValidateScore(%v): %v", ok, err)
		}
	}
	for _, bad := range []float64{-0.01, 1.01, math.NaN()} {
		if err := model.ValidateScore("score", bad); err == nil {
			t.Errorf("ValidateScore(%v) should fail", bad)
		}
	}
}

func TestClampScore(t *testing.T) {
	if got := model.ClampScore(-0.5); got != 0.0 {
		t.Errorf("ClampScore(-0.5) = %v, want 0", got)
	}
	if got := model.ClampScore(1.5); got != 1.0 {
		t.Errorf("ClampScore(1.5) = %v, want 1", got)
	}
	if got := model.ClampScore(0.42); got != 0.42 {
		t.Errorf("ClampScore(0.42) = %v, want 0.42", got)
	}
}

func TestRoundCents(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{123.456, 123.46},
		{123.454, 123.45},
		{0.005, 0.01},
		{100.0, 100.0},
	}
	for _, tc := range cases {
		if got := model.RoundCents(tc.in); got != tc.want {
			t.Errorf("RoundCents(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	if got := model.FormatCurrency(1234.5, "USD"); got != "$1234.50" {
		t.Errorf("USD: got %q", got)
	}
	if got := model.FormatCurrency(99.999, "EUR"); got != "€100.00" {
		t.Errorf("EUR: got %q", got)
	}
	if got := model.FormatCurrency(42.0, "GBP"); got != "42.00 GBP" {
		t.Errorf("GBP: got %q", got)
	}
}

func TestParseSeverity(t *testing.T) {
	for _, valid := range []string{"low", "medium", "high", "critical"} {
		if _, err := model.ParseSeverity(valid); err != nil {
			t.Errorf("ParseSeverity(%q): %v", valid, err)
		}
	}
	if _, err := model.ParseSeverity("severe"); err == nil {
		t.Error("unknown severity should be rejected")
	}
}
