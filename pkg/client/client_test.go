package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/securepremium/securepremium/pkg/client"
)

func TestRegisterDevice_roundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/devices" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}

		var body struct {
			DeviceID        string `json:"device_id"`
			FingerprintHash string `json:"fingerprint_hash"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.DeviceID != "laptop-001-alpha" || body.FingerprintHash != "fp-abc" {
			t.Errorf("unexpected request body: %+v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"device_id":        body.DeviceID,
			"fingerprint_hash": body.FingerprintHash,
			"active":           true,
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	profile, err := c.RegisterDevice(context.Background(), "laptop-001-alpha", "fp-abc", nil, nil)
	if err != nil {
		t.Fatalf("RegisterDevice: %v", err)
	}
	if profile.DeviceID != "laptop-001-alpha" || !profile.Active {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestAssessRisk_sendsMetricsObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			DeviceID string         `json:"device_id"`
			Metrics  map[string]any `json:"metrics"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Metrics["login_failures"] != float64(7) {
			t.Errorf("login_failures = %v", body.Metrics["login_failures"])
		}

		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"device_id":          body.DeviceID,
			"overall_risk_score": 0.42,
			"category":           "medium",
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	assessment, err := c.AssessRisk(context.Background(), "laptop-001-alpha", map[string]any{
		"login_failures": 7,
	})
	if err != nil {
		t.Fatalf("AssessRisk: %v", err)
	}
	if assessment.OverallRiskScore != 0.42 || assessment.Category != "medium" {
		t.Fatalf("unexpected assessment: %+v", assessment)
	}
}

func TestErrorEnvelope_becomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
			"error": `device "laptop-001-alpha" is already registered`,
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.RegisterDevice(context.Background(), "laptop-001-alpha", "fp-abc", nil, nil)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("StatusCode = %d, want 409", apiErr.StatusCode)
	}
	if apiErr.Message != `device "laptop-001-alpha" is already registered` {
		t.Fatalf("Message = %q", apiErr.Message)
	}
}

func TestNonJSONError_rawBodyKept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	err := c.Health(context.Background())
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("StatusCode = %d", apiErr.StatusCode)
	}
}

func TestVerifyReport_escapesReportID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(map[string]any{"verified": true}) //nolint:errcheck
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	verified, err := c.VerifyReport(context.Background(), "rpt/../etc", 2)
	if err != nil {
		t.Fatalf("VerifyReport: %v", err)
	}
	if !verified {
		t.Fatal("verified = false")
	}
	if gotPath != "/api/v1/reputation/reports/rpt%2F..%2Fetc/verify" {
		t.Fatalf("path = %q, report id not escaped", gotPath)
	}
}

func TestListDevices_queryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("active") != "true" || q.Get("limit") != "25" || q.Get("offset") != "50" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"devices": []map[string]any{{"device_id": "laptop-001-alpha"}},
			"count":   1,
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	devices, err := c.ListDevices(context.Background(), true, 25, 50)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 1 || devices[0].DeviceID != "laptop-001-alpha" {
		t.Fatalf("unexpected devices: %+v", devices)
	}
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := client.New(srv.URL)
	if err := c.Health(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
