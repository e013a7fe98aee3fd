package reputation_test

import (
	"errors"
	"testing"

	"github.com/securepremium/securepremium/internal/insurance/model"
	"github.com/securepremium/securepremium/internal/insurance/reputation"
	"go.uber.org/zap"
)

func newNetwork(t *testing.T) *reputation.Network {
	t.Helper()
	n := reputation.NewNetwork("test-net", zap.NewNop())
	if !n.RegisterParticipant("org-alpha") {
		t.Fatal("first registration should succeed")
	}
	return n
}

func TestRegisterParticipant_idempotent(t *testing.T) {
	n := newNetwork(t)
	if n.RegisterParticipant("org-alpha") {
		t.Error("second registration of the same participant should return false")
	}
	if !n.RegisterParticipant("org-beta") {
		t.Error("a new participant should register")
	}
}

func TestSubmitThreatReport_unregisteredReporter(t *testing.T) {
	n := newNetwork(t)

	_, err := n.SubmitThreatReport("org-ghost", "device-abc-123", "malware", "high", "", "")
	var unreg *model.ErrUnregisteredParticipant
	if !errors.As(err, &unreg) {
		t.Fatalf("expected ErrUnregisteredParticipant, got %v", err)
	}
	// The rejected report must leave the device unrated.
	if rec := n.QueryDeviceReputation("device-abc-123"); rec != nil {
		t.Errorf("device should be unrated after rejected report, got score %v", rec.ReputationScore)
	}
}

func TestSubmitThreatReport_invalidSeverity(t *testing.T) {
	n := newNetwork(t)
	if _, err := n.SubmitThreatReport("org-alpha", "device-abc-123", "malware", "terrible", "", ""); err == nil {
		t.Error("expected error for unknown severity")
	}
}

func TestSubmitThreatReport_severityPenalties(t *testing.T) {
	n := newNetwork(t)

	cases := []struct {
		severity string
		want     float64
	}{
		{"critical", 0.10}, // 0.5 - 0.40
		{"high", 0.25},     // 0.5 - 0.25
		{"medium", 0.38},   // 0.5 - 0.12
		{"low", 0.45},      // 0.5 - 0.05
	}
	for _, tc := range cases {
		deviceID := "device-" + tc.severity
		if _, err := n.SubmitThreatReport("org-alpha", deviceID, "malware", tc.severity, "", ""); err != nil {
			t.Fatal(err)
		}
		rec := n.QueryDeviceReputation(deviceID)
		if rec == nil {
			t.Fatalf("%s: no record", tc.severity)
		}
		if diff := rec.ReputationScore - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s: score %v, want %v", tc.severity, rec.ReputationScore, tc.want)
		}
	}
}

func TestSubmitThreatReport_scoreFloorsAtZero(t *testing.T) {
	n := newNetwork(t)
	for i := 0; i < 3; i++ {
		if _, err := n.SubmitThreatReport("org-alpha", "device-hammered", "botnet", "critical", "", ""); err != nil {
			t.Fatal(err)
		}
	}
	rec := n.QueryDeviceReputation("device-hammered")
	if rec.ReputationScore != 0.0 {
		t.Errorf("score: got %v, want 0.0 floor", rec.ReputationScore)
	}
	if rec.ReportsCount != 3 {
		t.Errorf("reports count: got %d, want 3", rec.ReportsCount)
	}
}

func TestSubmitThreatReport_distinctContributors(t *testing.T) {
	n := newNetwork(t)
	n.RegisterParticipant("org-beta")

	for _, reporter := range []string{"org-alpha", "org-alpha", "org-beta"} {
		if _, err := n.SubmitThreatReport(reporter, "device-shared", "phishing", "low", "", ""); err != nil {
			t.Fatal(err)
		}
	}
	rec := n.QueryDeviceReputation("device-shared")
	if rec.ContributorCount != 2 {
		t.Errorf("contributor count: got %d, want 2", rec.ContributorCount)
	}
	if len(rec.ThreatHistory) != 3 {
		t.Errorf("threat history: got %d entries, want 3", len(rec.ThreatHistory))
	}
}

func TestVerifyReport_quorumFlip(t *testing.T) {
	n := newNetwork(t)
	report, err := n.SubmitThreatReport("org-alpha", "device-verify-1", "malware", "high", "", "")
	if err != nil {
		t.Fatal(err)
	}

	verified, err := n.VerifyReport(report.ReportID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if verified {
		t.Error("one verification should not reach the default quorum of two")
	}

	verified, err = n.VerifyReport(report.ReportID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !verified {
		t.Error("second verification should reach quorum")
	}

	rec := n.QueryDeviceReputation("device-verify-1")
	if rec.VerificationLevel != model.VerificationVerified {
		t.Errorf("device verification level: got %q, want %q", rec.VerificationLevel, model.VerificationVerified)
	}
}

func TestVerifyReport_unknownReport(t *testing.T) {
	n := newNetwork(t)
	_, err := n.VerifyReport("no-such-report", 0)
	var unknown *model.ErrUnknownReport
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownReport, got %v", err)
	}
}

func TestQueryDeviceReputation_unratedDevice(t *testing.T) {
	n := newNetwork(t)
	if rec := n.QueryDeviceReputation("device-unknown"); rec != nil {
		t.Errorf("expected nil for unrated device, got %+v", rec)
	}
	if level := n.DeviceRiskLevel("device-unknown"); level != model.ReputationUnrated {
		t.Errorf("risk level: got %q, want %q", level, model.ReputationUnrated)
	}
}

func TestRiskLevel_boundariesOpenAtLowerBound(t *testing.T) {
	cases := []struct {
		score float64
		want  model.ReputationRiskLevel
	}{
		{0.86, model.ReputationTrustworthy},
		{0.85, model.ReputationNeutral},
		{0.61, model.ReputationNeutral},
		{0.60, model.ReputationSuspicious},
		{0.36, model.ReputationSuspicious},
		{0.35, model.ReputationDangerous},
		{0.0, model.ReputationDangerous},
	}
	for _, tc := range cases {
		if got := reputation.RiskLevel(tc.score); got != tc.want {
			t.Errorf("RiskLevel(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestStatistics_aggregates(t *testing.T) {
	n := newNetwork(t)
	n.RegisterParticipant("org-beta")

	reports := []struct{ device, threatType, severity string }{
		{"device-stat-1", "malware", "critical"},
		{"device-stat-1", "malware", "high"},
		{"device-stat-2", "phishing", "low"},
	}
	for _, r := range reports {
		if _, err := n.SubmitThreatReport("org-alpha", r.device, r.threatType, r.severity, "", ""); err != nil {
			t.Fatal(err)
		}
	}

	stats := n.Statistics()
	if stats.TotalParticipants != 2 {
		t.Errorf("participants: got %d, want 2", stats.TotalParticipants)
	}
	if stats.TrackedDevices != 2 {
		t.Errorf("tracked devices: got %d, want 2", stats.TrackedDevices)
	}
	if stats.TotalReports != 3 {
		t.Errorf("total reports: got %d, want 3", stats.TotalReports)
	}
	if stats.SeverityBreakdown[model.SeverityCritical] != 1 {
		t.Errorf("critical count: got %d, want 1", stats.SeverityBreakdown[model.SeverityCritical])
	}
	if len(stats.TopThreatTypes) != 2 || stats.TopThreatTypes[0].ThreatType != "malware" {
		t.Errorf("top threat types: got %+v, want malware first", stats.TopThreatTypes)
	}
}

func TestThreatIntelligenceSummary_aggregates(t *testing.T) {
	n := newNetwork(t)
	n.RegisterParticipant("org-beta")

	r1, err := n.SubmitThreatReport("org-alpha", "device-summary", "malware", "high", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := n.SubmitThreatReport("org-beta", "device-summary", "botnet", "medium", "", ""); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := n.VerifyReport(r1.ReportID, 0); err != nil {
			t.Fatal(err)
		}
	}

	summary := n.ThreatIntelligenceSummary("device-summary")
	if summary == nil {
		t.Fatal("expected a summary")
	}
	if summary.TotalReports != 2 {
		t.Errorf("total reports: got %d, want 2", summary.TotalReports)
	}
	if summary.VerifiedReports != 1 {
		t.Errorf("verified reports: got %d, want 1", summary.VerifiedReports)
	}
	if summary.DistinctReporters != 2 {
		t.Errorf("distinct reporters: got %d, want 2", summary.DistinctReporters)
	}
	if summary.ThreatTypes["malware"] != 1 || summary.ThreatTypes["botnet"] != 1 {
		t.Errorf("threat types: got %+v", summary.ThreatTypes)
	}

	if n.ThreatIntelligenceSummary("device-never-reported") != nil {
		t.Error("expected nil summary for an unreported device")
	}
}

func TestQueryDeviceReputation_returnsIsolatedCopy(t *testing.T) {
	n := newNetwork(t)
	if _, err := n.SubmitThreatReport("org-alpha", "device-isolated", "malware", "low", "", ""); err != nil {
		t.Fatal(err)
	}

	rec := n.QueryDeviceReputation("device-isolated")
	rec.ReputationScore = 0.0
	rec.ThreatHistory = append(rec.ThreatHistory, "tampered")

	fresh := n.QueryDeviceReputation("device-isolated")
	if fresh.ReputationScore == 0.0 {
		t.Error("mutating a returned record leaked into the network")
	}
	if len(fresh.ThreatHistory) != 1 {
		t.Error("appending to a returned record leaked into the network")
	}
}
