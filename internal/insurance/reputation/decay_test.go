package reputation

import (
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
)

func seedRecord(n *Network, deviceID string, score float64, lastUpdated time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	rec := n.records[deviceID]
	rec.ReputationScore = score
	rec.LastUpdated = lastUpdated
}

func TestApplyDecay_pullsTowardNeutral(t *testing.T) {
	n := NewNetwork("decay-test", zap.NewNop())
	n.RegisterParticipant("org-alpha")
	if _, err := n.SubmitThreatReport("org-alpha", "device-decay-low", "malware", "critical", "", ""); err != nil {
		t.Fatal(err)
	}

	// One full interval at score 0.10: distance 0.40 from neutral
	// retains factor 0.92, so 0.5 - 0.40*0.92 = 0.132.
	seedRecord(n, "device-decay-low", 0.10, time.Now().UTC().Add(-24*time.Hour))

	rec := n.QueryDeviceReputation("device-decay-low")
	if math.Abs(rec.ReputationScore-0.132) > 1e-3 {
		t.Errorf("decayed score: got %v, want ~0.132", rec.ReputationScore)
	}
	if rec.ReputationScore <= 0.10 || rec.ReputationScore >= 0.5 {
		t.Errorf("decay must move the score toward neutral without crossing it: got %v", rec.ReputationScore)
	}
}

func TestApplyDecay_highScoresDecayDown(t *testing.T) {
	n := NewNetwork("decay-test", zap.NewNop())
	n.RegisterParticipant("org-alpha")
	if _, err := n.SubmitThreatReport("org-alpha", "device-decay-high", "malware", "low", "", ""); err != nil {
		t.Fatal(err)
	}

	seedRecord(n, "device-decay-high", 0.90, time.Now().UTC().Add(-24*time.Hour))

	rec := n.QueryDeviceReputation("device-decay-high")
	want := 0.5 + 0.40*0.92
	if math.Abs(rec.ReputationScore-want) > 1e-3 {
		t.Errorf("decayed score: got %v, want ~%v", rec.ReputationScore, want)
	}
}

func TestApplyDecay_fractionalIntervals(t *testing.T) {
	n := NewNetwork("decay-test", zap.NewNop())
	n.RegisterParticipant("org-alpha")
	if _, err := n.SubmitThreatReport("org-alpha", "device-decay-frac", "malware", "critical", "", ""); err != nil {
		t.Fatal(err)
	}

	// Half an interval decays by 0.92^0.5.
	seedRecord(n, "device-decay-frac", 0.10, time.Now().UTC().Add(-12*time.Hour))

	rec := n.QueryDeviceReputation("device-decay-frac")
	want := 0.5 - 0.40*math.Pow(0.92, 0.5)
	if math.Abs(rec.ReputationScore-want) > 1e-3 {
		t.Errorf("decayed score: got %v, want ~%v", rec.ReputationScore, want)
	}
}

func TestApplyDecay_immediateRequeryIsNoOp(t *testing.T) {
	n := NewNetwork("decay-test", zap.NewNop())
	n.RegisterParticipant("org-alpha")
	if _, err := n.SubmitThreatReport("org-alpha", "device-decay-idem", "malware", "high", "", ""); err != nil {
		t.Fatal(err)
	}

	first := n.QueryDeviceReputation("device-decay-idem")
	second := n.QueryDeviceReputation("device-decay-idem")
	if first.ReputationScore != second.ReputationScore {
		t.Errorf("back-to-back queries must match exactly: %v != %v",
			first.ReputationScore, second.ReputationScore)
	}
	if !first.LastUpdated.Equal(second.LastUpdated) {
		t.Errorf("sub-second requery must not advance last_updated")
	}
}

func TestApplyDecay_persistsDecayedScore(t *testing.T) {
	n := NewNetwork("decay-test", zap.NewNop())
	n.RegisterParticipant("org-alpha")
	if _, err := n.SubmitThreatReport("org-alpha", "device-decay-persist", "malware", "critical", "", ""); err != nil {
		t.Fatal(err)
	}

	past := time.Now().UTC().Add(-24 * time.Hour)
	seedRecord(n, "device-decay-persist", 0.10, past)

	n.QueryDeviceReputation("device-decay-persist")

	n.mu.RLock()
	stored := n.records["device-decay-persist"]
	score, updated := stored.ReputationScore, stored.LastUpdated
	n.mu.RUnlock()

	if score == 0.10 {
		t.Error("decayed score should be written back to the record")
	}
	if !updated.After(past) {
		t.Error("last_updated should advance when decay applies")
	}
}
