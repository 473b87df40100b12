package execution

import (
	"testing"

	"TradeCore/internal/domain/models"
)

func TestModelDefaultsOnFirstUse(t *testing.T) {
	c := NewImpactCalibrator(nil, 0, 0, 0)
	m := c.Model("BTC-USD")
	if m.Symbol != "BTC-USD" {
		t.Fatalf("expected symbol set, got %+v", m)
	}
	if m.LinearImpact != defaultLinearImpact || m.TemporaryImpact != defaultTemporaryImpact {
		t.Fatalf("expected default coefficients, got %+v", m)
	}
}

func TestSeedOverridesDefaults(t *testing.T) {
	c := NewImpactCalibrator(map[string]models.MarketImpactModel{
		"ETH-USD": {LinearImpact: 1.5, SqrtImpact: 2, TemporaryImpact: 4, PermanentImpact: 0.5},
	}, 0, 0, 0)
	m := c.Model("ETH-USD")
	if m.LinearImpact != 1.5 || m.TemporaryImpact != 4 {
		t.Fatalf("seed not applied: %+v", m)
	}
}

func TestObserveNoOpBeforeMinSamples(t *testing.T) {
	c := NewImpactCalibrator(nil, 100, 10, 0.1)
	var m models.MarketImpactModel
	for i := 0; i < 9; i++ {
		m = c.Observe("BTC-USD", 1000, 10)
	}
	if m.TemporaryImpact != defaultTemporaryImpact {
		t.Fatalf("calibration ran below min samples: %+v", m)
	}
	if got := c.SampleCount("BTC-USD"); got != 9 {
		t.Fatalf("expected 9 samples, got %d", got)
	}
}

func TestObserveMovesTowardRealizedSlippage(t *testing.T) {
	c := NewImpactCalibrator(nil, 100, 10, 0.1)
	var m models.MarketImpactModel
	for i := 0; i < 20; i++ {
		m = c.Observe("BTC-USD", 1000, 10)
	}
	if m.TemporaryImpact <= defaultTemporaryImpact {
		t.Fatalf("expected temporary impact above default, got %v", m.TemporaryImpact)
	}
	if m.TemporaryImpact >= 10 {
		t.Fatalf("expected calibration to stay below target, got %v", m.TemporaryImpact)
	}
}

func TestHistoryWindowTrimmed(t *testing.T) {
	c := NewImpactCalibrator(nil, 5, 3, 0.1)
	for i := 0; i < 12; i++ {
		c.Observe("X", 100, 1)
	}
	if got := c.SampleCount("X"); got != 5 {
		t.Fatalf("expected window of 5 samples, got %d", got)
	}
}

func TestObserveDoesNotLeakInternalModel(t *testing.T) {
	c := NewImpactCalibrator(nil, 0, 0, 0)
	m := c.Observe("X", 100, 1)
	m.TemporaryImpact = 999
	if got := c.Model("X").TemporaryImpact; got == 999 {
		t.Fatalf("returned model aliases internal state")
	}
}
