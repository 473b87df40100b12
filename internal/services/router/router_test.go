package router

import (
	"math/rand"
	"testing"

	"TradeCore/internal/domain/models"
)

func newTestRouter(t *testing.T, ids []string, seed int64) *Router {
	t.Helper()
	r, err := New(ids, DefaultConfig(), rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNewRejectsEmptyPolicies(t *testing.T) {
	if _, err := New(nil, DefaultConfig(), nil); err == nil {
		t.Fatalf("expected error for empty policy set")
	}
}

func TestNewRejectsDuplicatePolicies(t *testing.T) {
	if _, err := New([]string{"a", "b", "a"}, DefaultConfig(), nil); err == nil {
		t.Fatalf("expected error for duplicate policy id")
	}
}

func TestPosteriorsStartFlat(t *testing.T) {
	r := newTestRouter(t, []string{"a", "b", "c"}, 1)
	ps := r.Posteriors()
	if len(ps) != 3 {
		t.Fatalf("expected 3 posteriors, got %d", len(ps))
	}
	for i, want := range []string{"a", "b", "c"} {
		p := ps[i]
		if p.PolicyID != want {
			t.Fatalf("posterior %d: expected %q, got %q", i, want, p.PolicyID)
		}
		if p.Alpha != 1 || p.Beta != 1 || p.Count != 0 {
			t.Fatalf("posterior %q not flat: %+v", p.PolicyID, p)
		}
	}
}

func TestUpdateShiftsPosterior(t *testing.T) {
	r := newTestRouter(t, []string{"a"}, 1)

	p := r.Update("a", 0.5, nil)
	if p.Alpha != 1.5 || p.Beta != 1 {
		t.Fatalf("positive reward: expected alpha 1.5 beta 1, got %+v", p)
	}
	p = r.Update("a", -0.25, nil)
	if p.Alpha != 1.5 || p.Beta != 1.25 {
		t.Fatalf("negative reward: expected alpha 1.5 beta 1.25, got %+v", p)
	}
	if p.Count != 2 {
		t.Fatalf("expected count 2, got %d", p.Count)
	}
	if p.SumReward != 0.25 {
		t.Fatalf("expected sum 0.25, got %v", p.SumReward)
	}
}

func TestUpdateAutoRegistersUnknownPolicy(t *testing.T) {
	r := newTestRouter(t, []string{"a"}, 1)
	p := r.Update("late", 1, nil)
	if p.PolicyID != "late" || p.Alpha != 2 || p.Count != 1 {
		t.Fatalf("unexpected posterior %+v", p)
	}
	ps := r.Posteriors()
	if len(ps) != 2 || ps[1].PolicyID != "late" {
		t.Fatalf("expected late policy registered last, got %+v", ps)
	}
}

func TestChooseReturnsRegisteredPolicy(t *testing.T) {
	ids := []string{"a", "b", "c"}
	r := newTestRouter(t, ids, 7)
	known := map[string]bool{"a": true, "b": true, "c": true}
	for i := 0; i < 50; i++ {
		ch := r.Choose(models.RouterContext{Regime: models.RegimeBull})
		if !known[ch.PolicyID] {
			t.Fatalf("choice %d: unknown policy %q", i, ch.PolicyID)
		}
		if ch.ExplorationBonus < 0 {
			t.Fatalf("choice %d: negative exploration bonus %v", i, ch.ExplorationBonus)
		}
		if ch.Timestamp.IsZero() {
			t.Fatalf("choice %d: zero timestamp", i)
		}
	}
}

func TestChooseDeterministicForSeed(t *testing.T) {
	ctx := models.RouterContext{Regime: models.RegimeBear, BookImbalance: 0.4}
	a := newTestRouter(t, []string{"x", "y", "z"}, 42)
	b := newTestRouter(t, []string{"x", "y", "z"}, 42)
	for i := 0; i < 20; i++ {
		ca, cb := a.Choose(ctx), b.Choose(ctx)
		if ca.PolicyID != cb.PolicyID {
			t.Fatalf("draw %d diverged: %q vs %q", i, ca.PolicyID, cb.PolicyID)
		}
	}
}

func TestRouterConvergesToRewardedPolicy(t *testing.T) {
	r := newTestRouter(t, []string{"good", "bad"}, 99)
	for i := 0; i < 50; i++ {
		r.Update("good", 0.01, nil)
		r.Update("bad", -0.01, nil)
	}

	var good, bad models.PolicyPosterior
	for _, p := range r.Posteriors() {
		switch p.PolicyID {
		case "good":
			good = p
		case "bad":
			bad = p
		}
	}
	if good.Mean() <= bad.Mean() {
		t.Fatalf("posterior means not ordered: good %v, bad %v", good.Mean(), bad.Mean())
	}
	if good.Alpha <= 1 || bad.Beta <= 1 {
		t.Fatalf("rewards did not move the priors: good %+v, bad %+v", good, bad)
	}

	wins := 0
	for i := 0; i < 1000; i++ {
		if r.Choose(models.RouterContext{}).PolicyID == "good" {
			wins++
		}
	}
	if wins < 600 {
		t.Fatalf("expected rewarded policy to win at least 60%%, won %d/1000", wins)
	}
}

func TestBreakoutBiasOnImbalancedBook(t *testing.T) {
	r := newTestRouter(t, []string{"breakout", "other"}, 11)
	ctx := models.RouterContext{BookImbalance: 0.9}
	wins := 0
	for i := 0; i < 1000; i++ {
		if r.Choose(ctx).PolicyID == "breakout" {
			wins++
		}
	}
	if wins <= 500 {
		t.Fatalf("expected breakout bias to tilt selection, won %d/1000", wins)
	}
}

func TestLastDecision(t *testing.T) {
	r := newTestRouter(t, []string{"a"}, 1)
	if d := r.LastDecision(); d != nil {
		t.Fatalf("expected nil before first decision, got %+v", d)
	}
	ctx := models.RouterContext{Regime: models.RegimeSideways, SpreadBps: 3}
	ch := r.Choose(ctx)
	d := r.LastDecision()
	if d == nil {
		t.Fatalf("expected decision after Choose")
	}
	if d.Choice.PolicyID != ch.PolicyID || d.Context != ctx {
		t.Fatalf("last decision mismatch: %+v", d)
	}
}

func TestRestoreSkipsInvalidEntries(t *testing.T) {
	r := newTestRouter(t, []string{"a"}, 1)
	r.Restore([]models.PolicyPosterior{
		{PolicyID: "a", Alpha: 5, Beta: 2, Count: 6},
		{PolicyID: "", Alpha: 3, Beta: 3, Count: 9},
		{PolicyID: "bad", Alpha: 0.5, Beta: 1, Count: 4},
		{PolicyID: "new", Alpha: 2, Beta: 2, Count: 3},
	})

	ps := r.Posteriors()
	if len(ps) != 2 {
		t.Fatalf("expected 2 posteriors after restore, got %d", len(ps))
	}
	if ps[0].Alpha != 5 || ps[0].Count != 6 {
		t.Fatalf("restored posterior mismatch: %+v", ps[0])
	}
	if ps[1].PolicyID != "new" {
		t.Fatalf("expected new policy registered, got %+v", ps[1])
	}
}

func TestFeaturizeOneHotRegime(t *testing.T) {
	f := Featurize(models.RouterContext{Regime: models.RegimeBear, FundingRate: 0.001})
	if f[idxRegimeBear] != 1 || f[idxRegimeBull] != 0 || f[idxRegimeSideways] != 0 {
		t.Fatalf("bad regime encoding: %v", f)
	}
	if f[idxFundingRate] != 0.001 {
		t.Fatalf("funding rate not mapped: %v", f)
	}
	if len(f) != FeatureDim {
		t.Fatalf("expected dim %d, got %d", FeatureDim, len(f))
	}
}
