package economy

import (
	"errors"
	"sync"
	"testing"
)

func TestWinChance(t *testing.T) {
	tests := []struct {
		streak int
		want   float64
	}{
		{streak: 0, want: 0.5},
		{streak: 1, want: 0.55},
		{streak: 4, want: 0.7},
		{streak: 100, want: 0.7},
	}
	for _, tc := range tests {
		got := WinChance(tc.streak)
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("streak=%d got=%v want=%v", tc.streak, got, tc.want)
		}
	}

	prev := WinChance(0)
	for streak := 1; streak <= 200; streak++ {
		got := WinChance(streak)
		if got < prev {
			t.Fatalf("win chance decreased at streak %d: %v < %v", streak, got, prev)
		}
		if got < 0.5 || got > 0.7 {
			t.Fatalf("win chance %v out of bounds at streak %d", got, streak)
		}
		prev = got
	}
}

func TestOdds(t *testing.T) {
	if got := Odds(0); got != "50/50" {
		t.Fatalf("got %q", got)
	}
	if got := Odds(2); got != "60/40" {
		t.Fatalf("got %q", got)
	}
	if got := Odds(9); got != "70/30" {
		t.Fatalf("got %q", got)
	}
}

func TestValidateStake(t *testing.T) {
	for _, stake := range []int64{1, 100, 10_000} {
		if err := ValidateStake(stake); err != nil {
			t.Fatalf("expected stake %d to be valid: %v", stake, err)
		}
	}
	for _, stake := range []int64{-5, 0, 10_001} {
		if err := ValidateStake(stake); !errors.Is(err, ErrInvalidStake) {
			t.Fatalf("expected stake %d to fail with ErrInvalidStake, got %v", stake, err)
		}
	}
}

func TestPayoutZeroSum(t *testing.T) {
	e, err := NewEngine(0)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	for stake := MinStake; stake <= MaxStake; stake++ {
		if got := e.Payout(stake); got != stake {
			t.Fatalf("stake=%d payout=%d", stake, got)
		}
	}
}

func TestPayoutWithHouseEdge(t *testing.T) {
	e, err := NewEngine(0.1)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if got := e.Payout(100); got != 90 {
		t.Fatalf("payout got %d want 90", got)
	}
	if got := e.HouseCut(100); got != 10 {
		t.Fatalf("cut got %d want 10", got)
	}
	payout, cut := e.Settle(7)
	if payout != 7 || cut != 0 {
		t.Fatalf("settle(7) got payout=%d cut=%d", payout, cut)
	}
}

func TestSetHouseEdge(t *testing.T) {
	e, _ := NewEngine(0)
	for _, bad := range []float64{-0.01, 0.51, 5} {
		if err := e.SetHouseEdge(bad); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("expected %v to be rejected, got %v", bad, err)
		}
	}
	if e.HouseEdge() != 0 {
		t.Fatalf("rejected update leaked: %v", e.HouseEdge())
	}
	if err := e.SetHouseEdge(0.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.Payout(100); got != 50 {
		t.Fatalf("payout got %d want 50", got)
	}
	if _, err := NewEngine(0.9); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected constructor to validate edge, got %v", err)
	}
}

func TestInfo(t *testing.T) {
	e, _ := NewEngine(0)
	if info := e.Info(); !info.IsZeroSum || info.Description != "Zero-sum game (no house edge)" {
		t.Fatalf("unexpected info %+v", info)
	}
	_ = e.SetHouseEdge(0.05)
	if info := e.Info(); info.IsZeroSum || info.Description != "5.0% house edge" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestConcurrentEdgeUpdates(t *testing.T) {
	e, _ := NewEngine(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = e.SetHouseEdge(0.25)
		}()
		go func() {
			defer wg.Done()
			if got := e.Payout(100); got != 100 && got != 75 {
				t.Errorf("torn payout %d", got)
			}
		}()
	}
	wg.Wait()
}
