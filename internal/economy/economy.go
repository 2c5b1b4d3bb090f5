package economy

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

const (
	MinStake = int64(1)
	MaxStake = int64(10_000)

	StartingBalance = int64(1_000)

	MaxHouseEdge = 0.5

	baseWinChance   = 0.5
	streakBonus     = 0.05
	maxWinChance    = 0.7
	maxStreakMarker = 10
)

var (
	ErrInvalidStake = errors.New("invalid stake")
	ErrOutOfRange   = errors.New("house edge out of range")
)

// ValidateStake reports whether stake is inside [MinStake, MaxStake].
func ValidateStake(stake int64) error {
	if stake < MinStake || stake > MaxStake {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidStake, stake, MinStake, MaxStake)
	}
	return nil
}

// WinChance is the holder's probability of surviving an attack at the given streak.
func WinChance(streak int) float64 {
	if streak < 0 {
		streak = 0
	}
	return math.Min(baseWinChance+streakBonus*float64(streak), maxWinChance)
}

// Odds renders WinChance as "win/lose" whole percentages, e.g. "55/45".
func Odds(streak int) string {
	win := int(math.Round(WinChance(streak) * 100))
	return fmt.Sprintf("%d/%d", win, 100-win)
}

// StreakMarkers returns how many flame markers a streak earns on the game view.
func StreakMarkers(streak int) int {
	if streak <= 0 {
		return 0
	}
	return min(streak, maxStreakMarker)
}

// Engine owns the process-wide house edge. The edge is stored as float bits in an
// atomic word so payout computations never observe a torn update.
type Engine struct {
	edge atomic.Uint64
}

func NewEngine(houseEdge float64) (*Engine, error) {
	e := &Engine{}
	if err := e.SetHouseEdge(houseEdge); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) HouseEdge() float64 {
	return math.Float64frombits(e.edge.Load())
}

func (e *Engine) SetHouseEdge(percent float64) error {
	if math.IsNaN(percent) || percent < 0 || percent > MaxHouseEdge {
		return fmt.Errorf("%w: %v not in [0, %v]", ErrOutOfRange, percent, MaxHouseEdge)
	}
	e.edge.Store(math.Float64bits(percent))
	return nil
}

func (e *Engine) HouseCut(stake int64) int64 {
	return houseCut(stake, e.HouseEdge())
}

func (e *Engine) Payout(stake int64) int64 {
	return stake - houseCut(stake, e.HouseEdge())
}

// Settle returns payout and cut computed from a single read of the edge.
func (e *Engine) Settle(stake int64) (payout, cut int64) {
	cut = houseCut(stake, e.HouseEdge())
	return stake - cut, cut
}

type Info struct {
	HouseEdge   float64 `json:"house_edge"`
	IsZeroSum   bool    `json:"is_zero_sum"`
	Description string  `json:"description"`
}

func (e *Engine) Info() Info {
	edge := e.HouseEdge()
	info := Info{HouseEdge: edge, IsZeroSum: edge == 0}
	if info.IsZeroSum {
		info.Description = "Zero-sum game (no house edge)"
	} else {
		info.Description = fmt.Sprintf("%.1f%% house edge", edge*100)
	}
	return info
}

func houseCut(stake int64, edge float64) int64 {
	if stake <= 0 || edge <= 0 {
		return 0
	}
	return int64(math.Floor(float64(stake) * edge))
}
