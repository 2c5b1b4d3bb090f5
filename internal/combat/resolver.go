// Package combat decides attacks on the throne.
package combat

import (
	rand "math/rand/v2"
	"sync"
	"time"

	"throne/internal/economy"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

type Outcome struct {
	// HolderWon is true when the king survives the attack.
	HolderWon bool
	WinChance float64
	Roll      float64
}

// ChallengerWon is the complement of HolderWon.
func (o Outcome) ChallengerWon() bool {
	return !o.HolderWon
}

// Resolver draws a uniform roll in [0,1) and lets the holder win when the roll is
// below economy.WinChance(streak). Safe for concurrent use.
type Resolver struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewResolver returns a resolver whose sequence is fully determined by seed.
func NewResolver(seed int64) *Resolver {
	return &Resolver{rng: newSeeded(seed)}
}

// NewRandomResolver seeds from the wall clock.
func NewRandomResolver() *Resolver {
	return NewResolver(time.Now().UnixNano())
}

func (r *Resolver) Resolve(streak int) Outcome {
	chance := economy.WinChance(streak)
	roll := r.nextFloat()
	return Outcome{
		HolderWon: roll < chance,
		WinChance: chance,
		Roll:      roll,
	}
}

func (r *Resolver) nextFloat() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func newSeeded(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Fixed always reports the same winner. Useful for scripted games and tests.
type Fixed struct {
	HolderWins bool
}

func (f Fixed) Resolve(streak int) Outcome {
	chance := economy.WinChance(streak)
	roll := 0.0
	if !f.HolderWins {
		roll = chance
	}
	return Outcome{HolderWon: f.HolderWins, WinChance: chance, Roll: roll}
}
