package sim

import (
	"math/rand"
	"time"
)

// Test hooks.

func (s *Simulator) SetSeed(seed int64) { s.rng = rand.New(rand.NewSource(seed)) }

func (s *Simulator) SetPause(fn func(time.Duration) bool) { s.pause = fn }

func (s *Simulator) Cycle() { s.cycle() }
