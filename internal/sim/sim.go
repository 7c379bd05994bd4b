// Package sim generates synthetic agent activity for development when
// no real agent log is available.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/cannedoxygen/mainframe/internal/agent"
	"github.com/cannedoxygen/mainframe/internal/event"
)

var topics = []string{"crypto", "markets", "NFTs", "DeFi", "Web3"}

var processingTopics = []string{
	"market volatility", "bullish patterns", "bearish signals",
	"trading strategies", "price action",
}

var tweetTemplates = []string{
	"Never underestimate the power of HODLing through tough times. The best investors aren't swayed by volatility. #DiamondHands",
	"Just observed a bullish divergence on the 4-hour chart. This could be the reversal we've been waiting for. NFA.",
	"Markets don't go up in a straight line. Corrections are healthy and necessary for sustainable growth. #MarketWisdom",
	"Reminder: Your strategy should never depend on a single outcome. Diversify your positions and manage risk properly.",
	"The difference between amateur and professional traders isn't their win rate. It's their risk management. #TradingTips",
}

var systemLines = []string{
	"Memory consolidation cycle complete",
	"Refreshing market data feeds",
	"Agent heartbeat check passed",
	"Context window pruned",
	"Scheduled model warm-up finished",
}

// Routed is the downstream sink for generated events; satisfied by the
// router.
type Routed interface {
	Route(e event.Event)
}

// Simulator emits THINKING -> PROCESSING -> TWEET bursts for random
// agents, with occasional system chatter, through the normal routing
// path so sequencing and fan-out behave exactly as with a real log.
type Simulator struct {
	reg    *agent.Registry
	out    Routed
	logger *slog.Logger
	rng    *rand.Rand

	// pause is replaceable in tests to strip the delays.
	pause func(d time.Duration) bool

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(reg *agent.Registry, out Routed, logger *slog.Logger) *Simulator {
	s := &Simulator{
		reg:    reg,
		out:    out,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		stop:   make(chan struct{}),
	}
	s.pause = func(d time.Duration) bool {
		select {
		case <-time.After(d):
			return true
		case <-s.stop:
			return false
		}
	}
	return s
}

func (s *Simulator) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("sim: running in simulation mode")
		if !s.pause(3 * time.Second) {
			return
		}
		for {
			s.cycle()
			next := 5*time.Second + time.Duration(s.rng.Int63n(int64(15*time.Second)))
			if !s.pause(next) {
				return
			}
		}
	}()
}

func (s *Simulator) Stop() {
	close(s.stop)
	s.wg.Wait()
}

// cycle plays one burst of activity for a randomly chosen agent.
func (s *Simulator) cycle() {
	ids := s.reg.IDs()
	if len(ids) == 0 {
		return
	}
	agentID := ids[s.rng.Intn(len(ids))]

	s.out.Route(event.Event{
		AgentID: agentID,
		Kind:    event.KindThinking,
		Content: fmt.Sprintf("Analyzing recent trends about %s...", topics[s.rng.Intn(len(topics))]),
	})
	if !s.pause(3*time.Second + time.Duration(s.rng.Int63n(int64(2*time.Second)))) {
		return
	}

	s.out.Route(event.Event{
		AgentID: agentID,
		Kind:    event.KindProcessing,
		Content: fmt.Sprintf("Formulating response about %s...", processingTopics[s.rng.Intn(len(processingTopics))]),
	})
	if !s.pause(2*time.Second + time.Duration(s.rng.Int63n(int64(3*time.Second)))) {
		return
	}

	s.out.Route(event.Event{
		AgentID: agentID,
		Kind:    event.KindTweet,
		Content: "Tweet prepared and ready to send:",
		Metadata: map[string]string{
			"tweetContent": tweetTemplates[s.rng.Intn(len(tweetTemplates))],
		},
	})

	if s.rng.Float64() < 0.2 {
		kind := event.KindSystemInfo
		if s.rng.Float64() >= 0.7 {
			kind = event.KindSystemWarning
		}
		s.out.Route(event.Event{
			Kind:    kind,
			Content: systemLines[s.rng.Intn(len(systemLines))],
		})
	}
}
