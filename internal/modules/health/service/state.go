package service

import (
	"sync/atomic"
	"time"
)

// State is what the probes report. The engine updates it on every state change and tick.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	wsConnected  atomic.Bool
	lastTickUnix atomic.Int64
	engineState  atomic.Value // string
	lastOutcome  atomic.Value // string
	restarts     atomic.Int64
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.engineState.Store("idle")
	s.lastOutcome.Store("")
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

func (s *State) SetEngineState(v string) { s.engineState.Store(v) }
func (s *State) EngineState() string     { return s.engineState.Load().(string) }

// TouchTick records a finished decision and how it ended.
func (s *State) TouchTick(t time.Time, outcome string) {
	s.lastTickUnix.Store(t.Unix())
	s.lastOutcome.Store(outcome)
}

func (s *State) LastOutcome() string { return s.lastOutcome.Load().(string) }

func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) AddRestart()     { s.restarts.Add(1) }
func (s *State) Restarts() int64 { return s.restarts.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
