package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"intraday_trader/internal/broker"
	"intraday_trader/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRunner struct {
	errs  []error
	calls int

	// runFor moves clock forward by runFor[i] during call i.
	clock  *fakeClock
	runFor []time.Duration
}

func (r *scriptedRunner) Run(context.Context) error {
	i := r.calls
	r.calls++
	if i < len(r.runFor) {
		r.clock.Advance(r.runFor[i])
	}
	if i < len(r.errs) {
		return r.errs[i]
	}
	return nil
}

func TestSupervisor_RestartsAfterError(t *testing.T) {
	clock := newFakeClock(t0)
	n := &recordingNotifier{}
	r := &scriptedRunner{errs: []error{broker.Unavailable("quote", errBoom)}}
	var restarted int

	sup := NewSupervisor(r, n, clock, 3, time.Second, time.Minute)
	sup.OnRestart = func() { restarted++ }
	err := sup.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, r.calls)
	assert.Equal(t, 1, restarted)
	assert.Equal(t, []string{"Error Report: BrokerUnavailable"}, n.Subjects())
	assert.Equal(t, []time.Duration{time.Second}, clock.Sleeps())
}

func TestSupervisor_GivesUp(t *testing.T) {
	clock := newFakeClock(t0)
	n := &recordingNotifier{}
	r := &scriptedRunner{errs: []error{errBoom, errBoom, errBoom, errBoom}}

	err := NewSupervisor(r, n, clock, 2, time.Second, time.Minute).Run(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, r.calls)
	assert.Len(t, n.Subjects(), 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.Sleeps())
}

func TestSupervisor_LongRunResetsBudget(t *testing.T) {
	clock := newFakeClock(t0)
	r := &scriptedRunner{
		errs:   []error{errBoom, errBoom, errBoom, errBoom},
		clock:  clock,
		runFor: []time.Duration{0, 10 * time.Minute, 0},
	}

	sup := NewSupervisor(r, &recordingNotifier{}, clock, 1, time.Second, time.Minute)
	sup.ResetAfter = 5 * time.Minute
	err := sup.Run(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, r.calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.Sleeps())
}

func TestSupervisor_ShortRunsKeepBudget(t *testing.T) {
	clock := newFakeClock(t0)
	r := &scriptedRunner{
		errs:   []error{errBoom, errBoom, errBoom},
		clock:  clock,
		runFor: []time.Duration{0, 4 * time.Minute},
	}

	sup := NewSupervisor(r, &recordingNotifier{}, clock, 1, time.Second, time.Minute)
	sup.ResetAfter = 5 * time.Minute
	err := sup.Run(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, r.calls)
}

func TestSupervisor_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &scriptedRunner{errs: []error{context.Canceled}}

	err := NewSupervisor(r, &recordingNotifier{}, newFakeClock(t0), 3, time.Second, time.Minute).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{broker.Unavailable("orders", errBoom), "BrokerUnavailable"},
		{fmt.Errorf("insert trade: %w", store.ErrWriteFailed), "StoreWriteFailed"},
		{fmt.Errorf("create position: %w", store.ErrPositionExists), "PositionExists"},
		{context.DeadlineExceeded, "Timeout"},
		{errBoom, "*errors.errorString"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorType(tt.err))
		})
	}
}
