package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu   sync.Mutex
	refs []time.Time
	err  error
}

func (r *recordingRunner) RunOnce(_ context.Context, reference time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = append(r.refs, reference)
	return r.err
}

func TestTick_PassesReferenceInLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	runner := &recordingRunner{}
	s := New("* * * * *", loc, runner, nil)

	fixed := time.Date(2026, 10, 15, 13, 0, 30, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.tick()

	require.Len(t, runner.refs, 1)
	assert.True(t, fixed.Equal(runner.refs[0]))
	assert.Equal(t, loc, runner.refs[0].Location())
	assert.Equal(t, 10, runner.refs[0].Hour())
}

func TestTick_SurvivesRunnerError(t *testing.T) {
	runner := &recordingRunner{err: errors.New("redis down")}
	s := New("* * * * *", nil, runner, nil)

	assert.NotPanics(t, s.tick)
	assert.Len(t, runner.refs, 1)
}

func TestStart_InvalidSpec(t *testing.T) {
	s := New("every full moon", time.UTC, &recordingRunner{}, nil)
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := New("*/5 * * * *", time.UTC, &recordingRunner{}, nil)
	require.NoError(t, s.Start())
	s.Stop()
}
