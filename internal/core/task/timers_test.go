package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/l1jgo/entreri/internal/core/ecs"
)

func TestFixedDelta(t *testing.T) {
	s := newScheduler(t)
	var got []time.Duration
	job, err := s.CreateJob("fixed", FixedDelta(20*time.Millisecond), &funcTask{receivers: []Receiver{
		Receive(func(e ElapsedTime) { got = append(got, e.Delta) }),
	}})
	require.NoError(t, err)
	require.NoError(t, s.RunOnCurrentThread(job))
	require.NoError(t, s.RunOnCurrentThread(job))
	require.Equal(t, []time.Duration{20 * time.Millisecond, 20 * time.Millisecond}, got)
	require.InDelta(t, 0.02, ElapsedTime{Delta: got[0]}.Seconds(), 1e-9)
}

func TestMeasuredDelta(t *testing.T) {
	s := newScheduler(t)
	clock := time.Unix(1000, 0)
	timer := &measuredDeltaTask{now: func() time.Time { return clock }}

	var got []time.Duration
	job, err := s.CreateJob("measured", timer, &funcTask{receivers: []Receiver{
		Receive(func(e ElapsedTime) { got = append(got, e.Delta) }),
	}})
	require.NoError(t, err)
	require.NoError(t, s.RunOnCurrentThread(job))
	clock = clock.Add(16 * time.Millisecond)
	require.NoError(t, s.RunOnCurrentThread(job))
	clock = clock.Add(4 * time.Millisecond)
	require.NoError(t, s.RunOnCurrentThread(job))
	require.Equal(t, []time.Duration{0, 16 * time.Millisecond, 4 * time.Millisecond}, got)
}

func TestTwoTimersInOneJob(t *testing.T) {
	s := newScheduler(t)
	job, err := s.CreateJob("double", FixedDelta(time.Millisecond), MeasuredDelta())
	require.NoError(t, err)
	require.ErrorIs(t, s.RunOnCurrentThread(job), ecs.ErrIllegalState)
}
