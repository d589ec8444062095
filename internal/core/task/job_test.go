package task

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l1jgo/entreri/internal/core/ecs"
)

func TestLockSetWriteDominatesRead(t *testing.T) {
	s := newScheduler(t)
	job, err := s.CreateJob("mixed",
		&funcTask{access: Writes([]*ecs.ComponentType{typeB})},
		&funcTask{access: Reads(typeB, typeA)},
	)
	require.NoError(t, err)
	require.False(t, job.Exclusive())
	require.Equal(t, []LockSpec{
		{SystemLockName, LockRead},
		{"test.A", LockRead},
		{"test.B", LockWrite},
	}, job.Locks())
}

func TestLockSetReadThenWrite(t *testing.T) {
	s := newScheduler(t)
	job, err := s.CreateJob("read-then-write",
		&funcTask{access: Reads(typeC)},
		&funcTask{access: Writes([]*ecs.ComponentType{typeC})},
	)
	require.NoError(t, err)
	require.Equal(t, []LockSpec{
		{SystemLockName, LockRead},
		{"test.C", LockWrite},
	}, job.Locks())
}

func TestLockSetOrderIsDeterministic(t *testing.T) {
	s := newScheduler(t)
	forward, err := s.CreateJob("forward", &funcTask{access: Writes([]*ecs.ComponentType{typeA, typeB, typeC})})
	require.NoError(t, err)
	backward, err := s.CreateJob("backward", &funcTask{access: Writes([]*ecs.ComponentType{typeC, typeB, typeA})})
	require.NoError(t, err)
	require.Equal(t, forward.Locks(), backward.Locks())
}

func TestExclusiveJobTakesSystemWriteLock(t *testing.T) {
	s := newScheduler(t)
	job, err := s.CreateJob("exclusive",
		&funcTask{access: Reads(typeA)},
		&funcTask{access: Exclusive()},
	)
	require.NoError(t, err)
	require.True(t, job.Exclusive())
	require.Equal(t, LockSpec{SystemLockName, LockWrite}, job.Locks()[0])
	require.Len(t, job.Locks(), 2)
}

func TestCreateJobRejectsBadArguments(t *testing.T) {
	s := newScheduler(t)
	_, err := s.CreateJob("", &funcTask{})
	require.ErrorIs(t, err, ecs.ErrIllegalArgument)
	_, err = s.CreateJob("nil-task", &funcTask{}, nil)
	require.ErrorIs(t, err, ecs.ErrIllegalArgument)
	_, err = s.CreateJob("nil-type", &funcTask{access: Reads(nil)})
	require.ErrorIs(t, err, ecs.ErrIllegalArgument)
}

func TestEmptyJobRuns(t *testing.T) {
	s := newScheduler(t)
	job, err := s.CreateJob("empty")
	require.NoError(t, err)
	require.NoError(t, s.RunOnCurrentThread(job))
	require.Equal(t, []LockSpec{{SystemLockName, LockRead}}, job.Locks())
}

func TestTasksRunInOrderAfterReset(t *testing.T) {
	s := newScheduler(t)
	var trace []string
	first := &funcTask{}
	second := &funcTask{}
	first.process = func(*ecs.EntitySystem, *Job) (Task, error) {
		require.Equal(t, first.resets, second.resets, "every task is reset before the first is processed")
		trace = append(trace, "first")
		return nil, nil
	}
	second.process = func(*ecs.EntitySystem, *Job) (Task, error) {
		trace = append(trace, "second")
		return nil, nil
	}
	job, err := s.CreateJob("ordered", first, second)
	require.NoError(t, err)

	require.NoError(t, s.RunOnCurrentThread(job))
	require.NoError(t, s.RunOnCurrentThread(job))
	require.Equal(t, []string{"first", "second", "first", "second"}, trace)
	require.Equal(t, 2, first.resets)
	require.Equal(t, 2, second.resets)
	require.Equal(t, StateIdle, job.State())
}

func TestReportDispatchesInTaskOrder(t *testing.T) {
	s := newScheduler(t)
	var trace []string
	producer := &funcTask{process: func(_ *ecs.EntitySystem, job *Job) (Task, error) {
		require.NoError(t, job.Report(count{n: 2}))
		require.NoError(t, job.Report(count{n: 3}))
		require.NoError(t, job.Report(total{n: 5}))
		return nil, nil
	}}
	exact := &funcTask{receivers: []Receiver{
		Receive(func(c count) { trace = append(trace, "exact-count") }),
	}}
	family := &funcTask{receivers: []Receiver{
		Receive(func(n numeric) { trace = append(trace, "family") }),
		Receive(func(tt total) { trace = append(trace, "exact-total") }),
	}}
	job, err := s.CreateJob("results", exact, producer, family)
	require.NoError(t, err)
	require.NoError(t, s.RunOnCurrentThread(job))
	require.Equal(t, []string{
		"exact-count", "family",
		"exact-count", "family",
		"family", "exact-total",
	}, trace)
}

func TestReportResultWithoutReceivers(t *testing.T) {
	s := newScheduler(t)
	job, err := s.CreateJob("unheard", &funcTask{process: func(_ *ecs.EntitySystem, job *Job) (Task, error) {
		return nil, job.Report(count{n: 1})
	}})
	require.NoError(t, err)
	require.NoError(t, s.RunOnCurrentThread(job))
}

func TestReportSingletonTwice(t *testing.T) {
	s := newScheduler(t)
	job, err := s.CreateJob("singleton", &funcTask{process: func(_ *ecs.EntitySystem, job *Job) (Task, error) {
		require.NoError(t, job.Report(total{n: 1}))
		return nil, job.Report(total{n: 2})
	}})
	require.NoError(t, err)
	err = s.RunOnCurrentThread(job)
	require.ErrorIs(t, err, ecs.ErrIllegalState)

	// the singleton set is cleared per run
	job, err = s.CreateJob("singleton-per-run", &funcTask{process: func(_ *ecs.EntitySystem, job *Job) (Task, error) {
		return nil, job.Report(total{n: 1})
	}})
	require.NoError(t, err)
	require.NoError(t, s.RunOnCurrentThread(job))
	require.NoError(t, s.RunOnCurrentThread(job))
}

func TestReportOutsideTask(t *testing.T) {
	s := newScheduler(t)
	job, err := s.CreateJob("idle", &funcTask{})
	require.NoError(t, err)
	require.ErrorIs(t, job.Report(count{n: 1}), ecs.ErrIllegalState)
	require.NoError(t, s.RunOnCurrentThread(job))
	require.ErrorIs(t, job.Report(count{n: 1}), ecs.ErrIllegalState)
	require.ErrorIs(t, job.Report(nil), ecs.ErrIllegalArgument)
}

func TestPostProcessTasksRunAfterJob(t *testing.T) {
	s := newScheduler(t)
	var trace []string
	var followUpJob *Job
	followUp := &funcTask{
		access: Exclusive(),
		process: func(_ *ecs.EntitySystem, job *Job) (Task, error) {
			followUpJob = job
			trace = append(trace, "post")
			return nil, nil
		},
	}
	job, err := s.CreateJob("main",
		&funcTask{process: func(*ecs.EntitySystem, *Job) (Task, error) {
			trace = append(trace, "a")
			return followUp, nil
		}},
		&funcTask{process: func(*ecs.EntitySystem, *Job) (Task, error) {
			trace = append(trace, "b")
			return nil, nil
		}},
	)
	require.NoError(t, err)
	require.False(t, job.Exclusive())

	require.NoError(t, s.RunOnCurrentThread(job))
	require.Equal(t, []string{"a", "b", "post"}, trace)
	require.Equal(t, "main-postprocess", followUpJob.Name())
	require.True(t, followUpJob.Exclusive())
	require.Equal(t, StateChained, job.State())
}

func TestTaskErrorAbortsAndReleasesLocks(t *testing.T) {
	s := newScheduler(t)
	boom := errors.New("boom")
	ran := false
	job, err := s.CreateJob("failing",
		&funcTask{access: Exclusive(), process: func(*ecs.EntitySystem, *Job) (Task, error) {
			return nil, boom
		}},
		&funcTask{process: func(*ecs.EntitySystem, *Job) (Task, error) {
			ran = true
			return nil, nil
		}},
	)
	require.NoError(t, err)
	err = s.RunOnCurrentThread(job)
	require.ErrorIs(t, err, boom)
	require.False(t, ran)
	require.Equal(t, StateIdle, job.State())

	require.True(t, s.systemLock.TryLock(), "system lock still held")
	s.systemLock.Unlock()
}

func TestTaskPanicReleasesLocks(t *testing.T) {
	s := newScheduler(t)
	job, err := s.CreateJob("panicking", &funcTask{
		access: Writes([]*ecs.ComponentType{typeA}),
		process: func(*ecs.EntitySystem, *Job) (Task, error) {
			panic("kaboom")
		},
	})
	require.NoError(t, err)
	require.PanicsWithValue(t, "kaboom", func() { _ = s.RunOnCurrentThread(job) })

	require.True(t, s.typeLock(typeA).TryLock(), "type lock still held")
	s.typeLock(typeA).Unlock()
	require.True(t, s.systemLock.TryLock(), "system lock still held")
	s.systemLock.Unlock()
}

func TestJobString(t *testing.T) {
	s := newScheduler(t)
	job, err := s.CreateJob("named", &funcTask{}, &funcTask{})
	require.NoError(t, err)
	require.Equal(t, "Job(named, # tasks=2)", job.String())
	require.Equal(t, "entity-system-read", job.Locks()[0].String())
}
