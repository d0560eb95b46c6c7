package snapkeeper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerSchedule(t *testing.T) {
	conn := newFakeConnector()
	day, err := testRotation(conn, nil, PeriodDay, 1)
	require.NoError(t, err)
	week, err := testRotation(conn, nil, PeriodWeek, 1)
	require.NoError(t, err)

	s := NewScheduler(discardLogger())
	require.NoError(t, s.Schedule("0 1 * * *", day))

	err = s.Schedule("0 2 * * *", day)
	assert.EqualError(t, err, `period "day" is already scheduled`)

	err = s.Schedule("61 * * * *", week)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid cron schedule "61 * * * *" for period "week"`)
	assert.Nil(t, s.NextRun(PeriodWeek))
}

func TestSchedulerStartStop(t *testing.T) {
	conn := newFakeConnector()
	day, err := testRotation(conn, nil, PeriodDay, 1)
	require.NoError(t, err)

	s := NewScheduler(discardLogger())
	require.NoError(t, s.Schedule("@every 1h", day))
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun(PeriodDay))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	assert.True(t, s.IsRunning())
	require.NotNil(t, s.NextRun(PeriodDay))

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestSchedulerStopsWithContext(t *testing.T) {
	s := NewScheduler(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestSchedulerRunRotation(t *testing.T) {
	conn := newFakeConnector()
	conn.addVolume(Volume{ID: "vol-a"})
	day, err := testRotation(conn, nil, PeriodDay, 1)
	require.NoError(t, err)

	s := NewScheduler(discardLogger())
	s.runRotation(day)
	assert.Len(t, conn.snapshotsOf("vol-a"), 1)

	conn.listVolumesErr = errBoom
	assert.NotPanics(t, func() { s.runRotation(day) })
}

// slowConnector holds ListVolumes until the test has had a chance to
// stop the scheduler.
type slowConnector struct {
	*fakeConnector
	started  chan struct{}
	once     atomic.Bool
	finished atomic.Bool
	delay    time.Duration
}

func (c *slowConnector) ListVolumes(ctx context.Context, filter Filter) ([]Volume, error) {
	if c.once.CompareAndSwap(false, true) {
		close(c.started)
	}
	time.Sleep(c.delay)
	c.finished.Store(true)
	return nil, nil
}

func TestSchedulerStopWaitsForRunningRotation(t *testing.T) {
	conn := &slowConnector{
		fakeConnector: newFakeConnector(),
		started:       make(chan struct{}),
		delay:         300 * time.Millisecond,
	}
	day, err := testRotation(conn, nil, PeriodDay, 1)
	require.NoError(t, err)

	s := NewScheduler(discardLogger())
	require.NoError(t, s.Schedule("@every 1s", day))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	select {
	case <-conn.started:
	case <-time.After(5 * time.Second):
		t.Fatal("rotation never started")
	}

	// the context stops the scheduler first, Stop must still wait
	cancel()
	require.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, time.Millisecond)
	s.Stop()
	assert.True(t, conn.finished.Load())
}
