package scheduler

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScheduler() *Scheduler {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewScheduler(nil, log)
}

func TestScheduleSyncRejectsBadExpression(t *testing.T) {
	s := testScheduler()
	err := s.ScheduleSync("not a cron line")
	require.Error(t, err)
}

func TestStartRequiresJobs(t *testing.T) {
	s := testScheduler()
	err := s.Start()
	require.Error(t, err)
}

func TestStartStopLifecycle(t *testing.T) {
	s := testScheduler()
	require.NoError(t, s.ScheduleSync("0 * * * *"))

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.False(t, s.NextRun().IsZero())

	// double start fails
	require.Error(t, s.Start())

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())

	// stopping twice is a no-op
	require.NoError(t, s.Stop())
}

func TestScheduleWhileRunningFails(t *testing.T) {
	s := testScheduler()
	require.NoError(t, s.ScheduleSync("@hourly"))
	require.NoError(t, s.Start())
	defer s.Stop()

	err := s.ScheduleSync("@daily")
	require.Error(t, err)
}
