package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSweeper struct{ mock.Mock }

func (m *mockSweeper) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

type mockPurger struct{ mock.Mock }

func (m *mockPurger) PurgeOlderThan(age time.Duration) (int, error) {
	args := m.Called(age)
	return args.Int(0), args.Error(1)
}

func TestNewJanitor_RejectsBadSchedule(t *testing.T) {
	_, err := NewJanitor(JanitorConfig{Schedule: "every now and then"}, nil, nil)
	assert.Error(t, err)
}

func TestRunOnce_CallsBoth(t *testing.T) {
	sweeper := &mockSweeper{}
	sweeper.On("Sweep", mock.Anything, time.Hour).Return(3, nil)
	purger := &mockPurger{}
	purger.On("PurgeOlderThan", 5*time.Minute).Return(2, nil)

	j, err := NewJanitor(JanitorConfig{JobTTL: time.Hour, Retention: 5 * time.Minute}, sweeper, purger)
	require.NoError(t, err)

	r := j.RunOnce(context.Background())
	assert.Equal(t, Report{JobsEvicted: 3, DownloadsPurged: 2}, r)
	sweeper.AssertExpectations(t)
	purger.AssertExpectations(t)
}

func TestRunOnce_ZeroDurationsDisable(t *testing.T) {
	sweeper := &mockSweeper{}
	purger := &mockPurger{}
	j, err := NewJanitor(JanitorConfig{}, sweeper, purger)
	require.NoError(t, err)

	assert.Equal(t, Report{}, j.RunOnce(context.Background()))
	sweeper.AssertNotCalled(t, "Sweep", mock.Anything, mock.Anything)
	purger.AssertNotCalled(t, "PurgeOlderThan", mock.Anything)
}

func TestRunOnce_ErrorsDoNotStopPass(t *testing.T) {
	sweeper := &mockSweeper{}
	sweeper.On("Sweep", mock.Anything, time.Hour).Return(0, errors.New("boom"))
	purger := &mockPurger{}
	purger.On("PurgeOlderThan", time.Minute).Return(1, nil)

	j, err := NewJanitor(JanitorConfig{JobTTL: time.Hour, Retention: time.Minute}, sweeper, purger)
	require.NoError(t, err)

	r := j.RunOnce(context.Background())
	assert.Equal(t, 1, r.DownloadsPurged)
	purger.AssertExpectations(t)
}

func TestStartStop(t *testing.T) {
	j, err := NewJanitor(JanitorConfig{Schedule: "@every 1h"}, nil, nil)
	require.NoError(t, err)
	j.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	j.Stop(ctx)
	assert.NoError(t, ctx.Err())
}
