package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"andretools/internal/engine"
	"andretools/internal/models"
	"andretools/internal/store"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Transcribe(ctx context.Context, path string, opts engine.Options) (string, error) {
	args := m.Called(ctx, path, opts)
	return args.String(0), args.Error(1)
}

func (m *mockEngine) Name() string { return "mock" }

type panicEngine struct{}

func (panicEngine) Transcribe(context.Context, string, engine.Options) (string, error) {
	panic("decoder exploded")
}

func (panicEngine) Name() string { return "panic" }

var defaultOpts = engine.Options{Model: "small", Language: "auto"}

func newUpload(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload-1.mp3")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o644))
	return path
}

func startJob(t *testing.T, eng engine.Engine, concurrency int) (*store.JobStore, models.Job, string) {
	t.Helper()
	jobs := store.NewJobStore(nil)
	r, err := NewRunner(Deps{Jobs: jobs, Engine: eng, Options: defaultOpts, Concurrency: concurrency})
	require.NoError(t, err)

	path := newUpload(t)
	job, err := jobs.Create(context.Background(), models.SourceMeta{FileName: "clip.mp3", FileSize: 2048, FilePath: path})
	require.NoError(t, err)

	r.Start(job, path)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))
	return jobs, job, path
}

func TestRunner_Completes(t *testing.T) {
	eng := new(mockEngine)
	eng.On("Transcribe", mock.Anything, mock.Anything, defaultOpts).Return("hello world", nil).Once()

	jobs, job, path := startJob(t, eng, 1)

	got, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, "hello world", got.Result)
	assert.NotNil(t, got.CompletedAt)
	assert.NoFileExists(t, path)
	eng.AssertExpectations(t)
}

func TestRunner_LogsElapsedFromJobRecord(t *testing.T) {
	hook := logtest.NewGlobal()
	t.Cleanup(hook.Reset)
	prev := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	t.Cleanup(func() { log.SetLevel(prev) })

	eng := new(mockEngine)
	eng.On("Transcribe", mock.Anything, mock.Anything, defaultOpts).Return("hello world", nil).Once()
	jobs, job, _ := startJob(t, eng, 1)

	got, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)

	var entry *log.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "transcription completed" {
			entry = e
		}
	}
	require.NotNil(t, entry, "completion was not logged")
	assert.Equal(t, job.ID, entry.Data["job_id"])
	assert.Equal(t, got.Elapsed(time.Now()).Round(time.Millisecond), entry.Data["elapsed"])
}

func TestRunner_FallbackRetryOnAccelerationFailure(t *testing.T) {
	cpuOpts := defaultOpts
	cpuOpts.ForceCPU = true

	eng := new(mockEngine)
	eng.On("Transcribe", mock.Anything, mock.Anything, defaultOpts).
		Return("", &engine.AccelerationError{Backend: "metal", Detail: "metal library is nil"}).Once()
	eng.On("Transcribe", mock.Anything, mock.Anything, cpuOpts).Return("from cpu", nil).Once()

	jobs, job, path := startJob(t, eng, 0)

	got, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, "from cpu", got.Result)
	eng.AssertNumberOfCalls(t, "Transcribe", 2)
	assert.NoFileExists(t, path)
}

func TestRunner_FallbackRetryAlsoFails(t *testing.T) {
	cpuOpts := defaultOpts
	cpuOpts.ForceCPU = true

	eng := new(mockEngine)
	eng.On("Transcribe", mock.Anything, mock.Anything, defaultOpts).
		Return("", &engine.AccelerationError{Backend: "metal"}).Once()
	eng.On("Transcribe", mock.Anything, mock.Anything, cpuOpts).
		Return("", errors.New("cpu path broken")).Once()

	jobs, job, path := startJob(t, eng, 0)

	got, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusError, got.Status)
	assert.Contains(t, got.ErrorDetail, "cpu path broken")
	eng.AssertNumberOfCalls(t, "Transcribe", 2)
	assert.NoFileExists(t, path)
}

func TestRunner_GenericFailureIsNotRetried(t *testing.T) {
	eng := new(mockEngine)
	eng.On("Transcribe", mock.Anything, mock.Anything, defaultOpts).
		Return("", errors.New("engine crashed")).Once()

	jobs, job, path := startJob(t, eng, 0)

	got, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusError, got.Status)
	assert.Equal(t, "engine crashed", got.ErrorDetail)
	assert.Empty(t, got.Result)
	eng.AssertNumberOfCalls(t, "Transcribe", 1)
	assert.NoFileExists(t, path)
}

func TestRunner_EmptyResultIsAnError(t *testing.T) {
	for _, text := range []string{"", "   \n\t"} {
		eng := new(mockEngine)
		eng.On("Transcribe", mock.Anything, mock.Anything, defaultOpts).Return(text, nil).Once()

		jobs, job, path := startJob(t, eng, 0)

		got, err := jobs.Get(context.Background(), job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusError, got.Status)
		assert.Equal(t, models.ErrEmptyResult.Error(), got.ErrorDetail)
		assert.NoFileExists(t, path)
	}
}

func TestRunner_PanicBecomesJobError(t *testing.T) {
	jobs, job, path := startJob(t, panicEngine{}, 0)

	got, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusError, got.Status)
	assert.Contains(t, got.ErrorDetail, "decoder exploded")
	assert.NoFileExists(t, path)
}

func TestRunner_CleanupFailureDoesNotMaskOutcome(t *testing.T) {
	eng := new(mockEngine)
	eng.On("Transcribe", mock.Anything, mock.Anything, defaultOpts).Return("ok", nil).Once()

	jobs := store.NewJobStore(nil)
	r, err := NewRunner(Deps{Jobs: jobs, Engine: eng, Options: defaultOpts})
	require.NoError(t, err)
	var removals int32
	r.removeFile = func(string) error {
		atomic.AddInt32(&removals, 1)
		return errors.New("permission denied")
	}

	job, err := jobs.Create(context.Background(), models.SourceMeta{FileName: "clip.mp3"})
	require.NoError(t, err)
	r.Start(job, "/tmp/does-not-matter.mp3")
	require.NoError(t, r.Wait(context.Background()))

	got, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&removals))
}

// blockingEngine holds every call until release is closed.
type blockingEngine struct {
	active  int32
	peak    int32
	release chan struct{}
}

func (b *blockingEngine) Transcribe(context.Context, string, engine.Options) (string, error) {
	n := atomic.AddInt32(&b.active, 1)
	for {
		p := atomic.LoadInt32(&b.peak)
		if n <= p || atomic.CompareAndSwapInt32(&b.peak, p, n) {
			break
		}
	}
	<-b.release
	atomic.AddInt32(&b.active, -1)
	return "done", nil
}

func (b *blockingEngine) Name() string { return "blocking" }

func TestRunner_ConcurrencyIsBounded(t *testing.T) {
	eng := &blockingEngine{release: make(chan struct{})}
	jobs := store.NewJobStore(nil)
	r, err := NewRunner(Deps{Jobs: jobs, Engine: eng, Options: defaultOpts, Concurrency: 2})
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 5; i++ {
		path := newUpload(t)
		job, err := jobs.Create(context.Background(), models.SourceMeta{FileName: "clip.mp3", FilePath: path})
		require.NoError(t, err)
		ids = append(ids, job.ID)
		r.Start(job, path)
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&eng.active) == 2 }, 2*time.Second, 5*time.Millisecond)
	for _, id := range ids {
		got, err := jobs.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusProcessing, got.Status)
	}

	close(eng.release)
	require.NoError(t, r.Wait(context.Background()))
	assert.LessOrEqual(t, atomic.LoadInt32(&eng.peak), int32(2))
	for _, id := range ids {
		got, err := jobs.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusCompleted, got.Status)
	}
}

func TestRecognize_ForceCPUIsNotRetriedAgain(t *testing.T) {
	cpuOpts := defaultOpts
	cpuOpts.ForceCPU = true

	eng := new(mockEngine)
	eng.On("Transcribe", mock.Anything, "in.wav", cpuOpts).
		Return("", &engine.AccelerationError{Backend: "metal"}).Once()

	_, err := Recognize(context.Background(), eng, "in.wav", cpuOpts)
	assert.ErrorIs(t, err, engine.ErrAccelerationUnavailable)
	eng.AssertNumberOfCalls(t, "Transcribe", 1)
}

func TestNewRunner_RequiresDeps(t *testing.T) {
	_, err := NewRunner(Deps{Engine: new(mockEngine)})
	assert.Error(t, err)
	_, err = NewRunner(Deps{Jobs: store.NewJobStore(nil)})
	assert.Error(t, err)
}
