package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCall struct {
	name string
	args []string
}

// fakeRunner replays scripted results and writes the transcript file when the
// whisper binary is invoked successfully.
type fakeRunner struct {
	calls      []fakeCall
	results    map[string]commandResult
	errs       map[string]error
	transcript string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (commandResult, error) {
	f.calls = append(f.calls, fakeCall{name: name, args: args})
	if err := f.errs[name]; err != nil {
		return f.results[name], err
	}
	if name == "whisper-cli" {
		for i, a := range args {
			if a == "-of" && i+1 < len(args) {
				if err := os.WriteFile(args[i+1]+".txt", []byte(f.transcript), 0o644); err != nil {
					return commandResult{}, err
				}
			}
		}
	}
	return f.results[name], nil
}

func newTestWhisper(t *testing.T, runner *fakeRunner) (*WhisperCpp, string) {
	t.Helper()
	dir := t.TempDir()
	modelsDir := filepath.Join(dir, "models")
	require.NoError(t, os.MkdirAll(modelsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modelsDir, "ggml-small.bin"), []byte("model"), 0o644))

	input := filepath.Join(dir, "clip.mp3")
	require.NoError(t, os.WriteFile(input, []byte("audio"), 0o644))

	w := NewWhisperCpp(WhisperCppConfig{ModelsDir: modelsDir, Threads: 4})
	w.runner = runner
	return w, input
}

func TestWhisperCpp_TranscribeSuccess(t *testing.T) {
	runner := &fakeRunner{transcript: "  hello world \n"}
	w, input := newTestWhisper(t, runner)

	text, err := w.Transcribe(context.Background(), input, Options{Model: "small", Language: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, "ffmpeg", runner.calls[0].name)
	assert.Equal(t, "whisper-cli", runner.calls[1].name)
	assert.Contains(t, runner.calls[1].args, "-sow")
	assert.Contains(t, runner.calls[1].args, "-otxt")
	assert.NotContains(t, runner.calls[1].args, "-ng")
}

func TestWhisperCpp_ForceCPUAddsNoGPUFlag(t *testing.T) {
	runner := &fakeRunner{transcript: "text"}
	w, input := newTestWhisper(t, runner)

	_, err := w.Transcribe(context.Background(), input, Options{Model: "small", ForceCPU: true})
	require.NoError(t, err)
	assert.Contains(t, runner.calls[1].args, "-ng")
}

func TestWhisperCpp_MetalFailureIsTyped(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]commandResult{
			"whisper-cli": {ExitCode: 1, Stderr: "ggml_metal_init: loading\nggml_metal_init: error: metal library is nil"},
		},
		errs: map[string]error{"whisper-cli": errors.New("exit status 1")},
	}
	w, input := newTestWhisper(t, runner)

	_, err := w.Transcribe(context.Background(), input, Options{Model: "small"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccelerationUnavailable)
	assert.NotErrorIs(t, err, ErrEngineFailure)

	var accel *AccelerationError
	require.ErrorAs(t, err, &accel)
	assert.Equal(t, "metal", accel.Backend)
}

func TestWhisperCpp_GenericFailure(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]commandResult{"whisper-cli": {ExitCode: 2, Stderr: "invalid wav header"}},
		errs:    map[string]error{"whisper-cli": errors.New("exit status 2")},
	}
	w, input := newTestWhisper(t, runner)

	_, err := w.Transcribe(context.Background(), input, Options{Model: "small"})
	assert.ErrorIs(t, err, ErrEngineFailure)
	assert.NotErrorIs(t, err, ErrAccelerationUnavailable)
	assert.Contains(t, err.Error(), "invalid wav header")
}

func TestWhisperCpp_FFmpegFailure(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]commandResult{"ffmpeg": {ExitCode: 1, Stderr: "moov atom not found"}},
		errs:    map[string]error{"ffmpeg": errors.New("exit status 1")},
	}
	w, input := newTestWhisper(t, runner)

	_, err := w.Transcribe(context.Background(), input, Options{Model: "small"})
	assert.ErrorIs(t, err, ErrEngineFailure)
	assert.Len(t, runner.calls, 1)
}

func TestWhisperCpp_MissingModel(t *testing.T) {
	runner := &fakeRunner{}
	w, input := newTestWhisper(t, runner)

	_, err := w.Transcribe(context.Background(), input, Options{Model: "large-v3"})
	assert.ErrorIs(t, err, ErrEngineFailure)
	assert.Empty(t, runner.calls)
}

func TestWhisperCpp_ModelPath(t *testing.T) {
	w := NewWhisperCpp(WhisperCppConfig{ModelsDir: "/models"})
	assert.Equal(t, filepath.Join("/models", "ggml-small.bin"), w.ModelPath(""))
	assert.Equal(t, filepath.Join("/models", "ggml-base.en.bin"), w.ModelPath("base.en"))
	assert.Equal(t, filepath.Join("/models", "custom.bin"), w.ModelPath("custom.bin"))
	assert.Equal(t, "/abs/model.bin", w.ModelPath("/abs/model.bin"))
}

func TestAccelerationError_Matching(t *testing.T) {
	err := error(&AccelerationError{Backend: "cuda", Err: errors.New("boom")})
	assert.ErrorIs(t, err, ErrAccelerationUnavailable)
	assert.Contains(t, err.Error(), "cuda")

	wrapped := errors.Join(errors.New("context"), err)
	assert.ErrorIs(t, wrapped, ErrAccelerationUnavailable)
}
