package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// WhisperCppConfig locates the whisper.cpp CLI, its models and ffmpeg.
type WhisperCppConfig struct {
	Binary    string // whisper.cpp CLI, e.g. "whisper-cli"
	FFmpeg    string
	ModelsDir string
	Threads   int
}

// accelerationMarkers maps lower-cased stderr fragments to the backend that
// failed to initialise.
var accelerationMarkers = []struct {
	fragment string
	backend  string
}{
	{"metal library is nil", "metal"},
	{"failed to initialize metal", "metal"},
	{"ggml_metal_init: error", "metal"},
	{"no cuda-capable device", "cuda"},
	{"cuda error", "cuda"},
	{"ggml_cuda_init: failed", "cuda"},
	{"failed to initialize vulkan", "vulkan"},
}

// WhisperCpp runs the whisper.cpp command line tool after normalising the
// input to 16 kHz mono WAV with ffmpeg.
type WhisperCpp struct {
	cfg       WhisperCppConfig
	runner    commandRunner
	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
	readFile  func(name string) ([]byte, error)
	stat      func(name string) (os.FileInfo, error)
}

var _ Engine = (*WhisperCpp)(nil)

// NewWhisperCpp builds the adapter with OS dependencies.
func NewWhisperCpp(cfg WhisperCppConfig) *WhisperCpp {
	if cfg.Binary == "" {
		cfg.Binary = "whisper-cli"
	}
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = "ffmpeg"
	}
	return &WhisperCpp{
		cfg:       cfg,
		runner:    execRunner{},
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
		readFile:  os.ReadFile,
		stat:      os.Stat,
	}
}

func (w *WhisperCpp) Name() string { return "whispercpp" }

// ModelPath resolves a model name such as "small" to its ggml file.
func (w *WhisperCpp) ModelPath(model string) string {
	if model == "" {
		model = "small"
	}
	file := model
	if !strings.HasSuffix(file, ".bin") {
		file = "ggml-" + model + ".bin"
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(w.cfg.ModelsDir, file)
}

// Transcribe converts the input with ffmpeg, runs whisper.cpp and returns the
// text transcript.
func (w *WhisperCpp) Transcribe(ctx context.Context, filePath string, opts Options) (string, error) {
	if _, err := w.stat(filePath); err != nil {
		return "", fmt.Errorf("%w: cannot access input media: %v", ErrEngineFailure, err)
	}
	modelPath := w.ModelPath(opts.Model)
	if _, err := w.stat(modelPath); err != nil {
		return "", fmt.Errorf("%w: whisper model not found at %s", ErrEngineFailure, modelPath)
	}

	tempDir, err := w.mkdirTemp("", "andretools-whisper-*")
	if err != nil {
		return "", fmt.Errorf("%w: create workspace: %v", ErrEngineFailure, err)
	}
	defer func() {
		if err := w.removeAll(tempDir); err != nil {
			log.WithField("dir", tempDir).Warnf("whispercpp: failed to remove workspace: %v", err)
		}
	}()

	wavPath := filepath.Join(tempDir, "input-16k-mono.wav")
	res, err := w.runner.Run(ctx, w.cfg.FFmpeg, buildFFmpegArgs(filePath, wavPath)...)
	if err != nil {
		return "", fmt.Errorf("%w: ffmpeg audio conversion failed (exit %d): %s", ErrEngineFailure, res.ExitCode, lastLine(res.Stderr))
	}

	outBase := filepath.Join(tempDir, "transcript")
	args := buildWhisperArgs(modelPath, wavPath, outBase, opts, w.cfg.Threads)
	log.WithFields(log.Fields{"model": modelPath, "language": opts.Language, "force_cpu": opts.ForceCPU}).Debug("whispercpp: running")

	res, err = w.runner.Run(ctx, w.cfg.Binary, args...)
	if err != nil {
		return "", classifyFailure(res, err)
	}

	data, err := w.readFile(outBase + ".txt")
	if err != nil {
		return "", fmt.Errorf("%w: whisper produced no transcript file: %v", ErrEngineFailure, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// buildFFmpegArgs converts any supported media to the 16 kHz mono PCM WAV
// whisper.cpp expects.
func buildFFmpegArgs(inputPath, outputPath string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outputPath,
	}
}

// buildWhisperArgs produces a plain text transcript at outBase + ".txt".
func buildWhisperArgs(modelPath, wavPath, outBase string, opts Options, threads int) []string {
	language := opts.Language
	if language == "" {
		language = "auto"
	}
	args := []string{
		"-m", modelPath,
		"-f", wavPath,
		"-l", language,
		"-sow",
		"-otxt",
		"-of", outBase,
		"-np",
	}
	if threads > 0 {
		args = append(args, "-t", strconv.Itoa(threads))
	}
	if opts.ForceCPU {
		args = append(args, "-ng")
	}
	return args
}

// classifyFailure turns a failed whisper.cpp run into a typed error.
func classifyFailure(res commandResult, runErr error) error {
	output := strings.ToLower(res.Stderr + "\n" + res.Stdout)
	for _, m := range accelerationMarkers {
		if strings.Contains(output, m.fragment) {
			return &AccelerationError{Backend: m.backend, Detail: lastLine(res.Stderr), Err: runErr}
		}
	}
	return fmt.Errorf("%w: whisper exited with code %d: %s", ErrEngineFailure, res.ExitCode, lastLine(res.Stderr))
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
