package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

func (c *Converter) convertMedia(ctx context.Context, inputPath, outputPath, format string) error {
	args, err := buildMediaArgs(inputPath, outputPath, format)
	if err != nil {
		return err
	}
	stderr, err := c.runner.Run(ctx, c.cfg.FFmpeg, args...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("ffmpeg exited with code %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr))
		}
		return fmt.Errorf("run ffmpeg: %w", err)
	}
	return nil
}

// buildMediaArgs mirrors the presets used for each target container.
func buildMediaArgs(inputPath, outputPath, format string) ([]string, error) {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", inputPath}
	switch format {
	case "mp3":
		args = append(args, "-vn", "-f", "mp3", "-b:a", "192k", "-ac", "2")
	case "wav":
		args = append(args, "-vn", "-f", "wav", "-ac", "2")
	case "mp4":
		args = append(args,
			"-f", "mp4",
			"-c:v", "libx264", "-b:v", "1000k",
			"-c:a", "aac", "-b:a", "192k", "-ac", "2",
			"-preset", "medium",
			"-movflags", "+faststart",
			"-pix_fmt", "yuv420p",
		)
	default:
		return nil, fmt.Errorf("no ffmpeg preset for %q", format)
	}
	return append(args, outputPath), nil
}
