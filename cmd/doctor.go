package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"andretools/internal/config"
	"andretools/internal/engine"
)

type check struct {
	name   string
	detail string
	err    error
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check external tools, models and directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		cfg := appInstance.Config

		var checks []check
		checks = append(checks, lookPath("ffmpeg (conversion)", cfg.Conversion.FFmpeg))
		if cfg.Engine.Provider == config.ProviderWhisperCpp {
			wc := cfg.Engine.WhisperCpp
			checks = append(checks,
				lookPath("ffmpeg (transcription)", wc.FFmpeg),
				lookPath("whisper.cpp CLI", wc.Binary),
			)
			model := engine.NewWhisperCpp(engine.WhisperCppConfig{ModelsDir: wc.ModelsDir}).ModelPath(cfg.Engine.Model)
			checks = append(checks, statPath("model "+cfg.Engine.Model, model))
		} else {
			checks = append(checks, check{name: "openai api key", detail: "configured"})
		}
		for _, dir := range []string{cfg.Storage.UploadsDir, cfg.Storage.DownloadsDir, cfg.Storage.DataDir} {
			checks = append(checks, statPath("directory", dir))
		}

		failed := 0
		for _, c := range checks {
			if c.err != nil {
				failed++
				fmt.Printf("  %s %s: %v\n", color.RedString("FAIL"), c.name, c.err)
				continue
			}
			fmt.Printf("  %s %s: %s\n", color.GreenString("OK"), c.name, c.detail)
		}
		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		fmt.Println("All checks passed.")
		return nil
	},
}

func lookPath(name, binary string) check {
	p, err := exec.LookPath(binary)
	return check{name: name, detail: p, err: err}
}

func statPath(name, path string) check {
	if _, err := os.Stat(path); err != nil {
		return check{name: name, err: err}
	}
	return check{name: name, detail: path}
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
