package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"andretools/internal/worker"
)

var (
	transcribeLanguage string
	transcribeCPU      bool
)

// transcribeCmd runs one transcription in the foreground. The input file is
// left untouched.
var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file>",
	Short: "Transcribe an audio or video file and print the text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		path := args[0]
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}

		opts := appInstance.EngineOptions
		if transcribeLanguage != "" {
			opts.Language = transcribeLanguage
		}
		if transcribeCPU {
			opts.ForceCPU = true
		}

		start := time.Now()
		log.WithFields(log.Fields{"file": path, "engine": appInstance.Engine.Name()}).Info("transcribing")
		text, err := worker.Recognize(cmd.Context(), appInstance.Engine, path, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("ERROR"), err)
			return fmt.Errorf("transcription failed")
		}

		fmt.Println(text)
		fmt.Fprintf(os.Stderr, "%s in %s\n", color.GreenString("Done"), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	transcribeCmd.Flags().StringVarP(&transcribeLanguage, "language", "l", "", "Spoken language code, or auto (default from config)")
	transcribeCmd.Flags().BoolVar(&transcribeCPU, "cpu", false, "Skip hardware acceleration")
}
