package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"andretools/internal/clix"
	"andretools/internal/converter"
)

var convertOutDir string

var convertCmd = &cobra.Command{
	Use:   "convert <file> --format <fmt>",
	Short: "Convert a media, image or text file",
	Long: `Converts a file using the same table as the HTTP API:
audio to mp3/wav, video to mp3/mp4, jpeg to png/pdf, png to jpg/pdf and
plain text to pdf.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		format, err := clix.ParseFormat(cmd.Flags())
		if err != nil {
			return err
		}

		input := args[0]
		if _, err := os.Stat(input); err != nil {
			return fmt.Errorf("cannot read %s: %w", input, err)
		}
		mediaType := converter.ResolveMediaType("", filepath.Base(input), input)

		res, err := appInstance.Converter.Convert(cmd.Context(), converter.Request{
			InputPath:    input,
			OriginalName: filepath.Base(input),
			MediaType:    mediaType,
			Format:       format,
		})
		if err != nil {
			return err
		}

		dest := filepath.Join(convertOutDir, res.DownloadName)
		if err := os.Rename(res.OutputPath, dest); err != nil {
			return fmt.Errorf("move output to %s: %w", dest, err)
		}
		fmt.Printf("%s %s (%s, %d bytes)\n", color.GreenString("Wrote"), dest, mediaType, res.Size)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringP("format", "f", "", "Target format (mp3, wav, mp4, png, jpg, pdf)")
	convertCmd.Flags().StringVarP(&convertOutDir, "out", "o", ".", "Directory for the converted file")
}
