package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"andretools/internal/clix"
)

var recentOpen int

var recentCmd = &cobra.Command{
	Use:   "recent [file.excalidraw]",
	Short: "List, add or open recent Excalidraw drawings",
	Long: `Without arguments, lists the recent drawings. With a path, records it as
recent. With --open N, opens entry N of the list in the web editor.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		launcher := appInstance.Excalidraw

		if len(args) == 1 {
			entry, err := launcher.Add(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", color.GreenString("Added"), entry.Path)
			return nil
		}

		files, err := launcher.Recents()
		if err != nil {
			return fmt.Errorf("error listing recent files: %w", err)
		}

		if recentOpen > 0 {
			if recentOpen > len(files) {
				return fmt.Errorf("no entry %d (list has %d)", recentOpen, len(files))
			}
			target := files[recentOpen-1]
			if err := launcher.Open(cmd.Context(), target.Path); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", color.GreenString("Opened"), target.Name)
			return nil
		}

		if len(files) == 0 {
			fmt.Println("No recent drawings.")
			return nil
		}
		limit := clix.ParseLimit(cmd.Flags(), len(files), len(files))

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"#", "Name", "Last Opened", "Path"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		for i, f := range files[:limit] {
			name := f.Name
			if _, err := os.Stat(f.Path); err != nil {
				name = color.YellowString(f.Name + " (missing)")
			}
			table.Append([]string{
				strconv.Itoa(i + 1),
				name,
				f.LastOpened.Local().Format("2006-01-02 15:04:05"),
				f.Path,
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recentCmd)

	recentCmd.Flags().IntP("limit", "l", 0, "Number of entries to display (default all)")
	recentCmd.Flags().IntVar(&recentOpen, "open", 0, "Open entry N in the web editor")
}
