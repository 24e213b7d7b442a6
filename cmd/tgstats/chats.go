package main

import (
	"fmt"
	"telegram-chat-stats/internal/adapters/source"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

func newChatsCmd(root *rootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List chat exports found in the export directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := root.logger(cmd)
			if err != nil {
				return err
			}
			exportDir, err := exportRoot(dir)
			if err != nil {
				return err
			}

			chats, err := source.NewDirSource(exportDir, logger).Discover()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(chats) == 0 {
				fmt.Fprintf(out, "No exports found in %s\n", exportDir)
				return nil
			}
			nameWidth := nameColumnWidth(out)
			for _, c := range chats {
				name := runewidth.FillRight(runewidth.Truncate(c.Name, nameWidth, "…"), nameWidth)
				fmt.Fprintf(out, "%14d  %s  %-16s %8s\n", c.ID, name, c.Type, humanize.Bytes(uint64(c.Size)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory with Telegram exports (default ~/Downloads/Telegram Desktop)")
	return cmd
}
