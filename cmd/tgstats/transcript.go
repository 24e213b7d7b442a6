package main

import (
	"fmt"
	"telegram-chat-stats/internal/core/transcript"
	"telegram-chat-stats/internal/pkg/config"

	"github.com/spf13/cobra"
)

type transcriptOptions struct {
	input      string
	out        string
	max        int
	reactorSep string
}

func newTranscriptCmd(root *rootOptions) *cobra.Command {
	opts := &transcriptOptions{}

	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Print a chat export as plain text, one line per message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.max < 0 {
				return fmt.Errorf("--max не может быть отрицательным")
			}
			if _, err := root.logger(cmd); err != nil {
				return err
			}

			chat, err := loadChat(cmd, opts.input)
			if err != nil {
				return err
			}

			w, closeOut, err := openOutput(cmd, opts.out)
			if err != nil {
				return err
			}
			err = transcript.Write(w, chat,
				transcript.WithMaxMessages(opts.max),
				transcript.WithReactorSeparator(opts.reactorSep),
			)
			if err != nil {
				closeOut()
				return err
			}
			return closeOut()
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "path to result.json, - for stdin")
	flags.StringVar(&opts.out, "out", "", "write the transcript to a file")
	flags.IntVar(&opts.max, "max", 0, "stop after N records, 0 means all")
	flags.StringVar(&opts.reactorSep, "reactor-sep", config.DefaultReactorSeparator, "separator between reactor names")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
