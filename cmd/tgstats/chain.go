package main

import (
	"fmt"
	"telegram-chat-stats/internal/core/replies"
	"telegram-chat-stats/internal/core/transcript"

	"github.com/spf13/cobra"
)

func newChainCmd(root *rootOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Print the longest reply chain of a chat export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := root.logger(cmd)
			if err != nil {
				return err
			}

			chat, err := loadChat(cmd, input)
			if err != nil {
				return err
			}

			idx := replies.Build(chat.Messages)
			chain := idx.LongestChain()
			logger.Debug("Построен индекс ответов", "messages", idx.Len(), "chain", len(chain))

			if len(chain) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No messages found")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Longest reply chain: %d messages\n", len(chain))
			return transcript.WriteChain(cmd.OutOrStdout(), chain)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "path to result.json, - for stdin")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
