package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/normanking/novaavatar/internal/classifier"
	"github.com/normanking/novaavatar/internal/signals"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>...",
		Short: "Print the signal an utterance classifies to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			c := classifier.New()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				signals.NovaSignal
				Rules []string `json:"rules"`
			}{c.Classify(text), c.Matches(text)})
		},
	}
}
