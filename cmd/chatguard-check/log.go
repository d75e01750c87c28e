package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/chatguard/internal/adapters/store"
	"github.com/mikey/chatguard/internal/core"
	"github.com/spf13/cobra"
)

func newLogCmd(flags *rootFlags) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "log [player-id]",
		Short: "Show the newest moderation log entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id core.PlayerID
			if len(args) == 1 {
				id = core.PlayerID(args[0])
			}

			container, err := flags.container()
			if err != nil {
				return err
			}

			return container.Invoke(func(st store.Store) error {
				defer st.Stop()

				entries, err := st.Entries(cmd.Context(), id, limit)
				if err != nil {
					return fmt.Errorf("load moderation log: %w", err)
				}

				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(entries)
				}
				if len(entries) == 0 {
					_, err := fmt.Fprintln(out, "no entries")
					return err
				}
				for _, e := range entries {
					if _, err := fmt.Fprintf(out, "%s %-6s %s: %s\n",
						e.CreatedAt.Format(time.DateTime), e.Category, e.PlayerName, strings.Join(e.Payload, " | ")); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}
