package main

import (
	"context"
	"errors"
	"fmt"
	"nav-command/journal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the sessions recorded in the journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JournalPath == "" {
			return errors.New("no journal configured, set --journal or NAVCMD_JOURNAL")
		}
		limit, _ := cmd.Flags().GetInt("limit")

		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()

		entries, err := j.List(context.Background(), limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIME\tTARGET\tRECORD\tOUTCOME\tREPLY")
		for _, e := range entries {
			reply := fmt.Sprintf("%q", e.Reply)
			if e.Error != "" {
				reply = e.Error
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				e.ID, e.Time.Format(time.RFC3339), e.Target, e.Record.String(), e.Outcome, reply)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of sessions to show (0 = all)")
}
