package main

import (
	"context"
	"fmt"
	"nav-command/codec"
	"nav-command/message"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one command and print the acknowledgement",
	Example: `  navcmd send --mode 1 --a 100 --b 101 --c 102
  navcmd send --record '{"mode":1,"a":100,"b":101,"c":102}' --host 10.1.1.32`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := recordFromFlags(cmd)
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		defer c.Close()

		ack, err := c.Call(context.Background(), rec)
		if err != nil {
			return err
		}
		printAck(cmd, ack)
		return nil
	},
}

func init() {
	addRecordFlags(sendCmd)
}

func addRecordFlags(cmd *cobra.Command) {
	cmd.Flags().Int32("mode", 0, "command mode")
	cmd.Flags().Float64("a", 0, "first parameter")
	cmd.Flags().Float64("b", 0, "second parameter")
	cmd.Flags().Float64("c", 0, "third parameter")
	cmd.Flags().String("record", "", `whole record as JSON, e.g. {"mode":1,"a":100,"b":101,"c":102}`)
	cmd.MarkFlagsMutuallyExclusive("record", "mode")
}

func recordFromFlags(cmd *cobra.Command) (*message.CommandRecord, error) {
	rec := &message.CommandRecord{}
	if text, _ := cmd.Flags().GetString("record"); text != "" {
		if err := (&codec.JSONCodec{}).Decode([]byte(text), rec); err != nil {
			return nil, fmt.Errorf("invalid --record: %w", err)
		}
		return rec, nil
	}

	rec.Mode, _ = cmd.Flags().GetInt32("mode")
	rec.A, _ = cmd.Flags().GetFloat64("a")
	rec.B, _ = cmd.Flags().GetFloat64("b")
	rec.C, _ = cmd.Flags().GetFloat64("c")
	return rec, nil
}

func printAck(cmd *cobra.Command, ack message.Ack) {
	if ack.PeerClosed {
		fmt.Fprintln(cmd.OutOrStdout(), "control server closed the connection without replying")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", ack.Text())
}
