package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"nav-command/codec"

	"github.com/spf13/cobra"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Print the 28-byte wire image of a record in hex",
	Example: `  navcmd encode --mode 1 --a 100 --b 101 --c 102
  navcmd encode --record '{"mode":1,"a":100}' --order big`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := recordFromFlags(cmd)
		if err != nil {
			return err
		}

		c := codec.NewBinaryCodec()
		switch order, _ := cmd.Flags().GetString("order"); order {
		case "native":
		case "little":
			c.Order = binary.LittleEndian
		case "big":
			c.Order = binary.BigEndian
		default:
			return fmt.Errorf("invalid byte order %s, must be one of: native, little, big", order)
		}

		image, err := c.Encode(rec)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(image))
		return nil
	},
}

func init() {
	addRecordFlags(encodeCmd)
	encodeCmd.Flags().String("order", "native", "byte order: native, little, big")
}
