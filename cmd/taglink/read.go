package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

func newReadCmd() *cobra.Command {
	var elements uint16

	cmd := &cobra.Command{
		Use:   "read <tag>",
		Short: "Read a tag value",
		Long: `Read one or more elements of a tag by symbolic name.

Examples:
  taglink read --plc 192.168.1.10 --slot 0 Motor1_Speed
  taglink read --plc 192.168.1.10 --slot 0 Line_Counts --elements 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			session, client, err := connect(log)
			if err != nil {
				return err
			}
			defer session.Disconnect()

			value, err := client.ReadCount(args[0], elements)
			if err != nil {
				return err
			}

			if value.IsStructure() {
				fmt.Printf("%s (structure 0x%04X, %d bytes):\n%s", args[0], value.Handle, len(value.Bytes), hex.Dump(value.Bytes))
				return nil
			}
			fmt.Printf("%s (%s) = %v\n", args[0], value.TypeName(), value.GoValue())
			return nil
		},
	}

	cmd.Flags().Uint16VarP(&elements, "elements", "e", 1, "number of elements to read")
	return cmd
}
