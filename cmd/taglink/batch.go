package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taglink/logix"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <tag>...",
		Short: "Read several tags in one request",
		Long: `Read multiple tags in a single Multiple Service Packet round trip.
Per-tag failures are reported individually; the batch itself succeeds as
long as the controller answers.

Example:
  taglink batch --plc 192.168.1.10 --slot 0 Motor1_Speed Tank_Level Run_Enable`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			session, client, err := connect(log)
			if err != nil {
				return err
			}
			defer session.Disconnect()

			ops := make([]*logix.Operation, len(args))
			for i, tag := range args {
				ops[i] = &logix.Operation{Kind: logix.KindRead, Tag: tag, Elements: 1, RequestID: i}
			}

			results, err := client.ReadMulti(ops)
			if err != nil {
				return err
			}

			for _, r := range results {
				if !r.OK() {
					fmt.Printf("%s: error: %v\n", r.Tag, r.Err)
					continue
				}
				fmt.Printf("%s (%s) = %v\n", r.Tag, r.Value.TypeName(), r.Value.GoValue())
			}
			return nil
		},
	}

	return cmd
}
