package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taglink",
		Short: "Tag-level client for Logix controllers over EtherNet/IP",
		Long: `taglink reads and writes controller tags by symbolic name using the
CIP tag services, with fragmented transfers, masked bit writes, and
batched reads handled transparently.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalFlags.address, "plc", "p", "", "controller address (host or host:port)")
	rootCmd.PersistentFlags().IntVar(&globalFlags.slot, "slot", -1, "backplane CPU slot (-1 for direct targets)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.route, "route", "", "raw route path as hex bytes, e.g. 01,00")
	rootCmd.PersistentFlags().DurationVar(&globalFlags.timeout, "timeout", 0, "per-transaction timeout (default 5s)")
	rootCmd.PersistentFlags().IntVar(&globalFlags.payload, "payload", 0, "CIP payload limit override in bytes")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newReadCmd())
	rootCmd.AddCommand(newWriteCmd())
	rootCmd.AddCommand(newSetBitCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newPollCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("taglink %s (%s)\n", version, commit)
		},
	}
}
