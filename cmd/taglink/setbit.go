package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"taglink/logix"
)

func newSetBitCmd() *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "setbit <tag> <bit=value>...",
		Short: "Set or clear individual bits of a tag",
		Long: `Apply bit-level writes to an integer tag in one atomic masked write.
Each argument is bit=value where value is true/false or 1/0.

Examples:
  taglink setbit --plc 192.168.1.10 --slot 0 Status_Word 0=1 3=0 --type DINT
  taglink setbit --plc 192.168.1.10 --slot 0 Alarm_Bits 7=true --type WORD`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if typeName == "" {
				return fmt.Errorf("data type is required (--type)")
			}
			t, err := logix.AtomicType(strings.ToUpper(typeName))
			if err != nil {
				return err
			}

			bits := make(map[int]bool, len(args)-1)
			for _, arg := range args[1:] {
				bit, value, err := parseBitAssignment(arg)
				if err != nil {
					return err
				}
				bits[bit] = value
			}

			log := newLogger()
			session, client, err := connect(log)
			if err != nil {
				return err
			}
			defer session.Disconnect()

			if err := client.WriteBits(args[0], t, bits); err != nil {
				return err
			}
			fmt.Printf("%s: %d bit(s) written\n", args[0], len(bits))
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "data type, e.g. DINT, WORD")
	return cmd
}

func parseBitAssignment(s string) (int, bool, error) {
	idx, val, found := strings.Cut(s, "=")
	if !found {
		return 0, false, fmt.Errorf("invalid bit assignment %q, want bit=value", s)
	}
	bit, err := strconv.Atoi(idx)
	if err != nil {
		return 0, false, fmt.Errorf("invalid bit index %q", idx)
	}
	value, err := strconv.ParseBool(val)
	if err != nil {
		return 0, false, fmt.Errorf("invalid bit value %q", val)
	}
	return bit, value, nil
}
