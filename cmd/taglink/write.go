package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"taglink/logix"
)

func newWriteCmd() *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "write <tag> <value>",
		Short: "Write a tag value",
		Long: `Write one element of a tag by symbolic name. The data type must be
given explicitly.

Examples:
  taglink write --plc 192.168.1.10 --slot 0 Motor1_Speed 1500 --type DINT
  taglink write --plc 192.168.1.10 --slot 0 Run_Enable true --type BOOL
  taglink write --plc 192.168.1.10 --slot 0 Setpoint 73.5 --type REAL`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if typeName == "" {
				return fmt.Errorf("data type is required (--type)")
			}
			t, err := logix.AtomicType(strings.ToUpper(typeName))
			if err != nil {
				return err
			}
			value, err := parseValue(t, args[1])
			if err != nil {
				return err
			}

			log := newLogger()
			session, client, err := connect(log)
			if err != nil {
				return err
			}
			defer session.Disconnect()

			if err := client.WriteValue(args[0], t, value); err != nil {
				return err
			}
			fmt.Printf("%s = %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "data type: "+strings.Join(logix.SupportedTypeNames(), ", "))
	return cmd
}

// parseValue converts the command-line string into the Go value the
// packer expects for the type.
func parseValue(t logix.TypeInfo, s string) (interface{}, error) {
	code, ok := t.Code()
	if !ok {
		return nil, fmt.Errorf("unsupported data type %q", t.Name)
	}

	switch code {
	case logix.TypeBOOL:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid BOOL value %q", s)
		}
		return b, nil
	case logix.TypeREAL, logix.TypeLREAL:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q", t.Name, s)
		}
		return f, nil
	case logix.TypeSTRING, logix.TypeShortSTRING:
		return s, nil
	case logix.TypeUSINT, logix.TypeUINT, logix.TypeUDINT, logix.TypeULINT,
		logix.TypeBYTE, logix.TypeWORD, logix.TypeDWORD, logix.TypeLWORD:
		n, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q", t.Name, s)
		}
		return n, nil
	default:
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q", t.Name, s)
		}
		return n, nil
	}
}
