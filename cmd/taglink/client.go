package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/phsym/console-slog"

	"taglink/eip"
	"taglink/logix"
)

var globalFlags struct {
	address string
	slot    int
	route   string
	timeout time.Duration
	payload int
	verbose bool
}

// newLogger builds the console handler at the requested level.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if globalFlags.verbose {
		level = slog.LevelDebug
	}
	handler := console.NewHandler(os.Stderr, &console.HandlerOptions{Level: level})
	return slog.New(handler)
}

// parseRoute turns "01,00" or "01 00" into raw route bytes.
func parseRoute(s string) ([]byte, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	route := make([]byte, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid route byte %q: %w", f, err)
		}
		route = append(route, byte(n))
	}
	if len(route)%2 != 0 {
		return nil, fmt.Errorf("route path must be an even number of bytes, got %d", len(route))
	}
	return route, nil
}

// connect dials the controller from the global flags and returns a
// ready client. The caller owns the session and must Disconnect it.
func connect(log *slog.Logger) (*eip.Client, *logix.Client, error) {
	if globalFlags.address == "" {
		return nil, nil, fmt.Errorf("controller address is required (--plc)")
	}

	addr := globalFlags.address
	port := eip.DefaultPort
	if host, portStr, err := net.SplitHostPort(addr); err == nil {
		n, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid port %q: %w", portStr, err)
		}
		addr = host
		port = uint16(n)
	}

	session := eip.NewClientWithPort(addr, port)
	session.SetLogger(log)
	if globalFlags.timeout > 0 {
		session.SetTimeout(globalFlags.timeout)
	}
	if err := session.Connect(); err != nil {
		return nil, nil, err
	}

	opts := []logix.Option{logix.WithLogger(log)}
	switch {
	case globalFlags.route != "":
		route, err := parseRoute(globalFlags.route)
		if err != nil {
			session.Disconnect()
			return nil, nil, err
		}
		opts = append(opts, logix.WithRoutePath(route))
	case globalFlags.slot >= 0:
		opts = append(opts, logix.WithSlotRouting(byte(globalFlags.slot)))
	}
	if globalFlags.payload > 0 {
		opts = append(opts, logix.WithPayloadLimit(globalFlags.payload))
	}

	return session, logix.NewClient(session, opts...), nil
}
