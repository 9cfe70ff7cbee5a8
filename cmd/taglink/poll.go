package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phsym/console-slog"
	"github.com/spf13/cobra"

	"taglink/config"
	"taglink/eip"
	"taglink/logix"
	"taglink/mqtt"
)

func newPollCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll configured tags on an interval",
		Long: `Poll the tag list from the configuration file at the configured rate,
printing values on change and optionally publishing them to MQTT.

Example:
  taglink poll --config ~/.taglink/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = config.DefaultPath()
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("%s: %w", configPath, err)
			}
			if len(cfg.Tags) == 0 {
				return fmt.Errorf("%s: no tags configured", configPath)
			}

			log := pollLogger(cfg.LogLevel)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runPoll(ctx, cfg, log)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file (default ~/.taglink/config.yaml)")
	return cmd
}

func pollLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if globalFlags.verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{Level: lvl}))
}

func runPoll(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	session := eip.NewClientWithPort(cfg.Controller.Address, cfg.Controller.Port)
	session.SetLogger(log)
	session.SetTimeout(cfg.Controller.Timeout)
	if err := session.Connect(); err != nil {
		return err
	}
	defer session.Disconnect()

	opts := []logix.Option{logix.WithLogger(log)}
	switch {
	case len(cfg.Controller.Route) > 0:
		opts = append(opts, logix.WithRoutePath(cfg.Controller.Route))
	case cfg.Controller.Slot != nil:
		opts = append(opts, logix.WithSlotRouting(byte(*cfg.Controller.Slot)))
	}
	if cfg.Controller.Payload > 0 {
		opts = append(opts, logix.WithPayloadLimit(cfg.Controller.Payload))
	}
	client := logix.NewClient(session, opts...)

	var publisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		publisher = mqtt.NewPublisher(cfg.MQTT, log)
		if err := publisher.Start(); err != nil {
			return err
		}
		defer publisher.Stop()
	}

	log.Info("polling started",
		"controller", cfg.Controller.Address,
		"tags", len(cfg.Tags),
		"rate", cfg.PollRate)

	last := make(map[string]string, len(cfg.Tags))
	ticker := time.NewTicker(cfg.PollRate)
	defer ticker.Stop()

	for {
		pollOnce(cfg, client, publisher, log, last)

		select {
		case <-ctx.Done():
			log.Info("polling stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func pollOnce(cfg *config.Config, client *logix.Client, publisher *mqtt.Publisher, log *slog.Logger, last map[string]string) {
	for _, tag := range cfg.Tags {
		value, err := client.ReadCount(tag.Name, tag.Elements)
		if err != nil {
			log.Warn("read failed", "tag", tag.Name, "err", err)
			continue
		}

		rendered := fmt.Sprintf("%v", value.GoValue())
		if last[tag.Alias] != rendered {
			last[tag.Alias] = rendered
			log.Info("tag changed", "tag", tag.Alias, "type", value.TypeName(), "value", rendered)
		}
		if publisher != nil {
			publisher.Publish(tag.Alias, value.TypeName(), value.GoValue(), false)
		}
	}
}
