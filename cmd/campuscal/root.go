package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/campuscal/internal/calendar"
	"github.com/dukerupert/campuscal/internal/config"
	"github.com/dukerupert/campuscal/internal/gateway"
	"github.com/dukerupert/campuscal/internal/logging"
)

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	apiURL     string
	logLevel   string

	cfg    *config.Config
	loc    *time.Location
	logger *slog.Logger
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "campuscal", "config.yaml")
	}
	return "campuscal.yaml"
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "campuscal",
		Short: "Month calendar for the training center dashboard",
		Long: `campuscal manages the training center's event calendar.

It can run as:
  - the calendar event API server (serve)
  - a terminal client that prints month grids and edits events`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.SetVersionTemplate(`{{printf "campuscal version %s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", defaultConfigPath(), "path to the YAML config file")
	pf.StringVar(&a.apiURL, "api-url", "", "calendar API base URL (overrides config)")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newMonthCmd(a))
	root.AddCommand(newEventCmd(a))
	root.AddCommand(newHashPasswordCmd())
	return root
}

// load resolves config file, environment and flags, in that order.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return err
	}
	if cmd.Flags().Changed("api-url") {
		cfg.APIURL = a.apiURL
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	cfg.Normalize()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.loc = loc
	a.logger = logging.Setup(cfg.LogLevel)
	return nil
}

func (a *app) gateway() (*gateway.Client, error) {
	return gateway.New(gateway.Config{
		BaseURL:  a.cfg.APIURL,
		Timeout:  a.cfg.RequestTimeout,
		Username: a.cfg.APIUsername,
		Password: a.cfg.APIPassword,
		Location: a.loc,
	}, a.logger.With("component", "gateway"))
}

// engine builds a calendar bound to the configured API.
func (a *app) engine() (*calendar.Calendar, *gateway.Client, error) {
	gw, err := a.gateway()
	if err != nil {
		return nil, nil, err
	}
	cal := calendar.New(gw, calendar.Options{
		Location: a.loc,
		Logger:   a.logger.With("component", "calendar"),
	})
	return cal, gw, nil
}
