package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/client"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/logging"
)

const dialTimeout = 10 * time.Second

type options struct {
	profile string
	server  string
	cwd     string
	offline bool
	logFile string
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "termclient",
		Short: "Multi-tab client for the terminal server",
		Long: `Open terminal tabs backed by shells on a terminal server.

Each tab is one shell session on the server. Closing the client kills every
shell it started. With --offline no server is contacted and each tab runs a
small built-in command set (help, echo, ls, pwd, date, whoami, history,
clear, exit).

KEYS:
  alt+t        new tab
  alt+w        close tab (the last tab is cleared instead)
  alt+n/alt+p  next/previous tab
  alt+1..9     jump to tab
  alt+q        quit

Examples:
  termclient                                    # ws://localhost:8000/terminal
  termclient --server ws://dev-box:8000/terminal --cwd /srv/app
  termclient --offline`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.profile, "profile", defaultProfilePath(), "YAML profile with client defaults")
	flags.StringVar(&opts.server, "server", "", "terminal endpoint URL (default from profile)")
	flags.StringVar(&opts.cwd, "cwd", "", "working directory for new shells")
	flags.BoolVar(&opts.offline, "offline", false, "run tabs locally without a server")
	flags.StringVar(&opts.logFile, "log-file", "", "write debug logs to this file")

	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	profile, err := loadProfile(opts.profile, cmd.Flags().Changed("profile"))
	if err != nil {
		return err
	}
	applyFlags(cmd, &profile, opts)

	logger := logging.NewNop()
	if profile.LogFile != "" {
		if logger, err = logging.ToFile(profile.LogFile); err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer logger.Sync()
	}

	muxOpts := client.Options{
		Cwd:    profile.Cwd,
		Local:  profile.Local.options(),
		Logger: logger,
	}

	var conn *client.Conn
	var sender client.Sender
	if !profile.Offline {
		ctx, cancel := context.WithTimeout(cmd.Context(), dialTimeout)
		conn, err = client.Dial(ctx, profile.Server, nil, logger)
		cancel()
		if err != nil {
			return fmt.Errorf("%w (use --offline to run without a server)", err)
		}
		defer conn.Close()
		sender = conn
	}

	mux, err := client.NewMultiplexer(sender, muxOpts)
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(newModel(mux, conn), tea.WithAltScreen()).Run()
	return err
}

// applyFlags overrides profile values with flags set on the command line.
func applyFlags(cmd *cobra.Command, profile *Profile, opts options) {
	flags := cmd.Flags()
	if flags.Changed("server") {
		profile.Server = opts.server
	}
	if flags.Changed("cwd") {
		profile.Cwd = opts.cwd
	}
	if flags.Changed("offline") {
		profile.Offline = opts.offline
	}
	if flags.Changed("log-file") {
		profile.LogFile = opts.logFile
	}
}
