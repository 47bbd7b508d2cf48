// Package cmd wires the cinebook command line.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cinebook-cli/booking"
	"cinebook-cli/config"
	"cinebook-cli/service"
	"cinebook-cli/store"
	"cinebook-cli/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const appName = "cinebook"

type rootOptions struct {
	apiURL   string
	envFile  string
	timeout  time.Duration
	verbose  bool
	schedule int
}

// cli holds what every command needs once flags and environment are resolved.
type cli struct {
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
	storage  *store.FileKV
	client   *service.Client
}

// Execute runs the command line and returns the process exit code.
func Execute(version string, commit string) int {
	if err := NewRootCmd(version, commit).Execute(); err != nil {
		return 1
	}
	return 0
}

func NewRootCmd(version string, commit string) *cobra.Command {
	opts := &rootOptions{}
	rt := &cli{}

	root := &cobra.Command{
		Use:          appName,
		Short:        "Pick cinema seats from the terminal",
		Long:         "Browse the seat map of a schedule, hold up to 8 seats and add concessions, all from the terminal.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.setup(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(rt)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api", "", "booking API base URL (overrides CINEBOOK_API_URL)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with CINEBOOK_* settings; empty to skip")
	flags.DurationVar(&opts.timeout, "timeout", 0, "HTTP timeout (overrides CINEBOOK_TIMEOUT)")
	flags.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	root.Flags().IntVar(&opts.schedule, "schedule", 0, "schedule id to open on start (overrides CINEBOOK_SCHEDULE)")

	root.AddCommand(
		newSeatsCmd(rt),
		newSelectCmd(rt),
		newLoginCmd(rt),
		newLogoutCmd(rt),
		newVersionCmd(version, commit),
	)
	return root
}

func (rt *cli) setup(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	if opts.apiURL != "" {
		cfg.APIURL = opts.apiURL
	}
	if opts.timeout < 0 {
		return fmt.Errorf("invalid --timeout %s", opts.timeout)
	}
	if opts.timeout > 0 {
		cfg.Timeout = opts.timeout
	}
	if cmd.Flags().Changed("schedule") {
		if opts.schedule <= 0 {
			return fmt.Errorf("invalid --schedule %d", opts.schedule)
		}
		cfg.ScheduleID = opts.schedule
	}
	if opts.verbose {
		cfg.Debug = true
	}
	rt.cfg = cfg

	interactive := cmd == cmd.Root()
	logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr(), interactive)
	if err != nil {
		return err
	}
	rt.logger = logger
	rt.closeLog = closeLog

	storage, err := store.OpenFileKV()
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	rt.storage = storage

	rt.client = service.NewClient(cfg.APIURL, &http.Client{Timeout: cfg.Timeout})
	rt.client.SetTokenSource(rt.token)
	rt.client.SetLogger(logger)
	logger.Debug("configured", "api", rt.client.BaseURL(), "timeout", cfg.Timeout)
	return nil
}

func (rt *cli) token() string {
	token, _ := rt.storage.Get(store.KeyToken)
	return token
}

// newLogger logs to stderr for one-shot commands. The TUI owns the terminal,
// so it logs only to CINEBOOK_LOG_FILE when set.
func newLogger(cfg config.Config, stderr io.Writer, interactive bool) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }
	level := slog.LevelWarn
	if interactive {
		level = slog.LevelInfo
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if !interactive {
		return slog.New(slog.NewTextHandler(stderr, opts)), noop, nil
	}
	if cfg.LogFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, opts)), noop, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, opts)), f.Close, nil
}

func runTUI(rt *cli) error {
	defer rt.closeLog()

	scheduleID := rt.cfg.ScheduleID
	if scheduleID == 0 {
		if recents, err := store.LoadRecentSchedules(); err == nil && len(recents) > 0 {
			scheduleID = recents[0].ScheduleID
		}
	}

	program := tui.New(tui.Options{
		API:        rt.client,
		Auth:       rt.client,
		Products:   rt.client,
		Storage:    rt.storage,
		Session:    booking.NewSessionStore(),
		Logger:     rt.logger,
		ScheduleID: scheduleID,
	})
	defer program.Close()

	rt.logger.Info("starting", "schedule_id", scheduleID)
	if _, err := tea.NewProgram(program.Model(), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

func newVersionCmd(version string, commit string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of cinebook",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s", appName, version)
			if commit != "none" && commit != "" {
				fmt.Fprintf(out, " (%s)", commit)
			}
			fmt.Fprintln(out)
		},
	}
}
