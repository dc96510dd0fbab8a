package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mentorpay/internal/bootstrap"
	sessiondto "mentorpay/internal/modules/session/dto"
	"mentorpay/internal/platform/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globals struct {
	dataDir    string
	configFile string
	jsonOut    bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "mentorpay",
		Short:         "Progressive payments for presence-tracked mentoring sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.dataDir, "data", ".", "data directory (state, reports, plugin manifest)")
	root.PersistentFlags().StringVar(&g.configFile, "config", "", "config file (defaults to <data>/mentorpay.yaml)")
	root.PersistentFlags().BoolVar(&g.jsonOut, "json", false, "print JSON instead of text")

	root.AddCommand(newSessionCmd(g))
	root.AddCommand(newConfirmationsCmd(g))
	root.AddCommand(newTokensCmd(g))
	root.AddCommand(newSettlementCmd(g))
	root.AddCommand(newServeCmd(g))
	root.AddCommand(newWatchCmd(g))
	return root
}

func loadConfig(g *globals) (config.Config, error) {
	return config.New(g.dataDir, g.configFile)
}

// withApp runs fn against a freshly wired app and closes it afterwards.
func withApp(g *globals, fn func(app *bootstrap.App) error) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	app, err := bootstrap.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return fn(app)
}

func newSessionCmd(g *globals) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Session lifecycle"}

	var input sessiondto.CreateInput
	var start string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a session in the created state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			at := time.Now().UTC()
			if start != "" {
				parsed, err := time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("parse --start: %w", err)
				}
				at = parsed
			}
			input.ScheduledStart = at
			return withApp(g, func(app *bootstrap.App) error {
				out, err := app.SessionCLI.Create(context.Background(), input)
				if err != nil {
					return err
				}
				return printSnapshot(cmd.OutOrStdout(), g, out)
			})
		},
	}
	create.Flags().StringVar(&input.PayerAddress, "payer", "", "payer wallet address")
	create.Flags().StringVar(&input.MentorAddress, "mentor", "", "mentor wallet address")
	create.Flags().StringVar(&input.Network, "network", "polygon", "settlement network")
	create.Flags().StringVar(&input.TokenSymbol, "token", "USDC", "token symbol")
	create.Flags().StringVar(&input.TotalAmount, "amount", "", "total amount in token units")
	create.Flags().IntVar(&input.ScheduledDurationMinutes, "duration", 60, "scheduled duration in minutes")
	create.Flags().BoolVar(&input.PresenceTracking, "presence", true, "enable presence-based payment")
	create.Flags().BoolVar(&input.FeeCollected, "fee-collected", false, "platform fee already collected")
	create.Flags().StringVar(&start, "start", "", "scheduled start (RFC3339, defaults to now)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List live sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				sessions, err := app.SessionCLI.ListActive(context.Background())
				if err != nil {
					return err
				}
				if g.jsonOut {
					return writeJSON(cmd.OutOrStdout(), sessions)
				}
				if len(sessions) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no live sessions")
					return nil
				}
				for _, s := range sessions {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), snapshotLine(s))
				}
				return nil
			})
		},
	}

	status := &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show a session, firing any due deadline first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				out, err := app.SessionCLI.Status(context.Background(), args[0])
				if err != nil {
					return err
				}
				return printSnapshot(cmd.OutOrStdout(), g, out)
			})
		},
	}

	join := &cobra.Command{
		Use:   "join <session-id> <address>",
		Short: "Record a participant joining",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				out, err := app.SessionCLI.Join(context.Background(), args[0], args[1])
				if err != nil {
					return err
				}
				return printSnapshot(cmd.OutOrStdout(), g, out)
			})
		},
	}

	var leaveReason string
	leave := &cobra.Command{
		Use:   "leave <session-id> <address>",
		Short: "Record a participant leaving",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				out, err := app.SessionCLI.Leave(context.Background(), args[0], args[1], leaveReason)
				if err != nil {
					return err
				}
				return printSnapshot(cmd.OutOrStdout(), g, out)
			})
		},
	}
	leave.Flags().StringVar(&leaveReason, "reason", "manual", "leave reason: manual|webrtc_disconnection")

	disconnect := &cobra.Command{
		Use:   "disconnect <session-id> <address>",
		Short: "Record a participant dropping without leaving",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				out, err := app.SessionCLI.Disconnect(context.Background(), args[0], args[1])
				if err != nil {
					return err
				}
				return printSnapshot(cmd.OutOrStdout(), g, out)
			})
		},
	}

	var follow bool
	heartbeat := &cobra.Command{
		Use:   "heartbeat <session-id> <address>",
		Short: "Send a presence heartbeat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				if !follow {
					out, err := app.SessionCLI.Heartbeat(context.Background(), args[0], args[1])
					if err != nil {
						return err
					}
					return printHeartbeat(cmd.OutOrStdout(), g, out)
				}
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				interval := app.Config.Engine.HeartbeatInterval
				if interval <= 0 {
					interval = 30 * time.Second
				}
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					out, err := app.SessionCLI.Heartbeat(ctx, args[0], args[1])
					if err != nil {
						return err
					}
					if err := printHeartbeat(cmd.OutOrStdout(), g, out); err != nil {
						return err
					}
					if out.Snapshot.Final {
						return nil
					}
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
					}
				}
			})
		},
	}
	heartbeat.Flags().BoolVar(&follow, "follow", false, "keep sending at the configured heartbeat interval")

	clearHold := &cobra.Command{
		Use:   "clear-hold <session-id> <operator>",
		Short: "Clear a security hold within the recovery window",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				out, err := app.SessionCLI.ClearHold(context.Background(), args[0], args[1])
				if err != nil {
					return err
				}
				return printSnapshot(cmd.OutOrStdout(), g, out)
			})
		},
	}

	tick := &cobra.Command{
		Use:   "tick-all",
		Short: "Fire due deadlines on every live session once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				sessions, err := app.SessionCLI.TickAll(context.Background())
				if err != nil {
					return err
				}
				if g.jsonOut {
					return writeJSON(cmd.OutOrStdout(), sessions)
				}
				for _, s := range sessions {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), snapshotLine(s))
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ticked %d sessions\n", len(sessions))
				return nil
			})
		},
	}

	session.AddCommand(create, list, status, join, leave, disconnect, heartbeat, clearHold, tick)
	for _, c := range []struct{ action, short string }{
		{"start", "Start a created session manually"},
		{"pause", "Pause an active session"},
		{"resume", "Resume a paused session"},
		{"complete", "Complete a session and release the earned amount"},
		{"cancel", "Cancel a session and request a refund"},
		{"fee", "Mark the platform fee as collected"},
		{"release", "Release the amount earned so far"},
		{"tick", "Fire due deadlines on one session"},
	} {
		session.AddCommand(newControlCmd(g, c.action, c.short))
	}
	return session
}

func newControlCmd(g *globals, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				out, err := app.SessionCLI.Control(context.Background(), action, args[0])
				if err != nil {
					return err
				}
				return printSnapshot(cmd.OutOrStdout(), g, out)
			})
		},
	}
}

func newConfirmationsCmd(g *globals) *cobra.Command {
	confirmations := &cobra.Command{Use: "confirmations", Short: "Finished session records"}

	confirmations.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List confirmations of finished sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				items, err := app.SessionCLI.ListConfirmations(context.Background())
				if err != nil {
					return err
				}
				if g.jsonOut {
					return writeJSON(cmd.OutOrStdout(), items)
				}
				if len(items) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no confirmations")
					return nil
				}
				for _, c := range items {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\treleased=%s/%s %s\tprogress=%d%%\tended=%s\n",
						c.SessionID, c.Status, c.ReleasedAmount, c.TotalAmount, c.Token, c.ProgressPercentage,
						c.EndedAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	})

	confirmations.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				c, err := app.SessionCLI.GetConfirmation(context.Background(), args[0])
				if err != nil {
					return err
				}
				if g.jsonOut {
					return writeJSON(cmd.OutOrStdout(), c)
				}
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "session:   %s\n", c.SessionID)
				_, _ = fmt.Fprintf(w, "status:    %s (%s)\n", c.Status, c.StatusReason)
				_, _ = fmt.Fprintf(w, "payer:     %s\n", c.PayerAddress)
				_, _ = fmt.Fprintf(w, "mentor:    %s\n", c.MentorAddress)
				_, _ = fmt.Fprintf(w, "released:  %s / %s %s\n", c.ReleasedAmount, c.TotalAmount, c.Token)
				_, _ = fmt.Fprintf(w, "progress:  %d%% via %s\n", c.ProgressPercentage, c.PaymentMethod)
				_, _ = fmt.Fprintf(w, "presence:  %.1f min (%.0f%%)\n", c.PayerPresenceMinutes, c.PayerPresencePercent)
				_, _ = fmt.Fprintf(w, "refund:    %t\n", c.RefundRequested)
				if c.TxReference != "" {
					_, _ = fmt.Fprintf(w, "tx:        %s\n", c.TxReference)
				}
				if c.ReportPath != "" {
					_, _ = fmt.Fprintf(w, "report:    %s\n", c.ReportPath)
				}
				return nil
			})
		},
	})
	return confirmations
}

func newTokensCmd(g *globals) *cobra.Command {
	tokens := &cobra.Command{Use: "tokens", Short: "Supported settlement tokens"}
	tokens.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List supported tokens per network",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				items, err := app.CatalogCLI.ListTokens(context.Background())
				if err != nil {
					return err
				}
				if g.jsonOut {
					return writeJSON(cmd.OutOrStdout(), items)
				}
				for _, t := range items {
					kind := "erc20"
					if t.Native {
						kind = "native"
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tchain=%d\tdecimals=%d\t%s\t%s\n",
						t.Network, t.Symbol, t.ChainID, t.Decimals, kind, t.Address)
				}
				return nil
			})
		},
	})
	return tokens
}

func newSettlementCmd(g *globals) *cobra.Command {
	settlement := &cobra.Command{Use: "settlement", Short: "Settlement backend"}

	settlement.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Check the settlement backend and plugin manifest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				res, err := app.SettlementCLI.Doctor(context.Background())
				if g.jsonOut {
					if jsonErr := writeJSON(cmd.OutOrStdout(), res); jsonErr != nil {
						return jsonErr
					}
					return err
				}
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "backend:    %s\n", res.Backend)
				if res.Configured {
					_, _ = fmt.Fprintf(w, "plugin:     %s %s\n", res.Name, res.Version)
					_, _ = fmt.Fprintf(w, "enabled:    %t\n", res.Enabled)
					_, _ = fmt.Fprintf(w, "checksum:   %t\n", res.ChecksumValid)
					_, _ = fmt.Fprintf(w, "binary:     %t\n", res.BinaryReachable)
				}
				_, _ = fmt.Fprintf(w, "lifecycle:  %t\n", res.LifecycleOK)
				if res.Error != "" {
					_, _ = fmt.Fprintf(w, "error:      %s\n", res.Error)
				}
				return err
			})
		},
	})

	settlement.AddCommand(&cobra.Command{
		Use:   "ledger",
		Short: "List settlement ledger entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				entries, err := app.SettlementCLI.Ledger(context.Background())
				if err != nil {
					return err
				}
				if g.jsonOut {
					return writeJSON(cmd.OutOrStdout(), entries)
				}
				if len(entries) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ledger is empty")
					return nil
				}
				for _, e := range entries {
					refund := "-"
					if e.Refunded {
						refund = e.RefundReason
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\treleased=%s\treleases=%d\trefund=%s\tbackend=%s\ttx=%s\n",
						e.SessionID, e.Token, e.Released, e.Releases, refund, e.Backend, e.TxReference)
				}
				return nil
			})
		},
	})
	return settlement
}

func newServeCmd(g *globals) *cobra.Command {
	var listen string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket API and the deadline scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(g, func(app *bootstrap.App) error {
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				addr := app.Config.Server.Listen
				if listen != "" {
					addr = listen
				}
				server := &http.Server{
					Addr:              addr,
					Handler:           app.SessionHTTP.Router(),
					ReadHeaderTimeout: 10 * time.Second,
					IdleTimeout:       60 * time.Second,
				}

				schedulerDone := make(chan struct{})
				go func() {
					defer close(schedulerDone)
					_ = app.Scheduler.Run(ctx)
				}()

				serveErr := make(chan error, 1)
				go func() {
					app.Logger.Info("http server listening", "addr", addr)
					serveErr <- server.ListenAndServe()
				}()

				var err error
				select {
				case <-ctx.Done():
				case err = <-serveErr:
					stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
					app.Logger.Warn("http shutdown", "error", shutdownErr)
				}
				<-schedulerDone
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				app.Logger.Info("server stopped")
				return nil
			})
		},
	}
	serve.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listen)")
	return serve
}

func newWatchCmd(g *globals) *cobra.Command {
	var server string
	watch := &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Live dashboard of a session served by `mentorpay serve`",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if server == "" {
				cfg, err := loadConfig(g)
				if err != nil {
					return err
				}
				server = cfg.Server.Listen
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return bootstrap.RunWatch(ctx, server, args[0])
		},
	}
	watch.Flags().StringVar(&server, "server", "", "server address (defaults to server.listen)")
	return watch
}

func snapshotLine(s sessiondto.SnapshotOutput) string {
	return fmt.Sprintf("%s\t%s\tprogress=%d%%\treleased=%s/%s %s\tmethod=%s\telapsed=%.1fm",
		s.SessionID, s.Status, s.ProgressPercentage, s.ReleasedAmount, s.TotalAmount, s.Token,
		s.PaymentMethod, s.ElapsedMinutes)
}

func printSnapshot(w io.Writer, g *globals, s sessiondto.SnapshotOutput) error {
	if g.jsonOut {
		return writeJSON(w, s)
	}
	_, _ = fmt.Fprintln(w, snapshotLine(s))
	if s.StatusReason != "" {
		_, _ = fmt.Fprintf(w, "  reason: %s\n", s.StatusReason)
	}
	if s.RefundRequested {
		_, _ = fmt.Fprintln(w, "  refund requested")
	}
	if s.OnHold {
		_, _ = fmt.Fprintln(w, "  on security hold")
	}
	if s.SettlementPending {
		_, _ = fmt.Fprintf(w, "  final release pending: %s %s\n", s.AvailableForRelease, s.Token)
	}
	return nil
}

func printHeartbeat(w io.Writer, g *globals, out sessiondto.HeartbeatOutput) error {
	if g.jsonOut {
		return writeJSON(w, out)
	}
	if !out.IsValid {
		_, _ = fmt.Fprintf(w, "heartbeat throttled, retry in %s\n", out.CooldownRemaining.Round(time.Second))
		return nil
	}
	if out.Stale {
		_, _ = fmt.Fprintf(w, "heartbeat ok, late by grace (%s since last)\n", out.TimeSinceLastHeartbeat.Round(time.Second))
	} else {
		_, _ = fmt.Fprintf(w, "heartbeat ok (%s since last)\n", out.TimeSinceLastHeartbeat.Round(time.Second))
	}
	return printSnapshot(w, g, out.Snapshot)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
