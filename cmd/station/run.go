package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"checkin/internal/camera"
	"checkin/internal/config"
	"checkin/internal/dispatch"
	"checkin/internal/logging"
	"checkin/internal/metrics"
	"checkin/internal/scan"
	"checkin/internal/session"
	"checkin/internal/tui"
)

func newRunCmd() *cobra.Command {
	var (
		flags    stationFlags
		method   string
		cooldown time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the interactive scanning station",
		Long: `Starts the operator UI. Choose the barcode gun (g) or the camera page (c);
the camera page connects to ws://STATION_ADDR/camera/ws. Logs go to a file
because the UI owns the terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			flags.apply(&cfg)
			if cooldown > 0 {
				cfg.ScanCooldown = config.ClampCooldown(cooldown)
			}
			var start scan.Source
			if method != "" {
				start = scan.Source(method)
				if !start.Valid() {
					return fmt.Errorf("unknown method %q (want gun or camera)", method)
				}
			}
			return runStation(cmd.Context(), cfg, start)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&method, "method", "m", "", "Start scanning immediately with gun or camera")
	cmd.Flags().DurationVar(&cooldown, "cooldown", 0, "Debounce window between scans, 500ms to 2s (overrides SCAN_COOLDOWN)")
	return cmd
}

func runStation(parent context.Context, cfg config.App, start scan.Source) error {
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = "auto"
	}
	closer, err := logging.Configure("station", logging.Options{
		Level:        cfg.LogLevel,
		Format:       cfg.LogFormat,
		File:         logFile,
		ReportCaller: cfg.LogCaller,
	})
	if err != nil {
		return err
	}
	defer closer.Close()
	log := logging.NewLogger("station")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewStation(reg)

	client, res := newResolver(cfg)
	healthCtx, cancelHealth := context.WithTimeout(parent, 3*time.Second)
	if err := client.Health(healthCtx); err != nil {
		log.WithError(err).Warn("ledger not reachable yet; scans will report network errors")
	}
	cancelHealth()

	disp := dispatch.New(res,
		dispatch.WithCooldown(cfg.ScanCooldown),
		dispatch.WithLogger(logging.NewLogger("dispatcher")),
		dispatch.WithMetrics(m),
	)
	keys := scan.NewKeyReader(cfg.KeyQuietInterval, nil)
	hub := camera.NewHub(logging.NewLogger("camera"))
	cam := scan.NewCameraReader(hub, nil, logging.NewLogger("camera"))
	printer, spooler, closePrinter := newPrinter(cfg, log)
	defer closePrinter()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var program *tea.Program
	sess := session.New(disp, []scan.Input{keys, cam},
		session.WithPrinter(printer),
		session.WithCategory(cfg.Category),
		session.WithResultTimeout(cfg.ResultTimeout),
		session.WithLogger(logging.NewLogger("session")),
		session.WithMetrics(m),
		session.WithObserver(func(s session.Snapshot) {
			program.Send(tui.SnapshotMsg(s))
		}),
	)
	program = tea.NewProgram(tui.New(sess, keys, cfg.StationID, sess.Snapshot()),
		tea.WithContext(ctx), tea.WithAltScreen())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/camera/ws", hub)
	srv := &http.Server{
		Addr:              cfg.StationAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(gctx) })
	g.Go(func() error {
		log.WithField("addr", cfg.StationAddr).Info("station listener started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("station listener: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = hub.Close()
		return srv.Shutdown(shutdownCtx)
	})
	if spooler != nil {
		g.Go(func() error { return spooler.Run(gctx) })
	}
	if start != "" {
		g.Go(func() error {
			if err := sess.Start(gctx, start); err != nil {
				log.WithError(err).WithField("source", start).Warn("auto start failed")
			}
			return nil
		})
	}
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	err = g.Wait()
	log.Info("station stopped")
	return err
}
