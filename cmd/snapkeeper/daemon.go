package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GESkunkworks/snapkeeper"
	"github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run rotations on their cron schedules",
		Long: `Stay in the foreground and start the day, week and month rotations on
the cron expressions of the schedule section. Periods without a schedule
are skipped. Metrics are served on metrics.listen when it is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			rt, err := setup(ctx)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics := snapkeeper.NewMetrics(reg)

			sched := snapkeeper.NewScheduler(rt.log)
			if err := scheduleAll(rt, sched, metrics); err != nil {
				return err
			}

			var srv *http.Server
			if rt.cfg.Metrics.Listen != "" {
				srv = serveMetrics(rt.cfg.Metrics.Listen, reg, rt.log)
			}

			sched.Start(ctx)
			for _, p := range snapkeeper.Periods {
				if next := sched.NextRun(p); next != nil {
					rt.log.Info("next rotation", "period", string(p), "at", next.Format(time.RFC3339))
				}
			}

			<-ctx.Done()
			rt.log.Info("shutting down...")
			sched.Stop()
			if srv != nil {
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				_ = srv.Shutdown(shutdownCtx)
			}
			rt.log.Info("exit complete")
			return nil
		},
	}
}

// scheduleAll adds a rotation for every period that has a cron
// expression configured.
func scheduleAll(rt *app, sched *snapkeeper.Scheduler, metrics *snapkeeper.Metrics) error {
	scheduled := 0
	for _, p := range snapkeeper.Periods {
		spec := rt.cfg.Cron(string(p))
		if spec == "" {
			continue
		}
		rot, err := rt.rotation(p, metrics)
		if err != nil {
			return err
		}
		if err := sched.Schedule(spec, rot); err != nil {
			return err
		}
		scheduled++
	}
	if scheduled == 0 {
		return errors.New("no schedule configured: set schedule.day, schedule.week or schedule.month")
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger log15.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}
