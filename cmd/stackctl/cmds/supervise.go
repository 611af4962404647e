package cmds

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-go-golems/stackctl/pkg/events"
	"github.com/go-go-golems/stackctl/pkg/metrics"
	"github.com/go-go-golems/stackctl/pkg/supervise"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newSuperviseCmd() *cobra.Command {
	var interval time.Duration
	var metricsAddr string
	var startFirst bool

	cmd := &cobra.Command{
		Use:   "supervise",
		Short: "Keep the watch-list healthy, sweeping on an interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			collector := metrics.NewCollector()
			bus, err := events.NewInMemoryBus()
			if err != nil {
				return err
			}
			bus.AddHandler("stackctl-event-log", logEvent)

			s, _, err := loadStack(cmd, events.Fanout{collector, bus})
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("interval") {
				interval = s.Config.Recovery.Interval
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				err := bus.Run(egCtx)
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})

			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", collector.Handler())
				srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				eg.Go(func() error {
					log.Info().Str("addr", metricsAddr).Msg("serving metrics")
					if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
						return errors.Wrap(err, "metrics server")
					}
					return nil
				})
				eg.Go(func() error {
					<-egCtx.Done()
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(sctx)
				})
			}

			eg.Go(func() error {
				select {
				case <-bus.Running():
				case <-egCtx.Done():
					return nil
				}
				if startFirst {
					if _, err := s.Engine.StartAll(egCtx); err != nil {
						log.Error().Err(err).Msg("initial start failed; supervising anyway")
					}
				}
				log.Info().Dur("interval", interval).Strs("watch", s.Monitor.Watch()).Msg("supervising")
				return s.Monitor.Run(egCtx, interval, func(rep supervise.Report, err error) {
					if err != nil {
						log.Error().Err(err).Int("cycles", rep.Cycles).Msg("sweep did not restore health")
						return
					}
					log.Info().Int("cycles", rep.Cycles).Int("attempts", len(rep.Attempts)).Msg("sweep finished")
				})
			})

			if err := eg.Wait(); err != nil {
				return errors.Wrap(err, "supervise")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Time between sweeps (defaults to recovery.interval)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().BoolVar(&startFirst, "start", false, "Start the whole stack before the first sweep")
	return cmd
}

func logEvent(ev events.Event) error {
	log.Info().
		Str("event", string(ev.Type)).
		Str("session", ev.Session).
		Str("service", ev.Service).
		Str("status", ev.Status).
		Str("strategy", ev.Strategy).
		Int("attempt", ev.Attempt).
		Msg(ev.Message)
	return nil
}
