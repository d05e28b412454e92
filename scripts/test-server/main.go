// Command test-server serves a fake paginated console for trying pageprof
// locally:
//
//	go run ./scripts/test-server --totals images=120,containers=430 --token-ttl 25
//	PAGEPROF_ENDPOINT=http://localhost:8080/api/v1 PAGEPROF_USER=admin \
//	  PAGEPROF_PASSWORD=admin pageprof run
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/pageprof/internal/fakeconsole"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		addr string
		opts fakeconsole.Options
		verb bool
	)

	cmd := &cobra.Command{
		Use:          "test-server",
		Short:        "Serve a fake paginated console API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logrus.New()
			log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if verb {
				log.SetLevel(logrus.DebugLevel)
			}

			console := fakeconsole.New(opts, log)
			server := &http.Server{
				Addr:              addr,
				Handler:           console.Handler(),
				ReadHeaderTimeout: 2 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdown)
			}()

			log.WithFields(logrus.Fields{
				"addr":   addr,
				"prefix": fakeconsole.APIPrefix,
				"totals": opts.Totals,
			}).Info("serving fake console")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			log.WithField("calls", console.Calls()).Info("stopped")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8080", "Listen address")
	f.StringVar(&opts.Username, "user", "admin", "Accepted username")
	f.StringVar(&opts.Password, "password", "admin", "Accepted password")
	f.StringToIntVar(&opts.Totals, "totals",
		map[string]int{"registry": 120, "images": 730, "containers": 430, "hosts": 40},
		"Result count per collection path")
	f.IntVar(&opts.PageLimit, "page-limit", 50, "Maximum page size")
	f.IntVar(&opts.TokenTTL, "token-ttl", 0, "Calls a token is valid for (0 = never expires)")
	f.Float64Var(&opts.FailureRate, "failure-rate", 0, "Probability of answering 503")
	f.DurationVar(&opts.Latency, "latency", 0, "Delay added to every collection call")
	f.Int64Var(&opts.Seed, "seed", time.Now().UnixNano(), "Seed for simulated failures")
	f.BoolVarP(&verb, "verbose", "v", false, "Log every call")
	return cmd
}
