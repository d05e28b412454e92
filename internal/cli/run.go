package cli

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/wesleyorama2/pageprof/internal/auth"
	"github.com/wesleyorama2/pageprof/internal/clock"
	"github.com/wesleyorama2/pageprof/internal/config"
	lhttp "github.com/wesleyorama2/pageprof/internal/http"
	"github.com/wesleyorama2/pageprof/internal/metrics"
	"github.com/wesleyorama2/pageprof/internal/output"
	"github.com/wesleyorama2/pageprof/internal/profiler"
	"github.com/wesleyorama2/pageprof/internal/record"
	"github.com/wesleyorama2/pageprof/internal/stats"
)

// ErrScenariosAbandoned is returned by run when at least one scenario ran out
// of retries. The report is still complete.
var ErrScenariosAbandoned = errors.New("scenarios abandoned")

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Profile the configured scenarios",
		Long: `Run authenticates against the API, pages through every scenario in order and
prints a latency report per scenario.

Credentials are read from PAGEPROF_USER and PAGEPROF_PASSWORD (or the
scenario file); the API root from --endpoint, PAGEPROF_ENDPOINT or the file.
Without --scenarios the built-in registry, images and containers scenarios
are profiled.

Every call is written to details-<unix time>.csv and diagnostics to
debug-<unix time>.log in --output-dir.

Examples:
  pageprof run --endpoint https://console.example.com/api/v1
  pageprof run -s scenarios.yaml --format json --metrics-file pageprof.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(cmd)
			if err != nil {
				return err
			}
			return runProfile(cmd, cfg)
		},
	}

	cmd.Flags().StringP("scenarios", "s", "", "Scenario file (YAML or JSON)")
	cmd.Flags().String("endpoint", "", "API root URL (overrides "+config.EnvEndpoint+")")
	cmd.Flags().StringP("output-dir", "o", ".", "Directory for the details CSV and debug log")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this file")
	cmd.Flags().StringP("format", "f", "text", "Report format (text, json, yaml)")
	cmd.Flags().String("color", string(output.ColorAuto), "Color the text report (auto, always, never)")
	cmd.Flags().Float64("rate", 0, "Maximum calls per second (0 = unpaced)")
	cmd.Flags().DurationP("timeout", "t", 0, "Request timeout (0 = none)")
	cmd.Flags().Float64("fault-rate", 0, "Probability of deliberately failing a call (overrides "+config.EnvFaultRate+")")
	cmd.Flags().Int("page-size", 0, "Results per page (default 50)")
	cmd.Flags().Int("retry-limit", 0, "Consecutive failures before a scenario is abandoned (default 10)")
	cmd.Flags().Duration("backoff", 0, "Wait after a failed call (default 5s)")
	cmd.Flags().Int("max-auth-refreshes", 0, "Consecutive 401s before a scenario is abandoned, 0 = unbounded (default 5)")
	cmd.Flags().Bool("insecure", false, "Skip TLS certificate verification (overrides "+config.EnvTLSInsecure+")")
	cmd.Flags().BoolP("verbose", "v", false, "Write debug entries to the debug log")
	return cmd
}

// loadRunConfig merges the scenario file, the environment and flags, in
// that order of precedence, then validates the result.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	cfg := &config.Config{}
	if path, _ := flags.GetString("scenarios"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if flags.Changed("endpoint") {
		cfg.Endpoint, _ = flags.GetString("endpoint")
	}
	if flags.Changed("rate") {
		cfg.Rate, _ = flags.GetFloat64("rate")
	}
	if flags.Changed("timeout") {
		d, _ := flags.GetDuration("timeout")
		cfg.Timeout = config.Duration(d)
	}
	if flags.Changed("fault-rate") {
		cfg.FaultRate, _ = flags.GetFloat64("fault-rate")
	}
	if flags.Changed("page-size") {
		cfg.PageSize, _ = flags.GetInt("page-size")
	}
	if flags.Changed("retry-limit") {
		cfg.RetryLimit, _ = flags.GetInt("retry-limit")
	}
	if flags.Changed("backoff") {
		d, _ := flags.GetDuration("backoff")
		backoff := config.Duration(d)
		cfg.Backoff = &backoff
	}
	if flags.Changed("max-auth-refreshes") {
		n, _ := flags.GetInt("max-auth-refreshes")
		cfg.MaxAuthRefreshes = &n
	}
	if flags.Changed("insecure") {
		cfg.InsecureSkipVerify, _ = flags.GetBool("insecure")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runOutputs holds the files a run writes. Close releases all of them.
type runOutputs struct {
	logFile  *os.File
	csv      *record.CSVWriter
	exporter *metrics.Exporter

	logPath, csvPath, metricsPath string
}

func openOutputs(dir, metricsPath, runID string, stamp int64) (*runOutputs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	out := &runOutputs{
		logPath:     filepath.Join(dir, fmt.Sprintf("debug-%d.log", stamp)),
		csvPath:     filepath.Join(dir, fmt.Sprintf("details-%d.csv", stamp)),
		metricsPath: metricsPath,
	}

	var err error
	out.logFile, err = os.Create(out.logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create debug log: %w", err)
	}

	csvFile, err := os.Create(out.csvPath)
	if err != nil {
		out.Close(logrus.StandardLogger())
		return nil, fmt.Errorf("failed to create details file: %w", err)
	}
	out.csv, err = record.NewCSVWriter(csvFile)
	if err != nil {
		csvFile.Close()
		out.Close(logrus.StandardLogger())
		return nil, err
	}

	if metricsPath != "" {
		out.exporter, err = metrics.NewExporter(runID)
		if err != nil {
			out.Close(logrus.StandardLogger())
			return nil, err
		}
	}
	return out, nil
}

func (o *runOutputs) sink() record.Sink {
	if o.exporter == nil {
		return o.csv
	}
	return record.MultiSink(o.csv, o.exporter)
}

func (o *runOutputs) files() map[string]string {
	files := map[string]string{
		"Details":   o.csvPath,
		"Debug log": o.logPath,
	}
	if o.exporter != nil {
		files["Metrics"] = o.metricsPath
	}
	return files
}

// Close flushes the details file and closes the debug log. A details failure
// is written to log before the log itself is closed.
func (o *runOutputs) Close(log logrus.FieldLogger) error {
	var first error
	if o.csv != nil {
		if err := o.csv.Close(); err != nil {
			log.WithError(err).WithField("file", o.csvPath).Error("failed to close details file")
			first = err
		}
	}
	if o.logFile != nil {
		if err := o.logFile.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func newRunLogger(w *os.File, verbose bool, runID string) logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: true,
	})
	logger.SetLevel(logrus.InfoLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger.WithField("run_id", runID)
}

func runProfile(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	outputDir, _ := flags.GetString("output-dir")
	metricsFile, _ := flags.GetString("metrics-file")
	formatName, _ := flags.GetString("format")
	colorMode, _ := flags.GetString("color")
	verbose, _ := flags.GetBool("verbose")

	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}
	stdout := cmd.OutOrStdout()
	reporter, err := output.NewReporter(format, stdout, output.SchemeFor(output.ColorMode(colorMode), stdout))
	if err != nil {
		return err
	}

	clk := clock.RealClock{}
	started := clk.Now()
	runID := uuid.NewString()

	outputs, err := openOutputs(outputDir, metricsFile, runID, started.Unix())
	if err != nil {
		return err
	}

	log := newRunLogger(outputs.logFile, verbose, runID)
	defer func() {
		if err := outputs.Close(log); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
	}()
	log.WithFields(logrus.Fields{
		"endpoint":  cfg.Endpoint,
		"scenarios": len(cfg.Scenarios),
		"page_size": cfg.PageSize,
	}).Info("starting run")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client := lhttp.NewClient(
		lhttp.WithBaseURL(cfg.Endpoint),
		lhttp.WithTimeout(cfg.Timeout.GetDuration(0)),
		lhttp.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
		lhttp.WithHeader("User-Agent", "pageprof/"+version),
		lhttp.WithClock(clk),
	)

	authenticator := auth.NewAuthenticator(client,
		auth.Credentials{Username: cfg.Username, Password: cfg.Password},
		auth.WithLogger(log),
		auth.WithClock(clk))
	session, err := auth.NewSession(ctx, authenticator, log)
	if err != nil {
		log.WithError(err).Error("initial authentication failed")
		return err
	}

	execOpts := []profiler.ExecutorOption{
		profiler.WithExecutorLogger(log),
		profiler.WithExecutorClock(clk),
	}
	if cfg.FaultRate > 0 {
		log.WithField("fault_rate", cfg.FaultRate).Warn("fault injection enabled")
		execOpts = append(execOpts, profiler.WithFaultInjector(
			profiler.RandomFaults(cfg.FaultRate, rand.NewSource(started.UnixNano()))))
	}
	executor := profiler.NewHTTPExecutor(client, execOpts...)

	driverCfg := cfg.Driver()
	if cfg.Rate > 0 {
		driverCfg.Limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	driver := profiler.NewDriver(executor, session, driverCfg,
		profiler.WithLogger(log),
		profiler.WithClock(clk),
		profiler.WithSink(outputs.sink()))

	report := &output.RunReport{
		RunID:    runID,
		Endpoint: cfg.Endpoint,
		Started:  started,
	}
	estimates := cfg.SortedEstimates()

	_, runErr := profiler.RunAll(ctx, driver, cfg.ProfilerScenarios(), func(res *profiler.Result) error {
		summary, err := stats.Summarize(res.Records, driverCfg.PageSize)
		if err != nil {
			return fmt.Errorf("scenario %q: %w", res.Scenario.Name, err)
		}
		if outputs.exporter != nil {
			outputs.exporter.ObserveResult(res)
		}
		sr := output.NewScenarioReport(res, summary, estimates)
		report.Scenarios = append(report.Scenarios, sr)
		return reporter.WriteScenario(sr)
	})
	if runErr != nil {
		log.WithError(runErr).Error("run stopped early")
	}

	report.Elapsed = clk.Since(started)
	report.Outputs = outputs.files()

	if outputs.exporter != nil {
		if err := outputs.exporter.WriteTextfile(metricsFile); err != nil {
			log.WithError(err).Error("failed to write metrics")
			if runErr == nil {
				runErr = err
			}
		}
	}

	if err := reporter.WriteRun(report); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"elapsed":   report.Elapsed.String(),
		"abandoned": report.Failed(),
	}).Info("run finished")

	if runErr != nil {
		return runErr
	}
	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d %w", failed, len(report.Scenarios), ErrScenariosAbandoned)
	}
	return nil
}
