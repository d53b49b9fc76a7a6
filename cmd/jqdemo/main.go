package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Andrej220/go-utils/jobqueue"
	"github.com/Andrej220/go-utils/jobqueue/lazy"
	mw "github.com/Andrej220/go-utils/jobqueue/middleware"
	"github.com/Andrej220/go-utils/jobqueue/observability"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jqdemo",
		Short: "Job queue demo",
		Long:  "jqdemo pushes a synthetic workload through a bounded job queue and reports how every job ended.",
	}
	rootCmd.AddCommand(newRunCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type runOptions struct {
	concurrency   int
	jobs          int
	work          time.Duration
	timeout       time.Duration
	cancel        int
	shutdownAfter time.Duration
	failEvery     int
	retries       int
	rate          float64
	logLevel      string
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a synthetic workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			var o runOptions
			o.concurrency, _ = cmd.Flags().GetInt("concurrency")
			o.jobs, _ = cmd.Flags().GetInt("jobs")
			o.work, _ = cmd.Flags().GetDuration("work")
			o.timeout, _ = cmd.Flags().GetDuration("timeout")
			o.cancel, _ = cmd.Flags().GetInt("cancel")
			o.shutdownAfter, _ = cmd.Flags().GetDuration("shutdown-after")
			o.failEvery, _ = cmd.Flags().GetInt("fail-every")
			o.retries, _ = cmd.Flags().GetInt("retries")
			o.rate, _ = cmd.Flags().GetFloat64("rate")
			o.logLevel, _ = cmd.Flags().GetString("log-level")

			if o.jobs <= 0 {
				return fmt.Errorf("--jobs must be positive")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd.OutOrStdout(), o)
		},
	}
	cmd.Flags().Int("concurrency", 4, "Maximum number of jobs running at once")
	cmd.Flags().Int("jobs", 20, "Number of jobs to submit")
	cmd.Flags().Duration("work", 100*time.Millisecond, "Time each job spends working")
	cmd.Flags().Duration("timeout", 0, "Per-job timeout measured from submission (0 disables)")
	cmd.Flags().Int("cancel", 0, "Cancel the last N submitted jobs by id")
	cmd.Flags().Duration("shutdown-after", 0, "Abort everything outstanding after this delay (0 disables)")
	cmd.Flags().Int("fail-every", 0, "Make every Nth job fail (0 disables)")
	cmd.Flags().Int("retries", 2, "Attempts per job, including the first")
	cmd.Flags().Float64("rate", 0, "Executions started per second (0 is unlimited)")
	cmd.Flags().String("log-level", "info", "Log level: debug|info|warn|error")
	return cmd
}

func run(ctx context.Context, w io.Writer, o runOptions) error {
	logger := lazy.New(func() (*zap.Logger, error) {
		lvl, err := zap.ParseAtomicLevel(o.logLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = lvl
		return cfg.Build()
	})
	log, err := logger.Get()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	counters := &jobqueue.AtomicMetrics{}
	mws := []mw.Middleware[int, string]{
		mw.Logging[int, string](),
		mw.Tracing[int, string]("jqdemo"),
		mw.Retry[int, string](mw.RetryPolicy{
			Attempts:    o.retries,
			Initial:     20 * time.Millisecond,
			Max:         200 * time.Millisecond,
			ShouldRetry: func(err error) bool { return !errors.Is(err, jobqueue.ErrCancelled) },
		}),
	}
	if o.rate > 0 {
		mws = append(mws, mw.RateLimit[int, string](rate.NewLimiter(rate.Limit(o.rate), 1)))
	}

	q, err := jobqueue.SharedFromOptions("jqdemo", mw.Chain(syntheticWork(o), mws...), jobqueue.Options{
		Concurrency: o.concurrency,
		Logger:      log,
		Observers:   []jobqueue.Observer{observability.NewWithMeter(mp.Meter("jqdemo"))},
		Metrics:     counters,
		OnJobError: func(info jobqueue.JobInfo, err error) {
			log.Debug("job error", zap.String("job_id", info.ID), zap.Error(err))
		},
	})
	if err != nil {
		return err
	}

	var submitOpts []jobqueue.SubmitOption
	if o.timeout > 0 {
		submitOpts = append(submitOpts, jobqueue.WithTimeout(o.timeout))
	}

	outs := make([]*jobqueue.Outcome[string], 0, o.jobs)
	for i := 1; i <= o.jobs; i++ {
		out, err := q.Submit(ctx, i, submitOpts...)
		if err != nil {
			return err
		}
		outs = append(outs, out)
	}
	log.Info("workload submitted", zap.Int("jobs", o.jobs), zap.Int("backlog", q.BacklogLen()))

	for i := len(outs) - 1; i >= 0 && i >= len(outs)-o.cancel; i-- {
		q.Cancel(outs[i].ID())
	}
	if o.shutdownAfter > 0 {
		t := time.AfterFunc(o.shutdownAfter, func() {
			n := q.Shutdown()
			log.Info("shutdown triggered", zap.Int("pending", n))
		})
		defer t.Stop()
	}

	tally := map[string]int{}
	for _, out := range outs {
		_, err := out.Wait(context.Background())
		tally[classify(err)]++
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Close(closeCtx); err != nil {
		log.Warn("queue did not drain", zap.Error(err))
	}

	fmt.Fprintf(w, "jobs: %d\n", o.jobs)
	for _, k := range []string{"ok", "failed", "timeout", "abort"} {
		fmt.Fprintf(w, "  %-8s %d\n", k, tally[k])
	}
	fmt.Fprintf(w, "executed: %d  failed: %d  cancelled: %d\n",
		counters.Executed(), counters.Failed(), counters.Cancelled())
	fmt.Fprintf(w, "spans: %d\n", len(spans.Ended()))
	return printMetrics(ctx, w, reader)
}

// syntheticWork sleeps for o.work, failing every o.failEvery-th job.
func syntheticWork(o runOptions) jobqueue.Executor[int, string] {
	return func(ctx context.Context, n int, _ string) (string, error) {
		if o.failEvery > 0 && n%o.failEvery == 0 {
			return "", fmt.Errorf("job %d: synthetic failure", n)
		}
		t := time.NewTimer(o.work)
		defer t.Stop()
		select {
		case <-t.C:
			return fmt.Sprintf("job-%d", n), nil
		case <-ctx.Done():
			return "", context.Cause(ctx)
		}
	}
}

func classify(err error) string {
	if err == nil {
		return "ok"
	}
	if reason, ok := jobqueue.ReasonOf(err); ok {
		return reason.String()
	}
	return "failed"
}

func printMetrics(ctx context.Context, w io.Writer, reader *sdkmetric.ManualReader) error {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.WithoutCancel(ctx), &rm); err != nil {
		return err
	}

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "metrics:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-28s %d\n", name, totals[name])
	}
	return nil
}
