package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/CSroseX/blocking-api-server/internal/loadtest"
)

var (
	opts     = loadtest.DefaultOptions()
	noWarmup bool
)

var rootCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Fire batches of concurrent GET requests at a URL and report latency",
	Long: `Sends --total requests to --url in batches of --concurrent, waiting for each
batch to finish before starting the next. Ctrl+C lets the current batch
finish and then prints what was collected.

Examples:
  loadtest --url http://localhost:8080/rest/blocking --concurrent 10 --total 100
  loadtest --url http://localhost:8080/rest/simple --concurrent 50 --total 1000 --timeout 5s
  loadtest --url "http://localhost:8080/rest/blocking?operation-type=sleep" --concurrent 20 --total 500`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts.Warmup = !noWarmup
		return run(cmd.Context(), opts)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&opts.URL, "url", "", "target URL")
	f.IntVar(&opts.Concurrent, "concurrent", opts.Concurrent, "requests per batch")
	f.IntVar(&opts.Total, "total", opts.Total, "total requests")
	f.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "per-request timeout")
	f.Float64Var(&opts.Rate, "rate", 0, "max requests per second, 0 for no limit")
	f.BoolVar(&noWarmup, "no-warmup", false, "skip the warmup batch")
	_ = rootCmd.MarkFlagRequired("url")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, o loadtest.Options) error {
	runner, err := loadtest.NewRunner(o, loadtest.WithProgress(os.Stderr))
	if err != nil {
		return err
	}
	loadtest.RenderConfig(os.Stdout, o)

	if o.Warmup {
		fmt.Printf("Warmup... (%d requests)\n", o.Concurrent)
		if err := runner.Warmup(ctx); err != nil {
			return fmt.Errorf("warmup: %w", err)
		}
	}

	stopNotice := context.AfterFunc(ctx, func() {
		_, _ = color.New(color.FgYellow).Fprintln(os.Stderr,
			"\nInterrupt received. Finishing current requests and showing results...")
	})
	defer stopNotice()

	res := runner.Run(ctx)
	loadtest.Render(os.Stdout, loadtest.Summarize(res))
	return nil
}
