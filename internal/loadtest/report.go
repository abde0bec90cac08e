package loadtest

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	reportBold   = color.New(color.Bold)
	reportGreen  = color.New(color.FgGreen)
	reportRed    = color.New(color.FgRed)
	reportYellow = color.New(color.FgYellow)
)

// RenderConfig prints the run configuration.
func RenderConfig(w io.Writer, o Options) {
	_, _ = reportBold.Fprintln(w, "=== Load Test Configuration ===")
	table := tablewriter.NewWriter(w)
	table.Header("Setting", "Value")
	_ = table.Append("URL", o.URL)
	_ = table.Append("Concurrent requests", fmt.Sprint(o.Concurrent))
	_ = table.Append("Total requests", fmt.Sprint(o.Total))
	_ = table.Append("Timeout", o.Timeout.String())
	rateStr := "unlimited"
	if o.Rate > 0 {
		rateStr = fmt.Sprintf("%.1f req/s", o.Rate)
	}
	_ = table.Append("Rate", rateStr)
	_ = table.Render()
}

// Render prints the results, the latency table and the error breakdown.
func Render(w io.Writer, s Summary) {
	fmt.Fprintln(w)
	if s.Total == 0 {
		_, _ = reportYellow.Fprintln(w, "No results to display.")
		return
	}

	_, _ = reportBold.Fprintln(w, "=== Load Test Results ===")
	fmt.Fprintf(w, "Total requests: %d\n", s.Total)
	_, _ = reportGreen.Fprintf(w, "Successful (200 OK): %d (%.1f%%)\n", s.Successful, s.SuccessRate)
	failed := reportGreen
	if s.Failed > 0 {
		failed = reportRed
	}
	_, _ = failed.Fprintf(w, "Failed/Timeout: %d (%.1f%%)\n", s.Failed, 100-s.SuccessRate)
	fmt.Fprintf(w, "Total elapsed time: %.2fs\n", s.Elapsed.Seconds())

	if s.Max > 0 {
		fmt.Fprintln(w)
		_, _ = reportBold.Fprintln(w, "Response Time Statistics (ms)")
		table := tablewriter.NewWriter(w)
		table.Header("Average", "Median", "Min", "Max", "P95", "P99")
		_ = table.Append(ms(s.Avg), ms(s.Median), ms(s.Min), ms(s.Max), ms(s.P95), ms(s.P99))
		_ = table.Render()
	}

	if len(s.Errors) > 0 {
		fmt.Fprintln(w)
		_, _ = reportRed.Fprintln(w, "Error Breakdown")
		table := tablewriter.NewWriter(w)
		table.Header("Error", "Count")
		for _, k := range slices.Sorted(maps.Keys(s.Errors)) {
			_ = table.Append(k, fmt.Sprint(s.Errors[k]))
		}
		_ = table.Render()
	}

	if s.Interrupted {
		_, _ = reportYellow.Fprintln(w, "Test was interrupted. Results show completed requests only.")
	}
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.1f", float64(d)/float64(time.Millisecond))
}
