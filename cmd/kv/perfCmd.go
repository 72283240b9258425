package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/kvbridge/cmd/util"
	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for kvb servers",
		Long:    "Runs every workload with the configured number of concurrent callers for a fixed duration and reports latency percentiles and throughput.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfDuration         = 5 * time.Second
	perfSkip             = make([]string, 0)
)

// workload is a single benchmark. prepare runs once before the timed part.
type workload struct {
	name    string
	prepare func(ctx context.Context, keys []value.Value) error
	op      func(ctx context.Context, keys []value.Value, i int) error
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent callers"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "duration"
	perfTestCmd.Flags().Duration(key, 5*time.Second, util.WrapString("How long every benchmark runs"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(1, viper.GetInt("keys"))
	perfNumThreads = max(1, viper.GetInt("threads"))
	perfDuration = viper.GetDuration("duration")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	config := util.GetClientConfig()

	fmt.Println("Performance testing tool for kvb servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d, Duration: %s\n", perfNumThreads, perfDuration)
	fmt.Println()

	fmt.Println("starting tests...")

	testValue := value.FromString("test")
	largeValue := value.FromBytes(make([]byte, perfLargeValueSizeKB*1024))
	setAll := func(ctx context.Context, keys []value.Value) error {
		for _, k := range keys {
			if _, err := kvClient.Set(ctx, k, testValue); err != nil {
				return err
			}
		}
		return nil
	}

	workloads := []workload{
		{
			name: "set",
			op: func(ctx context.Context, keys []value.Value, i int) error {
				_, err := kvClient.Set(ctx, keys[i%len(keys)], testValue)
				return err
			},
		},
		{
			name: "set-large",
			op: func(ctx context.Context, keys []value.Value, i int) error {
				_, err := kvClient.Set(ctx, keys[i%len(keys)], largeValue)
				return err
			},
		},
		{
			name:    "get",
			prepare: setAll,
			op: func(ctx context.Context, keys []value.Value, i int) error {
				_, err := kvClient.Get(ctx, keys[i%len(keys)])
				return err
			},
		},
		{
			name: "get-missing",
			op: func(ctx context.Context, keys []value.Value, i int) error {
				_, err := kvClient.Get(ctx, keys[i%len(keys)])
				return err
			},
		},
		{
			name: "incr",
			op: func(ctx context.Context, keys []value.Value, i int) error {
				_, err := kvClient.Incr(ctx, keys[i%len(keys)])
				return err
			},
		},
		{
			name:    "mixed",
			prepare: setAll,
			op: func(ctx context.Context, keys []value.Value, i int) error {
				key := keys[i%len(keys)]
				var err error
				switch i % 4 {
				case 0:
					_, err = kvClient.Set(ctx, key, testValue)
				case 1:
					_, err = kvClient.Get(ctx, key)
				case 2:
					_, err = kvClient.Del(ctx, key)
				case 3:
					_, err = kvClient.Exists(ctx, key)
				}
				return err
			},
		},
	}

	registry := metrics.NewRegistry()
	var ran []string
	for _, w := range workloads {
		if slices.Contains(perfSkip, w.name) {
			fmt.Printf("%-14sskipped\n", w.name)
			continue
		}
		if err := runWorkload(ctx, registry, w); err != nil {
			return fmt.Errorf("%s: %w", w.name, err)
		}
		ran = append(ran, w.name)
		printResult(registry, w.name)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, registry, ran, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runWorkload runs w with perfNumThreads callers for perfDuration and records every
// call in the timer <name> and every failed call in the counter <name>.errors
func runWorkload(ctx context.Context, registry metrics.Registry, w workload) error {
	keys := make([]value.Value, perfKeySpread)
	for i := range keys {
		keys[i] = value.FromString(fmt.Sprintf("%s-%s-%d", perfKeyPrefix, w.name, i))
	}

	// cleanup
	defer func() {
		if _, err := kvClient.Del(context.WithoutCancel(ctx), keys...); err != nil {
			fmt.Printf("(%s) - error deleting keys: %v\n", w.name, err)
		}
	}()

	if w.prepare != nil {
		if err := w.prepare(ctx, keys); err != nil {
			return err
		}
	}

	timer := metrics.GetOrRegisterTimer(w.name, registry)
	errs := metrics.GetOrRegisterCounter(w.name+".errors", registry)

	runCtx, cancel := context.WithTimeout(ctx, perfDuration)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	for t := 0; t < perfNumThreads; t++ {
		g.Go(func() error {
			for i := t; gctx.Err() == nil; i += perfNumThreads {
				start := time.Now()
				err := w.op(gctx, keys, i)
				if gctx.Err() != nil {
					// the call was cut short by the end of the run
					return nil
				}
				timer.UpdateSince(start)
				if err != nil {
					errs.Inc(1)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// printResult prints the result of a benchmark in a formatted way
func printResult(registry metrics.Registry, name string) {
	timer := metrics.GetOrRegisterTimer(name, registry)
	errs := metrics.GetOrRegisterCounter(name+".errors", registry)
	if timer.Count() == 0 {
		fmt.Printf("%-14sno calls completed\n", name)
		return
	}

	ps := timer.Percentiles([]float64{0.5, 0.99})
	opsPerSec := float64(timer.Count()) / perfDuration.Seconds()

	fmt.Printf("%-14s%8d ops\tmean %-10s p50 %-10s p99 %-10s %.0f ops/sec\t%d errors\n",
		name, timer.Count(),
		time.Duration(timer.Mean()), time.Duration(ps[0]), time.Duration(ps[1]),
		opsPerSec, errs.Count())
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, registry metrics.Registry, names []string, config common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Ops", "Errors", "MeanNs", "P50Ns", "P99Ns", "OpsPerSec",
		"Endpoints", "TimeoutMs", "RetryCount", "ConnectionsPerEndpoint",
		"Serializer", "Transport",
		"Threads", "DurationSec", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, name := range names {
		timer := metrics.GetOrRegisterTimer(name, registry)
		errs := metrics.GetOrRegisterCounter(name+".errors", registry)
		ps := timer.Percentiles([]float64{0.5, 0.99})

		row := []string{
			name,
			strconv.FormatInt(timer.Count(), 10),
			strconv.FormatInt(errs.Count(), 10),
			fmt.Sprintf("%.0f", timer.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", float64(timer.Count())/perfDuration.Seconds()),
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.FormatInt(config.TimeoutMillisecond, 10),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			config.Transport.Serializer,
			util.GetTransportName(),
			strconv.Itoa(perfNumThreads),
			fmt.Sprintf("%.0f", perfDuration.Seconds()),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", name, err)
		}
	}

	return nil
}
