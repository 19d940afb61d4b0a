package fetch

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dDAP/cmd/util"
	"github.com/ValentinKolb/dDAP/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf [dataset]",
		Short:   "Performance testing tool for DAP servers",
		Args:    cobra.ExactArgs(1),
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfNumThreads = 10
	perfConstraint = ""
	perfFunction   = ""
	perfSkip       = make([]string, 0)
)

// perfResult is the outcome of one benchmark
type perfResult struct {
	bench   testing.BenchmarkResult
	latency gometrics.Timer
	errors  gometrics.Counter
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. dds,function)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "ce"
	perfTestCmd.Flags().String(key, "", util.WrapString("Constraint of the dds and data benchmarks"))
	key = "function"
	perfTestCmd.Flags().String(key, "version()", util.WrapString("Constraint of the function benchmark, e.g. linear_scale(sst,2,1). Repeated calls are answered from the function cache of the server"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = viper.GetInt("threads")
	perfConstraint = viper.GetString("ce")
	perfFunction = viper.GetString("function")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(_ *cobra.Command, args []string) error {
	dataset := args[0]

	fmt.Println("Performance testing tool for DAP servers")

	// Print configuration
	config := util.GetClientConfig()
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Endpoints: %s\n", strings.Join(config.Endpoints, ", "))
	fmt.Printf("Dataset:   %s\n", dataset)
	fmt.Printf("Threads:   %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	ctx := context.Background()
	benchmarks := []struct {
		name string
		fn   func() error
	}{
		{"dds", func() error {
			_, err := dapClient.FetchText(ctx, common.ObjDDS, dataset, perfConstraint)
			return err
		}},
		{"das", func() error {
			_, err := dapClient.FetchText(ctx, common.ObjDAS, dataset, "")
			return err
		}},
		{"data", func() error {
			_, err := dapClient.FetchData(ctx, dataset, perfConstraint)
			return err
		}},
		{"function", func() error {
			_, err := dapClient.FetchData(ctx, dataset, perfFunction)
			return err
		}},
	}

	// Create results map
	results := make(map[string]perfResult)
	for _, b := range benchmarks {
		result := benchmark(b.name, b.fn)
		results[b.name] = result
		printResult(b.name, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, dataset, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// benchmark runs fn in parallel and records the latency of every call
func benchmark(name string, fn func() error) perfResult {
	result := perfResult{
		latency: gometrics.NewTimer(),
		errors:  gometrics.NewCounter(),
	}
	if shouldSkip(name) {
		return result
	}

	result.bench = testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				start := time.Now()
				err := fn()
				result.latency.UpdateSince(start)
				if err != nil {
					result.errors.Inc(1)
					log.Printf("(%s) - request failed: %v\n", name, err)
				}
			}
		})
	})
	return result
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	if result.bench.NsPerOp() == 0 {
		fmt.Printf("%-12sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	p := result.latency.Percentiles([]float64{0.5, 0.99})

	// Print the formatted result
	fmt.Printf("%-12s%.0f ops/sec\tp50 %s\tp99 %s\tmax %s\terrors %d\n", test, opsPerSec,
		time.Duration(p[0]), time.Duration(p[1]), time.Duration(result.latency.Max()), result.errors.Count())
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath, dataset string, results map[string]perfResult, config common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "OpsPerSec", "P50Ns", "P99Ns", "MaxNs", "Errors", "Skipped",
		"Endpoints", "Dataset", "Constraint", "Threads",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		skipped := result.bench.NsPerOp() == 0
		var nsPerOp, opsPerSec float64
		if !skipped {
			nsPerOp = math.Max(float64(result.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		p := result.latency.Percentiles([]float64{0.5, 0.99})

		constraint := perfConstraint
		if test == "function" {
			constraint = perfFunction
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			fmt.Sprintf("%.0f", opsPerSec),
			fmt.Sprintf("%.0f", p[0]),
			fmt.Sprintf("%.0f", p[1]),
			strconv.FormatInt(result.latency.Max(), 10),
			strconv.FormatInt(result.errors.Count(), 10),
			strconv.FormatBool(skipped),
			strings.Join(config.Endpoints, ";"),
			dataset,
			constraint,
			strconv.Itoa(perfNumThreads),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
