package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newsdesk/internal/cli"
)

func runCluster(args []string) int {
	fs := flag.NewFlagSet("cluster", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 120*time.Second, "Command timeout")
	date := fs.String("date", defaultUTCDayString(), "Window date (YYYY-MM-DD, UTC)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}
	windowDate, err := parseWindowFlag(*date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid date: %v\n", err)
		return 2
	}

	ctx, cancel, pool, svc, logger, err := connectService(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	result, err := svc.RunCluster(ctx, windowDate)
	if err != nil {
		logger.Error().Err(err).Str("window_date", result.WindowDate).Msg("clustering run failed")
		fmt.Fprintf(os.Stderr, "Clustering failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("window=%s articles=%d clusters=%d avg_size=%.2f replaced=%d\n",
		result.WindowDate, result.ArticlesConsidered, result.ClustersCreated, result.AvgClusterSize, result.ReplacedClusters)

	if len(result.LargestClusters) == 0 {
		return 0
	}

	rows := make([][]string, 0, len(result.LargestClusters))
	for _, cluster := range result.LargestClusters {
		rows = append(rows, []string{
			truncateForTable(cluster.Label, 70),
			fmt.Sprintf("%d", cluster.Size),
		})
	}
	if err := writeTable([]string{"label", "size"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
