package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newsdesk/internal/cli"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	date := fs.String("date", defaultUTCDayString(), "Window date (YYYY-MM-DD, UTC)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
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

	ctx, cancel, pool, _, logger, err := connectService(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	windowEnd := windowDate.Add(24 * time.Hour)
	stats, err := pool.QueryWindowStats(ctx, windowDate, windowDate, windowEnd)
	if err != nil {
		logger.Error().Err(err).Str("window_date", windowDate.Format("2006-01-02")).Msg("query window stats failed")
		fmt.Fprintf(os.Stderr, "Failed to query window stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	topScore := ""
	if stats.TopScore != nil {
		topScore = fmt.Sprintf("%.4f", *stats.TopScore)
	}
	rows := [][]string{
		{"articles", fmt.Sprintf("%d", stats.Articles)},
		{"clusters", fmt.Sprintf("%d", stats.Clusters)},
		{"labeled_clusters", fmt.Sprintf("%d", stats.LabeledClusters)},
		{"candidates", fmt.Sprintf("%d", stats.Candidates)},
		{"avg_cluster_size", fmt.Sprintf("%.2f", stats.AvgClusterSize)},
		{"top_score", topScore},
	}
	fmt.Printf("window=%s\n", stats.Day)
	if err := writeTable([]string{"metric", "value"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
