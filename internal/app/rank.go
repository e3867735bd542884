package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/newsdesk/internal/cli"
)

func runRank(args []string) int {
	fs := flag.NewFlagSet("rank", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Command timeout")
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

	result, err := svc.RunRank(ctx, windowDate)
	if err != nil {
		logger.Error().Err(err).Str("window_date", result.WindowDate).Msg("ranking run failed")
		fmt.Fprintf(os.Stderr, "Ranking failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("window=%s clusters=%d candidates=%d\n",
		result.WindowDate, result.ClustersConsidered, result.CandidatesSaved)

	if len(result.Top) == 0 {
		return 0
	}

	rows := make([][]string, 0, len(result.Top))
	for _, entry := range result.Top {
		publishers := make([]string, 0, len(entry.TopPublishers))
		for _, pc := range entry.TopPublishers {
			publishers = append(publishers, fmt.Sprintf("%s(%d)", pc.Publisher, pc.Count))
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", entry.Rank),
			fmt.Sprintf("%d", entry.ClusterID),
			truncateForTable(pointerStringOrEmpty(entry.Label), 60),
			fmt.Sprintf("%.4f", entry.Score),
			fmt.Sprintf("%d", entry.Volume),
			fmt.Sprintf("%d", entry.Breadth),
			fmt.Sprintf("%d", entry.Recency),
			truncateForTable(strings.Join(publishers, ", "), 50),
		})
	}
	if err := writeTable([]string{"rank", "cluster", "label", "score", "vol", "breadth", "recent", "top_publishers"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
