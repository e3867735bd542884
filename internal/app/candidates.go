package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newsdesk/internal/cli"
)

func runCandidates(args []string) int {
	fs := flag.NewFlagSet("candidates", flag.ContinueOnError)
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

	candidates, err := svc.ListCandidates(ctx, windowDate)
	if err != nil {
		logger.Error().Err(err).Str("window_date", windowDate.Format("2006-01-02")).Msg("list candidates failed")
		fmt.Fprintf(os.Stderr, "Failed to list candidates: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(candidates); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if len(candidates) == 0 {
		fmt.Printf("no candidates for window %s\n", windowDate.Format("2006-01-02"))
		return 0
	}

	rows := make([][]string, 0, len(candidates))
	for _, candidate := range candidates {
		rows = append(rows, []string{
			fmt.Sprintf("%d", candidate.Rank),
			fmt.Sprintf("%d", candidate.ClusterID),
			truncateForTable(pointerStringOrEmpty(candidate.Label), 70),
			fmt.Sprintf("%.4f", candidate.Score),
			fmt.Sprintf("%d", candidate.Volume),
			fmt.Sprintf("%d", candidate.Breadth),
		})
	}
	if err := writeTable([]string{"rank", "cluster", "label", "score", "volume", "breadth"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
