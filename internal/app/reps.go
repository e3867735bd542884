package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/db"
)

func runReps(args []string) int {
	fs := flag.NewFlagSet("reps", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	maxCount := fs.Int("max", 0, "Maximum representatives (0 uses the configured cap)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: newsdesk reps <cluster_id> [--max n] [--format table|json]")
		return 2
	}

	clusterID, err := parseClusterIDArg(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid cluster id: %v\n", err)
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, svc, logger, err := connectService(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	reps, err := svc.Representatives(ctx, clusterID, *maxCount)
	if err != nil {
		if db.IsNoRows(err) {
			fmt.Fprintf(os.Stderr, "Cluster %d not found\n", clusterID)
			return 1
		}
		logger.Error().Err(err).Int64("cluster_id", clusterID).Msg("representatives failed")
		fmt.Fprintf(os.Stderr, "Failed to load representatives: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(reps); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if len(reps) == 0 {
		fmt.Printf("cluster %d has no members\n", clusterID)
		return 0
	}

	rows := make([][]string, 0, len(reps))
	for _, rep := range reps {
		rows = append(rows, []string{
			fmt.Sprintf("%d", rep.ArticleID),
			truncateForTable(rep.Title, 70),
			truncateForTable(rep.Publisher, 25),
			formatUTCTimestampPtr(rep.PublishedAt),
		})
	}
	if err := writeTable([]string{"article", "title", "publisher", "published_at"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
