package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/db"
	"horse.fit/newsdesk/internal/pipeline"
)

func runDetail(args []string) int {
	fs := flag.NewFlagSet("detail", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: newsdesk detail <cluster_id> [--format table|json]")
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

	detail, err := svc.GetClusterDetail(ctx, clusterID)
	if err != nil {
		if db.IsNoRows(err) {
			fmt.Fprintf(os.Stderr, "Cluster %d not found\n", clusterID)
			return 1
		}
		logger.Error().Err(err).Int64("cluster_id", clusterID).Msg("cluster detail failed")
		fmt.Fprintf(os.Stderr, "Failed to load cluster detail: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(detail); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	printClusterDetail(detail)
	return 0
}

func printClusterDetail(detail *pipeline.ClusterDetail) {
	fmt.Printf("cluster=%d window=%s score=%.4f\n", detail.ClusterID, detail.WindowDate, detail.Score)
	fmt.Printf("label=%s\n", pointerStringOrEmpty(detail.Label))
	if len(detail.Languages) > 0 {
		fmt.Printf("languages=%s\n", strings.Join(detail.Languages, ","))
	}
	if len(detail.TopSources) > 0 {
		sources := make([]string, 0, len(detail.TopSources))
		for _, pc := range detail.TopSources {
			sources = append(sources, fmt.Sprintf("%s(%d)", pc.Publisher, pc.Count))
		}
		fmt.Printf("top_sources=%s\n", strings.Join(sources, ", "))
	}
	fmt.Println()

	rows := make([][]string, 0, len(detail.Members))
	for _, member := range detail.Members {
		rows = append(rows, []string{
			fmt.Sprintf("%d", member.ArticleID),
			truncateForTable(member.Title, 70),
			truncateForTable(pointerStringOrEmpty(member.Publisher), 25),
			formatUTCTimestampPtr(member.PublishedAt),
		})
	}
	if err := writeTable([]string{"article", "title", "publisher", "published_at"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
	}
}
