package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/pipeline"
)

func runReorder(args []string) int {
	fs := flag.NewFlagSet("reorder", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	date := fs.String("date", defaultUTCDayString(), "Window date (YYYY-MM-DD, UTC)")
	order := fs.String("order", "", "Comma-separated cluster ids in the desired rank order")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	windowDate, err := parseWindowFlag(*date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid date: %v\n", err)
		return 2
	}
	clusterIDs, err := parseClusterIDList(*order)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid order: %v\n", err)
		return 2
	}

	ctx, cancel, pool, svc, logger, err := connectService(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	if err := svc.Reorder(ctx, windowDate, clusterIDs); err != nil {
		var verr *pipeline.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "Reorder rejected: %s\n", verr.Reason)
			return 2
		}
		logger.Error().Err(err).Str("window_date", windowDate.Format("2006-01-02")).Msg("reorder failed")
		fmt.Fprintf(os.Stderr, "Reorder failed: %v\n", err)
		return 1
	}

	fmt.Printf("reordered=%d window=%s\n", len(clusterIDs), windowDate.Format("2006-01-02"))
	return 0
}

func parseClusterIDList(raw string) ([]int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("--order is required")
	}

	parts := strings.Split(trimmed, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%q is not a positive cluster id", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("--order must list at least one cluster id")
	}
	return ids, nil
}
