package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "import":
		return runImport(args[1:])
	case "cluster":
		return runCluster(args[1:])
	case "rank":
		return runRank(args[1:])
	case "candidates":
		return runCandidates(args[1:])
	case "reorder":
		return runReorder(args[1:])
	case "detail":
		return runDetail(args[1:])
	case "reps":
		return runReps(args[1:])
	case "stats":
		return runStats(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "newsdesk CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  newsdesk <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health      Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  import      Import an article batch from a JSON file")
	fmt.Fprintln(os.Stderr, "  cluster     Group a window's articles into story clusters")
	fmt.Fprintln(os.Stderr, "  rank        Score clusters and save ranked candidates")
	fmt.Fprintln(os.Stderr, "  candidates  Show the saved candidate ordering for a window")
	fmt.Fprintln(os.Stderr, "  reorder     Rewrite a window's candidate order")
	fmt.Fprintln(os.Stderr, "  detail      Show one cluster with its member articles")
	fmt.Fprintln(os.Stderr, "  reps        Show representative articles for one cluster")
	fmt.Fprintln(os.Stderr, "  stats       Show article/cluster/candidate counts for a window")
	fmt.Fprintln(os.Stderr, "  serve       Start the Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"newsdesk <command> -h\" for command-specific flags.")
}
