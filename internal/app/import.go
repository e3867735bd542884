package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/db"
	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/langdetect"
	"horse.fit/newsdesk/internal/payloadschema"
)

func runImport(args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Command timeout")
	payloadFile := fs.String("file", "", "Path to the article batch JSON file")
	detectLanguage := fs.Bool("detect-language", true, "Detect article language when the payload omits it")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*payloadFile) == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		return 2
	}

	raw, err := os.ReadFile(*payloadFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read payload file: %v\n", err)
		return 2
	}

	batch, err := payloadschema.ValidateImportPayload(json.RawMessage(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
	}

	ctx, cancel, pool, _, logger, err := connectService(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	now := globaltime.UTC()
	imported := 0
	for i, item := range batch.Articles {
		article := db.NewArticle{
			Title:      strings.TrimSpace(item.Title),
			Snippet:    item.Snippet,
			Publisher:  item.Publisher,
			SourceName: item.Source,
			URL:        item.URL,
		}

		if item.PublishedAt != nil {
			ts, parseErr := time.Parse(time.RFC3339, strings.TrimSpace(*item.PublishedAt))
			if parseErr != nil {
				fmt.Fprintf(os.Stderr, "Invalid articles[%d].published_at: %v\n", i, parseErr)
				return 2
			}
			utc := ts.UTC()
			article.PublishedAt = &utc
		}

		article.Language = resolveLanguage(item, *detectLanguage)

		articleID, insertErr := pool.InsertArticle(ctx, article, now)
		if insertErr != nil {
			logger.Error().Err(insertErr).Int("index", i).Msg("article import failed")
			fmt.Fprintf(os.Stderr, "Import failed at articles[%d]: %v\n", i, insertErr)
			return 1
		}
		imported++
		logger.Debug().Int64("article_id", articleID).Str("title", article.Title).Msg("article imported")
	}

	logger.Info().Int("imported", imported).Msg("article batch imported")
	fmt.Printf("imported=%d\n", imported)
	return 0
}

// resolveLanguage prefers the declared language tag, normalized to its
// primary subtag, and falls back to detection over the title and snippet.
func resolveLanguage(item payloadschema.ImportArticle, detect bool) *string {
	if item.Language != nil {
		if code := langdetect.NormalizeCode(*item.Language); code != "" {
			return &code
		}
	}
	if !detect {
		return nil
	}

	sample := strings.TrimSpace(item.Title)
	if item.Snippet != nil {
		sample = strings.TrimSpace(sample + " " + *item.Snippet)
	}
	if code := langdetect.DetectISO6391(sample); code != "" {
		return &code
	}
	return nil
}
