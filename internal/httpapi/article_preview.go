package httpapi

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"horse.fit/newsdesk/internal/reader"
)

const (
	defaultPreviewMaxChars = 1000
)

type articlePreview struct {
	ArticleID    int64   `json:"article_id"`
	PreviewText  string  `json:"preview_text"`
	Source       string  `json:"source"`
	CharCount    int     `json:"char_count"`
	Truncated    bool    `json:"truncated"`
	PreviewError *string `json:"preview_error,omitempty"`
}

// fetchArticlePreview builds readable preview text for an article. When the
// article carries a URL, the page is fetched and run through readability;
// otherwise the stored snippet or title stands in. A fetch failure degrades
// to the snippet fallback rather than failing the request.
func (s *Server) fetchArticlePreview(ctx context.Context, articleID int64, maxChars int) (*articlePreview, error) {
	target, err := s.pool.GetArticlePreviewTarget(ctx, articleID)
	if err != nil {
		return nil, err
	}

	if maxChars <= 0 {
		maxChars = defaultPreviewMaxChars
	}

	resp := &articlePreview{ArticleID: articleID}

	if target.URL != nil && strings.TrimSpace(*target.URL) != "" {
		preview, fetchErr := reader.FetchPreview(ctx, *target.URL, target.Title, maxChars, reader.FetchOptions{})
		if fetchErr == nil {
			resp.PreviewText = preview.Text
			resp.Source = "reader"
			resp.Truncated = preview.Truncated
			resp.CharCount = utf8.RuneCountInString(preview.Text)
			return resp, nil
		}

		msg := fetchErr.Error()
		resp.PreviewError = &msg
		s.logger.Warn().
			Err(fetchErr).
			Int64("article_id", articleID).
			Msg("reader preview fetch failed; falling back to stored snippet")
	}

	fallback := ""
	source := "title"
	if target.Snippet != nil && strings.TrimSpace(*target.Snippet) != "" {
		fallback = reader.CleanText(*target.Snippet)
		source = "snippet"
	} else {
		fallback = strings.TrimSpace(target.Title)
	}
	if fallback == "" {
		return nil, fmt.Errorf("article %d has no preview content", articleID)
	}

	preview, truncated := clipPreview(fallback, maxChars)
	resp.PreviewText = preview
	resp.Source = source
	resp.Truncated = truncated
	resp.CharCount = utf8.RuneCountInString(preview)
	return resp, nil
}

func clipPreview(text string, maxChars int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text, false
	}
	clipped := strings.TrimSpace(string(runes[:maxChars-1]))
	return clipped + "…", true
}
