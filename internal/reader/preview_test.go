package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCleanTextCollapsesWhitespaceAndPreservesParagraphs(t *testing.T) {
	input := "  First   paragraph \n\n Second\tparagraph \r\n\r\nThird line "
	got := CleanText(input)
	want := "First paragraph\n\nSecond paragraph\n\nThird line"
	if got != want {
		t.Fatalf("CleanText mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestTruncateText(t *testing.T) {
	input := "abcdefghijklmnopqrstuvwxyz"

	got, truncated := truncateText(input, 10)
	if !truncated {
		t.Fatalf("expected truncated=true")
	}
	if got != "abcdefghi…" {
		t.Fatalf("unexpected truncated text: %q", got)
	}

	full, wasTruncated := truncateText("short", 10)
	if wasTruncated {
		t.Fatalf("expected truncated=false for short text")
	}
	if full != "short" {
		t.Fatalf("unexpected short text: %q", full)
	}
}

func TestFetchPreview_PlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Fed raises rates.\n\nMarkets react quickly."))
	}))
	defer server.Close()

	preview, err := FetchPreview(context.Background(), server.URL, "Fed raises rates", 0, FetchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preview.Truncated {
		t.Fatalf("short preview must not be truncated")
	}
	if preview.Text != "Fed raises rates.\n\nMarkets react quickly." {
		t.Fatalf("unexpected preview text: %q", preview.Text)
	}
}

func TestFetchPreview_ClipsToMaxChars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("abcdefghijklmnopqrstuvwxyz"))
	}))
	defer server.Close()

	preview, err := FetchPreview(context.Background(), server.URL, "", 10, FetchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !preview.Truncated {
		t.Fatalf("expected truncated preview")
	}
	if preview.Text != "abcdefghi…" {
		t.Fatalf("unexpected preview text: %q", preview.Text)
	}
}

func TestFetchPreview_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if _, err := FetchPreview(context.Background(), server.URL, "", 0, FetchOptions{}); err == nil {
		t.Fatalf("expected error for non-2xx status")
	}
}

func TestFetchPreview_EmptyURL(t *testing.T) {
	if _, err := FetchPreview(context.Background(), "   ", "", 0, FetchOptions{}); err == nil {
		t.Fatalf("expected error for blank URL")
	}
}
