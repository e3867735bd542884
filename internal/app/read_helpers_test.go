package app

import (
	"testing"

	"horse.fit/newsdesk/internal/payloadschema"
)

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	if got, err := parseOutputFormat("", outputFormatTable); err != nil || got != outputFormatTable {
		t.Fatalf("expected table default, got %q, err %v", got, err)
	}
	if got, err := parseOutputFormat(" JSON ", outputFormatTable); err != nil || got != outputFormatJSON {
		t.Fatalf("expected json, got %q, err %v", got, err)
	}
	if _, err := parseOutputFormat("yaml", outputFormatTable); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestParseWindowFlag(t *testing.T) {
	t.Parallel()

	windowDate, err := parseWindowFlag("2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := windowDate.Format("2006-01-02"); got != "2026-08-29" {
		t.Fatalf("unexpected window date %q", got)
	}

	if _, err := parseWindowFlag("29/08/2026"); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestTruncateForTable(t *testing.T) {
	t.Parallel()

	if got := truncateForTable("  short  ", 10); got != "short" {
		t.Fatalf("unexpected value: %q", got)
	}
	if got := truncateForTable("abcdefghijkl", 10); got != "abcdefg..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncateForTable("abcdef", 0); got != "abcdef" {
		t.Fatalf("maxLen 0 must pass through, got %q", got)
	}
}

func TestParseClusterIDList(t *testing.T) {
	t.Parallel()

	ids, err := parseClusterIDList(" 3, 1 ,2 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 1 || ids[2] != 2 {
		t.Fatalf("unexpected ids: %v", ids)
	}

	if _, err := parseClusterIDList(""); err == nil {
		t.Fatalf("expected error for empty order")
	}
	if _, err := parseClusterIDList("1,x"); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}
	if _, err := parseClusterIDList("0"); err == nil {
		t.Fatalf("expected error for non-positive id")
	}
}

func TestResolveLanguage_DeclaredTagWins(t *testing.T) {
	t.Parallel()

	declared := "en-US"
	item := payloadschema.ImportArticle{Title: "Bonjour tout le monde, ceci est en français", Language: &declared}
	code := resolveLanguage(item, true)
	if code == nil || *code != "en" {
		t.Fatalf("expected declared tag to win, got %v", code)
	}
}

func TestResolveLanguage_DetectionDisabled(t *testing.T) {
	t.Parallel()

	item := payloadschema.ImportArticle{Title: "Some perfectly ordinary headline"}
	if code := resolveLanguage(item, false); code != nil {
		t.Fatalf("expected nil when detection disabled, got %q", *code)
	}
}
