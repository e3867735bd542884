package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestParsePositiveInt(t *testing.T) {
	if got, err := parsePositiveInt("", 25, 1, 200); err != nil || got != 25 {
		t.Fatalf("expected default 25, got %d, err %v", got, err)
	}
	if got, err := parsePositiveInt(" 7 ", 25, 1, 200); err != nil || got != 7 {
		t.Fatalf("expected 7, got %d, err %v", got, err)
	}
	if _, err := parsePositiveInt("abc", 25, 1, 200); err == nil {
		t.Fatalf("expected error for non-integer")
	}
	if _, err := parsePositiveInt("0", 25, 1, 200); err == nil {
		t.Fatalf("expected error for out-of-range value")
	}
	if _, err := parsePositiveInt("201", 25, 1, 200); err == nil {
		t.Fatalf("expected error for value above max")
	}
}

func TestClipPreview(t *testing.T) {
	text, truncated := clipPreview("abcdefghij", 20)
	if truncated || text != "abcdefghij" {
		t.Fatalf("short text must pass through, got %q truncated=%v", text, truncated)
	}

	text, truncated = clipPreview("abcdefghijklmnop", 10)
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if text != "abcdefghi…" {
		t.Fatalf("unexpected clipped text: %q", text)
	}
}

func newTestContext(t *testing.T, method, target string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeJSend(t *testing.T, rec *httptest.ResponseRecorder) jsendResponse {
	t.Helper()
	var resp jsendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestWindowDateParam_Invalid(t *testing.T) {
	s := &Server{}
	c, rec := newTestContext(t, http.MethodGet, "/api/v1/windows/not-a-date/candidates")
	c.SetParamNames("date")
	c.SetParamValues("not-a-date")

	if _, ok := s.windowDateParam(c); ok {
		t.Fatalf("expected invalid date to be rejected")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decodeJSend(t, rec)
	if resp.Status != "fail" {
		t.Fatalf("expected fail envelope, got %q", resp.Status)
	}
}

func TestWindowDateParam_Valid(t *testing.T) {
	s := &Server{}
	c, _ := newTestContext(t, http.MethodGet, "/api/v1/windows/2026-08-29/candidates")
	c.SetParamNames("date")
	c.SetParamValues("2026-08-29")

	windowDate, ok := s.windowDateParam(c)
	if !ok {
		t.Fatalf("expected valid date to pass")
	}
	if got := windowDate.Format("2006-01-02"); got != "2026-08-29" {
		t.Fatalf("unexpected window date %q", got)
	}
}

func TestClusterIDParam_Invalid(t *testing.T) {
	s := &Server{}
	for _, raw := range []string{"", "abc", "-3", "0"} {
		c, rec := newTestContext(t, http.MethodGet, "/api/v1/clusters/"+raw)
		c.SetParamNames("cluster_id")
		c.SetParamValues(raw)

		if _, ok := s.clusterIDParam(c); ok {
			t.Fatalf("expected cluster id %q to be rejected", raw)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", raw, rec.Code)
		}
	}
}

func TestHTTPErrorHandler_JSendShapes(t *testing.T) {
	s := &Server{}

	c, rec := newTestContext(t, http.MethodGet, "/api/v1/clusters/9")
	s.httpErrorHandler(echo.NewHTTPError(http.StatusNotFound, "Cluster not found"), c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	resp := decodeJSend(t, rec)
	if resp.Status != "fail" || resp.Message != "Cluster not found" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}

	c, rec = newTestContext(t, http.MethodGet, "/api/v1/windows/2026-08-29/stats")
	s.httpErrorHandler(echo.NewHTTPError(http.StatusInternalServerError), c)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	resp = decodeJSend(t, rec)
	if resp.Status != "error" {
		t.Fatalf("expected error envelope, got %q", resp.Status)
	}
	if strings.Contains(resp.Message, "sql") {
		t.Fatalf("internal details must not leak: %q", resp.Message)
	}
}

func TestHealthRoute(t *testing.T) {
	s := &Server{}
	c, rec := newTestContext(t, http.MethodGet, "/api/v1/health")

	if err := s.handleHealth(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeJSend(t, rec)
	if resp.Status != "success" {
		t.Fatalf("expected success envelope, got %q", resp.Status)
	}
}
