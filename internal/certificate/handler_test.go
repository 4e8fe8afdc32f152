package certificate

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wfactory/certclaim/internal/common/middleware"
	"github.com/wfactory/certclaim/pkg/certmsg"
)

func newTestRouter(f *fixture, devPass string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	NewHandler(f.service, devPass).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestVerifyEndpoint(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f, "")

	token, payload := f.issueToken(t, 5, futureExp())
	sig := f.sign(t, certmsg.ActionVerify, payload)

	w := postJSON(t, router, "/api/v1/cert/verify", ClaimRequest{
		Token:     token,
		Wallet:    f.wallet,
		Signature: sig,
	}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data VerifyResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.TokenID != 5 || resp.Data.Owner != f.wallet {
		t.Errorf("response = %+v", resp.Data)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestVerifyEndpointRejectsShortWallet(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f, "")

	w := postJSON(t, router, "/api/v1/cert/verify", ClaimRequest{
		Token:     "x.y.z",
		Wallet:    "0x123",
		Signature: "0x" + strings.Repeat("ab", 65),
	}, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDownloadEndpointSecondCallGone(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f, "")

	token, payload := f.issueToken(t, 9, futureExp())
	sig := f.sign(t, certmsg.ActionDownload, payload)
	body := ClaimRequest{Token: token, Wallet: f.wallet, Signature: sig}

	w := postJSON(t, router, "/api/v1/cert/download", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("first download status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %s", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("cache control = %s", cc)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "WFACTORY_CERT_9.png") {
		t.Errorf("content disposition = %s", cd)
	}

	w = postJSON(t, router, "/api/v1/cert/download", body, nil)
	if w.Code != http.StatusGone {
		t.Errorf("second download status = %d, want 410", w.Code)
	}
}

func TestPreviewEndpoint(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f, "")

	token, _ := f.issueToken(t, 5, futureExp())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cert/preview?token="+token, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %s", ct)
	}

	// Missing token is a 400, not a panic.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/cert/preview", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing token status = %d, want 400", w.Code)
	}
}

func TestIssueEndpointGuard(t *testing.T) {
	f := newFixture(t)

	// No pass configured: endpoint is disabled for everyone.
	router := newTestRouter(f, "")
	w := postJSON(t, router, "/api/v1/cert/issue", IssueRequest{TokenID: 18}, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("disabled issue status = %d, want 403", w.Code)
	}

	router = newTestRouter(f, "hunter2")

	w = postJSON(t, router, "/api/v1/cert/issue", IssueRequest{TokenID: 18},
		map[string]string{"X-Dev-Pass": "wrong"})
	if w.Code != http.StatusForbidden {
		t.Errorf("wrong pass status = %d, want 403", w.Code)
	}

	w = postJSON(t, router, "/api/v1/cert/issue", IssueRequest{TokenID: 18, TTLSeconds: int64(time.Hour.Seconds())},
		map[string]string{"X-Dev-Pass": "hunter2"})
	if w.Code != http.StatusOK {
		t.Fatalf("issue status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data IssueResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.Token == "" || !strings.HasPrefix(resp.Data.URL, "http://localhost:8080/cert/") {
		t.Errorf("response = %+v", resp.Data)
	}
}
