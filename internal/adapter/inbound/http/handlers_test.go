package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/Record-Gate/Recordgate/internal/adapter/outbound/memory"
	"github.com/Record-Gate/Recordgate/internal/domain/access"
	"github.com/Record-Gate/Recordgate/internal/domain/auth"
	"github.com/Record-Gate/Recordgate/internal/domain/expr"
	"github.com/Record-Gate/Recordgate/internal/eval"
	"github.com/Record-Gate/Recordgate/internal/service"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testTransport(t *testing.T, opts ...Option) *Transport {
	t.Helper()
	evaluator, err := eval.New(eval.Config{})
	if err != nil {
		t.Fatalf("eval.New() error = %v", err)
	}

	ctx := context.Background()
	store := memory.NewPolicyStore()
	policies := []access.Policy{
		{
			ID: "post-row-read", Model: "post", Action: access.ActionRead,
			Rule: expr.Perm("isOwner", expr.Lit("authorId")), Enabled: true,
		},
		{
			ID: "employee-name-read", Model: "employee", Action: access.ActionRead, Field: "name",
			Rule: expr.Lit(true), Enabled: true,
		},
		{
			ID: "employee-salary-read", Model: "employee", Action: access.ActionRead, Field: "salary",
			Rule: expr.Perm("hasRole", expr.Lit("hr"), expr.Lit("admin")), Enabled: true,
		},
		{
			ID: "post-delete", Model: "post", Action: access.ActionDelete,
			Rule: expr.Perm("hasRole", expr.Lit("admin")), Enabled: true,
		},
	}
	for i := range policies {
		if err := store.SavePolicy(ctx, &policies[i]); err != nil {
			t.Fatalf("SavePolicy() error = %v", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accessService, err := service.NewAccessService(ctx, store, evaluator, logger)
	if err != nil {
		t.Fatalf("NewAccessService() error = %v", err)
	}
	evalService := service.NewEvalService(evaluator, logger)

	opts = append([]Option{WithLogger(logger)}, opts...)
	return NewTransport(accessService, evalService, opts...)
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response decode error = %v, body = %s", err, w.Body.String())
	}
	return out
}

func TestCheckRowEndpoint(t *testing.T) {
	handler := testTransport(t).Handler()

	tests := []struct {
		name        string
		body        string
		wantAllowed bool
	}{
		{
			"owner allowed",
			`{"model": "post", "user": {"id": "5"}, "record": {"id": 1, "authorId": 5}}`,
			true,
		},
		{
			"non-owner denied",
			`{"model": "post", "user": {"id": "5"}, "record": {"id": 2, "authorId": 9}}`,
			false,
		},
		{
			"unpolicied model denied",
			`{"model": "secret", "user": {"id": "5"}, "record": {"authorId": 5}}`,
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, handler, http.MethodPost, "/v1/check/row", tt.body, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			resp := decodeResponse[allowedResponse](t, w)
			if resp.Allowed != tt.wantAllowed {
				t.Errorf("allowed = %v, want %v", resp.Allowed, tt.wantAllowed)
			}
		})
	}
}

func TestCheckFieldsEndpoint(t *testing.T) {
	handler := testTransport(t).Handler()

	body := `{"model": "employee", "user": {"id": "1", "roles": ["employee"]},
		"record": {"name": "amy", "salary": 90000}}`
	w := doJSON(t, handler, http.MethodPost, "/v1/check/fields", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeResponse[fieldsResponse](t, w)
	if resp.Record["name"] != "amy" {
		t.Errorf("name = %v, want amy", resp.Record["name"])
	}
	if _, present := resp.Record["salary"]; present {
		t.Error("salary must be omitted for a plain employee")
	}

	body = `{"model": "employee", "user": {"id": "2", "roles": ["hr"]},
		"record": {"name": "amy", "salary": 90000}}`
	w = doJSON(t, handler, http.MethodPost, "/v1/check/fields", body, nil)
	resp = decodeResponse[fieldsResponse](t, w)
	if resp.Record["salary"] != 90000.0 {
		t.Errorf("salary for hr = %v, want 90000", resp.Record["salary"])
	}
}

func TestCheckWriteEndpoint(t *testing.T) {
	handler := testTransport(t).Handler()

	body := `{"model": "post", "action": "delete", "user": {"id": "1", "roles": ["admin"]},
		"existing": {"id": 1}}`
	w := doJSON(t, handler, http.MethodPost, "/v1/check/write", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp := decodeResponse[allowedResponse](t, w); !resp.Allowed {
		t.Error("admin delete should be allowed")
	}

	// read is not a write action.
	body = `{"model": "post", "action": "read", "user": {"id": "1"}, "existing": {}}`
	w = doJSON(t, handler, http.MethodPost, "/v1/check/write", body, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status for read action = %d, want 400", w.Code)
	}
}

func TestEvalEndpoint(t *testing.T) {
	handler := testTransport(t).Handler()

	body := `{"expression": {"kind": "op", "op": "add",
		"args": [{"kind": "field", "path": "a"}, {"kind": "literal", "value": 2}]},
		"record": {"a": 40}}`
	w := doJSON(t, handler, http.MethodPost, "/v1/eval", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp := decodeResponse[evalResponse](t, w); resp.Value != 42.0 {
		t.Errorf("value = %v, want 42", resp.Value)
	}
}

func TestEvalEndpointErrors(t *testing.T) {
	handler := testTransport(t).Handler()

	// Evaluation failure maps to 422 with the typed kind.
	body := `{"expression": {"kind": "op", "op": "divide",
		"args": [{"kind": "literal", "value": 1}, {"kind": "literal", "value": 0}]}}`
	w := doJSON(t, handler, http.MethodPost, "/v1/eval", body, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	resp := decodeResponse[errorResponse](t, w)
	if resp.Error.Kind != "division_by_zero" {
		t.Errorf("error kind = %q, want division_by_zero", resp.Error.Kind)
	}

	// Malformed expression maps to 400.
	w = doJSON(t, handler, http.MethodPost, "/v1/eval", `{"expression": {"kind": "magic"}}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status for bad expression = %d, want 400", w.Code)
	}
}

func TestEvalEndpointFallback(t *testing.T) {
	handler := testTransport(t).Handler()

	body := `{"expression": {"kind": "op", "op": "divide",
		"args": [{"kind": "literal", "value": 1}, {"kind": "literal", "value": 0}]},
		"fallback": "n/a"}`
	w := doJSON(t, handler, http.MethodPost, "/v1/eval", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp := decodeResponse[evalResponse](t, w); resp.Value != "n/a" {
		t.Errorf("value = %v, want fallback", resp.Value)
	}
}

func TestRequestValidation(t *testing.T) {
	handler := testTransport(t).Handler()

	tests := []struct {
		name string
		path string
		body string
	}{
		{"missing model", "/v1/check/row", `{"user": {"id": "1"}, "record": {}}`},
		{"unknown field", "/v1/check/row", `{"model": "post", "bogus": 1}`},
		{"invalid json", "/v1/check/row", `{`},
		{"missing expression", "/v1/eval", `{"record": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, handler, http.MethodPost, tt.path, tt.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestAPIKeyAuthentication(t *testing.T) {
	verifier := auth.NewKeyVerifier([]string{auth.HashKey("secret-key")})
	handler := testTransport(t, WithKeyVerifier(verifier)).Handler()

	body := `{"model": "post", "user": {"id": "5"}, "record": {"authorId": 5}}`

	w := doJSON(t, handler, http.MethodPost, "/v1/check/row", body, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no credentials: status = %d, want 401", w.Code)
	}

	w = doJSON(t, handler, http.MethodPost, "/v1/check/row", body,
		map[string]string{"Authorization": "Bearer wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", w.Code)
	}

	w = doJSON(t, handler, http.MethodPost, "/v1/check/row", body,
		map[string]string{"Authorization": "Bearer secret-key"})
	if w.Code != http.StatusOK {
		t.Errorf("valid key: status = %d, want 200", w.Code)
	}

	// Health stays open.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz: status = %d, want 200", rec.Code)
	}
}

func TestRequestIDEcho(t *testing.T) {
	handler := testTransport(t).Handler()

	body := `{"model": "post", "user": {"id": "5"}, "record": {"authorId": 5}}`
	w := doJSON(t, handler, http.MethodPost, "/v1/check/row", body,
		map[string]string{"X-Request-ID": "req-123"})
	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}

	w = doJSON(t, handler, http.MethodPost, "/v1/check/row", body, nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("a request ID should be generated when absent")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := testTransport(t).Handler()

	// Produce at least one decision so the counter family exists.
	doJSON(t, handler, http.MethodPost, "/v1/check/row",
		`{"model": "post", "user": {"id": "5"}, "record": {"authorId": 5}}`, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "recordgate_decisions_total") {
		t.Error("metrics output should include recordgate_decisions_total")
	}
}
