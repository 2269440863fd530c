package http

import (
	"encoding/json"
	"net/http"

	"github.com/Record-Gate/Recordgate/internal/adapter/outbound/schema"
	"github.com/Record-Gate/Recordgate/internal/domain/access"
	"github.com/Record-Gate/Recordgate/internal/domain/expr"
	"github.com/Record-Gate/Recordgate/internal/service"
)

// maxBodyBytes bounds decision request bodies. Records larger than this
// should not be flowing through an authorization check.
const maxBodyBytes = 1 << 20 // 1 MiB

// identityPayload is the wire form of the requesting identity.
type identityPayload struct {
	ID         string         `json:"id"`
	Roles      []string       `json:"roles"`
	Attributes map[string]any `json:"attributes"`
}

func (p *identityPayload) toIdentity() *expr.Identity {
	if p == nil {
		return nil
	}
	return &expr.Identity{ID: p.ID, Roles: p.Roles, Attributes: p.Attributes}
}

type checkRowRequest struct {
	Model  string           `json:"model"`
	User   *identityPayload `json:"user"`
	Record map[string]any   `json:"record"`
}

type checkFieldsRequest struct {
	Model  string           `json:"model"`
	User   *identityPayload `json:"user"`
	Record map[string]any   `json:"record"`
}

type checkWriteRequest struct {
	Model    string           `json:"model"`
	Action   string           `json:"action"`
	User     *identityPayload `json:"user"`
	Existing map[string]any   `json:"existing"`
	Incoming map[string]any   `json:"incoming"`
}

type evalRequest struct {
	Expression json.RawMessage  `json:"expression"`
	User       *identityPayload `json:"user"`
	Record     map[string]any   `json:"record"`
	Related    map[string]any   `json:"related"`
	// Fallback, when present, substitutes for any evaluation failure.
	Fallback *json.RawMessage `json:"fallback"`
}

type allowedResponse struct {
	Allowed bool `json:"allowed"`
}

type fieldsResponse struct {
	Record map[string]any `json:"record"`
}

type evalResponse struct {
	Value any `json:"value"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// handlers wires the application services to the decision API routes.
type handlers struct {
	access  *service.AccessService
	eval    *service.EvalService
	metrics *Metrics
}

func (h *handlers) checkRow(w http.ResponseWriter, r *http.Request) {
	var req checkRowRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}

	allowed := h.access.CanReadRow(req.Model, req.Record, req.User.toIdentity())
	h.metrics.DecisionsTotal.WithLabelValues("row", outcome(allowed)).Inc()
	writeJSON(w, http.StatusOK, allowedResponse{Allowed: allowed})
}

func (h *handlers) checkFields(w http.ResponseWriter, r *http.Request) {
	var req checkFieldsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}

	filtered := h.access.FilterFields(req.Model, req.Record, req.User.toIdentity())
	h.metrics.DecisionsTotal.WithLabelValues("fields", "filtered").Inc()
	writeJSON(w, http.StatusOK, fieldsResponse{Record: filtered})
}

func (h *handlers) checkWrite(w http.ResponseWriter, r *http.Request) {
	var req checkWriteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}
	action := access.Action(req.Action)
	if action == access.ActionRead || !access.ValidAction(action) {
		writeError(w, http.StatusBadRequest, "action must be write, create, or delete")
		return
	}

	allowed := h.access.CanWrite(req.Model, action, req.Existing, req.Incoming, req.User.toIdentity())
	h.metrics.DecisionsTotal.WithLabelValues("write", outcome(allowed)).Inc()
	writeJSON(w, http.StatusOK, allowedResponse{Allowed: allowed})
}

func (h *handlers) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Expression) == 0 {
		writeError(w, http.StatusBadRequest, "expression is required")
		return
	}

	node, err := schema.DecodeExpression(req.Expression)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	evalCtx := &expr.Context{
		Record:  req.Record,
		User:    req.User.toIdentity(),
		Related: req.Related,
	}

	if req.Fallback != nil {
		var fallback any
		if err := json.Unmarshal(*req.Fallback, &fallback); err != nil {
			writeError(w, http.StatusBadRequest, "invalid fallback value")
			return
		}
		writeJSON(w, http.StatusOK, evalResponse{Value: h.eval.EvaluateWithFallback(node, evalCtx, fallback)})
		return
	}

	v, err := h.eval.Evaluate(node, evalCtx)
	if err != nil {
		kind := "error"
		if ee, ok := err.(expr.EvalError); ok {
			kind = ee.Kind()
		}
		h.metrics.EvalErrorsTotal.WithLabelValues(kind).Inc()
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: errorBody{Kind: kind, Message: err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, evalResponse{Value: v})
}

func healthzHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func outcome(allowed bool) string {
	if allowed {
		return "allow"
	}
	return "deny"
}

// decodeBody parses a JSON request body into dst, writing a 400 and
// returning false on failure. Unknown fields are rejected so typos in
// request shapes fail loudly.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeJSON marshals before touching the response so an unencodable value
// can still produce an error status instead of a 200 with a broken body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"response encoding failed"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Message: msg}})
}
