package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/internal/auth"
	"github.com/dyluth/projecthub/internal/i18n"
	"github.com/dyluth/projecthub/pkg/hub"
)

// maxBodyBytes bounds JSON request bodies. Uploads have their own limit.
const maxBodyBytes = 1 << 20

var (
	errRouteNotFound     = apperr.NotFound("route not found")
	errMethodNotAllowed  = apperr.New(apperr.KindValidation, "method not allowed")
	errInvalidBody       = apperr.Validation("invalid request body")
	errUnsupportedLocale = apperr.Validation("unsupported locale")
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to its status and a localized message. Internal errors
// are logged and never shown to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	kind := apperr.KindOf(err)
	status := kind.Status()
	if err == errMethodNotAllowed {
		status = http.StatusMethodNotAllowed
	}

	var msg string
	if kind == apperr.KindInternal {
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFrom(ctx)),
			zap.Error(err))
		msg = s.locales.Translate(i18n.FromContext(ctx), "internal server error")
	} else {
		msg = s.locales.Translate(i18n.FromContext(ctx), apperr.Message(err))
		var e *apperr.Error
		if kind == apperr.KindValidation && errors.As(err, &e) && e.Err != nil {
			msg += ": " + e.Err.Error()
		}
	}

	writeJSON(w, status, ErrorResponse{
		Error:     msg,
		Code:      kind.String(),
		RequestID: RequestIDFrom(ctx),
	})
}

// decode reads a JSON body into v. Unknown fields are ignored.
func decode(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errInvalidBody
		}
		return apperr.Wrap(apperr.KindValidation, err, "invalid request body")
	}
	return nil
}

// fields decodes a JSON object keeping each value raw, so PATCH handlers can
// tell an absent field from an explicit null.
type fields map[string]json.RawMessage

func decodeFields(r *http.Request) (fields, error) {
	var f fields
	if err := decode(r, &f); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errInvalidBody
	}
	return f, nil
}

func (f fields) has(name string) bool {
	_, ok := f[name]
	return ok
}

func (f fields) isNull(name string) bool {
	raw, ok := f[name]
	return ok && strings.TrimSpace(string(raw)) == "null"
}

// into decodes a present, non-null field into v and reports whether it did.
func (f fields) into(name string, v any) (bool, error) {
	raw, ok := f[name]
	if !ok || f.isNull(name) {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, apperr.Wrap(apperr.KindValidation, fmt.Errorf("%s: %w", name, err), "invalid request body")
	}
	return true, nil
}

// only reports whether every key of f is one of names.
func (f fields) only(names ...string) bool {
	for k := range f {
		found := false
		for _, n := range names {
			if k == n {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// actor returns the authenticated user. Routes behind requireSession always have one.
func actor(r *http.Request) *hub.User {
	u, _ := auth.UserFrom(r.Context())
	return u
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
