package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/infra/logging"
)

var errPayloadTooLarge = errors.New("payload too large")

// Messages is the user-facing message catalog.
type Messages interface {
	T(key string, args ...interface{}) string
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ok writes {success:true, ...data}.
func ok(w http.ResponseWriter, status int, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["success"] = true
	writeJSON(w, status, data)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &tooLarge):
		return errPayloadTooLarge
	case errors.Is(err, io.EOF):
		return nil
	default:
		return fmt.Errorf("%w: malformed JSON body", domain.ErrInvalidArgument)
	}
}

// fail renders err as {success:false, error, code}. The message always comes
// from the catalog; internal details only reach the log.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.failWith(w, r, err, "")
}

// failWith is fail with msgKey overriding the catalog key chosen by error kind.
func (s *Server) failWith(w http.ResponseWriter, r *http.Request, err error, msgKey string) {
	status, key, code := classify(err)
	if msgKey != "" {
		key = msgKey
	}
	body := map[string]any{
		"success": false,
		"error":   s.msg.T(key),
		"code":    code,
	}
	switch {
	case status == http.StatusBadRequest:
		body["detail"] = err.Error()
	case domain.IsUpstream(err):
		body["reason"] = domain.UpstreamClass(err)
	}

	l := logging.With(r.Context(), s.log)
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request failed")
	} else {
		l.Debug().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request rejected")
	}
	writeJSON(w, status, body)
}

func classify(err error) (status int, msgKey, code string) {
	if errors.Is(err, errPayloadTooLarge) {
		return http.StatusRequestEntityTooLarge, "payload_too_large", "PAYLOAD_TOO_LARGE"
	}
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest, "invalid_request", string(kind)
	case domain.KindNotFound:
		if errors.Is(err, domain.ErrCodeNotFound) {
			return http.StatusNotFound, "code_not_found", string(kind)
		}
		return http.StatusNotFound, "not_found", string(kind)
	case domain.KindInsufficientCredit:
		return http.StatusPaymentRequired, "insufficient_credits", string(kind)
	case domain.KindConflict:
		return http.StatusConflict, "conflict", string(kind)
	case domain.KindUnauthorized:
		return http.StatusUnauthorized, "unauthorized", string(kind)
	case domain.KindUpstream:
		if domain.UpstreamClass(err) == "timeout" {
			return http.StatusGatewayTimeout, "upstream_timeout", string(kind)
		}
		return http.StatusServiceUnavailable, "upstream_unavailable", string(kind)
	default:
		return http.StatusInternalServerError, "internal_error", string(domain.KindInternal)
	}
}

func itoa(n int) string { return strconv.Itoa(n) }

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidArgument, name)
	}
	return n, nil
}
