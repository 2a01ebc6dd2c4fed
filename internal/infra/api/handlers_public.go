package api

import (
	"errors"
	"net/http"
	"strconv"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/infra/logging"
	"portrait-studio/internal/usecase"
)

type redeemRequest struct {
	Code     string `json:"code"`
	DeviceID string `json:"deviceId"`
}

type generateRequest struct {
	Image    string              `json:"image"`
	Prompt   string              `json:"prompt"`
	DeviceID string              `json:"deviceId"`
	Options  *model.StyleOptions `json:"options"`
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	credits, err := s.creditUC.Balance(r.Context(), r.URL.Query().Get("deviceId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"credits": credits})
}

func (s *Server) handleCreditHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logs, err := s.creditUC.History(r.Context(), r.URL.Query().Get("deviceId"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if logs == nil {
		logs = []*model.UsageLogEntry{}
	}
	ok(w, http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := logging.WithDeviceID(r.Context(), logging.Redact(req.DeviceID, s.dev))
	res, err := s.codeUC.Redeem(ctx, req.Code, req.DeviceID)
	if err != nil {
		s.fail(w, r.WithContext(ctx), err)
		return
	}
	ok(w, http.StatusOK, map[string]any{
		"points":    res.Points,
		"remaining": res.NewBalance,
		"message":   s.msg.T("redeem_success", res.Points),
	})
}

func (s *Server) handleCodeStatus(w http.ResponseWriter, r *http.Request) {
	c, err := s.codeUC.Status(r.Context(), r.URL.Query().Get("code"))
	if errors.Is(err, domain.ErrNotFound) {
		ok(w, http.StatusOK, map[string]any{"exists": false, "message": s.msg.T("code_unknown")})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{
		"exists": true,
		"code":   c.Code,
		"status": c.Status,
		"points": c.Points,
	})
}

// handleGenerate answers with the raw image; failures are JSON.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := r.Context()
	if req.DeviceID != "" {
		ctx = logging.WithDeviceID(ctx, logging.Redact(req.DeviceID, s.dev))
	}
	res, err := s.genUC.Generate(ctx, usecase.GenerateRequest{
		Image:    req.Image,
		Prompt:   req.Prompt,
		DeviceID: req.DeviceID,
		Options:  req.Options,
	})
	if err != nil {
		s.fail(w, r.WithContext(ctx), err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", res.Image.MIMEType)
	h.Set("Content-Length", strconv.Itoa(len(res.Image.Data)))
	h.Set("X-Generation-Id", res.GenerationID)
	if res.Metered {
		h.Set("X-Credits-Remaining", strconv.FormatInt(res.Remaining, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Image.Data)
}
