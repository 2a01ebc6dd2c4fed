package api

import (
	"fmt"
	"net/http"
	"time"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/usecase"
)

type issueCodesRequest struct {
	Points     int64 `json:"points"`
	Amount     int   `json:"amount"`
	CodeLength int   `json:"codeLength"`
}

type deleteCodeRequest struct {
	Code string `json:"code"`
}

type batchDeleteRequest struct {
	Codes []string `json:"codes"`
}

type sessionRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleIssueCodes(w http.ResponseWriter, r *http.Request) {
	var req issueCodesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Amount == 0 {
		req.Amount = 1
	}
	res, err := s.adminUC.IssueCodes(r.Context(), usecase.IssueRequest{
		Amount: req.Amount,
		Points: req.Points,
		Length: req.CodeLength,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, map[string]any{
		"codes":   res.Codes,
		"count":   res.Count,
		"points":  res.Points,
		"message": s.msg.T("codes_generated", res.Count),
	})
}

func (s *Server) handleListCodes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, err := s.adminUC.ListCodes(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{
		"codes":  page.Codes,
		"total":  page.Total,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

// handleDeleteCode takes the code from the JSON body or the query.
func (s *Server) handleDeleteCode(w http.ResponseWriter, r *http.Request) {
	var req deleteCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Code == "" {
		req.Code = r.URL.Query().Get("code")
	}
	if err := s.adminUC.DeleteCode(r.Context(), req.Code); err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"code": model.NormalizeCode(req.Code), "message": s.msg.T("code_deleted")})
}

func (s *Server) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.adminUC.BatchDeleteCodes(r.Context(), req.Codes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"deleted": res.Deleted, "failed": res.Failed})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	out, err := s.adminUC.ExportCodes(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="codes_%d.csv"`, time.Now().Unix()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.adminUC.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*usecase.Stats
	}{true, st})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logs, err := s.adminUC.RecentLogs(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if logs == nil {
		logs = []*model.UsageLogEntry{}
	}
	ok(w, http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

func (s *Server) handleTopUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	users, err := s.adminUC.TopUsers(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if users == nil {
		users = []*model.CreditAccount{}
	}
	ok(w, http.StatusOK, map[string]any{"users": users, "count": len(users)})
}

// handleSessionCreate trades the admin password for a session token.
func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	pw := req.Password
	if pw == "" {
		pw = r.Header.Get(adminPasswordHeader)
	}
	if !s.gate.CheckPassword(pw) {
		s.fail(w, r, domain.ErrUnauthorized)
		return
	}
	token, exp, err := s.sessions.Mint(w)
	if err != nil {
		s.fail(w, r, fmt.Errorf("mint session: %w", err))
		return
	}
	ok(w, http.StatusOK, map[string]any{"token": token, "expiresAt": exp.UTC().Format(time.RFC3339)})
}

func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	ok(w, http.StatusOK, nil)
}
