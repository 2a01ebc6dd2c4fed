package api

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/infra/logging"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const (
	adminPasswordHeader = "X-Admin-Password"
	adminPasswordField  = "adminPassword"
	sessionCookieName   = "admin_session"
)

// ===== Session/JWT primitives =====

type SessionConfig struct {
	HMACSecret   []byte
	CookieName   string
	SecureCookie bool
	TTL          time.Duration
}

// SessionManager mints and verifies short-lived admin session tokens.
type SessionManager struct{ cfg SessionConfig }

func NewSessionManager(secret string, secure bool, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionManager{cfg: SessionConfig{
		HMACSecret:   []byte(secret),
		CookieName:   sessionCookieName,
		SecureCookie: secure,
		TTL:          ttl,
	}}
}

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Mint signs a token and sets it as an HttpOnly cookie.
func (m *SessionManager) Mint(w http.ResponseWriter) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.cfg.TTL)
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Subject:   "admin",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.HMACSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	return signed, exp, nil
}

func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

var errNoToken = errors.New("missing token")

func (m *SessionManager) ParseFromRequest(r *http.Request) (*AdminClaims, error) {
	// Authorization: Bearer <jwt>
	if hdr := r.Header.Get("Authorization"); len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
		return m.parse(strings.TrimSpace(hdr[7:]))
	}
	if c, err := r.Cookie(m.cfg.CookieName); err == nil && c.Value != "" {
		return m.parse(c.Value)
	}
	return nil, errNoToken
}

func (m *SessionManager) parse(tok string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return m.cfg.HMACSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid || claims.Role != "admin" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ===== Gate =====

// AdminGate admits a request carrying the admin password (header, query or
// JSON body) or a valid session token.
type AdminGate struct {
	password []byte
	sessions *SessionManager // nil disables sessions
	log      *zerolog.Logger
}

func NewAdminGate(password string, sessions *SessionManager, logger *zerolog.Logger) *AdminGate {
	l := logger.With().Str("component", "AdminGate").Logger()
	return &AdminGate{password: []byte(password), sessions: sessions, log: &l}
}

// CheckPassword compares in constant time. An unset password admits nobody.
func (g *AdminGate) CheckPassword(candidate string) bool {
	if len(g.password) == 0 || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), g.password) == 1
}

func (g *AdminGate) Require(onDenied func(w http.ResponseWriter, r *http.Request, err error)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.CheckPassword(passwordFromRequest(r)) {
				next.ServeHTTP(w, r)
				return
			}
			if g.sessions != nil {
				if _, err := g.sessions.ParseFromRequest(r); err == nil {
					next.ServeHTTP(w, r)
					return
				}
			}
			l := logging.With(r.Context(), g.log)
			l.Warn().Str("ip", clientIP(r)).Str("path", r.URL.Path).Msg("admin authentication failed")
			onDenied(w, r, domain.ErrUnauthorized)
		})
	}
}

// passwordFromRequest looks at the header, then the query, then a JSON body.
// The body is restored so handlers can decode it again.
func passwordFromRequest(r *http.Request) string {
	if v := r.Header.Get(adminPasswordHeader); v != "" {
		return v
	}
	if v := r.URL.Query().Get(adminPasswordField); v != "" {
		return v
	}
	if r.Body == nil || r.Body == http.NoBody || !strings.Contains(r.Header.Get("Content-Type"), "json") {
		return ""
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		// replay the read error so the handler reports it
		r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), errReader{err}))
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if len(raw) == 0 {
		return ""
	}
	var probe map[string]json.RawMessage
	if json.Unmarshal(raw, &probe) != nil {
		return ""
	}
	var pw string
	if v, ok := probe[adminPasswordField]; ok {
		_ = json.Unmarshal(v, &pw)
	}
	return pw
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }
