package web

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"budget-service/internal/core"

	"github.com/golang-jwt/jwt/v5"
)

// serviceName keys the roles map inside the JWT. The auth collaborator
// issues one token per user covering every service it fronts.
const serviceName = "bms"

type authClaimsKey struct{}

// AuthClaims holds the authenticated user's identity extracted from the JWT.
type AuthClaims struct {
	UserID       int
	Username     string
	DepartmentID int
	Role         core.Role
}

// authFromContext returns the auth claims stored in ctx, or nil.
func authFromContext(ctx context.Context) *AuthClaims {
	v, _ := ctx.Value(authClaimsKey{}).(*AuthClaims)
	return v
}

// jwtClaims is the JWT payload struct used for signing and parsing.
type jwtClaims struct {
	UserID       int               `json:"user_id"`
	Username     string            `json:"username"`
	DepartmentID int               `json:"department_id"`
	Roles        map[string]string `json:"roles"`
	jwt.RegisteredClaims
}

func (h *Handler) parseToken(raw string) (*AuthClaims, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	role, ok := core.ParseRole(claims.Roles[serviceName])
	if !ok {
		return nil, fmt.Errorf("token carries no role for this service")
	}
	return &AuthClaims{
		UserID:       claims.UserID,
		Username:     claims.Username,
		DepartmentID: claims.DepartmentID,
		Role:         role,
	}, nil
}

func (h *Handler) signToken(user *core.User) (string, error) {
	departmentID := 0
	if user.DepartmentID != nil {
		departmentID = *user.DepartmentID
	}
	claims := &jwtClaims{
		UserID:       user.ID,
		Username:     user.Username,
		DepartmentID: departmentID,
		Roles:        map[string]string{serviceName: string(user.Role)},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}

// RequireAuth is chi middleware that validates the Authorization bearer
// token and injects AuthClaims into the request context. Returns 401 if
// the token is absent, invalid, or carries no role for this service.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		claims, err := h.parseToken(raw)
		if err != nil {
			writeError(w, r, err.Error(), "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), authClaimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route group on an explicit permission check.
func (h *Handler) RequireRole(allowed func(core.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := authFromContext(r.Context())
			if claims == nil {
				writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
				return
			}
			if !allowed(claims.Role) {
				writeError(w, r, "insufficient role", "FORBIDDEN", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireServiceKey authorizes service-to-service ingestion with the
// shared X-Service-Key header. Disabled entirely when no key is configured.
func (h *Handler) RequireServiceKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.serviceKey == "" {
			writeError(w, r, "service ingestion is not enabled", "FORBIDDEN", http.StatusForbidden)
			return
		}
		key := r.Header.Get("X-Service-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(h.serviceKey)) != 1 {
			writeError(w, r, "invalid service key", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// login handles POST /api/v1/auth/login.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.GetUserByUsername(r.Context(), req.Username)
	if err != nil || !user.VerifyPassword(req.Password) {
		h.svc.RecordLoginAttempt(r.Context(), req.Username, r.RemoteAddr, false)
		writeError(w, r, "invalid username or password", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}
	h.svc.RecordLoginAttempt(r.Context(), req.Username, r.RemoteAddr, true)

	signed, err := h.signToken(user)
	if err != nil {
		writeError(w, r, "token generation failed", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	type loginResponse struct {
		Token   string     `json:"token"`
		User    *core.User `json:"user"`
		Role    string     `json:"role"`
		Expires int64      `json:"expires_in"`
	}
	writeJSON(w, loginResponse{Token: signed, User: user, Role: string(user.Role), Expires: 3600})
}

// refresh handles POST /api/v1/auth/refresh — re-issues a token for a
// still-valid bearer token, picking up any role change.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	if claims == nil {
		writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}
	user, err := h.svc.GetUser(r.Context(), claims.UserID)
	if err != nil || !user.IsActive {
		writeError(w, r, "account no longer active", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}
	signed, err := h.signToken(user)
	if err != nil {
		writeError(w, r, "token generation failed", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"token": signed, "expires_in": 3600})
}

// me handles GET /api/v1/auth/me — returns the current user's profile.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	if claims == nil {
		writeError(w, r, "not authenticated", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}
	user, err := h.svc.GetUser(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, user)
}
