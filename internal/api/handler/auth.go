package handler

import (
	"net/http"
	"strings"

	"github.com/mcoot/realmkeeper/internal/api/middleware"
	"github.com/mcoot/realmkeeper/internal/api/request"
	"github.com/mcoot/realmkeeper/internal/api/response"
	"github.com/mcoot/realmkeeper/internal/services/auth"
)

// AuthHandler handles account and token endpoints
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req request.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	session, err := h.authService.Signup(r.Context(), auth.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, h.sessionResponse(session))
}

// Login handles POST /api/auth/login.
// Accepts a JSON body or an OAuth2 password-grant form.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	} else if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Username == "" || req.Password == "" {
		WriteError(w, auth.ErrInvalidCredentials)
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, h.sessionResponse(session))
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())
	account, err := h.authService.Account(r.Context(), principal)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.AccountFromModel(account, principal.SuperAdmin))
}

// VerifyToken handles GET /api/auth/verify-token
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())
	response.JSON(w, http.StatusOK, response.VerifyResponse{Valid: true, Username: principal.Username})
}

// RefreshToken handles POST /api/auth/refresh-token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	session, err := h.authService.Refresh(r.Context(), middleware.GetToken(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, h.sessionResponse(session))
}

func (h *AuthHandler) sessionResponse(session *auth.Session) response.AuthResponse {
	principal := h.authService.PrincipalFor(session.Account)
	return response.AuthResponseFromSession(session, principal.SuperAdmin)
}
