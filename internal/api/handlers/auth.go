package handlers

import (
	"context"
	"net/http"

	"github.com/hawksec/hawk/internal/api/dto"
	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/domain/user"
	"github.com/hawksec/hawk/internal/gateway"
	"github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/utils"
)

// Authenticator signs users in against the backend
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*gateway.Session, error)
	SignUp(ctx context.Context, email, password, fullName string) (*gateway.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*gateway.Session, error)
}

// SessionStarter opens the dashboard session of a signed-in user
type SessionStarter interface {
	Start(ctx context.Context, gs *gateway.Session) (*app.Session, error)
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	auth     Authenticator
	sessions SessionStarter
	logger   *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth Authenticator, sessions SessionStarter, log *logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, logger: log}
}

// Login handles user login
// @Summary User login
// @Description Authenticate with email and password and open a dashboard session
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.AuthResponse "Successfully authenticated"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 401 {object} utils.ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	gs, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.WithFields(map[string]interface{}{
			"email": req.Email,
		}).Warn("Authentication failed")
		if gateway.IsAuth(err) {
			utils.WriteError(w, errors.Unauthorized("Invalid email or password"))
			return
		}
		writeError(w, r, err, "Failed to sign in")
		return
	}

	h.startSession(w, r, gs, http.StatusOK)
}

// Register handles user registration
// @Summary Register
// @Description Create an account. When the backend requires email confirmation no session is opened.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration details"
// @Success 201 {object} dto.AuthResponse "Account created"
// @Failure 400 {object} utils.ErrorResponse "Invalid request or validation error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	gs, err := h.auth.SignUp(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		writeError(w, r, err, "Failed to register")
		return
	}

	if !gs.Active() {
		acct := user.Account{ID: gs.User.ID, Email: gs.User.Email, FullName: gs.User.FullName()}
		utils.WriteSuccessWithMessage(w, http.StatusCreated, "Check your email to confirm the account", dto.AuthResponse{
			User:                 &acct,
			ConfirmationRequired: true,
		})
		return
	}

	h.startSession(w, r, gs, http.StatusCreated)
}

// Refresh exchanges a refresh token for a new token pair
// @Summary Refresh session
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.AuthResponse "New tokens"
// @Failure 401 {object} utils.ErrorResponse "Refresh token rejected"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshTokenRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	gs, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err, "Failed to refresh session")
		return
	}
	h.startSession(w, r, gs, http.StatusOK)
}

// Logout handles user logout
// @Summary Logout
// @Description Revoke the backend session and close the dashboard session
// @Tags Auth
// @Produce json
// @Success 200 {object} utils.SuccessResponse "Logged out"
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	if err := s.Gateway.SignOut(r.Context()); err != nil {
		h.logger.With("user_id", s.User.ID).WarnWithErr(err, "Backend sign-out failed")
	}
	if err := s.Close(); err != nil {
		h.logger.With("user_id", s.User.ID).WarnWithErr(err, "Session close reported errors")
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Logged out successfully", nil)
}

// Me returns the signed-in account
// @Summary Current user
// @Tags Auth
// @Produce json
// @Success 200 {object} user.Account "Signed-in account"
// @Failure 401 {object} utils.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	utils.WriteSuccess(w, http.StatusOK, s.User)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, gs *gateway.Session, status int) {
	s, err := h.sessions.Start(r.Context(), gs)
	if err != nil {
		writeError(w, r, err, "Failed to open session")
		return
	}
	acct := s.User
	utils.WriteSuccess(w, status, dto.NewAuthResponse(gs, &acct))
}
