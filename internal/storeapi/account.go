package storeapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/talkincode/eazybuy/internal/customers"
	"github.com/talkincode/eazybuy/internal/webserver"
	"go.uber.org/zap"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (h *Handler) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse registration", nil)
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "A valid email is required", nil)
	}
	if len(req.Password) < 8 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Password must be at least 8 characters", nil)
	}
	if req.Username == "" {
		req.Username = strings.SplitN(req.Email, "@", 2)[0]
	}

	ctx := c.Request().Context()
	cu, err := h.accounts.Register(ctx, req.Email, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, customers.ErrAlreadyExists) {
			// the storefront turns this into a "sign in instead" prompt
			return fail(c, http.StatusConflict, "ACCOUNT_EXISTS",
				"An account with this email already exists", nil)
		}
		return fail(c, http.StatusInternalServerError, "REGISTER_FAILED", "Failed to create account", nil)
	}

	if h.mail != nil {
		h.mail.SendVerification(cu.Email, cu.Username, cu.VerifyToken)
	}

	token, err := webserver.IssueToken(h.cfg, cu.ID, cu.Username, webserver.LevelCustomer)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", nil)
	}
	zap.L().Info("customer registered", zap.String("email", cu.Email))
	return ok(c, authResponse{Token: token, Email: cu.Email, Username: cu.Username})
}

type customerLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) loginCustomer(c echo.Context) error {
	var req customerLoginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login", nil)
	}
	cu, err := h.accounts.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "AUTH_FAILED", "Invalid email or password", nil)
	}
	token, err := webserver.IssueToken(h.cfg, cu.ID, cu.Username, webserver.LevelCustomer)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", nil)
	}
	return ok(c, authResponse{Token: token, Email: cu.Email, Username: cu.Username})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) forgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	cu, token, err := h.accounts.StartPasswordReset(c.Request().Context(), req.Email)
	if err == nil && h.mail != nil {
		h.mail.SendPasswordReset(cu.Email, cu.Username, token)
	}
	// same response either way, so the endpoint cannot be used to probe
	// which emails have accounts
	return ok(c, map[string]string{"message": "If that email has an account, a reset link is on its way"})
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *Handler) resetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if len(req.Password) < 8 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Password must be at least 8 characters", nil)
	}
	if err := h.accounts.CompletePasswordReset(c.Request().Context(), req.Email, req.Token, req.Password); err != nil {
		return fail(c, http.StatusBadRequest, "RESET_FAILED", "Invalid or expired reset token", nil)
	}
	return ok(c, map[string]string{"message": "Password updated"})
}

type verifyRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func (h *Handler) verifyAccount(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if err := h.accounts.Verify(c.Request().Context(), req.Email, req.Token); err != nil {
		return fail(c, http.StatusBadRequest, "VERIFY_FAILED", "Invalid verification token", nil)
	}
	return ok(c, map[string]string{"message": "Email verified"})
}
