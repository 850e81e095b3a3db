package adminapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/openshelf/prodsync/internal/auth"
)

type credentialsPayload struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password"`
}

func registerAuthRoutes(e *echo.Echo) {
	e.POST("/auth/signup", signUp)
	e.POST("/auth/signin", signIn)
	e.GET("/auth/verify", verifyEmail)
	e.POST("/auth/resend-verification", resendVerification)
	e.POST("/auth/signout", signOut)
}

func signUp(c echo.Context) error {
	var payload credentialsPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse credentials", err.Error())
	}
	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" || payload.Password == "" || payload.ConfirmPassword == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Email, password and confirmation are required", nil)
	}
	if payload.Password != payload.ConfirmPassword {
		return fail(c, http.StatusBadRequest, "PASSWORD_MISMATCH", "Password confirmation does not match", nil)
	}

	err := GetAuth(c).SignUp(c.Request().Context(), payload.Email, payload.Password)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		return fail(c, http.StatusConflict, "EMAIL_TAKEN", "Email is already registered", nil)
	case err != nil:
		return fail(c, http.StatusInternalServerError, "AUTH_ERROR", "Sign-up failed", err.Error())
	}
	return ok(c, map[string]interface{}{
		"message": "Account created. Verify your email before signing in.",
	})
}

func signIn(c echo.Context) error {
	var payload credentialsPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse credentials", err.Error())
	}
	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Email and password are required", nil)
	}

	token, err := GetAuth(c).SignIn(c.Request().Context(), payload.Email, payload.Password)
	switch {
	case errors.Is(err, auth.ErrBadCredentials):
		return fail(c, http.StatusUnauthorized, "BAD_CREDENTIALS", "Invalid email or password", nil)
	case err != nil:
		return fail(c, http.StatusInternalServerError, "AUTH_ERROR", "Sign-in failed", err.Error())
	}
	return ok(c, map[string]interface{}{"token": token})
}

func verifyEmail(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Verification token is required", nil)
	}
	if err := GetAuth(c).VerifyEmail(c.Request().Context(), token); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_TOKEN", "Verification link is invalid or expired", nil)
	}
	return ok(c, map[string]interface{}{"message": "Email verified"})
}

func resendVerification(c echo.Context) error {
	var payload credentialsPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if strings.TrimSpace(payload.Email) == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Email is required", nil)
	}
	if err := GetAuth(c).SendVerificationEmail(c.Request().Context(), payload.Email); err != nil {
		// do not leak whether the account exists
		zap.L().Warn("verification resend failed", zap.Error(err))
	}
	return ok(c, map[string]interface{}{
		"message": "If the account exists, a verification email has been sent",
	})
}

func signOut(c echo.Context) error {
	raw := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if strings.TrimSpace(raw) == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "No session token", nil)
	}
	if err := GetAuth(c).SignOut(c.Request().Context(), raw); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_TOKEN", "Session token is invalid", nil)
	}
	// drop the caller's live workbench along with the session
	if owner := currentUser(c); owner != "" {
		GetManager(c).Release(owner)
	}
	return ok(c, map[string]interface{}{"message": "Signed out"})
}
