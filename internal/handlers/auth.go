package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/nkiryanov/tasktracker/internal/apperrors"
	"github.com/nkiryanov/tasktracker/internal/handlers/render"
	"github.com/nkiryanov/tasktracker/internal/handlers/userctx"
	"github.com/nkiryanov/tasktracker/internal/logger"
	"github.com/nkiryanov/tasktracker/internal/models"
)

type userResponse struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	DateJoined time.Time `json:"date_joined"`
}

func newUserResponse(p models.Principal) userResponse {
	return userResponse{
		ID:         p.ID,
		Username:   p.Username,
		Email:      p.Email,
		DateJoined: p.DateJoined,
	}
}

// Body of refresh and logout requests, used when refresh cookie is absent
type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func handleRegister(userService userService, l logger.Logger) http.Handler {
	type request struct {
		Username        string `json:"username" validate:"required,username,max=150"`
		Email           string `json:"email" validate:"required,email,max=254"`
		Password        string `json:"password" validate:"required,min=8"`
		PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, err := userService.Register(r.Context(), data.Username, data.Email, data.Password)
		switch {
		case err == nil:
			render.Created(w, newUserResponse(user.Principal()))
		case errors.Is(err, apperrors.ErrEmailTaken):
			render.FieldErrors(w, map[string]string{"email": "User with this email already exists"})
		case errors.Is(err, apperrors.ErrUsernameTaken):
			render.FieldErrors(w, map[string]string{"username": "User with this username already exists"})
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.FieldErrors(w, map[string]string{render.NonFieldErrors: "User already exists"})
		default:
			l.Error("Failed to register user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	type response struct {
		Message string       `json:"message"`
		User    userResponse `json:"user"`
		Access  string       `json:"access"`
		Refresh string       `json:"refresh"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		session, err := authService.Login(r.Context(), data.Email, data.Password)
		switch {
		case err == nil:
		// Unknown email and wrong password look the same for client
		case errors.Is(err, apperrors.ErrCredentialNotFound), errors.Is(err, apperrors.ErrCredentialMismatch):
			render.FieldErrors(w, map[string]string{render.NonFieldErrors: "Invalid email or password"})
			return
		case errors.Is(err, apperrors.ErrUserDisabled):
			render.FieldErrors(w, map[string]string{"email": "User account is disabled"})
			return
		default:
			l.Error("Failed to login", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		authService.SetTokenPairToResponse(w, session.Tokens)
		render.JSON(w, response{
			Message: "Login successful",
			User:    newUserResponse(session.Principal),
			Access:  session.Tokens.Access.Value,
			Refresh: session.Tokens.Refresh.Value,
		})
	})
}

func handleRefresh(authService authService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindOptional[refreshRequest](w, r)
		if err != nil {
			return
		}

		raw, ok := authService.RefreshFromRequest(r, data.Refresh)
		if !ok {
			render.ServiceError(w, "Refresh token not provided", http.StatusUnauthorized)
			return
		}

		pair, err := authService.Refresh(r.Context(), raw)
		switch {
		case err == nil:
		case apperrors.IsUnauthorized(err):
			render.ServiceError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
			return
		default:
			l.Error("Failed to refresh tokens", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		authService.SetTokenPairToResponse(w, pair)
		render.JSON(w, response{
			Message: "Token refreshed successfully",
			Access:  pair.Access.Value,
			Refresh: pair.Refresh.Value,
		})
	})
}

// Logout always succeeds for client, even if refresh token could not be revoked
func handleLogout(authService authService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindOptional[refreshRequest](w, r)
		if err != nil {
			return
		}

		raw, _ := authService.RefreshFromRequest(r, data.Refresh)
		if err := authService.Logout(r.Context(), raw); err != nil {
			l.Error("Failed to revoke refresh token on logout", "error", err)
		}

		authService.ClearTokens(w)
		render.JSON(w, response{Message: "Logout successful"})
	})
}

func handleVerify() http.Handler {
	type response struct {
		Valid bool          `json:"valid"`
		User  *userResponse `json:"user,omitempty"`
		Error string        `json:"error,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := userctx.FromContext(r.Context())
		if !ok {
			render.JSONWithStatus(w, response{Valid: false, Error: "Invalid or expired token"}, http.StatusUnauthorized)
			return
		}

		user := newUserResponse(principal)
		render.JSON(w, response{Valid: true, User: &user})
	})
}

func handleMe() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}
		render.JSON(w, newUserResponse(principal))
	})
}
