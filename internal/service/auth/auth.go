package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nkiryanov/tasktracker/internal/apperrors"
	"github.com/nkiryanov/tasktracker/internal/logger"
	"github.com/nkiryanov/tasktracker/internal/models"
	"github.com/nkiryanov/tasktracker/internal/repository"
	"github.com/nkiryanov/tasktracker/internal/service/auth/tokenmanager"
)

const (
	DefaultAccessCookieName  = "access_token"
	DefaultRefreshCookieName = "refresh_token"
)

// Operations reported to Recorder
const (
	OpLogin        = "login"
	OpRefresh      = "refresh"
	OpLogout       = "logout"
	OpAuthenticate = "authenticate"
)

// Recorder counts auth operations by outcome
type Recorder interface {
	AuthOperation(operation string, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) AuthOperation(string, string) {}

type Config struct {
	// Cookie names, defaults are used if empty
	AccessCookieName  string
	RefreshCookieName string

	// Set 'Secure' flag on cookies. Must be true everywhere except local development
	SecureCookies bool

	// Refresh issues new access token only and echoes refresh token back
	// By default refresh token is rotated: new pair issued and the used one revoked
	DisableRotation bool

	// Credential verification options
	Hasher               PasswordHasher
	EmailCaseInsensitive bool

	Logger   logger.Logger
	Recorder Recorder

	// Clock, time.Now if not set
	Now func() time.Time
}

// Auth service
type AuthService struct {
	cfg Config

	tokens      *tokenmanager.TokenManager
	verifier    *Verifier
	users       repository.UserRepo
	revocations repository.RevocationRepo

	logger   logger.Logger
	recorder Recorder
}

func NewService(cfg Config, tokens *tokenmanager.TokenManager, users repository.UserRepo, revocations repository.RevocationRepo) (*AuthService, error) {
	if tokens == nil {
		return nil, errors.New("token manager must not be nil")
	}
	if users == nil || revocations == nil {
		return nil, errors.New("repos must not be nil")
	}

	if cfg.AccessCookieName == "" {
		cfg.AccessCookieName = DefaultAccessCookieName
	}
	if cfg.RefreshCookieName == "" {
		cfg.RefreshCookieName = DefaultRefreshCookieName
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = noopRecorder{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	verifier, err := NewVerifier(VerifierConfig{Hasher: cfg.Hasher, EmailCaseInsensitive: cfg.EmailCaseInsensitive}, users)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		cfg:         cfg,
		tokens:      tokens,
		verifier:    verifier,
		users:       users,
		revocations: revocations,
		logger:      cfg.Logger.With("component", "auth"),
		recorder:    cfg.Recorder,
	}, nil
}

// Login verifies credentials and issues token pair
// Never touches revocation store, so login keeps working when it is down
func (s *AuthService) Login(ctx context.Context, email string, password string) (session models.Session, err error) {
	defer func() { s.record(OpLogin, err) }()

	principal, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		return session, err
	}

	pair, err := s.tokens.IssuePair(principal.ID)
	if err != nil {
		return session, fmt.Errorf("token could not be issued. Err: %w", err)
	}

	s.logger.Info("User logged in", "user_id", principal.ID)
	return models.Session{Principal: principal, Tokens: pair}, nil
}

// Authenticate resolves principal from access token in cookie or 'Authorization: Bearer' header
// Cookie wins if both present
func (s *AuthService) Authenticate(ctx context.Context, r *http.Request) (principal models.Principal, err error) {
	defer func() { s.record(OpAuthenticate, err) }()

	raw, ok := Resolve(r, CookieSource(s.cfg.AccessCookieName), BearerSource())
	if !ok {
		return principal, apperrors.ErrTokenMissing
	}

	claims, err := s.tokens.Validate(raw, models.TokenAccess)
	if err != nil {
		s.logTokenError("Access token rejected", err)
		return principal, err
	}

	return s.principal(ctx, claims.UserID)
}

// Refresh exchanges refresh token for new tokens
// With rotation the used token is revoked first, so it can't be exchanged twice even by concurrent requests
func (s *AuthService) Refresh(ctx context.Context, raw string) (pair models.TokenPair, err error) {
	defer func() { s.record(OpRefresh, err) }()

	if raw == "" {
		return pair, apperrors.ErrTokenMissing
	}

	claims, err := s.tokens.Validate(raw, models.TokenRefresh)
	if err != nil {
		s.logTokenError("Refresh token rejected", err)
		return pair, err
	}

	if _, err := s.principal(ctx, claims.UserID); err != nil {
		return pair, err
	}

	if s.cfg.DisableRotation {
		return s.refreshAccess(ctx, raw, claims)
	}

	inserted, err := s.revocations.Revoke(ctx, s.revokedToken(claims, models.RevokedOnRotation))
	if err != nil {
		s.logger.Error("Revocation store failed", "error", err)
		return pair, fmt.Errorf("%w: %w", apperrors.ErrRevocationUnavailable, err)
	}
	if !inserted {
		s.logger.Warn("Revoked refresh token reused", "user_id", claims.UserID, "jti", claims.ID)
		return pair, apperrors.ErrTokenRevoked
	}

	pair, err = s.tokens.IssuePair(claims.UserID)
	if err != nil {
		return pair, fmt.Errorf("token could not be issued. Err: %w", err)
	}

	return pair, nil
}

func (s *AuthService) refreshAccess(ctx context.Context, raw string, claims tokenmanager.Claims) (models.TokenPair, error) {
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("Revocation store failed", "error", err)
		return models.TokenPair{}, fmt.Errorf("%w: %w", apperrors.ErrRevocationUnavailable, err)
	}
	if revoked {
		s.logger.Warn("Revoked refresh token reused", "user_id", claims.UserID, "jti", claims.ID)
		return models.TokenPair{}, apperrors.ErrTokenRevoked
	}

	access, err := s.tokens.Issue(claims.UserID, models.TokenAccess, s.tokens.AccessTTL())
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be issued. Err: %w", err)
	}

	return models.TokenPair{
		Access:  access,
		Refresh: models.IssuedToken{Value: raw, JTI: claims.ID, ExpiresAt: claims.ExpiresAt.Time},
	}, nil
}

// Logout revokes refresh token if it is valid
// Invalid or missing token is not an error: logout must always succeed for the client
// Only revocation store failure is returned
func (s *AuthService) Logout(ctx context.Context, raw string) (err error) {
	defer func() { s.record(OpLogout, err) }()

	if raw == "" {
		return nil
	}

	claims, err := s.tokens.Validate(raw, models.TokenRefresh)
	if err != nil {
		s.logger.Debug("Logout with unusable refresh token", "error", err)
		return nil
	}

	_, err = s.revocations.Revoke(ctx, s.revokedToken(claims, models.RevokedOnLogout))
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrRevocationUnavailable, err)
	}

	s.logger.Info("User logged out", "user_id", claims.UserID)
	return nil
}

// RefreshFromRequest returns refresh token from cookie or, if absent, the value from request body
func (s *AuthService) RefreshFromRequest(r *http.Request, bodyValue string) (string, bool) {
	return Resolve(r, CookieSource(s.cfg.RefreshCookieName), ValueSource(bodyValue))
}

// Set auth tokens as cookies. Cookie max age equals the remaining token lifetime
func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	now := s.cfg.Now()
	http.SetCookie(w, s.cookie(s.cfg.AccessCookieName, pair.Access.Value, maxAge(pair.Access.ExpiresAt, now)))
	http.SetCookie(w, s.cookie(s.cfg.RefreshCookieName, pair.Refresh.Value, maxAge(pair.Refresh.ExpiresAt, now)))
}

// Set auth tokens as cookies to the request
// Useful for tests and for clients that proxy browser sessions
func (s *AuthService) SetTokenPairToRequest(r *http.Request, pair models.TokenPair) {
	r.AddCookie(&http.Cookie{Name: s.cfg.AccessCookieName, Value: pair.Access.Value})
	r.AddCookie(&http.Cookie{Name: s.cfg.RefreshCookieName, Value: pair.Refresh.Value})
}

// ClearTokens expires both auth cookies
func (s *AuthService) ClearTokens(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(s.cfg.AccessCookieName, "", -1))
	http.SetCookie(w, s.cookie(s.cfg.RefreshCookieName, "", -1))
}

func (s *AuthService) cookie(name string, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// principal loads active user. Any lookup failure means unauthorized, never a server error
func (s *AuthService) principal(ctx context.Context, userID int64) (models.Principal, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUserNotFound):
		return models.Principal{}, fmt.Errorf("%w: user %d not found", apperrors.ErrUnauthorized, userID)
	default:
		s.logger.Error("User lookup failed", "user_id", userID, "error", err)
		return models.Principal{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}

	if !user.IsActive {
		return models.Principal{}, fmt.Errorf("%w: user %d disabled", apperrors.ErrUnauthorized, userID)
	}

	return user.Principal(), nil
}

func (s *AuthService) revokedToken(claims tokenmanager.Claims, reason models.RevocationReason) models.RevokedToken {
	return models.RevokedToken{
		JTI:       claims.ID,
		UserID:    claims.UserID,
		Reason:    reason,
		RevokedAt: s.cfg.Now(),
		ExpiresAt: claims.ExpiresAt.Time.Add(s.tokens.Leeway()),
	}
}

// Bad signature may be tampering, so it is logged louder than routine expiration
func (s *AuthService) logTokenError(msg string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrTokenSignatureInvalid):
		s.logger.Warn(msg, "error", err)
	case errors.Is(err, apperrors.ErrTokenExpired):
		s.logger.Debug(msg, "error", err)
	default:
		s.logger.Info(msg, "error", err)
	}
}

func (s *AuthService) record(operation string, err error) {
	s.recorder.AuthOperation(operation, Outcome(err))
}

// Outcome names the result of auth operation for metrics
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrTokenMissing):
		return "missing"
	case errors.Is(err, apperrors.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, apperrors.ErrTokenSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, apperrors.ErrTokenExpired):
		return "expired"
	case errors.Is(err, apperrors.ErrTokenWrongType):
		return "wrong_type"
	case errors.Is(err, apperrors.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, apperrors.ErrRevocationUnavailable):
		return "store_unavailable"
	case errors.Is(err, apperrors.ErrCredentialNotFound), errors.Is(err, apperrors.ErrCredentialMismatch):
		return "bad_credentials"
	case errors.Is(err, apperrors.ErrUserDisabled):
		return "disabled"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}

func maxAge(expiresAt time.Time, now time.Time) int {
	seconds := int(expiresAt.Sub(now).Round(time.Second).Seconds())
	if seconds <= 0 {
		return -1
	}
	return seconds
}
