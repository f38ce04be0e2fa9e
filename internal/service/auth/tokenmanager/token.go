package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/tasktracker/internal/apperrors"
	"github.com/nkiryanov/tasktracker/internal/models"
)

const (
	defaultAccessTokenTTL  = 30 * time.Minute
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims carried by both access and refresh tokens
type Claims struct {
	jwt.RegisteredClaims
	UserID int64            `json:"user_id"`
	Type   models.TokenType `json:"token_type"`
}

// Token manager with sensible default
type Config struct {
	// Secret key to sign tokens
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm, one of HS256, HS384, HS512
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used. Access must be shorter than refresh
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Accepted clock skew when checking expiration
	Leeway time.Duration

	// Clock, time.Now if not set
	Now func() time.Time
}

type TokenManager struct {
	key []byte
	alg jwt.SigningMethod

	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration

	now    func() time.Time
	parser *jwt.Parser
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg, ok := jwt.GetSigningMethod(cfg.Alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing method %q, only HMAC family allowed", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, fmt.Errorf("access token lifetime %s must be shorter than refresh %s", cfg.AccessTTL, cfg.RefreshTTL)
	}
	if cfg.Leeway < 0 {
		return nil, errors.New("leeway must not be negative")
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &TokenManager{
		key:        []byte(cfg.SecretKey),
		alg:        alg,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		leeway:     cfg.Leeway,
		now:        cfg.Now,
	}

	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(m.now),
	)

	return m, nil
}

func (m *TokenManager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

// Leeway is how long after exp a token is still accepted
func (m *TokenManager) Leeway() time.Duration { return m.leeway }

// Issue signs a new token for the user
// Every token gets fresh jti, so tokens issued at the same second still differ
func (m *TokenManager) Issue(userID int64, typ models.TokenType, ttl time.Duration) (models.IssuedToken, error) {
	if ttl <= 0 {
		return models.IssuedToken{}, fmt.Errorf("token lifetime must be positive, got %s", ttl)
	}

	// JWT NumericDate has second precision
	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	jti := uuid.NewString()

	token := jwt.NewWithClaims(m.alg, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
		Type:   typ,
	})

	value, err := token.SignedString(m.key)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing %s token. Err: %w", typ, err)
	}

	return models.IssuedToken{Value: value, JTI: jti, ExpiresAt: expiresAt}, nil
}

// IssuePair issues access and refresh tokens for the same user with configured lifetimes
func (m *TokenManager) IssuePair(userID int64) (models.TokenPair, error) {
	access, err := m.Issue(userID, models.TokenAccess, m.accessTTL)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, err := m.Issue(userID, models.TokenRefresh, m.refreshTTL)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// Validate parses the token and checks signature, expiration and type
// Returned errors are one of apperrors.ErrToken*
func (m *TokenManager) Validate(raw string, expected models.TokenType) (Claims, error) {
	var claims Claims

	_, err := m.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	})

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return claims, fmt.Errorf("%w: %w", apperrors.ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return claims, fmt.Errorf("%w: %w", apperrors.ErrTokenSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return claims, fmt.Errorf("%w: %w", apperrors.ErrTokenExpired, err)
	default:
		return claims, fmt.Errorf("%w: %w", apperrors.ErrTokenMalformed, err)
	}

	if claims.ID == "" || claims.UserID == 0 {
		return claims, fmt.Errorf("%w: required claims missing", apperrors.ErrTokenMalformed)
	}

	if claims.Type != expected {
		return claims, fmt.Errorf("%w: expected %s, got %q", apperrors.ErrTokenWrongType, expected, claims.Type)
	}

	return claims, nil
}
