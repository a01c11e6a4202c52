package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/khanhERP/laundry-pos/internal/common"
)

const defaultAccessTTL = 12 * time.Hour

// ErrCashierNotFound is returned by stores when a username does not resolve.
var ErrCashierNotFound = errors.New("auth: cashier not found")

// Cashier is the safe subset of the cashier model returned to clients.
type Cashier struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// CashierRecord is the stored cashier including credential material.
type CashierRecord struct {
	Cashier
	PasswordHash string
	Active       bool
}

type cashierStore interface {
	GetCashierByUsername(ctx context.Context, username string) (CashierRecord, error)
}

// LoginResult bundles the token material returned after a successful login.
// Register sessions last a full shift; there is no refresh flow.
type LoginResult struct {
	Cashier      Cashier   `json:"cashier"`
	AccessToken  string    `json:"access_token"`
	AccessExpiry time.Time `json:"access_expires_at"`
}

// Service verifies cashier credentials and issues shift tokens.
type Service struct {
	store     cashierStore
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
	signer    jwa.SignatureAlgorithm
	validator TokenValidator
	issuer    string
	audience  string
}

// Config configures the auth service.
type Config struct {
	Store          cashierStore
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: store is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "laundry-pos"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "laundry-register"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}
	return &Service{
		store:     cfg.Store,
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
		signer:    jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:   issuer,
		audience: audience,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Login verifies credentials and issues a shift token.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || password == "" {
		return LoginResult{}, common.NewAppError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized, nil)
	}
	record, err := s.store.GetCashierByUsername(ctx, username)
	if err != nil {
		return LoginResult{}, common.NewAppError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized, err)
	}
	if !record.Active {
		return LoginResult{}, common.NewAppError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized, nil)
	}
	ok, err := argon2id.ComparePasswordAndHash(password, record.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, common.NewAppError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized, err)
	}
	token, expiry, err := s.signAccessToken(record.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{
		Cashier:      record.Cashier,
		AccessToken:  token,
		AccessExpiry: expiry,
	}, nil
}

// ParseAccessToken verifies the token and returns the cashier identifier.
func (s *Service) ParseAccessToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret))
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	return parsed.Subject(), nil
}

func (s *Service) signAccessToken(cashierID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	builder := jwt.NewBuilder().
		Subject(cashierID).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now).
		Expiration(expiresAt)
	token, err := builder.Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		if algorithm == "" {
			algorithm = headers.Algorithm()
			continue
		}
		if algorithm != headers.Algorithm() {
			return "", errors.New("auth: token algorithms are inconsistent")
		}
	}
	if algorithm == "" {
		return "", errors.New("auth: token missing algorithm")
	}
	return algorithm, nil
}
