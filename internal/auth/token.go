package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAlgorithm is the signing algorithm used when none is configured.
const DefaultAlgorithm = "HS256"

// TokenErrorKind classifies why a token failed validation. The kinds exist
// for logging and tests; clients always see one generic message.
type TokenErrorKind int

const (
	// TokenMalformed covers undecodable tokens, missing or empty claims.
	TokenMalformed TokenErrorKind = iota + 1
	// TokenSignatureInvalid means the signature or algorithm did not verify.
	TokenSignatureInvalid
	// TokenExpired means the signature verified but exp is not in the future.
	TokenExpired
)

// String returns a short label for the kind.
func (k TokenErrorKind) String() string {
	switch k {
	case TokenMalformed:
		return "malformed"
	case TokenSignatureInvalid:
		return "signature_invalid"
	case TokenExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// TokenError is returned by TokenService.Validate.
type TokenError struct {
	// Kind is the failed check.
	Kind TokenErrorKind
	// Err is the underlying parser error, if any.
	Err error
}

// Error implements error.
func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: token %s: %v", e.Kind, e.Err)
	}
	return "auth: token " + e.Kind.String()
}

// Unwrap returns the underlying parser error.
func (e *TokenError) Unwrap() error { return e.Err }

// Claims is the validated identity carried by a token.
type Claims struct {
	// Subject is the username the token was issued to.
	Subject string
	// Role is the role claim used for partition selection.
	Role string
	// IssuedAt is when the token was minted.
	IssuedAt time.Time
	// ExpiresAt is the absolute expiry; the token is invalid at or after it.
	ExpiresAt time.Time
}

// tokenClaims is the JWT wire representation of Claims.
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	// Secret is the HMAC signing key. Required.
	Secret []byte
	// Algorithm is the JWT alg: HS256, HS384, or HS512. Defaults to HS256.
	Algorithm string
	// TTL is the lifetime of issued tokens. Required.
	TTL time.Duration
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// TokenService issues and validates signed, expiring role tokens. It holds no
// mutable state and is safe for concurrent use.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenService validates cfg and returns a ready TokenService. Only HMAC
// algorithms are accepted so a shared secret can never be confused with a
// public key.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("auth: token secret must not be empty")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("auth: token ttl must be positive, got %s", cfg.TTL)
	}

	alg := cfg.Algorithm
	if alg == "" {
		alg = DefaultAlgorithm
	}
	method := jwt.GetSigningMethod(alg)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("auth: unsupported token algorithm %q (valid: HS256, HS384, HS512)", alg)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenService{
		secret: cfg.Secret,
		method: method,
		ttl:    cfg.TTL,
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{alg}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue mints a token for subject and role expiring TTL from now.
func (s *TokenService) Issue(subject, role string) (string, error) {
	if subject == "" || role == "" {
		return "", fmt.Errorf("auth: subject and role are required to issue a token")
	}

	issued := s.now()
	tok := jwt.NewWithClaims(s.method, tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(s.ttl)),
		},
	})

	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature (pinned to the configured algorithm) before
// trusting any claim, then requires exp to be strictly in the future.
func (s *TokenService) Validate(token string) (Claims, error) {
	var tc tokenClaims
	_, err := s.parser.ParseWithClaims(token, &tc, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}

	if tc.Subject == "" || tc.Role == "" {
		return Claims{}, &TokenError{Kind: TokenMalformed, Err: errors.New("missing sub or role claim")}
	}

	c := Claims{Subject: tc.Subject, Role: tc.Role}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c, nil
}

// classify maps a jwt parser error onto a TokenErrorKind.
func classify(err error) *TokenError {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &TokenError{Kind: TokenSignatureInvalid, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &TokenError{Kind: TokenExpired, Err: err}
	default:
		return &TokenError{Kind: TokenMalformed, Err: err}
	}
}
