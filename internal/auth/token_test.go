package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fixedClock returns a clock function and a setter so tests can move time.
func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = start.Add(d) }
}

func newTestService(t *testing.T, now func() time.Time) *TokenService {
	t.Helper()
	svc, err := NewTokenService(TokenConfig{
		Secret: []byte("test-secret"),
		TTL:    60 * time.Second,
		Now:    now,
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func tokenKind(t *testing.T, err error) TokenErrorKind {
	t.Helper()
	var te *TokenError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TokenError, got %T: %v", err, err)
	}
	return te.Kind
}

func TestToken_RoundTrip(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now, _ := fixedClock(start)
	svc := newTestService(t, now)

	tok, err := svc.Issue("alice", "engineering")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := svc.Validate(tok)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "alice" || claims.Role != "engineering" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.Equal(start.Add(60 * time.Second)) {
		t.Errorf("expected exp %s, got %s", start.Add(60*time.Second), claims.ExpiresAt)
	}
}

// TestToken_ExpiryBoundary verifies validity strictly before exp and
// rejection at and after it.
func TestToken_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now, advance := fixedClock(start)
	svc := newTestService(t, now)

	tok, err := svc.Issue("alice", "engineering")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	advance(59 * time.Second)
	if _, err := svc.Validate(tok); err != nil {
		t.Fatalf("expected valid at T+59s, got %v", err)
	}

	advance(60 * time.Second)
	if _, err := svc.Validate(tok); err == nil || tokenKind(t, err) != TokenExpired {
		t.Fatalf("expected expired at T+60s, got %v", err)
	}

	advance(61 * time.Second)
	if _, err := svc.Validate(tok); err == nil || tokenKind(t, err) != TokenExpired {
		t.Fatalf("expected expired at T+61s, got %v", err)
	}
}

func TestToken_WrongSecret(t *testing.T) {
	t.Parallel()

	now, _ := fixedClock(time.Now())
	issuer := newTestService(t, now)
	other, err := NewTokenService(TokenConfig{Secret: []byte("other"), TTL: time.Minute, Now: now})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	tok, err := issuer.Issue("bob", "hr")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := other.Validate(tok); tokenKind(t, err) != TokenSignatureInvalid {
		t.Errorf("expected signature_invalid, got %v", err)
	}
}

// TestToken_SignatureCheckedBeforeExpiry verifies that an expired token with a
// bad signature is reported as a signature failure.
func TestToken_SignatureCheckedBeforeExpiry(t *testing.T) {
	t.Parallel()

	start := time.Now()
	now, advance := fixedClock(start)
	issuer := newTestService(t, now)
	tok, err := issuer.Issue("bob", "hr")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other, err := NewTokenService(TokenConfig{Secret: []byte("other"), TTL: time.Minute, Now: now})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	advance(time.Hour)

	if _, err := other.Validate(tok); tokenKind(t, err) != TokenSignatureInvalid {
		t.Errorf("expected signature_invalid, got %v", err)
	}
}

func TestToken_Malformed(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.Validate(tok); tokenKind(t, err) != TokenMalformed {
			t.Errorf("token %q: expected malformed, got %v", tok, err)
		}
	}
}

// TestToken_AlgorithmPinned verifies that a token signed with the right secret
// but a different HMAC variant is rejected.
func TestToken_AlgorithmPinned(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	forged := jwt.NewWithClaims(jwt.SigningMethodHS512, tokenClaims{
		Role: "engineering",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "mallory",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := forged.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.Validate(signed); tokenKind(t, err) != TokenSignatureInvalid {
		t.Errorf("expected signature_invalid, got %v", err)
	}
}

func TestToken_MissingRoleClaim(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "carol",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.Validate(signed); tokenKind(t, err) != TokenMalformed {
		t.Errorf("expected malformed, got %v", err)
	}
}

func TestToken_MissingExpiry(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role:             "hr",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "carol"},
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.Validate(signed); err == nil {
		t.Error("expected token without exp to be rejected")
	}
}

func TestNewTokenService_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     TokenConfig
		wantErr string
	}{
		{name: "empty secret", cfg: TokenConfig{TTL: time.Minute}, wantErr: "secret"},
		{name: "zero ttl", cfg: TokenConfig{Secret: []byte("s")}, wantErr: "ttl"},
		{name: "rsa algorithm", cfg: TokenConfig{Secret: []byte("s"), TTL: time.Minute, Algorithm: "RS256"}, wantErr: "unsupported"},
		{name: "none algorithm", cfg: TokenConfig{Secret: []byte("s"), TTL: time.Minute, Algorithm: "none"}, wantErr: "unsupported"},
		{name: "hs384 ok", cfg: TokenConfig{Secret: []byte("s"), TTL: time.Minute, Algorithm: "HS384"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewTokenService(tc.cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestIssue_RequiresSubjectAndRole(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	if _, err := svc.Issue("", "hr"); err == nil {
		t.Error("expected error for empty subject")
	}
	if _, err := svc.Issue("dave", ""); err == nil {
		t.Error("expected error for empty role")
	}
}
