package server

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/hushwing/mediadeck/internal/platform/errors"
)

const (
	testGrantSecret   = "test-grant-secret"
	testGrantIssuer   = "mediadeck-test"
	testGrantAudience = "control"
)

func testGrantConfig(now time.Time) GrantConfig {
	return GrantConfig{
		Issuer:   testGrantIssuer,
		Audience: testGrantAudience,
		Secret:   []byte(testGrantSecret),
		Now:      func() time.Time { return now },
	}
}

func signGrant(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign grant: %v", err)
	}
	return signed
}

func validGrantClaims(now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    testGrantIssuer,
		Audience:  jwt.ClaimStrings{testGrantAudience},
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        "grant-1",
	}
}

func TestValidateGrantAcceptsValidToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	grant := signGrant(t, testGrantSecret, validGrantClaims(now))

	claims, err := ValidateGrant(grant, testGrantConfig(now))
	if err != nil {
		t.Fatalf("validate grant: %v", err)
	}
	if claims.Subject != "operator" {
		t.Fatalf("unexpected subject: %q", claims.Subject)
	}
	if claims.JWTID != "grant-1" {
		t.Fatalf("unexpected jti: %q", claims.JWTID)
	}
}

func TestValidateGrantRejectsEmptyToken(t *testing.T) {
	now := time.Now().UTC()
	_, err := ValidateGrant("  ", testGrantConfig(now))
	if !apperrors.IsCode(err, apperrors.CodeGrantInvalid) {
		t.Fatalf("expected CodeGrantInvalid, got %v", err)
	}
}

func TestValidateGrantRejectsBadSignature(t *testing.T) {
	now := time.Now().UTC()
	grant := signGrant(t, "wrong-secret", validGrantClaims(now))

	_, err := ValidateGrant(grant, testGrantConfig(now))
	if !apperrors.IsCode(err, apperrors.CodeGrantInvalid) {
		t.Fatalf("expected CodeGrantInvalid, got %v", err)
	}
}

func TestValidateGrantRejectsExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	claims := validGrantClaims(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	grant := signGrant(t, testGrantSecret, claims)

	_, err := ValidateGrant(grant, testGrantConfig(now))
	if !apperrors.IsCode(err, apperrors.CodeGrantExpired) {
		t.Fatalf("expected CodeGrantExpired, got %v", err)
	}
}

func TestValidateGrantRejectsIssuerMismatch(t *testing.T) {
	now := time.Now().UTC()
	claims := validGrantClaims(now)
	claims.Issuer = "someone-else"
	grant := signGrant(t, testGrantSecret, claims)

	_, err := ValidateGrant(grant, testGrantConfig(now))
	if !apperrors.IsCode(err, apperrors.CodeGrantInvalid) {
		t.Fatalf("expected CodeGrantInvalid, got %v", err)
	}
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Metadata["field"] != "issuer" {
		t.Fatalf("expected issuer field metadata, got %v", err)
	}
}

func TestValidateGrantRejectsAudienceMismatch(t *testing.T) {
	now := time.Now().UTC()
	claims := validGrantClaims(now)
	claims.Audience = jwt.ClaimStrings{"other"}
	grant := signGrant(t, testGrantSecret, claims)

	_, err := ValidateGrant(grant, testGrantConfig(now))
	if !apperrors.IsCode(err, apperrors.CodeGrantInvalid) {
		t.Fatalf("expected CodeGrantInvalid, got %v", err)
	}
}

func TestValidateGrantRejectsMissingSubject(t *testing.T) {
	now := time.Now().UTC()
	claims := validGrantClaims(now)
	claims.Subject = ""
	grant := signGrant(t, testGrantSecret, claims)

	_, err := ValidateGrant(grant, testGrantConfig(now))
	if !apperrors.IsCode(err, apperrors.CodeGrantInvalid) {
		t.Fatalf("expected CodeGrantInvalid, got %v", err)
	}
}

func TestValidateGrantRejectsWrongAlgorithm(t *testing.T) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, validGrantClaims(now))
	grant, err := token.SignedString([]byte(testGrantSecret))
	if err != nil {
		t.Fatalf("sign grant: %v", err)
	}

	if _, err := ValidateGrant(grant, testGrantConfig(now)); !apperrors.IsCode(err, apperrors.CodeGrantInvalid) {
		t.Fatalf("expected CodeGrantInvalid, got %v", err)
	}
}

func TestLoadGrantConfigFromEnvDisabledWhenUnset(t *testing.T) {
	t.Setenv("MEDIADECK_GRANT_ISSUER", "")
	t.Setenv("MEDIADECK_GRANT_AUDIENCE", "")
	t.Setenv("MEDIADECK_GRANT_SECRET", "")

	cfg, err := LoadGrantConfigFromEnv(nil)
	if err != nil {
		t.Fatalf("load grant config: %v", err)
	}
	if cfg.Enabled() {
		t.Fatal("expected grant checks to be disabled")
	}
}

func TestLoadGrantConfigFromEnvRejectsPartialConfig(t *testing.T) {
	t.Setenv("MEDIADECK_GRANT_ISSUER", testGrantIssuer)
	t.Setenv("MEDIADECK_GRANT_AUDIENCE", "")
	t.Setenv("MEDIADECK_GRANT_SECRET", "")

	if _, err := LoadGrantConfigFromEnv(nil); err == nil {
		t.Fatal("expected error for partial grant config")
	}
}

func TestLoadGrantConfigFromEnvComplete(t *testing.T) {
	t.Setenv("MEDIADECK_GRANT_ISSUER", testGrantIssuer)
	t.Setenv("MEDIADECK_GRANT_AUDIENCE", testGrantAudience)
	t.Setenv("MEDIADECK_GRANT_SECRET", testGrantSecret)

	cfg, err := LoadGrantConfigFromEnv(nil)
	if err != nil {
		t.Fatalf("load grant config: %v", err)
	}
	if !cfg.Enabled() {
		t.Fatal("expected grant checks to be enabled")
	}
	if cfg.Issuer != testGrantIssuer || cfg.Audience != testGrantAudience {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
