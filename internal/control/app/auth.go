package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/hushwing/mediadeck/internal/platform/errors"
)

// grantEnv holds raw env values before post-parse validation.
type grantEnv struct {
	Issuer   string `env:"MEDIADECK_GRANT_ISSUER"`
	Audience string `env:"MEDIADECK_GRANT_AUDIENCE"`
	Secret   string `env:"MEDIADECK_GRANT_SECRET"`
}

// GrantConfig defines how control grants are verified.
//
// A zero config disables grant checks entirely; mutating surfaces are then
// open, which is only appropriate for local development.
type GrantConfig struct {
	Issuer   string
	Audience string
	Secret   []byte
	Now      func() time.Time
}

// Enabled reports whether grant verification is configured.
func (cfg GrantConfig) Enabled() bool {
	return len(cfg.Secret) > 0
}

// GrantClaims captures validated control grant claims.
type GrantClaims struct {
	Issuer    string
	Audience  []string
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
	JWTID     string
}

// grantClaims is the internal claims type used for JWT parsing.
type grantClaims struct {
	jwt.RegisteredClaims
}

// LoadGrantConfigFromEnv reads control grant verification configuration.
// All three variables must be set together; none set means auth is disabled.
func LoadGrantConfigFromEnv(now func() time.Time) (GrantConfig, error) {
	var raw grantEnv
	if err := env.Parse(&raw); err != nil {
		return GrantConfig{}, fmt.Errorf("parse grant env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	secret := strings.TrimSpace(raw.Secret)
	if issuer == "" && audience == "" && secret == "" {
		return GrantConfig{}, nil
	}
	if issuer == "" {
		return GrantConfig{}, fmt.Errorf("MEDIADECK_GRANT_ISSUER is required")
	}
	if audience == "" {
		return GrantConfig{}, fmt.Errorf("MEDIADECK_GRANT_AUDIENCE is required")
	}
	if secret == "" {
		return GrantConfig{}, fmt.Errorf("MEDIADECK_GRANT_SECRET is required")
	}
	if now == nil {
		now = time.Now
	}
	return GrantConfig{
		Issuer:   issuer,
		Audience: audience,
		Secret:   []byte(secret),
		Now:      now,
	}, nil
}

// ValidateGrant verifies a control grant token and validates expected claims.
func ValidateGrant(grant string, cfg GrantConfig) (GrantClaims, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return GrantClaims{}, apperrors.New(apperrors.CodeGrantInvalid, "control grant is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Secret) == 0 {
		return GrantClaims{}, errors.New("grant verifier is not configured")
	}

	var parsed grantClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return GrantClaims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return GrantClaims{}, apperrors.WithMetadata(
			apperrors.CodeGrantInvalid,
			"control grant issuer mismatch",
			map[string]string{"field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return GrantClaims{}, apperrors.WithMetadata(
			apperrors.CodeGrantInvalid,
			"control grant audience mismatch",
			map[string]string{"field": "audience"},
		)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return GrantClaims{}, apperrors.New(apperrors.CodeGrantInvalid, "control grant sub is required")
	}
	if parsed.ExpiresAt == nil {
		return GrantClaims{}, apperrors.New(apperrors.CodeGrantInvalid, "control grant exp is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return GrantClaims{}, apperrors.New(apperrors.CodeGrantExpired, "control grant is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return GrantClaims{}, apperrors.New(apperrors.CodeGrantInvalid, "control grant not active yet")
	}

	claims := GrantClaims{
		Issuer:    parsed.Issuer,
		Audience:  []string(parsed.Audience),
		Subject:   parsed.Subject,
		ExpiresAt: exp,
		JWTID:     parsed.ID,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.New(apperrors.CodeGrantInvalid, "control grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeGrantInvalid, "control grant alg is invalid")
	}
	return apperrors.New(apperrors.CodeGrantInvalid, "control grant is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

// bearerTokenFromRequest extracts the bearer token from the Authorization header.
func bearerTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
