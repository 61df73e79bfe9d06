// Package token issues and verifies the HS256 session tokens used for both
// access and refresh credentials.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
)

var (
	ErrMalformed      = errors.New("token malformed")
	ErrBadSignature   = errors.New("token signature invalid")
	ErrExpired        = errors.New("token expired")
	ErrIssuerMismatch = errors.New("token issuer mismatch")

	ErrEmptySecret = errors.New("token signing secret is empty")
	ErrEmptyIssuer = errors.New("token issuer is empty")
)

// ClaimRole is the claim name of the role carried by access tokens
const ClaimRole = "role"

var reserved = map[string]bool{
	"sub": true, "jti": true, "iss": true, "iat": true, "exp": true, "nbf": true, "aud": true,
}

// Claims is the decoded claim set of a token
type Claims struct {
	Subject   string
	Role      domain.Role
	ID        string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Extra holds any other string claims
	Extra map[string]string
}

// HasRole reports whether the token carries a role claim (access tokens only)
func (c *Claims) HasRole() bool {
	return c.Role != ""
}

// Remaining is the lifetime left at now; negative once expired
func (c *Claims) Remaining(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

// Option configures a Codec
type Option func(*Codec)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// Codec signs and verifies tokens with a shared HMAC key
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// NewCodec creates a codec bound to secret and issuer
func NewCodec(secret, issuer string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if issuer == "" {
		return nil, ErrEmptyIssuer
	}

	c := &Codec{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
		// Expiry and issuer are checked by the codec itself after the signature
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issuer returns the configured issuer
func (c *Codec) Issuer() string {
	return c.issuer
}

// Now returns the codec clock's current time
func (c *Codec) Now() time.Time {
	return c.now()
}

// Issue signs a token for subject valid for ttl. claims may carry "role" and
// other string claims; registered claim names are ignored.
func (c *Codec) Issue(subject string, claims map[string]string, ttl time.Duration) (string, error) {
	now := c.now()

	mc := jwt.MapClaims{}
	for k, v := range claims {
		if reserved[k] {
			continue
		}
		mc[k] = v
	}
	mc["sub"] = subject
	mc["jti"] = uuid.NewString()
	mc["iss"] = c.issuer
	mc["iat"] = jwt.NewNumericDate(now)
	mc["exp"] = jwt.NewNumericDate(now.Add(ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and returns the claims. Expired tokens are
// returned without error; callers check expiry themselves.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	mc := jwt.MapClaims{}
	_, err := c.parser.ParseWithClaims(tokenString, mc, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable) {
			return nil, ErrBadSignature
		}
		return nil, ErrMalformed
	}

	return claimsFromMap(mc)
}

// Verify decodes the token and checks expiry and issuer
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.ExpiresAt.After(c.now()) {
		return nil, ErrExpired
	}
	if claims.Issuer != c.issuer {
		return nil, ErrIssuerMismatch
	}
	return claims, nil
}

// IsExpired is true when exp <= now or the token cannot be decoded
func (c *Codec) IsExpired(tokenString string) bool {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return true
	}
	return !claims.ExpiresAt.After(c.now())
}

// Validate is true only for a token with a good signature, not expired,
// from this issuer
func (c *Codec) Validate(tokenString string) bool {
	_, err := c.Verify(tokenString)
	return err == nil
}

func claimsFromMap(mc jwt.MapClaims) (*Claims, error) {
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrMalformed
	}
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrMalformed
	}
	iss, err := mc.GetIssuer()
	if err != nil {
		return nil, ErrMalformed
	}

	claims := &Claims{
		Subject:   sub,
		Issuer:    iss,
		ExpiresAt: exp.Time,
		Extra:     map[string]string{},
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}

	for k, v := range mc {
		s, ok := v.(string)
		switch {
		case k == "jti":
			claims.ID = s
		case k == ClaimRole:
			claims.Role = domain.Role(s)
		case reserved[k] || !ok:
		default:
			claims.Extra[k] = s
		}
	}

	return claims, nil
}
