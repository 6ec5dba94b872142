// Package auth validates and issues the bearer tokens that gate the campus
// gateway. Tokens are HS256 JWTs carrying the caller's subject, email and
// role.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/campusai/campus/pkg/apierr"
)

// Roles recognised by the gateway.
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

// DefaultTokenTTL is the lifetime of issued tokens when none is configured.
const DefaultTokenTTL = 24 * time.Hour

var errMissingSecret = errors.New("jwt secret is not configured")

// Session is the authenticated caller of a request.
type Session struct {
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// Validator turns a bearer token into a Session.
type Validator interface {
	Validate(ctx context.Context, token string) (*Session, error)
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// Valid checks the standard claims and the role.
func (c *Claims) Valid() error {
	if err := c.RegisteredClaims.Valid(); err != nil {
		return err
	}
	if c.Subject == "" {
		return errors.New("token has no subject")
	}
	if !ValidRole(c.Role) {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	return nil
}

// ValidRole reports whether role is one of the recognised roles.
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	}
	return false
}

// JWTValidator validates HS256 tokens signed with a shared secret.
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a validator. When issuer is non-empty tokens must
// carry a matching "iss" claim.
func NewJWTValidator(secret, issuer string) (*JWTValidator, error) {
	if secret == "" {
		return nil, errMissingSecret
	}
	return &JWTValidator{secret: []byte(secret), issuer: issuer}, nil
}

// Validate parses and verifies token. Every failure is an
// authentication_required error.
func (v *JWTValidator) Validate(_ context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apierr.New(apierr.KindAuthenticationRequired, "")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, apierr.Wrap(apierr.KindAuthenticationRequired, err)
	}
	if !parsed.Valid {
		return nil, apierr.New(apierr.KindAuthenticationRequired, "")
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, apierr.Wrap(apierr.KindAuthenticationRequired, fmt.Errorf("unexpected issuer %q", claims.Issuer))
	}

	session := &Session{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// Issuer mints tokens accepted by a JWTValidator with the same secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. A zero ttl uses DefaultTokenTTL.
func NewIssuer(secret, issuer string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the given subject.
func (i *Issuer) Issue(subject, email, role string) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	if !ValidRole(role) {
		return "", fmt.Errorf("unknown role %q", role)
	}

	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email: email,
		Role:  role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
