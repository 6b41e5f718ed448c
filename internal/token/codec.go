package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Class distinguishes the two token kinds. Each class signs with its own
// secret, so a token issued under one class never verifies under the other.
type Class string

const (
	ClassAccess  Class = "ACCESS"
	ClassRefresh Class = "REFRESH"
)

var (
	// ErrExpired reports a token whose embedded expiry has passed. Callers
	// react to it specifically: seen expired tokens get denylisted.
	ErrExpired = errors.New("token has expired")
	// ErrMalformed covers bad signatures, wrong class and missing claims.
	ErrMalformed = errors.New("missing or malformed token")
)

// ClassConfig is the signing secret and lifetime for one token class.
type ClassConfig struct {
	Secret   string
	Lifetime time.Duration
}

// IssuedToken is a freshly signed token plus its lifetime, which callers
// surface as a cookie max-age or an expiration field.
type IssuedToken struct {
	Token     string
	ExpiresIn time.Duration
}

// Claims is the verified payload of a decoded token.
type Claims struct {
	SubjectID string
	IssuedAt  time.Time
}

type signedClaims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// Codec signs and verifies bearer tokens, keyed by class.
type Codec struct {
	classes map[Class]ClassConfig
}

// NewCodec validates both class configurations up front so a misconfigured
// process fails at startup rather than on the first login.
func NewCodec(access, refresh ClassConfig) (*Codec, error) {
	for class, cfg := range map[Class]ClassConfig{ClassAccess: access, ClassRefresh: refresh} {
		if cfg.Secret == "" {
			return nil, fmt.Errorf("%s token secret is not set", class)
		}
		if cfg.Lifetime == 0 {
			return nil, fmt.Errorf("%s token lifetime is not set", class)
		}
	}

	return &Codec{classes: map[Class]ClassConfig{
		ClassAccess:  access,
		ClassRefresh: refresh,
	}}, nil
}

// Lifetime returns the configured lifetime for a class.
func (c *Codec) Lifetime(class Class) time.Duration {
	return c.classes[class].Lifetime
}

// Issue signs a token carrying the subject id, with expiry derived from the
// class lifetime.
func (c *Codec) Issue(subjectID string, class Class) (IssuedToken, error) {
	cfg, ok := c.classes[class]
	if !ok {
		return IssuedToken{}, fmt.Errorf("unknown token class %q", class)
	}

	now := time.Now()
	claims := &signedClaims{
		ID: subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign %s token: %w", class, err)
	}

	return IssuedToken{Token: signed, ExpiresIn: cfg.Lifetime}, nil
}

// Decode verifies signature and expiry against the class secret and returns
// the subject id and issued-at time. It is side-effect free; reacting to
// ErrExpired (denylisting) is the caller's responsibility.
func (c *Codec) Decode(tokenString string, class Class) (Claims, error) {
	cfg, ok := c.classes[class]
	if !ok {
		return Claims{}, fmt.Errorf("unknown token class %q", class)
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &signedClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrMalformed
	}

	claims, ok := parsed.Claims.(*signedClaims)
	if !ok || !parsed.Valid || claims.ID == "" || claims.IssuedAt == nil {
		return Claims{}, ErrMalformed
	}

	return Claims{SubjectID: claims.ID, IssuedAt: claims.IssuedAt.Time}, nil
}

// Expiry reads the embedded expiry without verifying the signature. It exists
// for the denylist, which only needs to know when a revoked entry may lapse.
func Expiry(tokenString string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}
