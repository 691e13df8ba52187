package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/serialstock/pkg/config"
)

const clockSkew = 30 * time.Second

var (
	ErrNoSecret       = errors.New("jwt secret is not configured")
	ErrMissingSubject = errors.New("token has no subject")
)

var signingMethod = jwt.SigningMethodHS256

// Keys signs and verifies actor tokens with a shared HMAC secret.
type Keys struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewKeys builds a signer/verifier from cfg. It fails when no secret is set.
func NewKeys(cfg config.JWTConfig) (*Keys, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSecret
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &Keys{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		parser: jwt.NewParser(opts...),
	}, nil
}

// Mint issues a token for actor valid from now until now+ttl.
func (k *Keys) Mint(now time.Time, actor, role string, ttl time.Duration) (string, error) {
	actor = strings.TrimSpace(actor)
	switch {
	case actor == "":
		return "", ErrMissingSubject
	case ttl <= 0:
		return "", errors.New("token ttl must be positive")
	}
	claims := ActorClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    k.issuer,
			Subject:   actor,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(signingMethod, claims).SignedString(k.secret)
}

// Verify checks signature, issuer and expiry of raw and returns its claims.
func (k *Keys) Verify(raw string) (*ActorClaims, error) {
	var claims ActorClaims
	if _, err := k.parser.ParseWithClaims(raw, &claims, k.key); err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMissingSubject
	}
	return &claims, nil
}

func (k *Keys) key(*jwt.Token) (any, error) { return k.secret, nil }
