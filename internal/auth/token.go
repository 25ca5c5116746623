package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnauthenticated means no valid token was presented.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the caller is authenticated but not allowed.
	ErrForbidden = errors.New("forbidden")
)

// VerifierConfig selects how wallet-auth tokens are checked. A PEM public
// key enables ES256; a secret enables HS256.
type VerifierConfig struct {
	Secret       string
	PublicKeyPEM string
	Issuer       string
	Audience     string
}

// Verifier validates wallet-auth JWTs.
type Verifier struct {
	secret    []byte
	publicKey *ecdsa.PublicKey
	options   []jwt.ParserOption
}

// NewVerifier builds a Verifier. At least one key must be configured.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	v := &Verifier{}
	var methods []string
	if strings.TrimSpace(cfg.PublicKeyPEM) != "" {
		key, err := jwt.ParseECPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse jwt public key: %w", err)
		}
		v.publicKey = key
		methods = append(methods, jwt.SigningMethodES256.Alg())
	}
	if cfg.Secret != "" {
		v.secret = []byte(cfg.Secret)
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("jwt secret or public key is required")
	}

	v.options = []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		v.options = append(v.options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		v.options = append(v.options, jwt.WithAudience(cfg.Audience))
	}
	return v, nil
}

// Subject verifies token and returns its subject claim.
func (v *Verifier) Subject(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, v.key, v.options...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return claims.Subject, nil
}

func (v *Verifier) key(t *jwt.Token) (interface{}, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodECDSA:
		if v.publicKey != nil {
			return v.publicKey, nil
		}
	case *jwt.SigningMethodHMAC:
		if v.secret != nil {
			return v.secret, nil
		}
	}
	return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
}
