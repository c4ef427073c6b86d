// Package claims implements spec.md §4.H: Ed25519-signed claims tokens
// (issue/verify) and the keystore that backs them.
//
// Grounded on the teacher's (now-superseded) phenix JWT middleware, which
// used dgrijalva/jwt-go for bearer-token auth. dgrijalva/jwt-go has no
// Ed25519 support and is unmaintained; github.com/golang-jwt/jwt/v5 is its
// maintained successor and is what every remaining teacher-style
// JWT-shaped check in this module uses instead.
package claims

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"wafl/pkg/waflerr"
)

// Claims is the decoded payload of a verified token (spec.md §4.H "Claims
// token").
type Claims struct {
	jwt.RegisteredClaims
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// IssueOptions configures Issue's validity window.
type IssueOptions struct {
	ExpiresInDays int // 0 means no expiry
	NotBeforeDays int // 0 means valid immediately
}

// Issue mints a compact Ed25519-signed token for subject, signed by
// signerKey, carrying metadata (spec.md §4.H "issue").
func Issue(signerKey ed25519.PrivateKey, issuer, subject string, metadata map[string]interface{}, opts IssueOptions) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Metadata: metadata,
	}
	if opts.ExpiresInDays > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(time.Duration(opts.ExpiresInDays) * 24 * time.Hour))
	}
	if opts.NotBeforeDays > 0 {
		claims.NotBefore = jwt.NewNumericDate(now.Add(time.Duration(opts.NotBeforeDays) * 24 * time.Hour))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(signerKey)
	if err != nil {
		return "", &waflerr.ClaimsError{Reason: err.Error()}
	}
	return signed, nil
}

// Verify checks tokenString's signature against publicKey and its validity
// window, returning the decoded Claims (spec.md §4.H "verify").
func Verify(tokenString string, publicKey ed25519.PublicKey) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, &waflerr.ClaimsError{Reason: err.Error()}
	}
	if !token.Valid {
		return nil, &waflerr.ClaimsError{Reason: "token failed validation"}
	}
	return claims, nil
}
