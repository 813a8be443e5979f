package auth

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims are the claims carried by an OAuth access token. The
// token does not carry grants; those are fetched by session id.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	ClientID  string `json:"client_id"`
	Username  string `json:"username"`
}

// TokenVerifier validates access-token JWTs: signature, expiry, and issuer.
// Session revocation is checked separately against the metadata store.
type TokenVerifier struct {
	keyFunc jwt.Keyfunc
	issuer  string
}

// NewRSAVerifier verifies RS256 tokens against the authorization server's
// public key.
func NewRSAVerifier(pub *rsa.PublicKey, issuer string) *TokenVerifier {
	return &TokenVerifier{
		issuer: issuer,
		keyFunc: func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return pub, nil
		},
	}
}

// NewHMACVerifier verifies HS256 tokens with a shared secret. Used in
// single-binary deployments where this server and the authorization server
// share configuration.
func NewHMACVerifier(secret []byte, issuer string) *TokenVerifier {
	return &TokenVerifier{
		issuer: issuer,
		keyFunc: func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return secret, nil
		},
	}
}

// Verify parses and validates an access token, returning its claims.
func (v *TokenVerifier) Verify(tokenStr string) (*AccessTokenClaims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenStr, &AccessTokenClaims{}, v.keyFunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", err)
	}
	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("access token carries no session")
	}
	return claims, nil
}
