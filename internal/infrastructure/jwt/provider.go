package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the JWT payload fields of a back-office token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Provider verifies RS256 JWTs and, when it holds the private key, signs them.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	expiry     time.Duration
}

// NewVerifier loads the public key used to check admin tokens.
func NewVerifier(publicKeyPath string) (*Provider, error) {
	pubBytes, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &Provider{publicKey: pubKey}, nil
}

// NewSigner loads a private key; tokens it signs expire after expiry.
func NewSigner(privateKeyPath string, expiry time.Duration) (*Provider, error) {
	privBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return NewFromKey(privKey, expiry), nil
}

func NewFromKey(key *rsa.PrivateKey, expiry time.Duration) *Provider {
	return &Provider{privateKey: key, publicKey: &key.PublicKey, expiry: expiry}
}

func (p *Provider) Sign(subject, role string) (string, error) {
	if p.privateKey == nil {
		return "", errors.New("provider has no private key")
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
