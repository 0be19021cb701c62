// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/danielhkuo/tally/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingActor       = errors.New("missing actor")
)

// Actor header names read by ActorFromHeaders.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorType = "X-Actor-Type"
)

// pepper mixes the server secret into password with HMAC-SHA256. The
// encoded digest is 43 bytes, inside bcrypt's 72 byte input limit.
func pepper(password, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(password))
	return []byte(base64.RawURLEncoding.EncodeToString(h.Sum(nil)))
}

// HashPassword returns a bcrypt hash of the peppered password at cost.
// Costs below bcrypt.MinCost fall back to bcrypt.DefaultCost.
func HashPassword(password, secret string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(pepper(password, secret), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks password against a hash produced by HashPassword.
func VerifyPassword(password, hash, secret string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), pepper(password, secret)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HeaderGetter is satisfied by http.Header.
type HeaderGetter interface {
	Get(key string) string
}

// ActorFromHeaders builds the caller identity supplied by the upstream session layer.
// Both headers are required; the type must be a known actor type.
func ActorFromHeaders(h HeaderGetter) (models.Actor, error) {
	actor := models.Actor{
		ID:   strings.TrimSpace(h.Get(HeaderActorID)),
		Type: strings.TrimSpace(h.Get(HeaderActorType)),
	}
	if actor.ID == "" || actor.Type == "" {
		return models.Actor{}, ErrMissingActor
	}
	switch actor.Type {
	case models.ActorAdmin, models.ActorChiefObserver, models.ActorObserver:
		return actor, nil
	default:
		return models.Actor{}, ErrMissingActor
	}
}
