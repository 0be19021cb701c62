// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package credentials provisions logins for chief observers.
package credentials

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/danielhkuo/tally/auth"
	"github.com/danielhkuo/tally/models"
	"github.com/danielhkuo/tally/store"
)

// Provisioner creates or updates the login bound to identity.
type Provisioner interface {
	ProvisionOrUpdate(ctx context.Context, identity, username, password string) error
}

// DeriveUsername returns the ballot number when known, else the national id.
func DeriveUsername(ballotNumber, nationalID string) string {
	if ballotNumber != "" {
		return ballotNumber
	}
	return nationalID
}

// DerivePassword returns the initial password for a chief observer.
func DerivePassword(nationalID string) string {
	return nationalID
}

// AccountProvisioner stores bcrypt hashes, peppered with the server secret,
// in the account repository.
type AccountProvisioner struct {
	repo   store.AccountRepository
	secret string
	cost   int
}

func NewAccountProvisioner(repo store.AccountRepository, secret string) *AccountProvisioner {
	return &AccountProvisioner{repo: repo, secret: secret, cost: bcrypt.DefaultCost}
}

// WithCost sets the bcrypt cost for new hashes.
func (p *AccountProvisioner) WithCost(cost int) *AccountProvisioner {
	p.cost = cost
	return p
}

func (p *AccountProvisioner) ProvisionOrUpdate(ctx context.Context, identity, username, password string) error {
	if identity == "" || username == "" {
		return fmt.Errorf("provision credentials: identity and username are required")
	}
	hash, err := auth.HashPassword(password, p.secret, p.cost)
	if err != nil {
		return fmt.Errorf("provision credentials: %w", err)
	}
	acc := &models.ObserverAccount{
		NationalID:   identity,
		Username:     username,
		PasswordHash: hash,
	}
	if err := p.repo.UpsertAccount(ctx, acc); err != nil {
		return fmt.Errorf("provision credentials: %w", err)
	}
	return nil
}

// Verify checks a login attempt for identity.
func (p *AccountProvisioner) Verify(ctx context.Context, identity, username, password string) error {
	acc, err := p.repo.GetAccount(ctx, identity)
	if err != nil {
		return auth.ErrInvalidCredentials
	}
	if acc.Username != username {
		return auth.ErrInvalidCredentials
	}
	return auth.VerifyPassword(password, acc.PasswordHash, p.secret)
}
