// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides password hashing and caller identity helpers.

# Password Hashes

Provisioned observer passwords are bcrypt hashes. Before hashing, the password
is peppered with HMAC-SHA256 keyed by the server's credential salt, so a leaked
account table cannot be attacked without that secret as well:

	hash, err := auth.HashPassword(password, salt, bcrypt.DefaultCost)
	err = auth.VerifyPassword(password, hash, salt)

# Actors

Sessions are resolved upstream. The resolved identity arrives as two headers:

	X-Actor-ID:   7f3c...
	X-Actor-Type: admin | chief_observer | observer

ActorFromHeaders turns them into a models.Actor and rejects unknown types.
*/
package auth
