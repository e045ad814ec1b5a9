// Package accounts resolves inbound channel identities to accounts and their
// tenant entitlement snapshot.
package accounts

import (
	"errors"
	"time"
)

// ErrUnknownSender indicates no account is registered for the channel identity.
var ErrUnknownSender = errors.New("no account for channel identity")

// Tenant is the owning organization with its entitlement state.
type Tenant struct {
	ID             string
	Name           string
	Credits        int
	ChannelEnabled bool
	CreatedAt      time.Time
}

// Account is a registered payer reachable on the messaging channel.
type Account struct {
	ID              string
	TenantID        string
	Name            string
	ChannelIdentity string
	CreatedAt       time.Time
}

// Snapshot bundles the account with its tenant entitlements as of lookup time.
type Snapshot struct {
	Account Account
	Tenant  Tenant
}
