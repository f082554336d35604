// Package auth defines the contract with the identity provider: account
// creation, password sign-in, sign-out and ID token verification.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Failure kinds every provider maps its own errors onto.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrWeakCredential     = errors.New("password is too weak")
	ErrRateLimited        = errors.New("too many attempts, try later")
	ErrUnavailable        = errors.New("identity provider unavailable")
)

const MinPasswordLength = 6

// Account is what the provider knows about a signed-in identity.
type Account struct {
	UID       string
	Email     string
	IDToken   string
	ExpiresAt time.Time
}

type EventKind string

const (
	EventRegistered EventKind = "registered"
	EventSignedIn   EventKind = "signed_in"
	EventSignedOut  EventKind = "signed_out"
)

type SessionEvent struct {
	UID  string
	Kind EventKind
}

type SessionListener func(ctx context.Context, ev SessionEvent)

type TokenVerifier interface {
	// Verify checks an ID token and returns the account it was issued to.
	Verify(ctx context.Context, idToken string) (Account, error)
}

type Provider interface {
	TokenVerifier
	CreateAccount(ctx context.Context, email, password string) (Account, error)
	SignIn(ctx context.Context, email, password string) (Account, error)
	SignOut(ctx context.Context, uid string) error
	OnSessionChange(fn SessionListener)
}

// Notifier fans session events out to registered listeners. Providers embed
// it to implement OnSessionChange.
type Notifier struct {
	mu        sync.RWMutex
	listeners []SessionListener
}

func (n *Notifier) OnSessionChange(fn SessionListener) {
	if fn == nil {
		return
	}
	n.mu.Lock()
	n.listeners = append(n.listeners, fn)
	n.mu.Unlock()
}

func (n *Notifier) Notify(ctx context.Context, ev SessionEvent) {
	n.mu.RLock()
	listeners := append([]SessionListener(nil), n.listeners...)
	n.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, ev)
	}
}
