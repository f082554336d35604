// Package local is a self-contained identity provider: bcrypt password
// hashes held in memory and HMAC-signed JWT ID tokens. It backs development
// runs and tests.
package local

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"teamTracker/internal/auth"
	"teamTracker/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const issuer = "teamTracker/local"

// limiterIdle is how long an email's sign-in limiter survives without
// attempts. A limiter idle for a minute has refilled anyway.
const limiterIdle = 2 * time.Minute

type Options struct {
	Secret   []byte
	TokenTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// AttemptsPerMinute bounds sign-in attempts per email.
	AttemptsPerMinute int
}

type account struct {
	uid  string
	hash []byte
}

type attempts struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type claims struct {
	Email string `json:"email"`
	// Gen is the uid's session generation at issue time.
	Gen uint64 `json:"gen"`
	jwt.RegisteredClaims
}

type Provider struct {
	auth.Notifier

	opts Options
	now  func() time.Time

	mtx      sync.Mutex
	accounts map[string]account
	// generations counts sign-outs per uid. Tokens carrying an older
	// generation are rejected.
	generations map[string]uint64
	limiters    map[string]*attempts
	lastSweep   time.Time
}

func New(opts Options) (*Provider, error) {
	if len(opts.Secret) < 16 {
		return nil, errors.New("local auth secret must be at least 16 bytes")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.AttemptsPerMinute <= 0 {
		opts.AttemptsPerMinute = 5
	}

	return &Provider{
		opts:        opts,
		now:         time.Now,
		accounts:    make(map[string]account),
		generations: make(map[string]uint64),
		limiters:    make(map[string]*attempts),
	}, nil
}

func (p *Provider) CreateAccount(ctx context.Context, email, password string) (auth.Account, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return auth.Account{}, fmt.Errorf("%w: malformed email", auth.ErrInvalidCredentials)
	}
	if len(password) < auth.MinPasswordLength {
		return auth.Account{}, auth.ErrWeakCredential
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.opts.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return auth.Account{}, fmt.Errorf("%w: %w", auth.ErrWeakCredential, err)
		}
		return auth.Account{}, fmt.Errorf("hash password: %w", err)
	}

	p.mtx.Lock()
	if _, ok := p.accounts[email]; ok {
		p.mtx.Unlock()
		return auth.Account{}, auth.ErrAccountExists
	}
	uid := uuid.NewString()
	p.accounts[email] = account{uid: uid, hash: hash}
	p.mtx.Unlock()

	acct, err := p.issue(uid, email)
	if err != nil {
		return auth.Account{}, err
	}

	logger.Info("Auth: Account created", zap.String("uid", uid))
	p.Notify(ctx, auth.SessionEvent{UID: uid, Kind: auth.EventRegistered})
	return acct, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (auth.Account, error) {
	email = normalizeEmail(email)

	now := p.now()

	p.mtx.Lock()
	lim := p.limiterFor(email, now)
	acc, found := p.accounts[email]
	p.mtx.Unlock()

	if !lim.AllowN(now, 1) {
		logger.Warn("Auth: Sign-in rate limited", zap.String("email", email))
		return auth.Account{}, auth.ErrRateLimited
	}
	if !found {
		return auth.Account{}, auth.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return auth.Account{}, auth.ErrInvalidCredentials
	}

	acct, err := p.issue(acc.uid, email)
	if err != nil {
		return auth.Account{}, err
	}
	p.Notify(ctx, auth.SessionEvent{UID: acc.uid, Kind: auth.EventSignedIn})
	return acct, nil
}

// limiterFor returns the sign-in limiter for email, dropping limiters of
// emails that have gone quiet. Callers hold p.mtx.
func (p *Provider) limiterFor(email string, now time.Time) *rate.Limiter {
	if now.Sub(p.lastSweep) > limiterIdle {
		for k, a := range p.limiters {
			if now.Sub(a.lastSeen) > limiterIdle {
				delete(p.limiters, k)
			}
		}
		p.lastSweep = now
	}

	a, ok := p.limiters[email]
	if !ok {
		n := p.opts.AttemptsPerMinute
		a = &attempts{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)}
		p.limiters[email] = a
	}
	a.lastSeen = now
	return a.limiter
}

// SignOut rejects every token issued to uid so far.
func (p *Provider) SignOut(ctx context.Context, uid string) error {
	p.mtx.Lock()
	p.generations[uid]++
	p.mtx.Unlock()

	p.Notify(ctx, auth.SessionEvent{UID: uid, Kind: auth.EventSignedOut})
	return nil
}

func (p *Provider) Verify(ctx context.Context, idToken string) (auth.Account, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(idToken, c, func(*jwt.Token) (any, error) {
		return p.opts.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return auth.Account{}, fmt.Errorf("%w: %w", auth.ErrInvalidCredentials, err)
	}

	p.mtx.Lock()
	gen := p.generations[c.Subject]
	p.mtx.Unlock()
	if c.Gen != gen {
		return auth.Account{}, fmt.Errorf("%w: token revoked", auth.ErrInvalidCredentials)
	}

	acct := auth.Account{UID: c.Subject, Email: c.Email, IDToken: idToken}
	if c.ExpiresAt != nil {
		acct.ExpiresAt = c.ExpiresAt.Time
	}
	return acct, nil
}

func (p *Provider) issue(uid, email string) (auth.Account, error) {
	now := p.now()
	exp := now.Add(p.opts.TokenTTL)

	p.mtx.Lock()
	gen := p.generations[uid]
	p.mtx.Unlock()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		Gen:   gen,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   uid,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(p.opts.Secret)
	if err != nil {
		return auth.Account{}, fmt.Errorf("sign token: %w", err)
	}
	return auth.Account{UID: uid, Email: email, IDToken: signed, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ auth.Provider = (*Provider)(nil)
