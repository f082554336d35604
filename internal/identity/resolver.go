// Package identity turns an authenticated uid into the principal that
// services authorise against.
package identity

import (
	"context"
	"errors"

	"teamTracker/internal/auth"
	"teamTracker/internal/logger"
	"teamTracker/internal/models/user"
	repo "teamTracker/internal/repository"

	"go.uber.org/zap"
)

type UserFinder interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Cache keeps resolved principals between requests. A cache error is
// treated as a miss.
//
// Every uid carries a generation that Delete advances. Set stores a
// principal only while the generation read before loading it is still
// current, so a load racing an invalidation never repopulates the cache.
type Cache interface {
	Get(ctx context.Context, uid string) (user.Principal, bool, error)
	Generation(ctx context.Context, uid string) (uint64, error)
	// Set reports whether p was stored.
	Set(ctx context.Context, p user.Principal, gen uint64) (bool, error)
	Delete(ctx context.Context, uid string) error
}

type Resolver struct {
	users UserFinder
	cache Cache
}

// NewResolver builds a resolver. A nil cache gets an in-process one.
func NewResolver(users UserFinder, cache Cache) *Resolver {
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	return &Resolver{users: users, cache: cache}
}

// Resolve never fails: anything short of a readable, live profile yields a
// principal with no role.
func (r *Resolver) Resolve(ctx context.Context, uid, email string) user.Principal {
	if uid == "" {
		return user.Principal{}
	}

	if p, ok, err := r.cache.Get(ctx, uid); err != nil {
		logger.Warn("Identity: Cache read failed", zap.String("uid", uid), zap.Error(err))
	} else if ok {
		return p
	}

	return r.load(ctx, uid, email)
}

// Refresh drops any cached principal and reads the profile again.
func (r *Resolver) Refresh(ctx context.Context, uid, email string) user.Principal {
	r.Invalidate(ctx, uid)
	return r.Resolve(ctx, uid, email)
}

func (r *Resolver) Invalidate(ctx context.Context, uid string) {
	if uid == "" {
		return
	}
	if err := r.cache.Delete(ctx, uid); err != nil {
		logger.Warn("Identity: Cache invalidation failed", zap.String("uid", uid), zap.Error(err))
	}
}

// Watch invalidates cached principals whenever the provider reports a
// registration, sign-in or sign-out.
func (r *Resolver) Watch(provider auth.Provider) {
	provider.OnSessionChange(func(ctx context.Context, ev auth.SessionEvent) {
		r.Invalidate(ctx, ev.UID)
	})
}

func (r *Resolver) load(ctx context.Context, uid, email string) user.Principal {
	p := user.Principal{UID: uid, Email: email, Role: user.RoleNone}

	gen, genErr := r.cache.Generation(ctx, uid)
	if genErr != nil {
		logger.Warn("Identity: Cache generation read failed", zap.String("uid", uid), zap.Error(genErr))
	}

	u, err := r.users.GetByID(ctx, uid)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		// registered with the provider but no profile yet
	case err != nil:
		logger.Error("Identity: Profile lookup failed, resolving without role", err, zap.String("uid", uid))
		return p
	case u.Deleted:
		p.Disabled = true
	default:
		p.Role = u.Role
		if u.Email != "" {
			p.Email = u.Email
		}
	}

	if genErr != nil {
		return p
	}
	stored, err := r.cache.Set(ctx, p, gen)
	switch {
	case err != nil:
		logger.Warn("Identity: Cache write failed", zap.String("uid", uid), zap.Error(err))
	case !stored:
		logger.Debug("Identity: Profile changed while loading, not cached", zap.String("uid", uid))
	}
	return p
}
