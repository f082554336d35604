package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"teamTracker/internal/auth"
	"teamTracker/internal/logger"
	"teamTracker/internal/models/user"
	"teamTracker/internal/policy"
	repo "teamTracker/internal/repository"

	"go.uber.org/zap"
)

// PrincipalResolver is the part of identity.Resolver the user service needs.
type PrincipalResolver interface {
	Refresh(ctx context.Context, uid, email string) user.Principal
	Invalidate(ctx context.Context, uid string)
}

type Session struct {
	Principal user.Principal `json:"principal"`
	IDToken   string         `json:"id_token"`
	ExpiresAt time.Time      `json:"expires_at"`
}

type UserService struct {
	users    UserRepository
	provider auth.Provider
	resolver PrincipalResolver
	rules    policy.Rules
	now      func() time.Time
}

func NewUserService(users UserRepository, provider auth.Provider, resolver PrincipalResolver, rules policy.Rules, opts ...Option) *UserService {
	o := buildOptions(opts)
	return &UserService{
		users:    users,
		provider: provider,
		resolver: resolver,
		rules:    rules,
		now:      o.now,
	}
}

// Register creates the provider account and then the profile. The profile
// write decides, atomically, whether this registrant is the first admin.
func (s *UserService) Register(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, NewValidationError("email", "must not be empty")
	}
	if password == "" {
		return nil, NewValidationError("password", "must not be empty")
	}

	acct, err := s.provider.CreateAccount(ctx, email, password)
	if err != nil {
		logger.Warn("Service: Account creation failed", zap.Error(err))
		return nil, fromAuth("create account", err)
	}

	if err := s.createProfile(ctx, acct, email); err != nil {
		return nil, err
	}

	p := s.resolver.Refresh(ctx, acct.UID, acct.Email)
	logger.Info("Service: User registered", zap.String("uid", acct.UID), zap.String("role", string(p.Role)))
	return &Session{Principal: p, IDToken: acct.IDToken, ExpiresAt: acct.ExpiresAt}, nil
}

// SignIn authenticates with the provider and stamps the login time. An
// account whose profile write never completed gets its profile now.
func (s *UserService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, NewValidationError("email", "must not be empty")
	}
	if password == "" {
		return nil, NewValidationError("password", "must not be empty")
	}

	acct, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		logger.Warn("Service: Sign-in failed", zap.Error(err))
		return nil, fromAuth("sign in", err)
	}

	err = s.users.TouchLastLogin(ctx, acct.UID, s.now())
	switch {
	case errors.Is(err, repo.ErrNotFound):
		logger.Warn("Service: Signed-in account has no profile, creating it", zap.String("uid", acct.UID))
		if err := s.createProfile(ctx, acct, email); err != nil {
			return nil, err
		}
	case err != nil:
		logger.Error("Service: Failed to stamp login", err, zap.String("uid", acct.UID))
		return nil, fromStore("stamp login", ResourceUser, acct.UID, err)
	}

	p := s.resolver.Refresh(ctx, acct.UID, acct.Email)
	return &Session{Principal: p, IDToken: acct.IDToken, ExpiresAt: acct.ExpiresAt}, nil
}

func (s *UserService) SignOut(ctx context.Context, p user.Principal) error {
	if p.UID == "" {
		return NewAuthorizationError("sign out")
	}
	if err := s.provider.SignOut(ctx, p.UID); err != nil {
		logger.Error("Service: Sign-out failed", err, zap.String("uid", p.UID))
		return fromAuth("sign out", err)
	}
	s.resolver.Invalidate(ctx, p.UID)
	return nil
}

func (s *UserService) ListUsers(ctx context.Context, p user.Principal) ([]*user.User, error) {
	if !policy.CanManageUsers(p) {
		return nil, NewAuthorizationError("list users")
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, NewUpstreamError(storeKind(err), "list users", err)
	}
	return users, nil
}

func (s *UserService) SetRole(ctx context.Context, p user.Principal, uid string, role user.Role) (*user.User, error) {
	if !policy.CanManageUsers(p) {
		return nil, NewAuthorizationError("change roles")
	}
	if role != user.RoleUser && role != user.RoleAdmin {
		return nil, NewValidationError("role", "must be user or admin")
	}

	target, err := s.liveUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if target.Role == user.RoleAdmin && role != user.RoleAdmin {
		if err := s.ensureNotLastAdmin(ctx, "demote the last admin"); err != nil {
			return nil, err
		}
	}

	if err := s.users.SetRole(ctx, uid, role); err != nil {
		logger.Error("Service: Failed to set role", err, zap.String("uid", uid))
		return nil, fromStore("set role", ResourceUser, uid, err)
	}
	s.resolver.Invalidate(ctx, uid)

	logger.Info("Service: Role changed",
		zap.String("uid", uid),
		zap.String("from", string(target.Role)),
		zap.String("to", string(role)),
		zap.String("by", p.UID))
	target.Role = role
	return target, nil
}

// DeleteUser soft-deletes a profile. The user keeps their provider account
// but resolves as disabled from then on.
func (s *UserService) DeleteUser(ctx context.Context, p user.Principal, uid string) error {
	if !policy.CanManageUsers(p) {
		return NewAuthorizationError("delete users")
	}

	target, err := s.liveUser(ctx, uid)
	if err != nil {
		return err
	}
	if target.Role == user.RoleAdmin {
		if err := s.ensureNotLastAdmin(ctx, "delete the last admin"); err != nil {
			return err
		}
	}

	if err := s.users.SoftDelete(ctx, uid, s.now()); err != nil {
		logger.Error("Service: Failed to delete user", err, zap.String("uid", uid))
		return fromStore("delete user", ResourceUser, uid, err)
	}
	s.resolver.Invalidate(ctx, uid)

	logger.Info("Service: User deleted", zap.String("uid", uid), zap.String("by", p.UID))
	return nil
}

func (s *UserService) createProfile(ctx context.Context, acct auth.Account, email string) error {
	u := &user.User{
		ID:        acct.UID,
		Email:     acct.Email,
		CreatedAt: s.now(),
	}
	if u.Email == "" {
		u.Email = email
	}

	if err := s.users.CreateWithBootstrap(ctx, u); err != nil {
		logger.Error("Service: Failed to create profile", err, zap.String("uid", acct.UID))
		return fromStore("create profile", ResourceUser, acct.UID, err)
	}
	return nil
}

func (s *UserService) liveUser(ctx context.Context, uid string) (*user.User, error) {
	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return nil, fromStore("load user", ResourceUser, uid, err)
	}
	if u.Deleted {
		return nil, NewNotFound(ResourceUser, uid)
	}
	return u, nil
}

func (s *UserService) ensureNotLastAdmin(ctx context.Context, action string) error {
	n, err := s.users.CountAdmins(ctx)
	if err != nil {
		return NewUpstreamError(storeKind(err), "count admins", err)
	}
	if !s.rules.CanRemoveAdmin(n) {
		return NewAuthorizationError(action)
	}
	return nil
}
