// Package firebase implements auth.Provider on Firebase Authentication:
// the Admin SDK creates accounts, verifies ID tokens and revokes sessions,
// and the Identity Toolkit REST API performs password sign-in.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"teamTracker/internal/auth"
	"teamTracker/internal/logger"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

type Config struct {
	CredentialsPath string
	WebAPIKey       string
}

// adminClient is the part of *fbauth.Client the provider uses.
type adminClient interface {
	CreateUser(ctx context.Context, user *fbauth.UserToCreate) (*fbauth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*fbauth.Token, error)
}

type signInResult struct {
	UID       string
	Email     string
	IDToken   string
	ExpiresIn time.Duration
}

// passwordSigner exchanges an email and password for an ID token.
type passwordSigner interface {
	SignInWithPassword(ctx context.Context, email, password string) (signInResult, error)
}

type Provider struct {
	auth.Notifier

	admin  adminClient
	signer passwordSigner
}

func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.CredentialsPath == "" {
		return nil, errors.New("firebase credentials path is required")
	}
	if cfg.WebAPIKey == "" {
		return nil, errors.New("firebase web api key is required")
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.CredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth client: %w", err)
	}

	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(cfg.WebAPIKey))
	if err != nil {
		return nil, fmt.Errorf("init identity toolkit: %w", err)
	}

	logger.Info("Auth: Firebase provider ready")
	return &Provider{admin: client, signer: &toolkitSigner{svc: svc}}, nil
}

func (p *Provider) CreateAccount(ctx context.Context, email, password string) (auth.Account, error) {
	if len(password) < auth.MinPasswordLength {
		return auth.Account{}, auth.ErrWeakCredential
	}

	params := (&fbauth.UserToCreate{}).Email(email).Password(password)
	rec, err := p.admin.CreateUser(ctx, params)
	if err != nil {
		logger.Warn("Auth: Firebase account creation failed", zap.Error(err))
		return auth.Account{}, mapAdminError(err)
	}

	res, err := p.signer.SignInWithPassword(ctx, email, password)
	if err != nil {
		return auth.Account{}, err
	}

	logger.Info("Auth: Account created", zap.String("uid", rec.UID))
	p.Notify(ctx, auth.SessionEvent{UID: rec.UID, Kind: auth.EventRegistered})
	return toAccount(res), nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (auth.Account, error) {
	res, err := p.signer.SignInWithPassword(ctx, email, password)
	if err != nil {
		return auth.Account{}, err
	}
	p.Notify(ctx, auth.SessionEvent{UID: res.UID, Kind: auth.EventSignedIn})
	return toAccount(res), nil
}

// SignOut revokes the user's refresh tokens; ID tokens issued before now
// then fail Verify.
func (p *Provider) SignOut(ctx context.Context, uid string) error {
	if err := p.admin.RevokeRefreshTokens(ctx, uid); err != nil {
		logger.Error("Auth: Failed to revoke tokens", err, zap.String("uid", uid))
		return mapAdminError(err)
	}
	p.Notify(ctx, auth.SessionEvent{UID: uid, Kind: auth.EventSignedOut})
	return nil
}

func (p *Provider) Verify(ctx context.Context, idToken string) (auth.Account, error) {
	tok, err := p.admin.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		if isNetworkError(err) {
			return auth.Account{}, fmt.Errorf("%w: %w", auth.ErrUnavailable, err)
		}
		return auth.Account{}, fmt.Errorf("%w: %w", auth.ErrInvalidCredentials, err)
	}

	acct := auth.Account{UID: tok.UID, IDToken: idToken, ExpiresAt: time.Unix(tok.Expires, 0)}
	if email, ok := tok.Claims["email"].(string); ok {
		acct.Email = email
	}
	return acct, nil
}

func toAccount(res signInResult) auth.Account {
	return auth.Account{
		UID:       res.UID,
		Email:     res.Email,
		IDToken:   res.IDToken,
		ExpiresAt: time.Now().Add(res.ExpiresIn),
	}
}

type toolkitSigner struct {
	svc *identitytoolkit.Service
}

func (s *toolkitSigner) SignInWithPassword(ctx context.Context, email, password string) (signInResult, error) {
	req := &identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}
	resp, err := s.svc.Relyingparty.VerifyPassword(req).Context(ctx).Do()
	if err != nil {
		return signInResult{}, mapToolkitError(err)
	}
	return signInResult{
		UID:       resp.LocalId,
		Email:     resp.Email,
		IDToken:   resp.IdToken,
		ExpiresIn: time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

// mapToolkitError turns an Identity Toolkit REST error into a failure kind.
// The REST API reports the reason as the leading word of the message,
// e.g. "TOO_MANY_ATTEMPTS_TRY_LATER : Access to this account...".
func mapToolkitError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		if isNetworkError(err) {
			return fmt.Errorf("%w: %w", auth.ErrUnavailable, err)
		}
		return err
	}

	reason := strings.TrimSpace(strings.SplitN(gerr.Message, ":", 2)[0])
	switch reason {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED", "INVALID_EMAIL":
		return fmt.Errorf("%w: %s", auth.ErrInvalidCredentials, reason)
	case "EMAIL_EXISTS":
		return fmt.Errorf("%w: %s", auth.ErrAccountExists, reason)
	case "WEAK_PASSWORD":
		return fmt.Errorf("%w: %s", auth.ErrWeakCredential, reason)
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return fmt.Errorf("%w: %s", auth.ErrRateLimited, reason)
	}

	switch gerr.Code {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", auth.ErrRateLimited, err)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %w", auth.ErrUnavailable, err)
	}
	return err
}

func mapAdminError(err error) error {
	switch {
	case fbauth.IsEmailAlreadyExists(err):
		return fmt.Errorf("%w: %w", auth.ErrAccountExists, err)
	case fbauth.IsUserNotFound(err):
		return fmt.Errorf("%w: %w", auth.ErrInvalidCredentials, err)
	case isNetworkError(err):
		return fmt.Errorf("%w: %w", auth.ErrUnavailable, err)
	}
	return err
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded)
}

var _ auth.Provider = (*Provider)(nil)
