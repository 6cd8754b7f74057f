package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/veraxlabs/go-access-server/internal/errors"
	"github.com/veraxlabs/go-access-server/internal/obs"
	"github.com/veraxlabs/go-access-server/rbac"
	"github.com/veraxlabs/go-access-server/token"
	"github.com/veraxlabs/go-access-server/token/refreshstore"
	"github.com/veraxlabs/go-access-server/users"
)

// Notifier delivers fire-and-forget user notifications. Delivery is a
// boundary concern; failures are logged by callers, never surfaced to the
// client path.
type Notifier interface {
	Notify(ctx context.Context, email, subject, body string) error
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, string, string) error { return nil }

// Deps holds all dependencies for the Service.
type Deps struct {
	Users    users.UserRepo     // Repository for user data
	Store    refreshstore.Store // Refresh token state
	Codec    *token.Codec       // Token signing and verification
	Catalog  *rbac.Catalog      // Deploy-time role table
	Metrics  *obs.Metrics       // Lifecycle counters (optional)
	Notifier Notifier           // Email boundary (optional)
}

// Service is the operation contract of the token and authorization core:
// initial issuance, rotation, revocation, and permission checks.
type Service struct {
	deps     Deps
	issuer   *token.Issuer
	rotator  *token.Rotator
	revoker  *token.RevocationRegistry
	resolver *rbac.Resolver
	nowTime  func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes a new Service with required dependencies.
func NewService(deps Deps, options ...ServiceOption) (*Service, error) {
	if deps.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if deps.Store == nil {
		return nil, errors.New("[NewService] refresh token store is required")
	}
	if deps.Codec == nil {
		return nil, errors.New("[NewService] token codec is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("[NewService] role catalog is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = obs.NewNopMetrics()
	}
	if deps.Notifier == nil {
		deps.Notifier = NopNotifier{}
	}

	issuer := token.NewIssuer(deps.Codec, deps.Store)
	s := &Service{
		deps:     deps,
		issuer:   issuer,
		rotator:  token.NewRotator(deps.Codec, deps.Store, deps.Users, issuer),
		revoker:  token.NewRevocationRegistry(deps.Store),
		resolver: rbac.NewResolver(deps.Catalog),
		nowTime:  time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// Login verifies credentials at the boundary and issues the initial token
// pair. Password comparison is the opaque one-way bcrypt verifier; this core
// never sees plaintext beyond this call.
func (s *Service) Login(ctx context.Context, email, password string, device token.DeviceInfo) (*token.Pair, error) {
	user, err := s.deps.Users.GetByEmail(email)
	if err != nil {
		// Uniform rejection: do not leak which of email/password was wrong.
		return nil, apperrors.ErrInvalidCredentials
	}
	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if user.Blocked {
		return nil, apperrors.ErrUserBlocked
	}
	if !user.Verified {
		return nil, apperrors.ErrUserNotVerified
	}

	user.LastLogin = s.nowTime()
	if err := s.deps.Users.Upsert(user); err != nil {
		return nil, errors.Wrap(err, "[Service.Login] Upsert")
	}

	return s.IssueInitialTokens(ctx, user, device)
}

// LoginExternal issues the initial pair for a user whose identity was
// verified by an external OIDC provider. No password is involved; the email
// comes from a verified ID token, so the account gates still apply but
// credential comparison does not.
func (s *Service) LoginExternal(ctx context.Context, email string, device token.DeviceInfo) (*token.Pair, error) {
	user, err := s.deps.Users.GetByEmail(email)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}
	if user.Blocked {
		return nil, apperrors.ErrUserBlocked
	}
	if !user.Verified {
		return nil, apperrors.ErrUserNotVerified
	}

	user.LastLogin = s.nowTime()
	if err := s.deps.Users.Upsert(user); err != nil {
		return nil, errors.Wrap(err, "[Service.LoginExternal] Upsert")
	}

	return s.IssueInitialTokens(ctx, user, device)
}

// IssueInitialTokens mints a pair for an already-authenticated user. Called
// by Login and by the OAuth-completion flow once the external identity has
// been verified.
func (s *Service) IssueInitialTokens(ctx context.Context, user *users.User, device token.DeviceInfo) (*token.Pair, error) {
	pair, err := s.issuer.IssuePair(ctx, user, device)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.IssueInitialTokens] IssuePair")
	}
	s.deps.Metrics.LoginsTotal.Inc()
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair, rotating the old one out.
func (s *Service) Refresh(ctx context.Context, rawRefresh string, device token.DeviceInfo) (*token.Pair, error) {
	pair, err := s.rotator.Refresh(ctx, rawRefresh, device)
	if err != nil {
		s.observeRefreshFailure(err)
		return nil, err
	}
	s.deps.Metrics.RotationsTotal.Inc()
	return pair, nil
}

func (s *Service) observeRefreshFailure(err error) {
	switch {
	case errors.Is(err, apperrors.ErrReuseDetected):
		s.deps.Metrics.ReuseDetectedTotal.Inc()
		s.deps.Metrics.RotationFailures.WithLabelValues("reuse_detected").Inc()
	case errors.Is(err, apperrors.ErrTokenExpired):
		s.deps.Metrics.RotationFailures.WithLabelValues("expired").Inc()
	case errors.Is(err, apperrors.ErrWrongTokenClass):
		s.deps.Metrics.WrongClassTotal.Inc()
		s.deps.Metrics.RotationFailures.WithLabelValues("wrong_class").Inc()
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		s.deps.Metrics.RotationFailures.WithLabelValues("storage").Inc()
	default:
		s.deps.Metrics.RotationFailures.WithLabelValues("invalid").Inc()
	}
}

// Logout revokes exactly one device's refresh token. The claims identify the
// caller; the token ID selects the device session.
func (s *Service) Logout(ctx context.Context, claims *token.Claims, tokenID string) error {
	if claims == nil || claims.Subject == "" {
		return apperrors.ErrTokenMalformed
	}
	if err := s.revoker.RevokeOne(ctx, claims.Subject, tokenID); err != nil {
		return errors.Wrap(err, "[Service.Logout] RevokeOne")
	}
	s.deps.Metrics.RevokedTokensTotal.Inc()
	return nil
}

// LogoutAll revokes every device session for the user. Also invoked by the
// password-change flow. Idempotent.
func (s *Service) LogoutAll(ctx context.Context, userID string) (int, error) {
	count, err := s.revoker.RevokeAll(ctx, userID)
	if err != nil {
		return count, errors.Wrap(err, "[Service.LogoutAll] RevokeAll")
	}
	s.deps.Metrics.RevokedTokensTotal.Add(float64(count))
	return count, nil
}

// VerifyAccess verifies an access token and returns its claims; used by the
// HTTP bearer middleware.
func (s *Service) VerifyAccess(raw string) (*token.Claims, error) {
	claims, err := s.deps.Codec.Verify(raw, token.ClassAccess)
	if err != nil {
		if errors.Is(err, apperrors.ErrWrongTokenClass) {
			s.deps.Metrics.WrongClassTotal.Inc()
		}
		return nil, err
	}
	return claims, nil
}

// Authorize answers whether the user holds the permission, after role
// inheritance and per-user overrides.
func (s *Service) Authorize(user *users.User, permission rbac.Permission) bool {
	return s.resolver.HasPermission(user, permission)
}

func (s *Service) AuthorizeAny(user *users.User, permissions ...rbac.Permission) bool {
	return s.resolver.HasAnyPermission(user, permissions...)
}

func (s *Service) AuthorizeAll(user *users.User, permissions ...rbac.Permission) bool {
	return s.resolver.HasAllPermissions(user, permissions...)
}

// Resolver exposes the permission resolver for middleware composition.
func (s *Service) Resolver() *rbac.Resolver {
	return s.resolver
}

// ChangePassword verifies the old password, validates and stores the new
// one, then revokes every outstanding session for the user.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.deps.Users.GetByID(userID)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrUserNotFound, "[Service.ChangePassword] GetByID: %v", err)
	}
	if !users.CheckPasswordHash(oldPassword, user.PasswordHash) {
		return apperrors.ErrInvalidCredentials
	}
	if err := users.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := users.HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, "[Service.ChangePassword] HashPassword")
	}
	user.PasswordHash = hash
	if err := s.deps.Users.Upsert(user); err != nil {
		return errors.Wrap(err, "[Service.ChangePassword] Upsert")
	}

	if _, err := s.LogoutAll(ctx, userID); err != nil {
		return errors.Wrap(err, "[Service.ChangePassword] LogoutAll")
	}

	// Best effort; delivery failure must not fail the password change.
	_ = s.deps.Notifier.Notify(ctx, user.Email, "Password changed",
		"Your password was changed. All devices have been signed out.")
	return nil
}
