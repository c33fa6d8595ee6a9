package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/forgecomply/forgecomply360/internal/auth"
	"github.com/forgecomply/forgecomply360/internal/config"
	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/events"
	"github.com/forgecomply/forgecomply360/internal/repository"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// TokenRevoker records logged-out token ids.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// LoginRecorder counts login outcomes.
type LoginRecorder interface {
	RecordLogin(outcome string)
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	orgs       repository.OrganizationRepository
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	revoker    TokenRevoker
	audit      *AuditService
	dispatcher events.Dispatcher
	metrics    LoginRecorder
	logger     *zap.Logger
	clock      Clock

	bcryptCost      int
	maxFailedLogins int
	lockout         time.Duration
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	OrgRepo    repository.OrganizationRepository
	UserRepo   repository.UserRepository
	Tokens     *auth.TokenManager
	Revoker    TokenRevoker
	Audit      *AuditService
	Dispatcher events.Dispatcher
	Metrics    LoginRecorder
	Logger     *zap.Logger
	Clock      Clock
}

// RegisterInput creates an organization with its first owner.
type RegisterInput struct {
	OrganizationName string
	Name             string
	Email            string
	Password         string
}

// AuthResult is a signed-in user with its access token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes)
	}
	maxFailed := cfg.MaxFailedLogins
	if maxFailed <= 0 {
		maxFailed = 5
	}
	lockout := time.Duration(cfg.LockoutMinutes) * time.Minute
	if lockout <= 0 {
		lockout = 15 * time.Minute
	}
	return &AuthService{
		orgs:            deps.OrgRepo,
		users:           deps.UserRepo,
		tokenMgr:        tokens,
		revoker:         deps.Revoker,
		audit:           deps.Audit,
		dispatcher:      deps.Dispatcher,
		metrics:         deps.Metrics,
		logger:          logger,
		clock:           clockOr(deps.Clock),
		bcryptCost:      cfg.BcryptCost,
		maxFailedLogins: maxFailed,
		lockout:         lockout,
	}
}

// Register creates a new organization and its owner account.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	user, err := s.CreateOwner(ctx, input)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// CreateOwner creates an organization and owner without issuing a token.
// The CLI bootstrap path uses it directly.
func (s *AuthService) CreateOwner(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := normalizeEmail(input.Email)
	if strings.TrimSpace(input.OrganizationName) == "" || strings.TrimSpace(input.Name) == "" || email == "" {
		return nil, apperrors.NewValidationError("organization_name, name and email are required", nil)
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !apperrors.IsNotFound(err) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.clock()
	org := &domain.Organization{
		ID:        newID(),
		Name:      strings.TrimSpace(input.OrganizationName),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, storeErr(err, "organization")
	}

	user := &domain.User{
		ID:           newID(),
		OrgID:        org.ID,
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		Role:         domain.RoleOwner,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeErr(err, "user")
	}

	actor := domain.Actor{UserID: user.ID, OrgID: org.ID, Role: user.Role}
	s.audit.Record(ctx, actor, "register", "organization", org.ID, map[string]any{"name": org.Name})
	publish(ctx, s.dispatcher, events.Event{
		Type:         events.EventUserCreated,
		OrgID:        org.ID,
		ResourceType: "user",
		ResourceID:   user.ID,
		ActorID:      strPtr(user.ID),
		Payload:      events.UserCreatedPayload{Email: user.Email, Role: user.Role},
	})
	return user, nil
}

// Login authenticates a user by email and password. Consecutive failures
// lock the account; a successful login resets the counter.
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.recordLogin("unknown_user")
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}

	now := s.clock()
	if user.IsLocked(now) {
		s.recordLogin("locked")
		return nil, apperrors.NewLocked("account temporarily locked", map[string]any{"locked_until": user.LockedUntil})
	}

	actor := domain.Actor{UserID: user.ID, OrgID: user.OrgID, Role: user.Role, IPAddress: ip, UserAgent: userAgent}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		user.FailedLogins++
		details := map[string]any{"failed_logins": user.FailedLogins}
		locked := user.FailedLogins >= s.maxFailedLogins
		if locked {
			user.LockedUntil = timePtr(now.Add(s.lockout))
			user.FailedLogins = 0
			details["locked_until"] = user.LockedUntil
		}
		user.UpdatedAt = now
		if err := s.users.Update(ctx, user); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		s.audit.Record(ctx, actor, "login_failed", "user", user.ID, details)
		if locked {
			s.recordLogin("locked")
			s.logger.Warn("account locked after failed logins", zap.String("user_id", user.ID))
			return nil, apperrors.NewLocked("account temporarily locked", map[string]any{"locked_until": user.LockedUntil})
		}
		s.recordLogin("bad_password")
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	if user.Status != domain.UserStatusActive {
		s.recordLogin("disabled")
		return nil, apperrors.NewForbidden("account disabled")
	}

	user.FailedLogins = 0
	user.LockedUntil = nil
	user.LastLoginAt = timePtr(now)
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.audit.Record(ctx, actor, "login", "user", user.ID, nil)
	s.recordLogin("success")
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// Logout revokes the presented token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, actor domain.Actor, claims *auth.Claims) error {
	if claims == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if s.revoker != nil {
		if err := s.revoker.RevokeToken(ctx, claims.ID, claims.Remaining(s.clock())); err != nil {
			return apperrors.NewInternalError(err)
		}
	}
	s.audit.Record(ctx, actor, "logout", "user", actor.UserID, nil)
	return nil
}

// Me reloads the current user.
func (s *AuthService) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, lookupErr(err, "user", actor.UserID)
	}
	return user, nil
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor domain.Actor, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return lookupErr(err, "user", actor.UserID)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return apperrors.NewValidationError("new password must differ from current password", nil)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.clock()
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.audit.Record(ctx, actor, "change_password", "user", user.ID, nil)
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) recordLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(outcome)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// publish sends event when a dispatcher is configured.
func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	_ = dispatcher.Publish(ctx, event)
}
