package service

import (
	"context"
	"strings"

	"github.com/forgecomply/forgecomply360/internal/auth"
	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/events"
	"github.com/forgecomply/forgecomply360/internal/repository"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// UserService manages accounts within an organization.
type UserService struct {
	users      repository.UserRepository
	audit      *AuditService
	dispatcher events.Dispatcher
	clock      Clock
	bcryptCost int
}

// UserDependencies bundles collaborators.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Audit      *AuditService
	Dispatcher events.Dispatcher
	Clock      Clock
	BcryptCost int
}

// UserCreateInput describes a new account.
type UserCreateInput struct {
	Email    string
	Name     string
	Password string
	Role     domain.Role
}

// UserUpdateInput carries optional changes.
type UserUpdateInput struct {
	Name   *string
	Role   *domain.Role
	Status *domain.UserStatus
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		audit:      deps.Audit,
		dispatcher: deps.Dispatcher,
		clock:      clockOr(deps.Clock),
		bcryptCost: deps.BcryptCost,
	}
}

// List returns users in the actor's org.
func (s *UserService) List(ctx context.Context, actor domain.Actor, filter repository.UserFilter) ([]domain.User, int, error) {
	users, total, err := s.users.List(ctx, actor.OrgID, filter)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return users, total, nil
}

// Get returns one user of the actor's org.
func (s *UserService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "user", id)
	}
	if user.OrgID != actor.OrgID {
		return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	return user, nil
}

// Create adds an account. Only an owner may create another owner.
func (s *UserService) Create(ctx context.Context, actor domain.Actor, input UserCreateInput) (*domain.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" || strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("email and name are required", nil)
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}
	if err := s.checkGrant(actor, input.Role); err != nil {
		return nil, err
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
	user := &domain.User{
		ID:           newID(),
		OrgID:        actor.OrgID,
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		Role:         input.Role,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeErr(err, "user")
	}
	s.audit.Record(ctx, actor, "create", "user", user.ID, map[string]any{"email": user.Email, "role": user.Role})
	publish(ctx, s.dispatcher, events.Event{
		Type:         events.EventUserCreated,
		OrgID:        user.OrgID,
		ResourceType: "user",
		ResourceID:   user.ID,
		ActorID:      strPtr(actor.UserID),
		Payload:      events.UserCreatedPayload{Email: user.Email, Role: user.Role},
	})
	return user, nil
}

// Update changes name, role or status. Self role changes and self disable
// are refused, as is removing the last active owner.
func (s *UserService) Update(ctx context.Context, actor domain.Actor, id string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	details := map[string]any{}
	wasActiveOwner := user.Role == domain.RoleOwner && user.Status == domain.UserStatusActive

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", nil)
		}
		user.Name = name
		details["name"] = name
	}

	if input.Role != nil && *input.Role != user.Role {
		role := *input.Role
		if !role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
		}
		if user.ID == actor.UserID {
			return nil, apperrors.NewForbidden("cannot change your own role")
		}
		if err := s.checkGrant(actor, role); err != nil {
			return nil, err
		}
		if user.Role == domain.RoleOwner && actor.Role != domain.RoleOwner {
			return nil, apperrors.NewForbidden("only an owner can change an owner's role")
		}
		details["role"] = map[string]any{"from": user.Role, "to": role}
		user.Role = role
	}

	if input.Status != nil && *input.Status != user.Status {
		status := *input.Status
		if !status.Valid() {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
		}
		if user.ID == actor.UserID && status == domain.UserStatusDisabled {
			return nil, apperrors.NewForbidden("cannot disable your own account")
		}
		if status == domain.UserStatusDisabled && user.Role == domain.RoleOwner && actor.Role != domain.RoleOwner {
			return nil, apperrors.NewForbidden("only an owner can disable an owner")
		}
		details["status"] = map[string]any{"from": user.Status, "to": status}
		user.Status = status
	}

	stillActiveOwner := user.Role == domain.RoleOwner && user.Status == domain.UserStatusActive
	if wasActiveOwner && !stillActiveOwner {
		owners, err := s.users.CountActiveOwners(ctx, actor.OrgID)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if owners <= 1 {
			return nil, apperrors.NewConflict("cannot remove the last active owner", nil)
		}
	}

	user.UpdatedAt = s.clock()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, storeErr(err, "user")
	}
	s.audit.Record(ctx, actor, "update", "user", user.ID, details)
	return user, nil
}

func (s *UserService) checkGrant(actor domain.Actor, role domain.Role) error {
	if role == domain.RoleOwner && actor.Role != domain.RoleOwner {
		return apperrors.NewForbidden("only an owner can grant the owner role")
	}
	if !actor.Role.AtLeast(role) {
		return apperrors.NewForbidden("cannot grant a role above your own")
	}
	return nil
}
