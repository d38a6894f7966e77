package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"librestock/internal/model"
	"librestock/internal/rbac"
	"librestock/internal/repository"
	"librestock/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type UserResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	EmailVerified bool     `json:"email_verified"`
	Roles         []string `json:"roles"`
	CreatedAt     string   `json:"created_at"`
}

type CurrentUserResponse struct {
	ID          string                              `json:"id"`
	Name        string                              `json:"name"`
	Email       string                              `json:"email"`
	Image       string                              `json:"image,omitempty"`
	Roles       []string                            `json:"roles"`
	Permissions map[rbac.Resource][]rbac.Permission `json:"permissions"`
}

type UpdateUserRolesRequest struct {
	Roles []string `json:"roles" binding:"required"` // role IDs; full replacement
}

// --- Interface ---

type UserService interface {
	ListUsers(ctx context.Context, search string, offset, limit int) ([]UserResponse, int64, error)
	GetUser(ctx context.Context, id string) (*UserResponse, error)
	// UpdateUserRoles replaces the user's entire assignment set.
	UpdateUserRoles(ctx context.Context, id string, req UpdateUserRolesRequest) (*UserResponse, error)
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*CurrentUserResponse, error)
}

type userService struct {
	users       repository.UserRepository
	roles       repository.RoleRepository
	roleService RoleService
	tx          repository.TransactionManager
	log         *zap.Logger
}

func NewUserService(users repository.UserRepository, roles repository.RoleRepository, roleService RoleService, tx repository.TransactionManager, log *zap.Logger) UserService {
	return &userService{users: users, roles: roles, roleService: roleService, tx: tx, log: log}
}

// --- Implementation ---

func (s *userService) ListUsers(ctx context.Context, search string, offset, limit int) ([]UserResponse, int64, error) {
	users, total, err := s.users.List(ctx, search, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	roleNames, err := s.roles.ListUserRoleNames(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch user roles: %w", err)
	}

	res := make([]UserResponse, 0, len(users))
	for _, u := range users {
		res = append(res, toUserResponse(u, roleNames[u.ID]))
	}
	return res, total, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid user id %q", id)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	roleNames, err := s.roles.ListUserRoleNames(ctx, []uuid.UUID{user.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user roles: %w", err)
	}

	resp := toUserResponse(*user, roleNames[user.ID])
	return &resp, nil
}

func (s *userService) UpdateUserRoles(ctx context.Context, id string, req UpdateUserRolesRequest) (*UserResponse, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid user id %q", id)
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	roleIDs := make([]uuid.UUID, 0, len(req.Roles))
	for _, raw := range req.Roles {
		roleID, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperror.Validation("invalid role id %q", raw)
		}
		if _, err := s.roles.FindByID(ctx, roleID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.NotFound("role with id %s not found", raw)
			}
			return nil, fmt.Errorf("failed to fetch role: %w", err)
		}
		roleIDs = append(roleIDs, roleID)
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.roles.ReplaceUserRoles(txCtx, userID, roleIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace user roles: %w", err)
	}

	s.log.Info("user roles updated", zap.String("user_id", id), zap.Int("roles", len(roleIDs)))
	return s.GetUser(ctx, id)
}

func (s *userService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*CurrentUserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Forbidden("insufficient permissions")
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	resolved, err := s.roleService.ResolvePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &CurrentUserResponse{
		ID:          user.ID.String(),
		Name:        user.Name,
		Email:       user.Email,
		Image:       user.Image,
		Roles:       resolved.RoleNames,
		Permissions: resolved.Permissions,
	}, nil
}

// --- Helpers ---

func toUserResponse(u model.User, roles []string) UserResponse {
	if roles == nil {
		roles = []string{}
	}
	return UserResponse{
		ID:            u.ID.String(),
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Roles:         roles,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
	}
}
