package service

import (
	"context"
	"errors"
	"fmt"

	"librestock/internal/rbac"
	"librestock/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FirstAdminLockKey serializes first-admin promotion across the whole fleet.
// Every writer that could promote an administrator must take this lock.
const FirstAdminLockKey int64 = 1_640_000_001

// BootstrapService promotes the very first created user to the built-in
// Admin role. The auth service invokes HandleUserCreated synchronously after
// committing each new user.
type BootstrapService interface {
	HandleUserCreated(ctx context.Context, userID uuid.UUID) error
}

type bootstrapService struct {
	repo repository.RoleRepository
	tx   repository.TransactionManager
	log  *zap.Logger
}

func NewBootstrapService(repo repository.RoleRepository, tx repository.TransactionManager, log *zap.Logger) BootstrapService {
	return &bootstrapService{repo: repo, tx: tx, log: log}
}

// HandleUserCreated runs the promotion check under an advisory lock so that
// concurrent registrations, across any number of instances, serialize here.
// The lock, the "already has an Admin" check, and the write share one
// transaction; at most one user is ever promoted through this path. Any
// failure rolls the whole transaction back and propagates to the caller.
func (s *bootstrapService) HandleUserCreated(ctx context.Context, userID uuid.UUID) error {
	return s.tx.RunInTxWithLock(ctx, FirstAdminLockKey, func(txCtx context.Context) error {
		admin, err := s.repo.FindByName(txCtx, rbac.AdminRoleName)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The very first registration can beat seeding; nothing to
				// promote to yet, and that is not an error.
				return nil
			}
			return fmt.Errorf("failed to look up admin role: %w", err)
		}

		taken, err := s.repo.RoleAssignmentExists(txCtx, admin.ID)
		if err != nil {
			return fmt.Errorf("failed to check existing admin assignment: %w", err)
		}
		if taken {
			return nil
		}

		if err := s.repo.AssignRole(txCtx, userID, admin.ID); err != nil {
			return fmt.Errorf("failed to promote first admin: %w", err)
		}

		s.log.Info("promoted first user to admin", zap.String("user_id", userID.String()))
		return nil
	})
}
