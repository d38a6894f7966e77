package repository

import (
	"context"
	"errors"
	"fmt"

	"librestock/internal/model"
	"librestock/internal/rbac"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResolvedGrantRow is one row of the user→roles→permissions join. Resource
// and Permission are raw strings here; the service filters them against the
// catalog before use.
type ResolvedGrantRow struct {
	RoleName   string `gorm:"column:role_name"`
	Resource   string `gorm:"column:resource"`
	Permission string `gorm:"column:permission"`
}

type RoleRepository interface {
	ListAll(ctx context.Context) ([]model.Role, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	// FindByName matches case-insensitively; role names are unique under
	// case folding.
	FindByName(ctx context.Context, name string) (*model.Role, error)
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	ReplacePermissions(ctx context.Context, roleID uuid.UUID, grants []rbac.Grant) error
	ResolveForUser(ctx context.Context, userID uuid.UUID) ([]ResolvedGrantRow, error)
	RoleAssignmentExists(ctx context.Context, roleID uuid.UUID) (bool, error)
	AssignRole(ctx context.Context, userID, roleID uuid.UUID) error
	ReplaceUserRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error
	ListUserRoleNames(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error)
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) ListAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").Order("name asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").First(&role, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").Where("LOWER(name) = LOWER(?)", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Create(role).Error
}

func (r *roleRepository) Update(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Save(role).Error
}

// Delete removes the role together with its permission rows and user
// assignments, in that order so a failure never strands orphans behind a
// missing role.
func (r *roleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("role_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
		return fmt.Errorf("failed to delete role assignments: %w", err)
	}
	if err := db.Where("role_id = ?", id).Delete(&model.RolePermission{}).Error; err != nil {
		return fmt.Errorf("failed to delete role permissions: %w", err)
	}
	return db.Where("id = ?", id).Delete(&model.Role{}).Error
}

// ReplacePermissions swaps the role's entire permission set: delete all rows,
// then insert the new set. Callers run this inside a transaction.
func (r *roleRepository) ReplacePermissions(ctx context.Context, roleID uuid.UUID, grants []rbac.Grant) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("role_id = ?", roleID).Delete(&model.RolePermission{}).Error; err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}
	if len(grants) == 0 {
		return nil
	}

	perms := make([]model.RolePermission, 0, len(grants))
	for _, g := range grants {
		perms = append(perms, model.RolePermission{
			RoleID:     roleID,
			Resource:   g.Resource,
			Permission: g.Permission,
		})
	}
	return db.Create(&perms).Error
}

func (r *roleRepository) ResolveForUser(ctx context.Context, userID uuid.UUID) ([]ResolvedGrantRow, error) {
	var rows []ResolvedGrantRow
	err := GetDB(ctx, r.db).Raw(`
		SELECT r.name AS role_name, rp.resource, rp.permission
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		WHERE ur.user_id = ?`, userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *roleRepository) RoleAssignmentExists(ctx context.Context, roleID uuid.UUID) (bool, error) {
	var assignment model.UserRole
	err := GetDB(ctx, r.db).Where("role_id = ?", roleID).First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AssignRole binds the user to the role, tolerating a concurrent duplicate as
// a no-op so retries are idempotent.
func (r *roleRepository) AssignRole(ctx context.Context, userID, roleID uuid.UUID) error {
	assignment := model.UserRole{UserID: userID, RoleID: roleID}
	return GetDB(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "role_id"}},
			DoNothing: true,
		}).
		Create(&assignment).Error
}

// ReplaceUserRoles swaps the user's entire assignment set. Callers run this
// inside a transaction.
func (r *roleRepository) ReplaceUserRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("user_id = ?", userID).Delete(&model.UserRole{}).Error; err != nil {
		return fmt.Errorf("failed to clear user roles: %w", err)
	}
	if len(roleIDs) == 0 {
		return nil
	}

	assignments := make([]model.UserRole, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		assignments = append(assignments, model.UserRole{UserID: userID, RoleID: roleID})
	}
	return db.Create(&assignments).Error
}

func (r *roleRepository) ListUserRoleNames(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	if len(userIDs) == 0 {
		return map[uuid.UUID][]string{}, nil
	}

	var rows []struct {
		UserID   uuid.UUID `gorm:"column:user_id"`
		RoleName string    `gorm:"column:role_name"`
	}
	err := GetDB(ctx, r.db).Raw(`
		SELECT ur.user_id, r.name AS role_name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id IN ?
		ORDER BY r.name asc`, userIDs).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID][]string, len(rows))
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row.RoleName)
	}
	return out, nil
}
