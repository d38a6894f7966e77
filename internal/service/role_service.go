package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
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

type PermissionInput struct {
	Resource   string `json:"resource" binding:"required"`
	Permission string `json:"permission" binding:"required"`
}

type CreateRoleRequest struct {
	Name        string            `json:"name" binding:"required,max=100"`
	Description string            `json:"description" binding:"max=500"`
	Permissions []PermissionInput `json:"permissions"`
}

// UpdateRoleRequest uses pointers so omitted fields stay untouched. A
// supplied Permissions slice replaces the whole set, it is never merged.
type UpdateRoleRequest struct {
	Name        *string            `json:"name" binding:"omitempty,max=100"`
	Description *string            `json:"description" binding:"omitempty,max=500"`
	Permissions *[]PermissionInput `json:"permissions"`
}

type RoleResponse struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	IsSystem    bool         `json:"is_system"`
	Permissions []rbac.Grant `json:"permissions"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
}

// ResolvedPermissions is the union of everything the user's roles grant.
// Resources with no grant are absent from the map.
type ResolvedPermissions struct {
	RoleNames   []string                            `json:"role_names"`
	Permissions map[rbac.Resource][]rbac.Permission `json:"permissions"`
}

// Has reports whether the exact (resource, permission) pair was granted.
func (p *ResolvedPermissions) Has(resource rbac.Resource, permission rbac.Permission) bool {
	for _, granted := range p.Permissions[resource] {
		if granted == permission {
			return true
		}
	}
	return false
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, id string) error
	ResolvePermissions(ctx context.Context, userID uuid.UUID) (*ResolvedPermissions, error)
	Seed(ctx context.Context) error
}

type roleService struct {
	repo repository.RoleRepository
	tx   repository.TransactionManager
	log  *zap.Logger
}

func NewRoleService(repo repository.RoleRepository, tx repository.TransactionManager, log *zap.Logger) RoleService {
	return &roleService{repo: repo, tx: tx, log: log}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid role id %q", id)
	}

	role, err := s.repo.FindByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("role with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch role: %w", err)
	}

	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error) {
	grants, err := normalizeGrants(req.Permissions)
	if err != nil {
		return nil, err
	}

	// Name uniqueness is case-insensitive everywhere, so a custom "admin"
	// can never shadow the built-in Admin lookup.
	if err := s.checkNameAvailable(ctx, req.Name, uuid.Nil); err != nil {
		return nil, err
	}

	role := model.Role{
		Name:        req.Name,
		Description: req.Description,
		IsSystem:    false,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, &role); err != nil {
			return fmt.Errorf("failed to create role: %w", err)
		}
		if err := s.repo.ReplacePermissions(txCtx, role.ID, grants); err != nil {
			return fmt.Errorf("failed to assign permissions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("role created", zap.String("role_id", role.ID.String()), zap.String("name", role.Name))
	return s.GetRole(ctx, role.ID.String())
}

func (s *roleService) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid role id %q", id)
	}

	role, err := s.repo.FindByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("role with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch role: %w", err)
	}

	if req.Name != nil && *req.Name != role.Name {
		if err := s.checkNameAvailable(ctx, *req.Name, role.ID); err != nil {
			return nil, err
		}
		role.Name = *req.Name
	}
	if req.Description != nil {
		role.Description = *req.Description
	}

	var grants []rbac.Grant
	if req.Permissions != nil {
		grants, err = normalizeGrants(*req.Permissions)
		if err != nil {
			return nil, err
		}
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		// Save only scalar columns; the preloaded permission rows are
		// replaced explicitly below, not upserted by association.
		if err := s.repo.Update(txCtx, &model.Role{
			ID:          role.ID,
			Name:        role.Name,
			Description: role.Description,
			IsSystem:    role.IsSystem,
			CreatedAt:   role.CreatedAt,
			UpdatedAt:   time.Now(),
		}); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		if req.Permissions != nil {
			if err := s.repo.ReplacePermissions(txCtx, role.ID, grants); err != nil {
				return fmt.Errorf("failed to replace permissions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetRole(ctx, id)
}

func (s *roleService) DeleteRole(ctx context.Context, id string) error {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid role id %q", id)
	}

	role, err := s.repo.FindByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("role with id %s not found", id)
		}
		return fmt.Errorf("failed to fetch role: %w", err)
	}

	// System roles are re-seeded at startup and referenced by first-admin
	// bootstrap; deleting one would leave both broken.
	if role.IsSystem {
		return apperror.Validation("system roles cannot be deleted")
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, roleID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	s.log.Info("role deleted", zap.String("role_id", id), zap.String("name", role.Name))
	return nil
}

func (s *roleService) ResolvePermissions(ctx context.Context, userID uuid.UUID) (*ResolvedPermissions, error) {
	rows, err := s.repo.ResolveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve permissions: %w", err)
	}

	nameSet := make(map[string]struct{})
	permSet := make(map[rbac.Resource]map[rbac.Permission]struct{})
	for _, row := range rows {
		grant := rbac.Grant{Resource: rbac.Resource(row.Resource), Permission: rbac.Permission(row.Permission)}
		// Rows outside the catalog are stale or partially migrated data;
		// drop them instead of failing resolution.
		if !grant.Valid() {
			continue
		}
		nameSet[row.RoleName] = struct{}{}
		if permSet[grant.Resource] == nil {
			permSet[grant.Resource] = make(map[rbac.Permission]struct{})
		}
		permSet[grant.Resource][grant.Permission] = struct{}{}
	}

	resolved := &ResolvedPermissions{
		RoleNames:   make([]string, 0, len(nameSet)),
		Permissions: make(map[rbac.Resource][]rbac.Permission, len(permSet)),
	}
	for name := range nameSet {
		resolved.RoleNames = append(resolved.RoleNames, name)
	}
	sort.Strings(resolved.RoleNames)
	for resource, kinds := range permSet {
		granted := make([]rbac.Permission, 0, len(kinds))
		for _, p := range rbac.Permissions() {
			if _, ok := kinds[p]; ok {
				granted = append(granted, p)
			}
		}
		resolved.Permissions[resource] = granted
	}
	return resolved, nil
}

// Seed creates each built-in role that is not already present by name.
// Existing roles are left alone even if their permission set has drifted, so
// administrator edits survive restarts.
func (s *roleService) Seed(ctx context.Context) error {
	for _, def := range rbac.SeedRoles() {
		_, err := s.repo.FindByName(ctx, def.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up role %q: %w", def.Name, err)
		}

		role := model.Role{
			Name:        def.Name,
			Description: def.Description,
			IsSystem:    true,
		}
		err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.repo.Create(txCtx, &role); err != nil {
				return fmt.Errorf("failed to seed role %q: %w", def.Name, err)
			}
			if err := s.repo.ReplacePermissions(txCtx, role.ID, def.Grants); err != nil {
				return fmt.Errorf("failed to seed permissions for role %q: %w", def.Name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.log.Info("seeded system role", zap.String("name", def.Name), zap.Int("permissions", len(def.Grants)))
	}
	return nil
}

// --- Helpers ---

func (s *roleService) checkNameAvailable(ctx context.Context, name string, selfID uuid.UUID) error {
	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check role name: %w", err)
	}
	if existing.ID != selfID {
		return apperror.Conflict("role with name %q already exists", name)
	}
	return nil
}

// normalizeGrants validates permission entries against the catalog and
// collapses duplicates, preserving first-seen order.
func normalizeGrants(inputs []PermissionInput) ([]rbac.Grant, error) {
	grants := make([]rbac.Grant, 0, len(inputs))
	seen := make(map[rbac.Grant]struct{}, len(inputs))
	for _, in := range inputs {
		grant := rbac.Grant{Resource: rbac.Resource(in.Resource), Permission: rbac.Permission(in.Permission)}
		if !grant.Valid() {
			return nil, apperror.Validation("unknown permission entry %s:%s", in.Resource, in.Permission)
		}
		if _, dup := seen[grant]; dup {
			continue
		}
		seen[grant] = struct{}{}
		grants = append(grants, grant)
	}
	return grants, nil
}

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]rbac.Grant, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		grant := rbac.Grant{Resource: p.Resource, Permission: p.Permission}
		if !grant.Valid() {
			continue
		}
		perms = append(perms, grant)
	}

	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
}
