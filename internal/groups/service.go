package groups

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dawa-pos/dawa/internal/shared"
)

// Service handles group business logic.
type Service struct {
	repo    RepositoryPort
	logger  *slog.Logger
	catalog map[string]struct{}
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	catalog := make(map[string]struct{})
	for _, perm := range shared.AllScopes() {
		catalog[perm] = struct{}{}
	}
	return &Service{repo: repo, logger: logger, catalog: catalog}
}

func (s *Service) List(ctx context.Context, p shared.Principal, search string) ([]Group, error) {
	if err := p.Require(shared.PermGroupsView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, strings.TrimSpace(search))
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (*Group, error) {
	if err := p.Require(shared.PermGroupsView); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, p shared.Principal, req CreateGroupRequest) (*Group, error) {
	if err := p.Require(shared.PermGroupsAdd); err != nil {
		return nil, err
	}
	name := shared.CleanName(req.Name)
	if name == "" {
		return nil, shared.NewValidationError("name", "this field may not be blank")
	}
	perms, err := s.checkPermissions(req.Permissions)
	if err != nil {
		return nil, err
	}

	var created *Group
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo RepositoryPort) error {
		if err := ensureNameFree(ctx, repo, name, 0); err != nil {
			return err
		}
		id, err := repo.Create(ctx, name)
		if err != nil {
			return err
		}
		if err := repo.SetPermissions(ctx, id, perms); err != nil {
			return err
		}
		created = &Group{ID: id, Name: name, Permissions: perms}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	s.logger.Info("group created", slog.Int64("group_id", created.ID), slog.Int("permissions", len(perms)))
	return created, nil
}

// Update renames the group and/or replaces its permission set.
func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, req UpdateGroupRequest) (*Group, error) {
	if err := p.Require(shared.PermGroupsChange); err != nil {
		return nil, err
	}
	var perms []string
	if req.Permissions != nil {
		var err error
		if perms, err = s.checkPermissions(*req.Permissions); err != nil {
			return nil, err
		}
	}

	var updated *Group
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo RepositoryPort) error {
		group, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			name := shared.CleanName(*req.Name)
			if name == "" {
				return shared.NewValidationError("name", "this field may not be blank")
			}
			if err := ensureNameFree(ctx, repo, name, id); err != nil {
				return err
			}
			if err := repo.Rename(ctx, id, name); err != nil {
				return err
			}
			group.Name = name
		}
		if req.Permissions != nil {
			if err := repo.SetPermissions(ctx, id, perms); err != nil {
				return err
			}
			group.Permissions = perms
		}
		updated = group
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update group: %w", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if err := p.Require(shared.PermGroupsDelete); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, repo RepositoryPort) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
}

// checkPermissions normalizes perms and rejects names outside the catalog.
func (s *Service) checkPermissions(perms []string) ([]string, error) {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, perm := range perms {
		perm = strings.ToLower(strings.TrimSpace(perm))
		if _, ok := s.catalog[perm]; !ok {
			return nil, shared.NewValidationError("permissions", fmt.Sprintf("unknown permission %q", perm))
		}
		if _, dup := seen[perm]; dup {
			continue
		}
		seen[perm] = struct{}{}
		out = append(out, perm)
	}
	sort.Strings(out)
	return out, nil
}

func ensureNameFree(ctx context.Context, repo RepositoryPort, name string, selfID int64) error {
	taken, err := repo.NameTaken(ctx, name, selfID)
	if err != nil {
		return fmt.Errorf("check group name: %w", err)
	}
	if taken {
		return shared.NewValidationError("name", "group with this name already exists")
	}
	return nil
}
