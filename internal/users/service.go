package users

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dawa-pos/dawa/internal/shared"
)

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	logger   *slog.Logger
	hashCost int
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, hashCost: bcrypt.DefaultCost}
}

func (s *Service) List(ctx context.Context, p shared.Principal, req ListUsersRequest) ([]User, error) {
	if err := p.Require(shared.PermUsersView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, req)
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (*User, error) {
	if err := p.Require(shared.PermUsersView); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Create stores a new user with a bcrypt hashed password. Only superusers may
// create other superusers.
func (s *Service) Create(ctx context.Context, p shared.Principal, req CreateUserRequest) (*User, error) {
	if err := p.Require(shared.PermUsersAdd); err != nil {
		return nil, err
	}
	if req.IsSuperuser && !p.Superuser {
		return nil, fmt.Errorf("%w: only superusers grant superuser", shared.ErrForbidden)
	}
	user := User{
		Email:       normalizeEmail(req.Email),
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		IsActive:    req.IsActive == nil || *req.IsActive,
		IsSuperuser: req.IsSuperuser,
		Groups:      uniqueIDs(req.Groups),
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	var created User
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo RepositoryPort) error {
		if err := ensureEmailFree(ctx, repo, user.Email, 0); err != nil {
			return err
		}
		if err := ensureGroups(ctx, repo, user.Groups); err != nil {
			return err
		}
		var err error
		created, err = repo.Create(ctx, user, hash)
		if err != nil {
			return err
		}
		created.Groups = user.Groups
		return repo.SetGroups(ctx, created.ID, user.Groups)
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user created", slog.Int64("user_id", created.ID), slog.Int64("by", p.UserID))
	return &created, nil
}

// Update applies the non-nil fields of req.
func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, req UpdateUserRequest) (*User, error) {
	if err := p.Require(shared.PermUsersChange); err != nil {
		return nil, err
	}
	if req.IsSuperuser != nil && !p.Superuser {
		return nil, fmt.Errorf("%w: only superusers grant superuser", shared.ErrForbidden)
	}
	if req.IsActive != nil && !*req.IsActive && id == p.UserID {
		return nil, shared.NewValidationError("is_active", "you cannot deactivate your own account")
	}
	var hash string
	if req.Password != nil {
		var err error
		if hash, err = s.hash(*req.Password); err != nil {
			return nil, err
		}
	}

	var updated *User
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo RepositoryPort) error {
		user, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if req.Email != nil {
			user.Email = normalizeEmail(*req.Email)
			if err := ensureEmailFree(ctx, repo, user.Email, id); err != nil {
				return err
			}
		}
		if req.FirstName != nil {
			user.FirstName = strings.TrimSpace(*req.FirstName)
		}
		if req.LastName != nil {
			user.LastName = strings.TrimSpace(*req.LastName)
		}
		if req.IsActive != nil {
			user.IsActive = *req.IsActive
		}
		if req.IsSuperuser != nil {
			user.IsSuperuser = *req.IsSuperuser
		}
		if err := repo.Update(ctx, *user); err != nil {
			return err
		}
		if hash != "" {
			if err := repo.SetPassword(ctx, id, hash); err != nil {
				return err
			}
		}
		if req.Groups != nil {
			groups := uniqueIDs(*req.Groups)
			if err := ensureGroups(ctx, repo, groups); err != nil {
				return err
			}
			if err := repo.SetGroups(ctx, id, groups); err != nil {
				return err
			}
			user.Groups = groups
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if err := p.Require(shared.PermUsersDelete); err != nil {
		return err
	}
	if id == p.UserID {
		return shared.NewValidationError("id", "you cannot delete your own account")
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, repo RepositoryPort) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func ensureEmailFree(ctx context.Context, repo RepositoryPort, email string, selfID int64) error {
	taken, err := repo.EmailTaken(ctx, email, selfID)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return shared.NewValidationError("email", "user with this email already exists")
	}
	return nil
}

func ensureGroups(ctx context.Context, repo RepositoryPort, groups []int64) error {
	missing, err := repo.MissingGroups(ctx, groups)
	if err != nil {
		return fmt.Errorf("check groups: %w", err)
	}
	if len(missing) > 0 {
		return shared.NewValidationError("groups", fmt.Sprintf("invalid pk %d - object does not exist", missing[0]))
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
