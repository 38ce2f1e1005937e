package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eretailgoals/books-backend/internal/shared"
)

const minPasswordLength = 8

// RepositoryPort abstracts user persistence.
type RepositoryPort interface {
	Create(ctx context.Context, u User) (User, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	Update(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ListFilters) ([]User, int, error)
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
	ExistsByUsername(ctx context.Context, username string, excludeID int64) (bool, error)
	SetActive(ctx context.Context, id int64, active bool) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	RecordLogin(ctx context.Context, id int64, at time.Time) error
	CountActivity(ctx context.Context, id int64) (int, error)
}

// Service carries user business rules.
type Service struct {
	repo   RepositoryPort
	hasher Hasher
}

func NewService(repo RepositoryPort, hasher Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// Create registers a new user. Email and username must be unique across all
// users, and the password must meet the minimum length.
func (s *Service) Create(ctx context.Context, input CreateUserInput) (User, error) {
	u := User{
		AdminID:          input.AdminID,
		FirstName:        strings.TrimSpace(input.FirstName),
		LastName:         strings.TrimSpace(input.LastName),
		Email:            normalizeEmail(input.Email),
		CompanyName:      input.CompanyName,
		Username:         strings.TrimSpace(input.Username),
		Address:          input.Address,
		Postcode:         input.Postcode,
		ShippingAddress:  input.ShippingAddress,
		ShippingPostcode: input.ShippingPostcode,
		PhoneOffice:      input.PhoneOffice,
		PhoneHome:        input.PhoneHome,
		Mobile:           input.Mobile,
		VATNumber:        input.VATNumber,
		Fax:              input.Fax,
		Type:             input.Type,
		IsActive:         true,
	}
	if u.FirstName == "" || u.LastName == "" {
		return User{}, fmt.Errorf("first and last name are required: %w", shared.ErrValidation)
	}
	if u.Email == "" {
		return User{}, fmt.Errorf("email is required: %w", shared.ErrValidation)
	}
	if u.Type == "" {
		u.Type = TypeClient
	}
	switch u.Type {
	case TypeAdmin, TypeSupplier, TypeClient:
	default:
		return User{}, fmt.Errorf("unknown user type %q: %w", u.Type, shared.ErrValidation)
	}

	if exists, err := s.repo.ExistsByEmail(ctx, u.Email, 0); err != nil {
		return User{}, err
	} else if exists {
		return User{}, fmt.Errorf("email %s already registered: %w", u.Email, shared.ErrDuplicateKey)
	}
	if u.Username != "" {
		if exists, err := s.repo.ExistsByUsername(ctx, u.Username, 0); err != nil {
			return User{}, err
		} else if exists {
			return User{}, fmt.Errorf("username %s already taken: %w", u.Username, shared.ErrDuplicateKey)
		}
	}

	if input.Password != "" {
		if len(input.Password) < minPasswordLength {
			return User{}, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, shared.ErrValidation)
		}
		hash, err := s.hasher.Hash(input.Password)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	} else if u.Type == TypeAdmin {
		return User{}, fmt.Errorf("admin users require a password: %w", shared.ErrValidation)
	}

	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	return s.repo.Create(ctx, u)
}

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilters) ([]User, shared.Pagination, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}
	users, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(f.Page, f.PerPage, total), nil
}

// Update replaces the profile fields of an existing user.
func (s *Service) Update(ctx context.Context, id int64, input UpdateUserInput) (User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}

	email := normalizeEmail(input.Email)
	if email == "" {
		return User{}, fmt.Errorf("email is required: %w", shared.ErrValidation)
	}
	if email != u.Email {
		if exists, err := s.repo.ExistsByEmail(ctx, email, id); err != nil {
			return User{}, err
		} else if exists {
			return User{}, fmt.Errorf("email %s already registered: %w", email, shared.ErrDuplicateKey)
		}
	}
	username := strings.TrimSpace(input.Username)
	if username != "" && username != u.Username {
		if exists, err := s.repo.ExistsByUsername(ctx, username, id); err != nil {
			return User{}, err
		} else if exists {
			return User{}, fmt.Errorf("username %s already taken: %w", username, shared.ErrDuplicateKey)
		}
	}

	u.FirstName = strings.TrimSpace(input.FirstName)
	u.LastName = strings.TrimSpace(input.LastName)
	u.Email = email
	u.CompanyName = input.CompanyName
	u.Username = username
	u.Address = input.Address
	u.Postcode = input.Postcode
	u.ShippingAddress = input.ShippingAddress
	u.ShippingPostcode = input.ShippingPostcode
	u.PhoneOffice = input.PhoneOffice
	u.PhoneHome = input.PhoneHome
	u.Mobile = input.Mobile
	u.VATNumber = input.VATNumber
	u.Fax = input.Fax
	u.UpdatedAt = time.Now()
	return s.repo.Update(ctx, u)
}

// Delete removes a user that has no invoices or transactions attached.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountActivity(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("user %d has %d linked records: %w", id, n, shared.ErrStatePrecondition)
	}
	return s.repo.Delete(ctx, id)
}

// SetActive toggles the active flag. Deactivated users keep their records but
// cannot authenticate.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, active)
}

// ChangePassword sets a new password after verifying the current one. Admin
// resets pass an empty current password with force set.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string, force bool) error {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if len(next) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, shared.ErrValidation)
	}
	if !force {
		if u.PasswordHash == "" || s.hasher.Compare(u.PasswordHash, current) != nil {
			return fmt.Errorf("current password mismatch: %w", shared.ErrStatePrecondition)
		}
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, id, hash)
}

// VerifyCredentials checks a username (or email) and password pair and stamps
// the login time on success.
func (s *Service) VerifyCredentials(ctx context.Context, login, password string) (User, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(login))
	if err != nil {
		u, err = s.repo.GetByEmail(ctx, normalizeEmail(login))
		if err != nil {
			return User{}, err
		}
	}
	if !u.IsActive {
		return User{}, fmt.Errorf("user %d is deactivated: %w", u.ID, shared.ErrStatePrecondition)
	}
	if u.PasswordHash == "" || s.hasher.Compare(u.PasswordHash, password) != nil {
		return User{}, fmt.Errorf("invalid credentials: %w", shared.ErrNotFound)
	}
	now := time.Now()
	if err := s.repo.RecordLogin(ctx, u.ID, now); err != nil {
		return User{}, err
	}
	u.LoginTimestamp = &now
	return u, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
