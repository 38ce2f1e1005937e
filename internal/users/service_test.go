package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eretailgoals/books-backend/internal/shared"
)

type memoryUserRepo struct {
	nextID   int64
	users    map[int64]User
	activity map[int64]int
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[int64]User{}, activity: map[int64]int{}}
}

func (m *memoryUserRepo) Create(_ context.Context, u User) (User, error) {
	m.nextID++
	u.ID = m.nextID
	m.users[u.ID] = u
	return u, nil
}

func (m *memoryUserRepo) Get(_ context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("users: id %d: %w", id, shared.ErrNotFound)
	}
	return u, nil
}

func (m *memoryUserRepo) GetByEmail(_ context.Context, email string) (User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("users: %w", shared.ErrNotFound)
}

func (m *memoryUserRepo) GetByUsername(_ context.Context, username string) (User, error) {
	for _, u := range m.users {
		if u.Username != "" && u.Username == username {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("users: %w", shared.ErrNotFound)
}

func (m *memoryUserRepo) Update(_ context.Context, u User) (User, error) {
	if _, ok := m.users[u.ID]; !ok {
		return User{}, fmt.Errorf("users: id %d: %w", u.ID, shared.ErrNotFound)
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memoryUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("users: id %d: %w", id, shared.ErrNotFound)
	}
	delete(m.users, id)
	return nil
}

func (m *memoryUserRepo) List(_ context.Context, f ListFilters) ([]User, int, error) {
	var out []User
	for _, u := range m.users {
		if f.Type != "" && u.Type != f.Type {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memoryUserRepo) ExistsByEmail(_ context.Context, email string, excludeID int64) (bool, error) {
	for _, u := range m.users {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUserRepo) ExistsByUsername(_ context.Context, username string, excludeID int64) (bool, error) {
	for _, u := range m.users {
		if u.Username == username && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUserRepo) SetActive(_ context.Context, id int64, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("users: id %d: %w", id, shared.ErrNotFound)
	}
	u.IsActive = active
	m.users[id] = u
	return nil
}

func (m *memoryUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("users: id %d: %w", id, shared.ErrNotFound)
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *memoryUserRepo) RecordLogin(_ context.Context, id int64, at time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("users: id %d: %w", id, shared.ErrNotFound)
	}
	u.LoginTimestamp = &at
	m.users[id] = u
	return nil
}

func (m *memoryUserRepo) CountActivity(_ context.Context, id int64) (int, error) {
	return m.activity[id], nil
}

// plainHasher keeps tests independent of bcrypt cost.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (plainHasher) Compare(hash, plain string) error {
	if hash != "hashed:"+plain {
		return errors.New("mismatch")
	}
	return nil
}

func newTestService() (*Service, *memoryUserRepo) {
	repo := newMemoryUserRepo()
	return NewService(repo, plainHasher{}), repo
}

func TestCreateUserDefaultsToActiveClient(t *testing.T) {
	svc, _ := newTestService()

	u, err := svc.Create(context.Background(), CreateUserInput{
		FirstName: "Ada",
		LastName:  "Byron",
		Email:     "Ada@Example.COM",
	})
	require.NoError(t, err)
	require.Equal(t, TypeClient, u.Type)
	require.True(t, u.IsActive)
	require.Equal(t, "ada@example.com", u.Email)
	require.Empty(t, u.PasswordHash)
}

func TestCreateUserRejectsDuplicateEmailAndUsername(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{
		FirstName: "Ada", LastName: "Byron", Email: "ada@example.com", Username: "ada",
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateUserInput{
		FirstName: "Other", LastName: "Person", Email: "ada@example.com",
	})
	require.ErrorIs(t, err, shared.ErrDuplicateKey)

	_, err = svc.Create(ctx, CreateUserInput{
		FirstName: "Other", LastName: "Person", Email: "other@example.com", Username: "ada",
	})
	require.ErrorIs(t, err, shared.ErrDuplicateKey)
}

func TestCreateUserPasswordRules(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{
		FirstName: "Ada", LastName: "Byron", Email: "short@example.com", Password: "short",
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateUserInput{
		FirstName: "Root", LastName: "Admin", Email: "admin@example.com", Type: TypeAdmin,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	u, err := svc.Create(ctx, CreateUserInput{
		FirstName: "Root", LastName: "Admin", Email: "admin@example.com",
		Type: TypeAdmin, Password: "longenough",
	})
	require.NoError(t, err)
	require.Equal(t, "hashed:longenough", u.PasswordHash)
}

func TestUpdateUserChecksUniqueness(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateUserInput{
		FirstName: "Ada", LastName: "Byron", Email: "ada@example.com",
	})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreateUserInput{
		FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com",
	})
	require.NoError(t, err)

	_, err = svc.Update(ctx, second.ID, UpdateUserInput{
		FirstName: "Grace", LastName: "Hopper", Email: first.Email,
	})
	require.ErrorIs(t, err, shared.ErrDuplicateKey)

	updated, err := svc.Update(ctx, second.ID, UpdateUserInput{
		FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", CompanyName: "Navy",
	})
	require.NoError(t, err)
	require.Equal(t, "Navy", updated.CompanyName)
}

func TestDeleteUserBlockedByLinkedRecords(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateUserInput{
		FirstName: "Ada", LastName: "Byron", Email: "ada@example.com",
	})
	require.NoError(t, err)

	repo.activity[u.ID] = 3
	err = svc.Delete(ctx, u.ID)
	require.ErrorIs(t, err, shared.ErrStatePrecondition)

	repo.activity[u.ID] = 0
	require.NoError(t, svc.Delete(ctx, u.ID))

	_, err = svc.Get(ctx, u.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestVerifyCredentials(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateUserInput{
		FirstName: "Root", LastName: "Admin", Email: "admin@example.com",
		Username: "root", Type: TypeAdmin, Password: "longenough",
	})
	require.NoError(t, err)

	got, err := svc.VerifyCredentials(ctx, "root", "longenough")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.LoginTimestamp)

	got, err = svc.VerifyCredentials(ctx, "ADMIN@example.com", "longenough")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = svc.VerifyCredentials(ctx, "root", "wrongpass")
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, svc.SetActive(ctx, u.ID, false))
	_, err = svc.VerifyCredentials(ctx, "root", "longenough")
	require.ErrorIs(t, err, shared.ErrStatePrecondition)
}

func TestChangePassword(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateUserInput{
		FirstName: "Root", LastName: "Admin", Email: "admin@example.com",
		Type: TypeAdmin, Password: "oldsecret",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, u.ID, "wrongpass", "newsecret99", false)
	require.ErrorIs(t, err, shared.ErrStatePrecondition)

	err = svc.ChangePassword(ctx, u.ID, "oldsecret", "tiny", false)
	require.ErrorIs(t, err, shared.ErrValidation)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "oldsecret", "newsecret99", false))
	require.Equal(t, "hashed:newsecret99", repo.users[u.ID].PasswordHash)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "", "forcedpass1", true))
	require.Equal(t, "hashed:forcedpass1", repo.users[u.ID].PasswordHash)
}
