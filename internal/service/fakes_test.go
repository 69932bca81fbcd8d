package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"account-service/internal/media"
	"account-service/internal/model"
	"account-service/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memoryUserRepo mirrors the Postgres repository semantics closely enough
// for workflow tests: unique email/username and a column-less safe read.
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User

	findErr     error
	createErr   error
	setTokenErr error
	safeMissing bool
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[uuid.UUID]*model.User{}}
}

func (r *memoryUserRepo) Create(ctx context.Context, user *model.User) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return uuid.Nil, r.createErr
	}
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return uuid.Nil, repository.ErrDuplicateUser
		}
	}

	stored := *user
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.users[stored.ID] = &stored
	return stored.ID, nil
}

func (r *memoryUserRepo) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if (email != "" && u.Email == email) || (username != "" && u.Username == username) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memoryUserRepo) FindSafeByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if r.safeMissing {
		return nil, repository.ErrUserNotFound
	}
	u, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	u.RefreshToken = nil
	return u, nil
}

func (r *memoryUserRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.setTokenErr != nil {
		return r.setTokenErr
	}
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.RefreshToken = &token
	return nil
}

func (r *memoryUserRepo) UnsetRefreshToken(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.RefreshToken = nil
	return nil
}

func (r *memoryUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *memoryUserRepo) storedToken(id uuid.UUID) *string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u.RefreshToken
	}
	return nil
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, localPath string) (*media.UploadResult, error) {
	args := m.Called(ctx, localPath)
	res, _ := args.Get(0).(*media.UploadResult)
	return res, args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) record(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, name)
	return p.err
}

func (p *recordingPublisher) PublishUserRegistered(uuid.UUID, string) error {
	return p.record("registered")
}

func (p *recordingPublisher) PublishUserLoggedIn(uuid.UUID) error {
	return p.record("logged_in")
}

func (p *recordingPublisher) PublishUserLoggedOut(uuid.UUID) error {
	return p.record("logged_out")
}

func (p *recordingPublisher) PublishTokenRefreshed(uuid.UUID) error {
	return p.record("token_refreshed")
}

var errStoreDown = errors.New("store unavailable")
