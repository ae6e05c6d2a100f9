package memory

import (
	"context"
	"sync"
	"time"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/models"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/repository"
)

// MemoryUserRepository implements UserRepository in memory (NOT FOR PRODUCTION)
type MemoryUserRepository struct {
	users   map[int64]models.User
	byEmail map[string]int64
	nextID  int64
	mutex   sync.RWMutex
}

func NewMemoryUserRepository() repository.UserRepository {
	return &MemoryUserRepository{
		users:   make(map[int64]models.User),
		byEmail: make(map[string]int64),
	}
}

func (r *MemoryUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return repository.ErrUserExists
	}

	r.nextID++
	now := time.Now().UTC()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now

	r.users[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, exists := r.byEmail[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	user := r.users[id]
	return &user, nil
}

func (r *MemoryUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	current, exists := r.users[user.ID]
	if !exists {
		return repository.ErrUserNotFound
	}
	if owner, taken := r.byEmail[user.Email]; taken && owner != user.ID {
		return repository.ErrUserExists
	}

	delete(r.byEmail, current.Email)
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}
