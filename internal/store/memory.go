package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/verifly/internal/models"
)

// NewMemory returns a Store holding everything in process memory. Used by
// tests and for running the server without a database.
func NewMemory() *Store {
	accounts := &memoryAccounts{users: map[uuid.UUID]models.User{}}
	return &Store{
		Accounts: accounts,
		Profiles: &memoryProfiles{profiles: map[uuid.UUID]models.Profile{}},
		Tokens:   &memoryRevokedTokens{jtis: map[string]time.Time{}},
	}
}

type memoryAccounts struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func (s *memoryAccounts) Create(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = time.Now()
	}

	for _, existing := range s.users {
		if existing.PhoneNumber == u.PhoneNumber || existing.Email == u.Email {
			return ErrConflict
		}
	}

	s.users[u.ID] = *u
	return nil
}

func (s *memoryAccounts) ByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, ErrNotFound
}

func (s *memoryAccounts) ByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.PhoneNumber == phone })
}

func (s *memoryAccounts) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.Email == email })
}

func (s *memoryAccounts) ByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.find(func(u models.User) bool { return u.OTPCode == token })
}

func (s *memoryAccounts) find(match func(models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryAccounts) List(ctx context.Context, filter UserFilter, limit, offset int) ([]models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]models.User, 0)
	for _, u := range s.users {
		if filter.PhoneNumber != "" && !strings.Contains(u.PhoneNumber, filter.PhoneNumber) {
			continue
		}
		if filter.Email != "" && !strings.Contains(strings.ToLower(u.Email), strings.ToLower(filter.Email)) {
			continue
		}
		matched = append(matched, u)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RegisteredAt.After(matched[j].RegisteredAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return []models.User{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// Mutate serializes all account mutations behind the store mutex, matching
// the row-lock semantics of the gorm implementation.
func (s *memoryAccounts) Mutate(ctx context.Context, id uuid.UUID, fn func(*models.User) error) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	if err := fn(&u); err != nil {
		return nil, err
	}

	s.users[id] = u
	out := u
	return &out, nil
}

type memoryProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]models.Profile
}

func (s *memoryProfiles) ByUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles[userID]; ok {
		return &p, nil
	}
	return nil, ErrNotFound
}

func (s *memoryProfiles) Save(ctx context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.profiles[p.UserID] = *p
	return nil
}

type memoryRevokedTokens struct {
	mu   sync.Mutex
	jtis map[string]time.Time
}

func (s *memoryRevokedTokens) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jtis[jti]; ok {
		return ErrConflict
	}
	s.jtis[jti] = expiresAt
	return nil
}

func (s *memoryRevokedTokens) IsRevoked(ctx context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.jtis[jti]
	return ok, nil
}
