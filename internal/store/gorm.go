package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/verifly/internal/models"
)

// NewGorm returns a Store backed by the given gorm connection.
func NewGorm(db *gorm.DB) *Store {
	return &Store{
		Accounts: &gormAccounts{db: db},
		Profiles: &gormProfiles{db: db},
		Tokens:   &gormRevokedTokens{db: db},
	}
}

type gormAccounts struct {
	db *gorm.DB
}

func (s *gormAccounts) Create(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *gormAccounts) ByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *gormAccounts) ByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.first(ctx, "phone_number = ?", phone)
}

func (s *gormAccounts) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *gormAccounts) ByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.first(ctx, "otp_code = ?", token)
}

func (s *gormAccounts) first(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where(query, args...).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *gormAccounts) List(ctx context.Context, filter UserFilter, limit, offset int) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if filter.PhoneNumber != "" {
		query = query.Where("phone_number ILIKE ?", "%"+filter.PhoneNumber+"%")
	}
	if filter.Email != "" {
		query = query.Where("email ILIKE ?", "%"+filter.Email+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := make([]models.User, 0)
	if err := query.Order("registered_at desc").
		Limit(limit).Offset(offset).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Mutate loads the row FOR UPDATE inside a transaction, applies fn and saves
// the result. fn errors roll the transaction back untouched.
func (s *gormAccounts) Mutate(ctx context.Context, id uuid.UUID, fn func(*models.User) error) (*models.User, error) {
	var out *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&u, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := fn(&u); err != nil {
			return err
		}

		if err := tx.Save(&u).Error; err != nil {
			return err
		}

		out = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type gormProfiles struct {
	db *gorm.DB
}

func (s *gormProfiles) ByUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *gormProfiles) Save(ctx context.Context, p *models.Profile) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(p).Error
}

type gormRevokedTokens struct {
	db *gorm.DB
}

func (s *gormRevokedTokens) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	entry := models.RevokedToken{JTI: jti, ExpiresAt: expiresAt}
	err := s.db.WithContext(ctx).Create(&entry).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

func (s *gormRevokedTokens) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("jti = ?", jti).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
