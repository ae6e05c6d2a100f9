package gorm_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/models"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// userRecord is the persisted shape of models.User.
type userRecord struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"size:254;uniqueIndex;not null"`
	Username     string `gorm:"size:64;not null"`
	PasswordHash string `gorm:"not null"`
	APIKeyHash   string
	Token        string `gorm:"size:64"`
	Confirmed    bool   `gorm:"not null;default:false"`
	PendingEmail string `gorm:"size:254"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string {
	return "users"
}

func fromModel(u *models.User) *userRecord {
	return &userRecord{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		APIKeyHash:   u.APIKeyHash,
		Token:        u.Token,
		Confirmed:    u.Confirmed,
		PendingEmail: u.PendingEmail,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r *userRecord) toModel() *models.User {
	return &models.User{
		ID:           r.ID,
		Email:        r.Email,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		APIKeyHash:   r.APIKeyHash,
		Token:        r.Token,
		Confirmed:    r.Confirmed,
		PendingEmail: r.PendingEmail,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// Open connects to the database named by driver (sqlite3 or postgres).
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite3", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed opening connection to %s: %w", driver, err)
	}
	return db, nil
}

// Migrate creates or updates the users table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&userRecord{}); err != nil {
		return fmt.Errorf("failed creating schema resources: %w", err)
	}
	return nil
}

// GormUserRepository implements UserRepository to be stored using gorm
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) repository.UserRepository {
	return &GormUserRepository{
		db: db,
	}
}

func (r *GormUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&userRecord{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check if user exists: %w", err)
	}
	if count > 0 {
		return repository.ErrUserExists
	}

	record := fromModel(user)
	record.ID = 0
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.ID = record.ID
	user.CreatedAt = record.CreatedAt
	user.UpdatedAt = record.UpdatedAt
	return nil
}

func (r *GormUserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var record userRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database query failed for user: %w", err)
	}
	return record.toModel(), nil
}

func (r *GormUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var record userRecord
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database query failed for user: %w", err)
	}
	return record.toModel(), nil
}

func (r *GormUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&userRecord{}).
		Where("email = ? AND id <> ?", user.Email, user.ID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check email owner: %w", err)
	}
	if count > 0 {
		return repository.ErrUserExists
	}

	record := fromModel(user)
	record.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&userRecord{ID: user.ID}).
		Select("email", "username", "password_hash", "api_key_hash", "token", "confirmed", "pending_email", "updated_at").
		Updates(record)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return repository.ErrUserExists
		}
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}
	user.UpdatedAt = record.UpdatedAt
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
