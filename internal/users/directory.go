package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/suPer8Hu/lingochat/internal/models"
	"github.com/suPer8Hu/lingochat/internal/store/redisstore"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidUser  = errors.New("name and preferredLanguage required")
)

const maxNameRunes = 64

// Directory resolves users from the database, with an optional redis cache in
// front of lookups.
type Directory struct {
	db    *gorm.DB
	cache *redisstore.Store
	ttl   time.Duration
}

// NewDirectory returns a directory. cache may be nil.
func NewDirectory(db *gorm.DB, cache *redisstore.Store, ttl time.Duration) *Directory {
	return &Directory{db: db, cache: cache, ttl: ttl}
}

func (d *Directory) CreateUser(ctx context.Context, name, preferredLanguage string) (*models.User, error) {
	name = strings.TrimSpace(name)
	preferredLanguage = strings.TrimSpace(preferredLanguage)
	if name == "" || preferredLanguage == "" {
		return nil, ErrInvalidUser
	}
	if r := []rune(name); len(r) > maxNameRunes {
		name = string(r[:maxNameRunes])
	}

	u := &models.User{
		ID:                uuid.NewString(),
		Name:              name,
		PreferredLanguage: preferredLanguage,
	}
	if err := d.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func (d *Directory) GetUser(ctx context.Context, id string) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrUserNotFound
	}

	if d.cache != nil {
		var u models.User
		err := d.cache.GetProfile(ctx, id, &u)
		switch {
		case err == nil:
			return &u, nil
		case !errors.Is(err, redis.Nil):
			slog.Warn("profile cache read failed", "userId", id, "error", err)
		}
	}

	var u models.User
	if err := d.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if d.cache != nil {
		if err := d.cache.SetProfile(ctx, id, u, d.ttl); err != nil {
			slog.Warn("profile cache write failed", "userId", id, "error", err)
		}
	}
	return &u, nil
}
