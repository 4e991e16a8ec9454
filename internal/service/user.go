package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

var (
	ErrInvalidUsername  = Validation("invalid_username", "username may contain only letters, digits and @.+-_")
	ErrReservedUsername = Validation("reserved_username", "this username is reserved")
	ErrUserExists       = Validation("user_exists", "a user with this email or username already exists")
	ErrInvalidPassword  = Validation("invalid_password", "current password is incorrect")
)

// AuthorRecipes is the recipe preview shown on a subscription
type AuthorRecipes struct {
	Recipes []models.Recipe
	Count   int64
}

type UserService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewUserService(db *gorm.DB, log logrus.FieldLogger) *UserService {
	return &UserService{db: db, log: log.WithField("component", "user")}
}

// Register creates an account with a bcrypt-hashed password
func (s *UserService) Register(ctx context.Context, req types.RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if strings.EqualFold(username, "me") {
		return nil, ErrReservedUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// List returns one page of users ordered by username and the total count
func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	var users []models.User
	q := s.db.WithContext(ctx).Order("username")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// SetPassword replaces the password after checking the current one
func (s *UserService) SetPassword(ctx context.Context, id uuid.UUID, current, next string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", string(hash)).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.log.WithField("user_id", id).Info("password changed")
	return nil
}

// Subscribed reports which of ids the viewer follows. A nil viewer follows nobody.
func (s *UserService) Subscribed(ctx context.Context, viewer *uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(ids))
	if viewer == nil || len(ids) == 0 {
		return out, nil
	}

	var followed []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND followed_user_id IN ?", *viewer, ids).
		Pluck("followed_user_id", &followed).Error; err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}
	for _, id := range followed {
		out[id] = true
	}
	return out, nil
}

// Subscriptions returns one page of the authors userID follows and the total count
func (s *UserService) Subscriptions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.User, int64, error) {
	following := s.db.Model(&models.Follow{}).Select("followed_user_id").Where("user_id = ?", userID)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id IN (?)", following).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count subscriptions: %w", err)
	}

	var users []models.User
	q := s.db.WithContext(ctx).Where("id IN (?)", following).Order("username")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}
	return users, total, nil
}

// RecipePreviews returns, per author, their newest recipes up to limit and the
// total number they have published. A limit <= 0 returns every recipe.
func (s *UserService) RecipePreviews(ctx context.Context, authorIDs []uuid.UUID, limit int) (map[uuid.UUID]AuthorRecipes, error) {
	out := make(map[uuid.UUID]AuthorRecipes, len(authorIDs))
	if len(authorIDs) == 0 {
		return out, nil
	}

	var recipes []models.Recipe
	if err := s.db.WithContext(ctx).
		Select("id", "author_id", "name", "image", "cooking_time", "created_at").
		Where("author_id IN ?", authorIDs).
		Order("created_at DESC, id").
		Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("load author recipes: %w", err)
	}

	for _, r := range recipes {
		preview := out[r.AuthorID]
		preview.Count++
		if limit <= 0 || len(preview.Recipes) < limit {
			preview.Recipes = append(preview.Recipes, r)
		}
		out[r.AuthorID] = preview
	}
	return out, nil
}
