package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRecipe is the shared (user, recipe) key of favorites and cart entries.
// The composite unique index is named per table, so every embedding model gets its own.
type UserRecipe struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:,unique,composite:user_recipe" json:"user_id"`
	RecipeID  uuid.UUID `gorm:"type:uuid;not null;index:,unique,composite:user_recipe" json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *UserRecipe) assignID() {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
}

// Favorite marks a recipe as favorited by a user
type Favorite struct {
	UserRecipe
	User   User   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Recipe Recipe `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (f *Favorite) BeforeCreate(tx *gorm.DB) error {
	f.assignID()
	return nil
}

// ShoppingCart places a recipe in a user's shopping cart
type ShoppingCart struct {
	UserRecipe
	User   User   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Recipe Recipe `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (s *ShoppingCart) BeforeCreate(tx *gorm.DB) error {
	s.assignID()
	return nil
}

// Follow subscribes a user to another author. Self-follows are rejected before insert.
type Follow struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_follow_user_followed" json:"user_id"`
	FollowedUserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_follow_user_followed;index" json:"followed_user_id"`
	User           User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	FollowedUser   User      `gorm:"foreignKey:FollowedUserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// All lists every model in dependency order for AutoMigrate
func All() []interface{} {
	return []interface{}{
		&User{},
		&Tag{},
		&Ingredient{},
		&Recipe{},
		&RecipeIngredient{},
		&RecipeTag{},
		&Favorite{},
		&ShoppingCart{},
		&Follow{},
	}
}
