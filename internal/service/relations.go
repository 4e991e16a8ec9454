package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
)

type (
	FavoriteToggle     = Toggle[models.Recipe, models.Favorite]
	ShoppingCartToggle = Toggle[models.Recipe, models.ShoppingCart]
	FollowToggle       = Toggle[models.User, models.Follow]
)

func loadRecipe(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := db.First(&recipe, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func loadUser(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// NewFavoriteToggle handles /recipes/:id/favorite
func NewFavoriteToggle(db *gorm.DB, log logrus.FieldLogger) *FavoriteToggle {
	return NewToggle(db, RelationSpec[models.Recipe, models.Favorite]{
		Name:         "favorite",
		TargetColumn: "recipe_id",
		Load:         loadRecipe,
		New: func(userID, recipeID uuid.UUID) *models.Favorite {
			return &models.Favorite{UserRecipe: models.UserRecipe{UserID: userID, RecipeID: recipeID}}
		},
		TargetMissing: "recipe not found",
		Exists:        "recipe is already in favorites",
		Missing:       "recipe is not in favorites",
	}, log)
}

// NewShoppingCartToggle handles /recipes/:id/shopping_cart
func NewShoppingCartToggle(db *gorm.DB, log logrus.FieldLogger) *ShoppingCartToggle {
	return NewToggle(db, RelationSpec[models.Recipe, models.ShoppingCart]{
		Name:         "shopping_cart",
		TargetColumn: "recipe_id",
		Load:         loadRecipe,
		New: func(userID, recipeID uuid.UUID) *models.ShoppingCart {
			return &models.ShoppingCart{UserRecipe: models.UserRecipe{UserID: userID, RecipeID: recipeID}}
		},
		TargetMissing: "recipe not found",
		Exists:        "recipe is already in the shopping cart",
		Missing:       "recipe is not in the shopping cart",
	}, log)
}

// ErrSelfFollow rejects subscribing to yourself
var ErrSelfFollow = Validation("self_follow", "cannot subscribe to yourself")

// NewFollowToggle handles /users/:id/subscribe
func NewFollowToggle(db *gorm.DB, log logrus.FieldLogger) *FollowToggle {
	return NewToggle(db, RelationSpec[models.User, models.Follow]{
		Name:         "follow",
		TargetColumn: "followed_user_id",
		Load:         loadUser,
		New: func(userID, followedID uuid.UUID) *models.Follow {
			return &models.Follow{UserID: userID, FollowedUserID: followedID}
		},
		Validate: func(userID, followedID uuid.UUID) error {
			if userID == followedID {
				return ErrSelfFollow
			}
			return nil
		},
		TargetMissing: "user not found",
		Exists:        "already subscribed to this user",
		Missing:       "not subscribed to this user",
	}, log)
}
