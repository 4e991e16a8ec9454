package testhelpers

import (
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
)

// TestPassword is the password of every user made by CreateUser
const TestPassword = "testpassword123"

// CreateUser inserts a user with a unique email and username
func CreateUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	suffix := uuid.NewString()[:8]
	user := &models.User{
		Email:        fmt.Sprintf("user+%s@example.com", suffix),
		Username:     "user_" + suffix,
		FirstName:    gofakeit.FirstName(),
		LastName:     gofakeit.LastName(),
		PasswordHash: string(hash),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTag inserts a tag with the given slug
func CreateTag(t *testing.T, db *gorm.DB, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{
		Name:  slug,
		Color: fmt.Sprintf("#%06x", gofakeit.Number(0, 0xffffff)),
		Slug:  slug,
	}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

// CreateIngredient inserts a catalog ingredient
func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ing := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ing).Error)
	return ing
}

// RecipeOption adds an association to a recipe made by CreateRecipe
type RecipeOption func(*models.Recipe)

func WithIngredient(ing *models.Ingredient, amount int) RecipeOption {
	return func(r *models.Recipe) {
		r.Ingredients = append(r.Ingredients, models.RecipeIngredient{IngredientID: ing.ID, Amount: amount})
	}
}

func WithTag(tag *models.Tag) RecipeOption {
	return func(r *models.Recipe) {
		r.Tags = append(r.Tags, models.RecipeTag{TagID: tag.ID})
	}
}

// CreateRecipe inserts a recipe by author, bypassing validation
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, name string, opts ...RecipeOption) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Text:        gofakeit.Sentence(8),
		Image:       "recipes/images/" + uuid.NewString() + ".png",
		CookingTime: gofakeit.Number(1, 120),
	}
	require.NoError(t, db.Omit(clause.Associations).Create(recipe).Error)

	var built models.Recipe
	for _, opt := range opts {
		opt(&built)
	}
	for i := range built.Ingredients {
		built.Ingredients[i].RecipeID = recipe.ID
		require.NoError(t, db.Omit(clause.Associations).Create(&built.Ingredients[i]).Error)
	}
	for i := range built.Tags {
		built.Tags[i].RecipeID = recipe.ID
		require.NoError(t, db.Omit(clause.Associations).Create(&built.Tags[i]).Error)
	}
	recipe.Ingredients = built.Ingredients
	recipe.Tags = built.Tags
	return recipe
}
