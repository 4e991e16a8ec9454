package api

import (
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
)

// UserResponse represents a user as seen by the caller
type UserResponse struct {
	Email        string    `json:"email"`
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsSubscribed bool      `json:"is_subscribed"`
}

// RegisteredUserResponse is returned by registration, which has no viewer
type RegisteredUserResponse struct {
	Email     string    `json:"email"`
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

// CompactRecipeResponse is the short recipe form used by toggles and subscriptions
type CompactRecipeResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image"`
	CookingTime int       `json:"cooking_time"`
}

// FollowResponse is a followed author with a preview of their recipes
type FollowResponse struct {
	UserResponse
	Recipes      []CompactRecipeResponse `json:"recipes"`
	RecipesCount int64                   `json:"recipes_count"`
}

type TagResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
	Slug  string    `json:"slug"`
}

type IngredientResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	MeasurementUnit string    `json:"measurement_unit"`
}

// RecipeIngredientResponse is an ingredient with the amount a recipe uses
type RecipeIngredientResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	MeasurementUnit string    `json:"measurement_unit"`
	Amount          int       `json:"amount"`
}

// RecipeResponse represents the response structure for recipe-related API endpoints
type RecipeResponse struct {
	ID               uuid.UUID                  `json:"id"`
	Tags             []TagResponse              `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []RecipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

// TokenResponse carries a freshly issued token
type TokenResponse struct {
	AuthToken string `json:"auth_token"`
}

func newUserResponse(u *models.User, subscribed bool) UserResponse {
	return UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

func newCompactRecipe(r *models.Recipe) CompactRecipeResponse {
	return CompactRecipeResponse{ID: r.ID, Name: r.Name, Image: r.Image, CookingTime: r.CookingTime}
}

func newFollowResponse(u *models.User, subscribed bool, preview service.AuthorRecipes) FollowResponse {
	recipes := make([]CompactRecipeResponse, 0, len(preview.Recipes))
	for i := range preview.Recipes {
		recipes = append(recipes, newCompactRecipe(&preview.Recipes[i]))
	}
	return FollowResponse{
		UserResponse: newUserResponse(u, subscribed),
		Recipes:      recipes,
		RecipesCount: preview.Count,
	}
}

func newTagResponse(t *models.Tag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func newIngredientResponse(i *models.Ingredient) IngredientResponse {
	return IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

func newRecipeResponse(r *models.Recipe, flags service.RecipeFlags, subscribed map[uuid.UUID]bool) RecipeResponse {
	tags := make([]TagResponse, 0, len(r.Tags))
	for i := range r.Tags {
		tags = append(tags, newTagResponse(&r.Tags[i].Tag))
	}
	ingredients := make([]RecipeIngredientResponse, 0, len(r.Ingredients))
	for _, ri := range r.Ingredients {
		ingredients = append(ingredients, RecipeIngredientResponse{
			ID:              ri.Ingredient.ID,
			Name:            ri.Ingredient.Name,
			MeasurementUnit: ri.Ingredient.MeasurementUnit,
			Amount:          ri.Amount,
		})
	}
	return RecipeResponse{
		ID:               r.ID,
		Tags:             tags,
		Author:           newUserResponse(&r.Author, subscribed[r.AuthorID]),
		Ingredients:      ingredients,
		IsFavorited:      flags.Favorited[r.ID],
		IsInShoppingCart: flags.InShoppingCart[r.ID],
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}
