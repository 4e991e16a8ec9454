package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Services is everything the HTTP layer needs to serve /api
type Services struct {
	Auth          *service.AuthService
	Users         *service.UserService
	Catalog       *service.CatalogService
	Recipes       *service.RecipeService
	Favorites     *service.FavoriteToggle
	Cart          *service.ShoppingCartToggle
	Follows       *service.FollowToggle
	ShoppingList  *service.ShoppingListService
	CreateLimiter *middleware.RateLimiter
	PageSize      int
}

// RegisterRoutes mounts every handler on group
func RegisterRoutes(group *gin.RouterGroup, s Services) {
	NewAuthHandler(s.Auth).RegisterRoutes(group)
	NewUserHandler(s.Users, s.Follows, s.Auth, s.PageSize).RegisterRoutes(group)
	NewCatalogHandler(s.Catalog).RegisterRoutes(group)
	NewRecipeHandler(RecipeDeps{
		Recipes:       s.Recipes,
		Users:         s.Users,
		Favorites:     s.Favorites,
		Cart:          s.Cart,
		ShoppingList:  s.ShoppingList,
		Validator:     s.Auth,
		CreateLimiter: s.CreateLimiter,
		PageSize:      s.PageSize,
	}).RegisterRoutes(group)
}
