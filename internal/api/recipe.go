package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type RecipeHandler struct {
	recipes       *service.RecipeService
	users         *service.UserService
	favorites     *service.FavoriteToggle
	cart          *service.ShoppingCartToggle
	shoppingList  *service.ShoppingListService
	validator     service.TokenValidator
	createLimiter *middleware.RateLimiter
	pageSize      int
}

// RecipeDeps groups what RecipeHandler needs
type RecipeDeps struct {
	Recipes       *service.RecipeService
	Users         *service.UserService
	Favorites     *service.FavoriteToggle
	Cart          *service.ShoppingCartToggle
	ShoppingList  *service.ShoppingListService
	Validator     service.TokenValidator
	CreateLimiter *middleware.RateLimiter
	PageSize      int
}

func NewRecipeHandler(deps RecipeDeps) *RecipeHandler {
	return &RecipeHandler{
		recipes:       deps.Recipes,
		users:         deps.Users,
		favorites:     deps.Favorites,
		cart:          deps.Cart,
		shoppingList:  deps.ShoppingList,
		validator:     deps.Validator,
		createLimiter: deps.CreateLimiter,
		pageSize:      deps.PageSize,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := middleware.AuthMiddleware(h.validator)
	optional := middleware.OptionalAuth(h.validator)

	create := []gin.HandlerFunc{auth}
	if h.createLimiter != nil {
		create = append(create, h.createLimiter.RateLimitMiddleware())
	}
	create = append(create, h.CreateRecipe)

	recipes := router.Group("/recipes")
	{
		recipes.GET("", optional, h.ListRecipes)
		recipes.POST("", create...)
		recipes.GET("/download_shopping_cart", auth, h.DownloadShoppingCart)
		recipes.GET("/:id", optional, h.GetRecipe)
		recipes.PUT("/:id", auth, h.UpdateRecipe)
		recipes.PATCH("/:id", auth, h.UpdateRecipe)
		recipes.DELETE("/:id", auth, h.DeleteRecipe)
		recipes.POST("/:id/favorite", auth, h.AddFavorite)
		recipes.DELETE("/:id/favorite", auth, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart", auth, h.AddToShoppingCart)
		recipes.DELETE("/:id/shopping_cart", auth, h.RemoveFromShoppingCart)
	}
}

func (h *RecipeHandler) recipeResponses(c *gin.Context, recipes []models.Recipe) ([]RecipeResponse, error) {
	viewer := middleware.Viewer(c)
	ids := make([]uuid.UUID, 0, len(recipes))
	authors := make([]uuid.UUID, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.ID)
		authors = append(authors, r.AuthorID)
	}

	flags, err := h.recipes.Flags(c.Request.Context(), viewer, ids)
	if err != nil {
		return nil, err
	}
	subscribed, err := h.users.Subscribed(c.Request.Context(), viewer, authors)
	if err != nil {
		return nil, err
	}

	out := make([]RecipeResponse, 0, len(recipes))
	for i := range recipes {
		out = append(out, newRecipeResponse(&recipes[i], flags, subscribed))
	}
	return out, nil
}

func (h *RecipeHandler) respondRecipe(c *gin.Context, status int, recipe *models.Recipe) {
	results, err := h.recipeResponses(c, []models.Recipe{*recipe})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(status, results[0])
}

// ListRecipes supports ?tags=a&tags=b, ?author=<id>, ?is_favorited=1,
// ?is_in_shopping_cart=1, ?search= and page/limit pagination
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	req, err := pageNumberRequest(c, h.pageSize)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	filter := service.RecipeFilter{
		Tags:           c.QueryArray("tags"),
		Favorited:      c.Query("is_favorited") == "1",
		InShoppingCart: c.Query("is_in_shopping_cart") == "1",
		Search:         c.Query("search"),
		Viewer:         middleware.Viewer(c),
		Limit:          req.Limit,
		Offset:         req.Offset,
	}
	if raw := c.Query("author"); raw != "" {
		author, err := uuid.Parse(raw)
		if err != nil {
			HandleServiceError(c, service.Validation("invalid_author", "author must be a user id"))
			return
		}
		filter.AuthorID = &author
	}

	recipes, total, err := h.recipes.List(c.Request.Context(), filter)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	results, err := h.recipeResponses(c, recipes)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	page, err := newPage(c, req, total, results)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := pathID(c, "recipe")
	if !ok {
		return
	}
	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var in types.RecipeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	userID, _ := middleware.UserID(c)
	recipe, err := h.recipes.Create(c.Request.Context(), userID, in)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusCreated, recipe)
}

// UpdateRecipe serves both PUT and PATCH. Either way every field and association is replaced.
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, ok := pathID(c, "recipe")
	if !ok {
		return
	}
	var in types.RecipeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	userID, _ := middleware.UserID(c)
	recipe, err := h.recipes.Update(c.Request.Context(), userID, id, in)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, ok := pathID(c, "recipe")
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)
	if err := h.recipes.Delete(c.Request.Context(), userID, id); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) addRelation(c *gin.Context, add func(uuid.UUID, uuid.UUID) (*models.Recipe, error)) {
	id, ok := pathID(c, "recipe")
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)
	recipe, err := add(userID, id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCompactRecipe(recipe))
}

func (h *RecipeHandler) removeRelation(c *gin.Context, remove func(uuid.UUID, uuid.UUID) error) {
	id, ok := pathID(c, "recipe")
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)
	if err := remove(userID, id); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.addRelation(c, func(userID, id uuid.UUID) (*models.Recipe, error) {
		return h.favorites.Add(c.Request.Context(), userID, id)
	})
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.removeRelation(c, func(userID, id uuid.UUID) error {
		return h.favorites.Remove(c.Request.Context(), userID, id)
	})
}

func (h *RecipeHandler) AddToShoppingCart(c *gin.Context) {
	h.addRelation(c, func(userID, id uuid.UUID) (*models.Recipe, error) {
		return h.cart.Add(c.Request.Context(), userID, id)
	})
}

func (h *RecipeHandler) RemoveFromShoppingCart(c *gin.Context) {
	h.removeRelation(c, func(userID, id uuid.UUID) error {
		return h.cart.Remove(c.Request.Context(), userID, id)
	})
}

// DownloadShoppingCart sends the aggregated cart as a text attachment
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	doc, err := h.shoppingList.Document(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", service.ShoppingListFilename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", doc)
}
