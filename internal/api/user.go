package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type UserHandler struct {
	userService *service.UserService
	follows     *service.FollowToggle
	validator   service.TokenValidator
	pageSize    int
}

func NewUserHandler(userService *service.UserService, follows *service.FollowToggle, validator service.TokenValidator, pageSize int) *UserHandler {
	return &UserHandler{userService: userService, follows: follows, validator: validator, pageSize: pageSize}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := middleware.AuthMiddleware(h.validator)
	users := router.Group("/users")
	{
		users.GET("", middleware.OptionalAuth(h.validator), h.ListUsers)
		users.POST("", h.Register)
		users.GET("/me", auth, h.Me)
		users.POST("/set_password", auth, h.SetPassword)
		users.GET("/subscriptions", auth, h.Subscriptions)
		users.GET("/:id", middleware.OptionalAuth(h.validator), h.GetUser)
		users.POST("/:id/subscribe", auth, h.Subscribe)
		users.DELETE("/:id/subscribe", auth, h.Unsubscribe)
	}
}

// pathID parses the :id parameter. A malformed id cannot name anything, so it is a NotFound.
func pathID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		HandleServiceError(c, service.NotFound(what+" not found"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *UserHandler) userResponses(c *gin.Context, users []models.User) ([]UserResponse, error) {
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	subscribed, err := h.userService.Subscribed(c.Request.Context(), middleware.Viewer(c), ids)
	if err != nil {
		return nil, err
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, newUserResponse(&users[i], subscribed[users[i].ID]))
	}
	return out, nil
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	req, err := pageNumberRequest(c, h.pageSize)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	users, total, err := h.userService.List(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	results, err := h.userResponses(c, users)
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

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RegisteredUserResponse{
		Email:     user.Email,
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	user, err := h.userService.Get(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user, false))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	results, err := h.userResponses(c, []models.User{*user})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, results[0])
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	userID, _ := middleware.UserID(c)
	if err := h.userService.SetPassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// recipesLimit reads ?recipes_limit, ignoring anything that is not a non-negative number
func recipesLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("recipes_limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (h *UserHandler) followResponses(c *gin.Context, users []models.User) ([]FollowResponse, error) {
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	previews, err := h.userService.RecipePreviews(c.Request.Context(), ids, recipesLimit(c))
	if err != nil {
		return nil, err
	}
	out := make([]FollowResponse, 0, len(users))
	for i := range users {
		out = append(out, newFollowResponse(&users[i], true, previews[users[i].ID]))
	}
	return out, nil
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	req := limitOffsetRequest(c, h.pageSize)
	userID, _ := middleware.UserID(c)
	users, total, err := h.userService.Subscriptions(c.Request.Context(), userID, req.Limit, req.Offset)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	results, err := h.followResponses(c, users)
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

func (h *UserHandler) Subscribe(c *gin.Context) {
	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)
	author, err := h.follows.Add(c.Request.Context(), userID, id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	results, err := h.followResponses(c, []models.User{*author})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, results[0])
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)
	if err := h.follows.Remove(c.Request.Context(), userID, id); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
