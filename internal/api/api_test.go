package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/cache"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	t      *testing.T
	db     *gorm.DB
	auth   *service.AuthService
	engine *gin.Engine
}

func newTestAPI(t *testing.T, configure ...func(*api.Services, *redis.Client)) *testAPI {
	t.Helper()
	db := testhelpers.SetupSQLite(t)
	log := testhelpers.Logger()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	auth := service.NewAuthService(db, "test-secret", time.Hour, cache.NewDenylist(client), log)
	services := api.Services{
		Auth:         auth,
		Users:        service.NewUserService(db, log),
		Catalog:      service.NewCatalogService(db, cache.New(client, log), log),
		Recipes:      service.NewRecipeService(db, log),
		Favorites:    service.NewFavoriteToggle(db, log),
		Cart:         service.NewShoppingCartToggle(db, log),
		Follows:      service.NewFollowToggle(db, log),
		ShoppingList: service.NewShoppingListService(db, log),
		PageSize:     6,
	}
	for _, fn := range configure {
		fn(&services, client)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery())
	api.RegisterRoutes(engine.Group("/api"), services)

	return &testAPI{t: t, db: db, auth: auth, engine: engine}
}

func (a *testAPI) token(user *models.User) string {
	a.t.Helper()
	token, err := a.auth.GenerateToken(user)
	require.NoError(a.t, err)
	return token
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	body := decode[middleware.ErrorResponse](t, w)
	assert.Equal(t, code, body.Code)
	assert.NotEmpty(t, body.Error)
}

func recipeBody(ingredient *models.Ingredient, amount int, tags ...*models.Tag) map[string]interface{} {
	tagIDs := make([]uuid.UUID, 0, len(tags))
	for _, tag := range tags {
		tagIDs = append(tagIDs, tag.ID)
	}
	return map[string]interface{}{
		"name":         "Shakshuka",
		"text":         "Simmer tomatoes, crack in the eggs.",
		"image":        "data:image/png;base64,iVBORw0KGgo=",
		"cooking_time": 25,
		"ingredients":  []map[string]interface{}{{"id": ingredient.ID, "amount": amount}},
		"tags":         tagIDs,
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	a := newTestAPI(t)

	register := map[string]string{
		"email":      "Chef@Example.com",
		"username":   "chef",
		"first_name": "Julia",
		"last_name":  "Child",
		"password":   "s3cret-pass",
	}
	w := a.do(http.MethodPost, "/api/users", "", register)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]interface{}](t, w)
	assert.Equal(t, "chef@example.com", created["email"])
	assert.Equal(t, "chef", created["username"])
	assert.NotContains(t, created, "password")
	assert.NotContains(t, created, "is_subscribed")

	assertError(t, a.do(http.MethodPost, "/api/users", "", register), http.StatusBadRequest, "user_exists")

	reserved := map[string]string{"email": "me@example.com", "username": "me", "first_name": "M", "last_name": "E", "password": "s3cret-pass"}
	assertError(t, a.do(http.MethodPost, "/api/users", "", reserved), http.StatusBadRequest, "reserved_username")

	assertError(t, a.do(http.MethodPost, "/api/users", "", map[string]string{"email": "x"}), http.StatusBadRequest, "invalid_body")

	w = a.do(http.MethodPost, "/api/auth/token/login", "", map[string]string{"email": "chef@example.com", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode[api.TokenResponse](t, w).AuthToken
	require.NotEmpty(t, token)

	w = a.do(http.MethodPost, "/api/auth/token/login", "", map[string]string{"email": "chef@example.com", "password": "wrong-pass"})
	assertError(t, w, http.StatusBadRequest, "invalid_credentials")

	w = a.do(http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[api.UserResponse](t, w)
	assert.Equal(t, "chef", me.Username)
	assert.False(t, me.IsSubscribed)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, "/api/auth/token/logout", token, nil).Code)
	assertError(t, a.do(http.MethodGet, "/api/users/me", token, nil), http.StatusUnauthorized, "unauthorized")
	assertError(t, a.do(http.MethodGet, "/api/users/me", "", nil), http.StatusUnauthorized, "unauthorized")
}

func TestSetPassword(t *testing.T) {
	a := newTestAPI(t)
	user := testhelpers.CreateUser(t, a.db)
	token := a.token(user)

	w := a.do(http.MethodPost, "/api/users/set_password", token, map[string]string{
		"current_password": "not-it-at-all",
		"new_password":     "brand-new-pass",
	})
	assertError(t, w, http.StatusBadRequest, "invalid_password")

	w = a.do(http.MethodPost, "/api/users/set_password", token, map[string]string{
		"current_password": testhelpers.TestPassword,
		"new_password":     "brand-new-pass",
	})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/api/auth/token/login", "", map[string]string{"email": user.Email, "password": "brand-new-pass"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecipeLifecycle(t *testing.T) {
	a := newTestAPI(t)
	author := testhelpers.CreateUser(t, a.db)
	other := testhelpers.CreateUser(t, a.db)
	eggs := testhelpers.CreateIngredient(t, a.db, "Eggs", "pcs")
	breakfast := testhelpers.CreateTag(t, a.db, "breakfast")

	body := recipeBody(eggs, 3, breakfast)
	assertError(t, a.do(http.MethodPost, "/api/recipes", "", body), http.StatusUnauthorized, "unauthorized")

	w := a.do(http.MethodPost, "/api/recipes", a.token(author), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[api.RecipeResponse](t, w)
	assert.Equal(t, "Shakshuka", created.Name)
	assert.Equal(t, author.Username, created.Author.Username)
	require.Len(t, created.Ingredients, 1)
	assert.Equal(t, api.RecipeIngredientResponse{ID: eggs.ID, Name: "Eggs", MeasurementUnit: "pcs", Amount: 3}, created.Ingredients[0])
	require.Len(t, created.Tags, 1)
	assert.Equal(t, "breakfast", created.Tags[0].Slug)
	assert.False(t, created.IsFavorited)
	assert.False(t, created.IsInShoppingCart)

	path := "/api/recipes/" + created.ID.String()
	w = a.do(http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[api.RecipeResponse](t, w).ID)

	invalid := recipeBody(eggs, 3)
	assertError(t, a.do(http.MethodPost, "/api/recipes", a.token(author), invalid), http.StatusBadRequest, "tags_required")

	update := recipeBody(eggs, 5, breakfast)
	update["name"] = "Green shakshuka"
	assertError(t, a.do(http.MethodPut, path, a.token(other), update), http.StatusForbidden, "forbidden")
	assertError(t, a.do(http.MethodDelete, path, a.token(other), nil), http.StatusForbidden, "forbidden")

	w = a.do(http.MethodPatch, path, a.token(author), update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[api.RecipeResponse](t, w)
	assert.Equal(t, "Green shakshuka", updated.Name)
	assert.Equal(t, 5, updated.Ingredients[0].Amount)

	assertError(t, a.do(http.MethodGet, "/api/recipes/not-a-uuid", "", nil), http.StatusNotFound, "not_found")
	assertError(t, a.do(http.MethodGet, "/api/recipes/"+uuid.NewString(), "", nil), http.StatusNotFound, "not_found")

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, path, a.token(author), nil).Code)
	assertError(t, a.do(http.MethodGet, path, "", nil), http.StatusNotFound, "not_found")
}

func TestRelationToggles(t *testing.T) {
	a := newTestAPI(t)
	user := testhelpers.CreateUser(t, a.db)
	author := testhelpers.CreateUser(t, a.db)
	recipe := testhelpers.CreateRecipe(t, a.db, author, "Pho")
	token := a.token(user)

	for _, relation := range []string{"favorite", "shopping_cart"} {
		t.Run(relation, func(t *testing.T) {
			path := "/api/recipes/" + recipe.ID.String() + "/" + relation

			assertError(t, a.do(http.MethodPost, path, "", nil), http.StatusUnauthorized, "unauthorized")

			w := a.do(http.MethodPost, path, token, nil)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			compact := decode[api.CompactRecipeResponse](t, w)
			assert.Equal(t, api.CompactRecipeResponse{
				ID:          recipe.ID,
				Name:        recipe.Name,
				Image:       recipe.Image,
				CookingTime: recipe.CookingTime,
			}, compact)

			assertError(t, a.do(http.MethodPost, path, token, nil), http.StatusBadRequest, "already_exists")

			assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, path, token, nil).Code)
			assertError(t, a.do(http.MethodDelete, path, token, nil), http.StatusBadRequest, "not_found")

			missing := "/api/recipes/" + uuid.NewString() + "/" + relation
			assertError(t, a.do(http.MethodPost, missing, token, nil), http.StatusNotFound, "not_found")
			assertError(t, a.do(http.MethodDelete, missing, token, nil), http.StatusNotFound, "not_found")
		})
	}
}

func TestListRecipes(t *testing.T) {
	a := newTestAPI(t)
	author := testhelpers.CreateUser(t, a.db)
	viewer := testhelpers.CreateUser(t, a.db)
	lunch := testhelpers.CreateTag(t, a.db, "lunch")
	dinner := testhelpers.CreateTag(t, a.db, "dinner")

	var recipes []*models.Recipe
	for i := 0; i < 8; i++ {
		tag := lunch
		if i%2 == 1 {
			tag = dinner
		}
		recipes = append(recipes, testhelpers.CreateRecipe(t, a.db, author, "Recipe", testhelpers.WithTag(tag)))
	}
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/recipes/"+recipes[0].ID.String()+"/favorite", a.token(viewer), nil).Code)

	t.Run("first page", func(t *testing.T) {
		w := a.do(http.MethodGet, "/api/recipes", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		page := decode[api.Page[api.RecipeResponse]](t, w)
		assert.EqualValues(t, 8, page.Count)
		assert.Len(t, page.Results, 6)
		require.NotNil(t, page.Next)
		assert.Equal(t, "http://example.com/api/recipes?page=2", *page.Next)
		assert.Nil(t, page.Previous)
	})

	t.Run("last page", func(t *testing.T) {
		w := a.do(http.MethodGet, "/api/recipes?limit=3&page=3", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		page := decode[api.Page[api.RecipeResponse]](t, w)
		assert.Len(t, page.Results, 2)
		assert.Nil(t, page.Next)
		require.NotNil(t, page.Previous)
		assert.Equal(t, "http://example.com/api/recipes?limit=3&page=2", *page.Previous)
	})

	t.Run("page past the end", func(t *testing.T) {
		assertError(t, a.do(http.MethodGet, "/api/recipes?page=3", "", nil), http.StatusNotFound, "not_found")
		assertError(t, a.do(http.MethodGet, "/api/recipes?page=zero", "", nil), http.StatusNotFound, "not_found")
	})

	t.Run("filters", func(t *testing.T) {
		tests := []struct {
			name  string
			query string
			token string
			want  int64
		}{
			{name: "tag", query: "?tags=lunch", want: 4},
			{name: "any of tags", query: "?tags=lunch&tags=dinner", want: 8},
			{name: "author", query: "?author=" + author.ID.String(), want: 8},
			{name: "other author", query: "?author=" + viewer.ID.String(), want: 0},
			{name: "favorited", query: "?is_favorited=1", token: a.token(viewer), want: 1},
			{name: "favorited anonymous", query: "?is_favorited=1", want: 8},
			{name: "favorited other value", query: "?is_favorited=true", token: a.token(viewer), want: 8},
			{name: "in cart", query: "?is_in_shopping_cart=1", token: a.token(viewer), want: 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := a.do(http.MethodGet, "/api/recipes"+tt.query, tt.token, nil)
				require.Equal(t, http.StatusOK, w.Code, w.Body.String())
				assert.Equal(t, tt.want, decode[api.Page[api.RecipeResponse]](t, w).Count)
			})
		}
	})

	t.Run("viewer flags", func(t *testing.T) {
		w := a.do(http.MethodGet, "/api/recipes?is_favorited=1", a.token(viewer), nil)
		require.Equal(t, http.StatusOK, w.Code)
		page := decode[api.Page[api.RecipeResponse]](t, w)
		require.Len(t, page.Results, 1)
		assert.Equal(t, recipes[0].ID, page.Results[0].ID)
		assert.True(t, page.Results[0].IsFavorited)
		assert.False(t, page.Results[0].IsInShoppingCart)
	})

	t.Run("bad author", func(t *testing.T) {
		assertError(t, a.do(http.MethodGet, "/api/recipes?author=42", "", nil), http.StatusBadRequest, "invalid_author")
	})
}

func TestDownloadShoppingCart(t *testing.T) {
	a := newTestAPI(t)
	user := testhelpers.CreateUser(t, a.db)
	author := testhelpers.CreateUser(t, a.db)
	salt := testhelpers.CreateIngredient(t, a.db, "Salt", "g")
	eggs := testhelpers.CreateIngredient(t, a.db, "Eggs", "pcs")
	omelette := testhelpers.CreateRecipe(t, a.db, author, "Omelette",
		testhelpers.WithIngredient(eggs, 2), testhelpers.WithIngredient(salt, 3))
	bread := testhelpers.CreateRecipe(t, a.db, author, "Bread", testhelpers.WithIngredient(salt, 5))

	token := a.token(user)
	for _, r := range []*models.Recipe{omelette, bread} {
		require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/recipes/"+r.ID.String()+"/shopping_cart", token, nil).Code)
	}

	w := a.do(http.MethodGet, "/api/recipes/download_shopping_cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Shopping_cart.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Eggs (pcs) - 2\nSalt (g) - 8\n", w.Body.String())

	w = a.do(http.MethodGet, "/api/recipes/download_shopping_cart", a.token(author), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	assertError(t, a.do(http.MethodGet, "/api/recipes/download_shopping_cart", "", nil), http.StatusUnauthorized, "unauthorized")
}

func TestSubscriptions(t *testing.T) {
	a := newTestAPI(t)
	user := testhelpers.CreateUser(t, a.db)
	author := testhelpers.CreateUser(t, a.db)
	for _, name := range []string{"Ramen", "Udon", "Soba"} {
		testhelpers.CreateRecipe(t, a.db, author, name)
	}
	token := a.token(user)
	path := "/api/users/" + author.ID.String() + "/subscribe"

	w := a.do(http.MethodPost, path+"?recipes_limit=2", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	follow := decode[api.FollowResponse](t, w)
	assert.Equal(t, author.ID, follow.ID)
	assert.True(t, follow.IsSubscribed)
	assert.EqualValues(t, 3, follow.RecipesCount)
	assert.Len(t, follow.Recipes, 2)

	assertError(t, a.do(http.MethodPost, path, token, nil), http.StatusBadRequest, "already_exists")
	assertError(t, a.do(http.MethodPost, "/api/users/"+user.ID.String()+"/subscribe", token, nil), http.StatusBadRequest, "self_follow")
	assertError(t, a.do(http.MethodPost, "/api/users/"+uuid.NewString()+"/subscribe", token, nil), http.StatusNotFound, "not_found")

	w = a.do(http.MethodGet, "/api/users/subscriptions?limit=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[api.Page[api.FollowResponse]](t, w)
	assert.EqualValues(t, 1, page.Count)
	require.Len(t, page.Results, 1)
	assert.Len(t, page.Results[0].Recipes, 3)
	assert.Nil(t, page.Next)

	w = a.do(http.MethodGet, "/api/users/"+author.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[api.UserResponse](t, w).IsSubscribed)

	w = a.do(http.MethodGet, "/api/users/"+author.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[api.UserResponse](t, w).IsSubscribed)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, path, token, nil).Code)
	assertError(t, a.do(http.MethodDelete, path, token, nil), http.StatusBadRequest, "not_found")
}

func TestListUsers(t *testing.T) {
	a := newTestAPI(t)
	for i := 0; i < 3; i++ {
		testhelpers.CreateUser(t, a.db)
	}

	w := a.do(http.MethodGet, "/api/users?limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[api.Page[api.UserResponse]](t, w)
	assert.EqualValues(t, 3, page.Count)
	assert.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)
	assert.Equal(t, "http://example.com/api/users?limit=2&page=2", *page.Next)

	assertError(t, a.do(http.MethodGet, "/api/users?page=9", "", nil), http.StatusNotFound, "not_found")
	assertError(t, a.do(http.MethodGet, "/api/users/"+uuid.NewString(), "", nil), http.StatusNotFound, "not_found")
}

func TestCatalog(t *testing.T) {
	a := newTestAPI(t)
	tag := testhelpers.CreateTag(t, a.db, "vegan")
	testhelpers.CreateIngredient(t, a.db, "Salt", "g")
	testhelpers.CreateIngredient(t, a.db, "Sugar", "g")
	testhelpers.CreateIngredient(t, a.db, "Basil", "bunch")

	w := a.do(http.MethodGet, "/api/tags", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tags := decode[[]api.TagResponse](t, w)
	require.Len(t, tags, 1)
	assert.Equal(t, "vegan", tags[0].Slug)

	w = a.do(http.MethodGet, "/api/tags/"+tag.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tag.Color, decode[api.TagResponse](t, w).Color)
	assertError(t, a.do(http.MethodGet, "/api/tags/"+uuid.NewString(), "", nil), http.StatusNotFound, "not_found")

	w = a.do(http.MethodGet, "/api/ingredients?name=S", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ingredients := decode[[]api.IngredientResponse](t, w)
	require.Len(t, ingredients, 2)
	assert.Equal(t, "Salt", ingredients[0].Name)
	assert.Equal(t, "Sugar", ingredients[1].Name)

	w = a.do(http.MethodGet, "/api/ingredients", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]api.IngredientResponse](t, w), 3)
}

func TestRecipeCreationRateLimit(t *testing.T) {
	a := newTestAPI(t, func(s *api.Services, client *redis.Client) {
		s.CreateLimiter = middleware.NewRecipeCreationRateLimiter(client, 1)
	})
	author := testhelpers.CreateUser(t, a.db)
	eggs := testhelpers.CreateIngredient(t, a.db, "Eggs", "pcs")
	tag := testhelpers.CreateTag(t, a.db, "quick")
	token := a.token(author)

	w := a.do(http.MethodPost, "/api/recipes", token, recipeBody(eggs, 1, tag))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = a.do(http.MethodPost, "/api/recipes", token, recipeBody(eggs, 1, tag))
	assertError(t, w, http.StatusTooManyRequests, "rate_limited")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
