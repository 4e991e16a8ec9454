package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

type recipeFixture struct {
	db      *gorm.DB
	svc     *service.RecipeService
	author  *models.User
	salt    *models.Ingredient
	eggs    *models.Ingredient
	lunch   *models.Tag
	dinner  *models.Tag
	context context.Context
}

func newRecipeFixture(t *testing.T) *recipeFixture {
	db := testhelpers.SetupSQLite(t)
	return &recipeFixture{
		db:      db,
		svc:     service.NewRecipeService(db, testhelpers.Logger()),
		author:  testhelpers.CreateUser(t, db),
		salt:    testhelpers.CreateIngredient(t, db, "Salt", "g"),
		eggs:    testhelpers.CreateIngredient(t, db, "Eggs", "pcs"),
		lunch:   testhelpers.CreateTag(t, db, "lunch"),
		dinner:  testhelpers.CreateTag(t, db, "dinner"),
		context: context.Background(),
	}
}

func (f *recipeFixture) input(name string) types.RecipeInput {
	return types.RecipeInput{
		Ingredients: []types.RecipeIngredientInput{{ID: f.salt.ID, Amount: 5}, {ID: f.eggs.ID, Amount: 2}},
		Tags:        []uuid.UUID{f.lunch.ID},
		Image:       "recipes/images/omelette.png",
		Name:        name,
		Text:        "Whisk and fry.",
		CookingTime: 10,
	}
}

func TestRecipeCreate(t *testing.T) {
	f := newRecipeFixture(t)

	recipe, err := f.svc.Create(f.context, f.author.ID, f.input("Omelette"))
	require.NoError(t, err)
	assert.Equal(t, "Omelette", recipe.Name)
	assert.Equal(t, f.author.ID, recipe.Author.ID)
	require.Len(t, recipe.Ingredients, 2)
	require.Len(t, recipe.Tags, 1)
	assert.Equal(t, "lunch", recipe.Tags[0].Tag.Slug)
	assert.NotNil(t, recipe.Embedding)

	amounts := map[string]int{}
	for _, ri := range recipe.Ingredients {
		amounts[ri.Ingredient.Name] = ri.Amount
	}
	assert.Equal(t, map[string]int{"Salt": 5, "Eggs": 2}, amounts)
}

func TestRecipeCreateRejectsUnknownReferences(t *testing.T) {
	f := newRecipeFixture(t)

	in := f.input("Omelette")
	in.Ingredients[0].ID = uuid.New()
	_, err := f.svc.Create(f.context, f.author.ID, in)
	assert.ErrorIs(t, err, service.ErrUnknownIngredient)

	in = f.input("Omelette")
	in.Tags = []uuid.UUID{uuid.New()}
	_, err = f.svc.Create(f.context, f.author.ID, in)
	assert.ErrorIs(t, err, service.ErrUnknownTag)

	var count int64
	require.NoError(t, f.db.Model(&models.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecipeUpdateReplacesAssociations(t *testing.T) {
	f := newRecipeFixture(t)
	recipe, err := f.svc.Create(f.context, f.author.ID, f.input("Omelette"))
	require.NoError(t, err)

	in := f.input("Scrambled eggs")
	in.Ingredients = []types.RecipeIngredientInput{{ID: f.eggs.ID, Amount: 4}}
	in.Tags = []uuid.UUID{f.dinner.ID}
	in.CookingTime = 5

	updated, err := f.svc.Update(f.context, f.author.ID, recipe.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Scrambled eggs", updated.Name)
	assert.Equal(t, 5, updated.CookingTime)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, "Eggs", updated.Ingredients[0].Ingredient.Name)
	assert.Equal(t, 4, updated.Ingredients[0].Amount)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "dinner", updated.Tags[0].Tag.Slug)

	var joins int64
	require.NoError(t, f.db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", recipe.ID).Count(&joins).Error)
	assert.Equal(t, int64(1), joins)
}

func TestRecipeUpdateChecksOwnerFirst(t *testing.T) {
	f := newRecipeFixture(t)
	recipe, err := f.svc.Create(f.context, f.author.ID, f.input("Omelette"))
	require.NoError(t, err)
	stranger := testhelpers.CreateUser(t, f.db)

	_, err = f.svc.Update(f.context, stranger.ID, recipe.ID, types.RecipeInput{})
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.svc.Update(f.context, f.author.ID, uuid.New(), f.input("Nothing"))
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.svc.Update(f.context, f.author.ID, recipe.ID, types.RecipeInput{Name: "Omelette"})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestRecipeDeleteCascades(t *testing.T) {
	f := newRecipeFixture(t)
	recipe, err := f.svc.Create(f.context, f.author.ID, f.input("Omelette"))
	require.NoError(t, err)

	user := testhelpers.CreateUser(t, f.db)
	_, err = service.NewFavoriteToggle(f.db, testhelpers.Logger()).Add(f.context, user.ID, recipe.ID)
	require.NoError(t, err)
	_, err = service.NewShoppingCartToggle(f.db, testhelpers.Logger()).Add(f.context, user.ID, recipe.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(f.context, user.ID, recipe.ID), service.ErrForbidden)
	require.NoError(t, f.svc.Delete(f.context, f.author.ID, recipe.ID))

	_, err = f.svc.Get(f.context, recipe.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	for _, model := range []interface{}{&models.RecipeIngredient{}, &models.RecipeTag{}, &models.Favorite{}, &models.ShoppingCart{}} {
		var count int64
		require.NoError(t, f.db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T rows left behind", model)
	}
}

func recipeNames(recipes []models.Recipe) []string {
	names := make([]string, 0, len(recipes))
	for _, r := range recipes {
		names = append(names, r.Name)
	}
	return names
}

func TestRecipeListFilters(t *testing.T) {
	f := newRecipeFixture(t)
	other := testhelpers.CreateUser(t, f.db)
	viewer := testhelpers.CreateUser(t, f.db)

	soup := testhelpers.CreateRecipe(t, f.db, f.author, "Soup", testhelpers.WithTag(f.lunch))
	steak := testhelpers.CreateRecipe(t, f.db, f.author, "Steak", testhelpers.WithTag(f.dinner))
	testhelpers.CreateRecipe(t, f.db, other, "Salad", testhelpers.WithTag(f.lunch), testhelpers.WithTag(f.dinner))

	_, err := service.NewFavoriteToggle(f.db, testhelpers.Logger()).Add(f.context, viewer.ID, soup.ID)
	require.NoError(t, err)
	_, err = service.NewShoppingCartToggle(f.db, testhelpers.Logger()).Add(f.context, viewer.ID, steak.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter service.RecipeFilter
		want   []string
	}{
		{"all", service.RecipeFilter{}, []string{"Soup", "Steak", "Salad"}},
		{"tag", service.RecipeFilter{Tags: []string{"lunch"}}, []string{"Soup", "Salad"}},
		{"tag ignores case", service.RecipeFilter{Tags: []string{"LUNCH"}}, []string{"Soup", "Salad"}},
		{"any of tags", service.RecipeFilter{Tags: []string{"lunch", "dinner"}}, []string{"Soup", "Steak", "Salad"}},
		{"author", service.RecipeFilter{AuthorID: &other.ID}, []string{"Salad"}},
		{"favorited", service.RecipeFilter{Viewer: &viewer.ID, Favorited: true}, []string{"Soup"}},
		{"in cart", service.RecipeFilter{Viewer: &viewer.ID, InShoppingCart: true}, []string{"Steak"}},
		{"anonymous flags ignored", service.RecipeFilter{Favorited: true, InShoppingCart: true}, []string{"Soup", "Steak", "Salad"}},
		{"search", service.RecipeFilter{Search: "sal"}, []string{"Salad"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipes, total, err := f.svc.List(f.context, tt.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, recipeNames(recipes))
			assert.Equal(t, int64(len(tt.want)), total)
		})
	}

	page, total, err := f.svc.List(f.context, service.RecipeFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, int64(3), total)

	rest, _, err := f.svc.List(f.context, service.RecipeFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.NotContains(t, recipeNames(page), rest[0].Name)
}

func TestRecipeFlags(t *testing.T) {
	f := newRecipeFixture(t)
	viewer := testhelpers.CreateUser(t, f.db)
	soup := testhelpers.CreateRecipe(t, f.db, f.author, "Soup")
	steak := testhelpers.CreateRecipe(t, f.db, f.author, "Steak")

	_, err := service.NewFavoriteToggle(f.db, testhelpers.Logger()).Add(f.context, viewer.ID, soup.ID)
	require.NoError(t, err)
	_, err = service.NewShoppingCartToggle(f.db, testhelpers.Logger()).Add(f.context, viewer.ID, steak.ID)
	require.NoError(t, err)

	flags, err := f.svc.Flags(f.context, &viewer.ID, []uuid.UUID{soup.ID, steak.ID})
	require.NoError(t, err)
	assert.True(t, flags.Favorited[soup.ID])
	assert.False(t, flags.Favorited[steak.ID])
	assert.True(t, flags.InShoppingCart[steak.ID])
	assert.False(t, flags.InShoppingCart[soup.ID])

	anon, err := f.svc.Flags(f.context, nil, []uuid.UUID{soup.ID})
	require.NoError(t, err)
	assert.Empty(t, anon.Favorited)
	assert.Empty(t, anon.InShoppingCart)
}
