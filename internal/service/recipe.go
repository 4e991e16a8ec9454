package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// RecipeFilter narrows a recipe listing. Tags match any of the slugs, case-insensitively.
// Viewer is nil for anonymous callers, in which case Favorited and InShoppingCart are ignored.
type RecipeFilter struct {
	Tags           []string
	AuthorID       *uuid.UUID
	Favorited      bool
	InShoppingCart bool
	Search         string
	Viewer         *uuid.UUID
	Limit          int
	Offset         int
}

// RecipeFlags holds the viewer-specific state of a set of recipes
type RecipeFlags struct {
	Favorited      map[uuid.UUID]bool
	InShoppingCart map[uuid.UUID]bool
}

type RecipeService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewRecipeService(db *gorm.DB, log logrus.FieldLogger) *RecipeService {
	return &RecipeService{db: db, log: log.WithField("component", "recipe")}
}

func preloadRecipe(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Tags.Tag").Preload("Ingredients.Ingredient")
}

func (s *RecipeService) filter(f RecipeFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if len(f.Tags) > 0 {
			slugs := make([]string, 0, len(f.Tags))
			for _, slug := range f.Tags {
				slugs = append(slugs, strings.ToLower(slug))
			}
			q = q.Where("recipes.id IN (?)", s.db.Table("recipe_tags AS rt").
				Select("rt.recipe_id").
				Joins("JOIN tags AS t ON t.id = rt.tag_id").
				Where("LOWER(t.slug) IN ?", slugs))
		}
		if f.AuthorID != nil {
			q = q.Where("recipes.author_id = ?", *f.AuthorID)
		}
		if f.Viewer != nil && f.Favorited {
			q = q.Where("recipes.id IN (?)", s.db.Model(&models.Favorite{}).
				Select("recipe_id").
				Where("user_id = ?", *f.Viewer))
		}
		if f.Viewer != nil && f.InShoppingCart {
			q = q.Where("recipes.id IN (?)", s.db.Model(&models.ShoppingCart{}).
				Select("recipe_id").
				Where("user_id = ?", *f.Viewer))
		}
		if search := strings.TrimSpace(f.Search); search != "" {
			q = q.Where("LOWER(recipes.name) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(search))+"%")
		}
		return q
	}
}

// List returns one page of recipes matching f and the total match count.
// Results are newest first; on postgres a search is ordered by embedding distance first.
func (s *RecipeService) List(ctx context.Context, f RecipeFilter) ([]models.Recipe, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Scopes(s.filter(f)).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count recipes: %w", err)
	}

	const order = "recipes.created_at DESC, recipes.id"
	q := s.db.WithContext(ctx).Scopes(s.filter(f), preloadRecipe)
	if search := strings.TrimSpace(f.Search); search != "" && s.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "recipes.embedding <-> ?, " + order, Vars: []interface{}{GenerateEmbedding(search)}},
		})
	} else {
		q = q.Order(order)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var recipes []models.Recipe
	if err := q.Find(&recipes).Error; err != nil {
		return nil, 0, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, total, nil
}

// Get returns a recipe with its author, tags and ingredients
func (s *RecipeService) Get(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).Scopes(preloadRecipe).First(&recipe, "recipes.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("recipe not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return &recipe, nil
}

// Create validates in and stores a new recipe owned by authorID
func (s *RecipeService) Create(ctx context.Context, authorID uuid.UUID, in types.RecipeInput) (*models.Recipe, error) {
	if err := ValidateRecipe(in); err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        strings.TrimSpace(in.Name),
		Text:        in.Text,
		Image:       in.Image,
		CookingTime: in.CookingTime,
		Embedding:   recipeEmbedding(in.Name, in.Text),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkReferences(tx, in); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return fmt.Errorf("create recipe: %w", err)
		}
		return replaceAssociations(tx, recipe.ID, in)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"recipe_id": recipe.ID, "author_id": authorID}).Info("recipe created")
	return s.Get(ctx, recipe.ID)
}

// Update replaces every field, ingredient and tag of a recipe owned by userID
func (s *RecipeService) Update(ctx context.Context, userID, id uuid.UUID, in types.RecipeInput) (*models.Recipe, error) {
	recipe, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateRecipe(in); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkReferences(tx, in); err != nil {
			return err
		}
		if err := tx.Model(recipe).Omit(clause.Associations).Updates(map[string]interface{}{
			"name":         strings.TrimSpace(in.Name),
			"text":         in.Text,
			"image":        in.Image,
			"cooking_time": in.CookingTime,
			"embedding":    recipeEmbedding(in.Name, in.Text),
		}).Error; err != nil {
			return fmt.Errorf("update recipe: %w", err)
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return fmt.Errorf("clear recipe ingredients: %w", err)
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeTag{}).Error; err != nil {
			return fmt.Errorf("clear recipe tags: %w", err)
		}
		return replaceAssociations(tx, id, in)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("recipe_id", id).Info("recipe updated")
	return s.Get(ctx, id)
}

// Delete removes a recipe owned by userID. Joins, favorites and cart entries cascade.
func (s *RecipeService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Recipe{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	s.log.WithField("recipe_id", id).Info("recipe deleted")
	return nil
}

// Flags reports which of ids the viewer has favorited or put in the cart
func (s *RecipeService) Flags(ctx context.Context, viewer *uuid.UUID, ids []uuid.UUID) (RecipeFlags, error) {
	flags := RecipeFlags{Favorited: map[uuid.UUID]bool{}, InShoppingCart: map[uuid.UUID]bool{}}
	if viewer == nil || len(ids) == 0 {
		return flags, nil
	}

	for _, rel := range []struct {
		model interface{}
		into  map[uuid.UUID]bool
	}{
		{&models.Favorite{}, flags.Favorited},
		{&models.ShoppingCart{}, flags.InShoppingCart},
	} {
		var found []uuid.UUID
		if err := s.db.WithContext(ctx).Model(rel.model).
			Where("user_id = ? AND recipe_id IN ?", *viewer, ids).
			Pluck("recipe_id", &found).Error; err != nil {
			return flags, fmt.Errorf("load recipe flags: %w", err)
		}
		for _, id := range found {
			rel.into[id] = true
		}
	}
	return flags, nil
}

func (s *RecipeService) owned(ctx context.Context, userID, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).Select("id", "author_id").First(&recipe, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("recipe not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if recipe.AuthorID != userID {
		return nil, Forbidden("only the author can change this recipe")
	}
	return &recipe, nil
}

func checkReferences(tx *gorm.DB, in types.RecipeInput) error {
	ingredientIDs := make([]uuid.UUID, 0, len(in.Ingredients))
	for _, ing := range in.Ingredients {
		ingredientIDs = append(ingredientIDs, ing.ID)
	}

	var count int64
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ingredientIDs).Count(&count).Error; err != nil {
		return fmt.Errorf("check ingredients: %w", err)
	}
	if count != int64(len(ingredientIDs)) {
		return ErrUnknownIngredient
	}

	if err := tx.Model(&models.Tag{}).Where("id IN ?", in.Tags).Count(&count).Error; err != nil {
		return fmt.Errorf("check tags: %w", err)
	}
	if count != int64(len(in.Tags)) {
		return ErrUnknownTag
	}
	return nil
}

func replaceAssociations(tx *gorm.DB, recipeID uuid.UUID, in types.RecipeInput) error {
	ingredients := make([]models.RecipeIngredient, 0, len(in.Ingredients))
	for _, ing := range in.Ingredients {
		ingredients = append(ingredients, models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: ing.ID,
			Amount:       ing.Amount,
		})
	}
	if err := tx.Omit(clause.Associations).Create(&ingredients).Error; err != nil {
		return fmt.Errorf("create recipe ingredients: %w", err)
	}

	tags := make([]models.RecipeTag, 0, len(in.Tags))
	for _, id := range in.Tags {
		tags = append(tags, models.RecipeTag{RecipeID: recipeID, TagID: id})
	}
	if err := tx.Omit(clause.Associations).Create(&tags).Error; err != nil {
		return fmt.Errorf("create recipe tags: %w", err)
	}
	return nil
}
