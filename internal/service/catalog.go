package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/cache"
	"github.com/pageza/foodgram/backend/internal/models"
)

// CatalogService serves tags and ingredients, the read-mostly reference data
type CatalogService struct {
	db    *gorm.DB
	cache *cache.Cache
	log   logrus.FieldLogger
}

// NewCatalogService accepts a nil cache
func NewCatalogService(db *gorm.DB, c *cache.Cache, log logrus.FieldLogger) *CatalogService {
	return &CatalogService{db: db, cache: c, log: log.WithField("component", "catalog")}
}

// ListTags returns every tag ordered by name
func (s *CatalogService) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if s.cache.GetJSON(ctx, cache.TagsKey, &tags) {
		return tags, nil
	}
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	s.cache.SetJSON(ctx, cache.TagsKey, tags, cache.TagsTTL)
	return tags, nil
}

func (s *CatalogService) GetTag(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	var tag models.Tag
	err := s.db.WithContext(ctx).First(&tag, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("tag not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return &tag, nil
}

// CreateTag stores a tag. A duplicate name, color or slug is a Conflict.
func (s *CatalogService) CreateTag(ctx context.Context, tag *models.Tag) error {
	err := s.db.WithContext(ctx).Create(tag).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return alreadyExists("tag with this name, color or slug already exists")
	}
	if err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	s.cache.Invalidate(ctx, cache.TagsKey)
	return nil
}

// ListIngredients returns ingredients whose name starts with prefix, case-insensitively
func (s *CatalogService) ListIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	q := s.db.WithContext(ctx).Order("name").Order("measurement_unit")
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		q = q.Where("LOWER(name) LIKE ? ESCAPE '\\'", escapeLike(strings.ToLower(prefix))+"%")
	}

	var ingredients []models.Ingredient
	if err := q.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	return ingredients, nil
}

func (s *CatalogService) GetIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	err := s.db.WithContext(ctx).First(&ingredient, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("ingredient not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	return &ingredient, nil
}

// ImportIngredients inserts the given ingredients in batches, skipping
// (name, unit) pairs already in the catalog. It returns the number inserted.
func (s *CatalogService) ImportIngredients(ctx context.Context, rows []models.Ingredient, batchSize int) (int, error) {
	type pair struct{ name, unit string }

	var existing []models.Ingredient
	if err := s.db.WithContext(ctx).Select("name", "measurement_unit").Find(&existing).Error; err != nil {
		return 0, fmt.Errorf("load ingredients: %w", err)
	}
	seen := make(map[pair]struct{}, len(existing)+len(rows))
	for _, ing := range existing {
		seen[pair{ing.Name, ing.MeasurementUnit}] = struct{}{}
	}

	fresh := make([]models.Ingredient, 0, len(rows))
	for _, ing := range rows {
		key := pair{ing.Name, ing.MeasurementUnit}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, models.Ingredient{Name: ing.Name, MeasurementUnit: ing.MeasurementUnit})
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := s.db.WithContext(ctx).CreateInBatches(fresh, batchSize).Error; err != nil {
		return 0, fmt.Errorf("import ingredients: %w", err)
	}
	s.log.WithFields(logrus.Fields{"inserted": len(fresh), "skipped": len(rows) - len(fresh)}).Info("ingredients imported")
	return len(fresh), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
