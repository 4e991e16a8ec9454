package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/metrics"
)

// ShoppingListFilename is suggested to clients downloading the list
const ShoppingListFilename = "Shopping_cart.txt"

// ShoppingListLine is the total amount of one (name, unit) pair across a cart
type ShoppingListLine struct {
	Name            string
	MeasurementUnit string
	Amount          int64
}

func (l ShoppingListLine) String() string {
	return fmt.Sprintf("%s (%s) - %d", l.Name, l.MeasurementUnit, l.Amount)
}

// ShoppingListService aggregates the ingredients of a user's shopping cart
type ShoppingListService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewShoppingListService(db *gorm.DB, log logrus.FieldLogger) *ShoppingListService {
	return &ShoppingListService{db: db, log: log.WithField("component", "shopping_list")}
}

// Lines groups cart ingredients by name and unit, not by ingredient id,
// since the catalog may hold the same name under several ids.
func (s *ShoppingListService) Lines(ctx context.Context, userID uuid.UUID) ([]ShoppingListLine, error) {
	var lines []ShoppingListLine
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients AS ri").
		Select("i.name AS name, i.measurement_unit AS measurement_unit, SUM(ri.amount) AS amount").
		Joins("JOIN ingredients AS i ON i.id = ri.ingredient_id").
		Joins("JOIN shopping_carts AS sc ON sc.recipe_id = ri.recipe_id").
		Where("sc.user_id = ?", userID).
		Group("i.name, i.measurement_unit").
		Order("i.name, i.measurement_unit").
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate shopping list: %w", err)
	}
	return lines, nil
}

// Document renders the shopping list as text, one line per ingredient.
// An empty cart yields an empty document.
func (s *ShoppingListService) Document(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	lines, err := s.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line.String())
		buf.WriteByte('\n')
	}

	metrics.ShoppingListDownloads.Inc()
	s.log.WithFields(logrus.Fields{"user_id": userID, "lines": len(lines)}).Debug("shopping list generated")
	return buf.Bytes(), nil
}
