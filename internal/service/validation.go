package service

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/types"
)

const maxRecipeName = 200

var (
	ErrIngredientsRequired = Validation("ingredients_required", "ingredients required")
	ErrDuplicateIngredient = Validation("duplicate_ingredients", "duplicate ingredients")
	ErrTagsRequired        = Validation("tags_required", "tags required")
	ErrDuplicateTag        = Validation("duplicate_tags", "duplicate tags")
	ErrInvalidAmount       = Validation("invalid_amount", "ingredient amount must be at least 1")
	ErrInvalidCookingTime  = Validation("invalid_cooking_time", "cooking time must be at least 1")
	ErrUnknownIngredient   = Validation("unknown_ingredient", "ingredient does not exist")
	ErrUnknownTag          = Validation("unknown_tag", "tag does not exist")
)

// ValidateRecipe checks a write payload without touching storage.
// The first failing rule is returned.
func ValidateRecipe(in types.RecipeInput) error {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return Validation("name_required", "name required")
	case utf8.RuneCountInString(name) > maxRecipeName:
		return Validation("name_too_long", "name must be at most 200 characters")
	case strings.TrimSpace(in.Text) == "":
		return Validation("text_required", "text required")
	case strings.TrimSpace(in.Image) == "":
		return Validation("image_required", "image required")
	case in.CookingTime < 1:
		return ErrInvalidCookingTime
	}

	if len(in.Ingredients) == 0 {
		return ErrIngredientsRequired
	}
	seen := make(map[uuid.UUID]struct{}, len(in.Ingredients))
	for _, ing := range in.Ingredients {
		if _, dup := seen[ing.ID]; dup {
			return ErrDuplicateIngredient
		}
		seen[ing.ID] = struct{}{}
		if ing.Amount < 1 {
			return ErrInvalidAmount
		}
	}

	if len(in.Tags) == 0 {
		return ErrTagsRequired
	}
	tags := make(map[uuid.UUID]struct{}, len(in.Tags))
	for _, id := range in.Tags {
		if _, dup := tags[id]; dup {
			return ErrDuplicateTag
		}
		tags[id] = struct{}{}
	}

	return nil
}
