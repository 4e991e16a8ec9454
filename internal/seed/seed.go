// Package seed fills a database with demo users, catalog entries and recipes.
// It goes through the services so every row obeys the same rules as API writes.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// DefaultPassword is given to every seeded user unless Options.Password is set
const DefaultPassword = "foodgram123"

var defaultTags = []models.Tag{
	{Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"},
	{Name: "Lunch", Color: "#49B64E", Slug: "lunch"},
	{Name: "Dinner", Color: "#8775D2", Slug: "dinner"},
}

var units = []string{"g", "kg", "ml", "l", "pcs", "tsp", "tbsp", "cup"}

// Options controls how much data is generated
type Options struct {
	Seed             int64
	Users            int
	Ingredients      int
	RecipesPerUser   int
	FavoritesPerUser int
	CartPerUser      int
	Password         string
}

// Summary reports what a run created
type Summary struct {
	Users       int
	Tags        int
	Ingredients int
	Recipes     int
	Favorites   int
	CartItems   int
	Follows     int
}

// Seeder generates demo data
type Seeder struct {
	users     *service.UserService
	catalog   *service.CatalogService
	recipes   *service.RecipeService
	favorites *service.FavoriteToggle
	cart      *service.ShoppingCartToggle
	follows   *service.FollowToggle
	log       logrus.FieldLogger
}

func New(db *gorm.DB, log logrus.FieldLogger) *Seeder {
	return &Seeder{
		users:     service.NewUserService(db, log),
		catalog:   service.NewCatalogService(db, nil, log),
		recipes:   service.NewRecipeService(db, log),
		favorites: service.NewFavoriteToggle(db, log),
		cart:      service.NewShoppingCartToggle(db, log),
		follows:   service.NewFollowToggle(db, log),
		log:       log.WithField("component", "seed"),
	}
}

// Run creates the data described by opts. Tags and ingredients that already exist are reused.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	faker := gofakeit.New(opts.Seed)
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}

	tags, created, err := s.seedTags(ctx)
	if err != nil {
		return sum, err
	}
	sum.Tags = created

	ingredients, created, err := s.seedIngredients(ctx, faker, opts.Ingredients)
	if err != nil {
		return sum, err
	}
	sum.Ingredients = created
	if len(ingredients) == 0 && opts.RecipesPerUser > 0 {
		return sum, errors.New("recipes need at least one ingredient")
	}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		user, err := s.users.Register(ctx, types.RegisterRequest{
			Email:     fmt.Sprintf("%d.%s", i, faker.Email()),
			Username:  fmt.Sprintf("%s%d", faker.Username(), i),
			FirstName: faker.FirstName(),
			LastName:  faker.LastName(),
			Password:  opts.Password,
		})
		if err != nil {
			return sum, fmt.Errorf("seed user %d: %w", i, err)
		}
		users = append(users, user)
	}
	sum.Users = len(users)

	var recipes []*models.Recipe
	for _, user := range users {
		for j := 0; j < opts.RecipesPerUser; j++ {
			recipe, err := s.recipes.Create(ctx, user.ID, recipeInput(faker, ingredients, tags))
			if err != nil {
				return sum, fmt.Errorf("seed recipe for %s: %w", user.Username, err)
			}
			recipes = append(recipes, recipe)
		}
	}
	sum.Recipes = len(recipes)

	for i, user := range users {
		for _, recipe := range pick(faker, recipes, opts.FavoritesPerUser) {
			_, err := s.favorites.Add(ctx, user.ID, recipe.ID)
			if err = skipDuplicate(err); err != nil {
				return sum, fmt.Errorf("seed favorite: %w", err)
			}
			sum.Favorites++
		}
		for _, recipe := range pick(faker, recipes, opts.CartPerUser) {
			_, err := s.cart.Add(ctx, user.ID, recipe.ID)
			if err = skipDuplicate(err); err != nil {
				return sum, fmt.Errorf("seed cart item: %w", err)
			}
			sum.CartItems++
		}
		if len(users) > 1 {
			next := users[(i+1)%len(users)]
			_, err := s.follows.Add(ctx, user.ID, next.ID)
			if err = skipDuplicate(err); err != nil {
				return sum, fmt.Errorf("seed follow: %w", err)
			}
			sum.Follows++
		}
	}

	s.log.WithFields(logrus.Fields{
		"users":       sum.Users,
		"tags":        sum.Tags,
		"ingredients": sum.Ingredients,
		"recipes":     sum.Recipes,
		"favorites":   sum.Favorites,
		"cart_items":  sum.CartItems,
		"follows":     sum.Follows,
	}).Info("seed complete")
	return sum, nil
}

func (s *Seeder) seedTags(ctx context.Context) ([]models.Tag, int, error) {
	created := 0
	for _, tag := range defaultTags {
		tag := tag
		err := s.catalog.CreateTag(ctx, &tag)
		if errors.Is(err, service.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("seed tag %s: %w", tag.Slug, err)
		}
		created++
	}
	tags, err := s.catalog.ListTags(ctx)
	return tags, created, err
}

func (s *Seeder) seedIngredients(ctx context.Context, faker *gofakeit.Faker, n int) ([]models.Ingredient, int, error) {
	rows := make([]models.Ingredient, 0, n)
	for i := 0; i < n; i++ {
		var name string
		switch i % 3 {
		case 0:
			name = faker.Vegetable()
		case 1:
			name = faker.Fruit()
		default:
			name = faker.Snack()
		}
		rows = append(rows, models.Ingredient{Name: name, MeasurementUnit: units[faker.Number(0, len(units)-1)]})
	}
	created, err := s.catalog.ImportIngredients(ctx, rows, 100)
	if err != nil {
		return nil, 0, err
	}
	all, err := s.catalog.ListIngredients(ctx, "")
	return all, created, err
}

func recipeInput(faker *gofakeit.Faker, ingredients []models.Ingredient, tags []models.Tag) types.RecipeInput {
	in := types.RecipeInput{
		Name:        faker.Dinner(),
		Text:        faker.Paragraph(1, 4, 12, "\n"),
		Image:       fmt.Sprintf("https://picsum.photos/seed/%s/800/600", faker.UUID()),
		CookingTime: faker.Number(5, 180),
	}
	for _, ing := range pick(faker, ingredients, faker.Number(1, 5)) {
		in.Ingredients = append(in.Ingredients, types.RecipeIngredientInput{ID: ing.ID, Amount: faker.Number(1, 500)})
	}
	for _, tag := range pick(faker, tags, faker.Number(1, 2)) {
		in.Tags = append(in.Tags, tag.ID)
	}
	return in
}

// pick returns up to n distinct elements of items in random order
func pick[T any](faker *gofakeit.Faker, items []T, n int) []T {
	if n > len(items) {
		n = len(items)
	}
	if n <= 0 {
		return nil
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	faker.ShuffleInts(idx)
	out := make([]T, 0, n)
	for _, i := range idx[:n] {
		out = append(out, items[i])
	}
	return out
}

// skipDuplicate treats an existing relation as already seeded
func skipDuplicate(err error) error {
	if errors.Is(err, service.ErrAlreadyExists) {
		return nil
	}
	return err
}
