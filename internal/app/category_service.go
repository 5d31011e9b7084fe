package app

import (
	"context"
	"strings"
	"time"

	"quiz-app-service/internal/domain"

	"github.com/google/uuid"
)

const (
	defaultCategoryIcon  = "default-category-icon.png"
	defaultCategoryColor = "#1976D2"
)

// CategoryInput carries the writable category fields. Empty fields keep their current value on update.
type CategoryInput struct {
	Name        string
	Description string
	Icon        string
	Color       string
}

// CategoryService manages categories. Writes are admin only.
type CategoryService struct {
	categories CategoryRepository
	now        func() time.Time
}

func NewCategoryService(categories CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories, now: time.Now}
}

func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	return s.categories.ListCategories(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id string) (domain.Category, error) {
	return s.categories.GetCategory(ctx, id)
}

func (s *CategoryService) Create(ctx context.Context, actor Actor, in CategoryInput) (domain.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Category{}, err
	}
	c := domain.Category{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Icon:        in.Icon,
		Color:       in.Color,
		CreatedAt:   s.now(),
	}
	if c.Icon == "" {
		c.Icon = defaultCategoryIcon
	}
	if c.Color == "" {
		c.Color = defaultCategoryColor
	}
	if err := validateCategory(c); err != nil {
		return domain.Category{}, err
	}
	if err := s.categories.CreateCategory(ctx, c); err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, actor Actor, id string, in CategoryInput) (domain.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Category{}, err
	}
	c, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		c.Name = name
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		c.Description = desc
	}
	if in.Icon != "" {
		c.Icon = in.Icon
	}
	if in.Color != "" {
		c.Color = in.Color
	}
	if err := validateCategory(c); err != nil {
		return domain.Category{}, err
	}
	if err := s.categories.UpdateCategory(ctx, c); err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.categories.DeleteCategory(ctx, id)
}

func validateCategory(c domain.Category) error {
	if c.Name == "" {
		return domain.NewValidationError("name", "is required")
	}
	if c.Description == "" {
		return domain.NewValidationError("description", "is required")
	}
	return nil
}
