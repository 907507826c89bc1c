package store

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/lifeone/internal/apperr"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/storage"
)

// ListCategories returns all categories, the reserved one first.
func (s *State) ListCategories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.data.Categories)
}

// FindCategory returns the category whose name matches after trimming and
// case folding.
func FindCategory(cats []models.Category, name string) (models.Category, bool) {
	key := CategoryKey(name)
	for _, c := range cats {
		if CategoryKey(c.Name) == key {
			return c, true
		}
	}
	return models.Category{}, false
}

// CategoryKey is the comparison form of a category name.
func CategoryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AddCategory creates a category. An empty color gets a random bright one.
func (s *State) AddCategory(name, color string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, fmt.Errorf("category name is required: %w", apperr.ErrInvalid)
	}
	if color == "" {
		color = models.RandomColor(nil)
	} else if _, err := models.IsLight(color); err != nil {
		return models.Category{}, fmt.Errorf("%v: %w", err, apperr.ErrInvalid)
	}
	c := models.Category{ID: s.newID(), Name: name, Color: strings.ToUpper(color)}
	err := s.write(func(w *writer) error {
		if _, ok := FindCategory(w.d.Categories, name); ok {
			return fmt.Errorf("category %q: %w", name, apperr.ErrAlreadyExists)
		}
		w.d.Categories = append(w.d.Categories, c)
		w.touch(storage.KeyCategories)
		return nil
	})
	return c, err
}

// UpdateCategory renames or recolours a category. The reserved category
// cannot be changed.
func (s *State) UpdateCategory(id string, name, color *string) (models.Category, error) {
	if id == models.UncategorizedID {
		return models.Category{}, apperr.ErrReserved
	}
	var out models.Category
	err := s.write(func(w *writer) error {
		i := indexOf(w.d.Categories, func(c models.Category) bool { return c.ID == id })
		if i < 0 {
			return fmt.Errorf("category %s: %w", id, apperr.ErrNotFound)
		}
		c := w.d.Categories[i]
		if name != nil {
			n := strings.TrimSpace(*name)
			if n == "" {
				return fmt.Errorf("category name is required: %w", apperr.ErrInvalid)
			}
			if other, ok := FindCategory(w.d.Categories, n); ok && other.ID != id {
				return fmt.Errorf("category %q: %w", n, apperr.ErrAlreadyExists)
			}
			c.Name = n
		}
		if color != nil {
			if _, err := models.IsLight(*color); err != nil {
				return fmt.Errorf("%v: %w", err, apperr.ErrInvalid)
			}
			c.Color = strings.ToUpper(*color)
		}
		w.d.Categories[i] = c
		w.touch(storage.KeyCategories)
		out = c
		return nil
	})
	return out, err
}

// DeleteCategory removes a category and clears it from schedule items.
// It returns how many items were detached.
func (s *State) DeleteCategory(id string) (int, error) {
	if id == models.UncategorizedID {
		return 0, apperr.ErrReserved
	}
	detached := 0
	err := s.write(func(w *writer) error {
		i := indexOf(w.d.Categories, func(c models.Category) bool { return c.ID == id })
		if i < 0 {
			return fmt.Errorf("category %s: %w", id, apperr.ErrNotFound)
		}
		w.d.Categories = slices.Delete(w.d.Categories, i, i+1)
		w.touch(storage.KeyCategories)
		for j := range w.d.Schedule {
			if w.d.Schedule[j].CategoryID == id {
				w.d.Schedule[j].CategoryID = ""
				detached++
			}
		}
		if detached > 0 {
			w.touch(storage.KeySchedule)
		}
		return nil
	})
	return detached, err
}
