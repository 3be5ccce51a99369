package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"courseline/internal/domain"
	"courseline/internal/engine/policy"
	"courseline/internal/events"
	"courseline/internal/validation"
)

type CategoryInput struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (e Engine) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return e.Repo.ListCategories(ctx)
}

func (e Engine) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	c, err := e.Repo.GetCategory(ctx, nil, id)
	return c, notFound(err, "category", id)
}

func (e Engine) CreateCategory(ctx context.Context, p domain.Principal, in CategoryInput) (domain.Category, error) {
	return e.saveCategory(ctx, p, "", in)
}

func (e Engine) UpdateCategory(ctx context.Context, p domain.Principal, id string, in CategoryInput) (domain.Category, error) {
	return e.saveCategory(ctx, p, id, in)
}

// saveCategory inserts when id is empty and updates otherwise. Names are unique ignoring case.
func (e Engine) saveCategory(ctx context.Context, p domain.Principal, id string, in CategoryInput) (domain.Category, error) {
	if !policy.CanManageCategories(p) {
		return domain.Category{}, e.deny(p, "manage categories")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return domain.Category{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Category{}, err
	}
	defer tx.Rollback()
	var c domain.Category
	if id != "" {
		if c, err = e.Repo.GetCategory(ctx, tx, id); err != nil {
			return domain.Category{}, notFound(err, "category", id)
		}
	}
	taken, err := e.Repo.CategoryNameTaken(ctx, tx, in.Name, id)
	if err != nil {
		return domain.Category{}, err
	}
	if taken {
		return domain.Category{}, domain.BadRequest(domain.CodeDuplicateCategory, fmt.Sprintf("category %q already exists", in.Name))
	}
	c.Name, c.Description = in.Name, in.Description
	evt := events.CategoryUpdated
	if id == "" {
		c.ID = uuid.NewString()
		c.CreatedAt = e.stamp()
		evt = events.CategoryCreated
		err = e.Repo.InsertCategory(ctx, tx, c)
	} else {
		err = e.Repo.UpdateCategory(ctx, tx, c)
	}
	if err != nil {
		return domain.Category{}, err
	}
	if err := e.emit(ctx, tx, evt, "", "category", c.ID, p, events.EventPayload{"name": c.Name}); err != nil {
		return domain.Category{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

// DeleteCategory removes the category and detaches it from every course.
func (e Engine) DeleteCategory(ctx context.Context, p domain.Principal, id string) error {
	if !policy.CanManageCategories(p) {
		return e.deny(p, "manage categories")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteCategory(ctx, tx, id); err != nil {
		return notFound(err, "category", id)
	}
	if err := e.emit(ctx, tx, events.CategoryDeleted, "", "category", id, p, nil); err != nil {
		return err
	}
	return tx.Commit()
}
