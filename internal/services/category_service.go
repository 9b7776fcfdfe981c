package services

import (
	"context"
	"errors"
	"fmt"

	"spendlog/internal/core"
	"spendlog/internal/log"
)

// CategoryService validates category input before touching the store.
type CategoryService struct {
	store CategoryStore
	notifier
}

func NewCategoryService(store CategoryStore, publisher EventPublisher, logger *log.Logger) *CategoryService {
	if logger == nil {
		logger = log.Default()
	}
	l := logger.WithComponent(log.ComponentCategory)
	return &CategoryService{store: store, notifier: notifier{publisher: publisher, logger: l}}
}

func (s *CategoryService) Create(ctx context.Context, in core.CreateCategoryInput) (core.Category, error) {
	if err := in.Validate(); err != nil {
		return core.Category{}, err
	}
	c, err := s.store.CreateCategory(ctx, in.Name)
	logResult(ctx, s.logger, "Category created", log.NewFields().WithOperation(log.OpCreate).WithCategory(c.ID), err)
	if err != nil {
		return core.Category{}, passThrough("create category", err)
	}
	s.notify(ctx, core.EntityCategory, core.ActionCreated, c.ID)
	return c, nil
}

func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	logList(ctx, s.logger, "Categories listed", len(categories), err)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) Update(ctx context.Context, in core.UpdateCategoryInput) (core.Category, error) {
	if err := in.Validate(); err != nil {
		return core.Category{}, err
	}
	c, err := s.store.UpdateCategory(ctx, in.ID, in.Name)
	logResult(ctx, s.logger, "Category updated", log.NewFields().WithOperation(log.OpUpdate).WithCategory(in.ID), err)
	if err != nil {
		return core.Category{}, passThrough("update category", err)
	}
	s.notify(ctx, core.EntityCategory, core.ActionUpdated, c.ID)
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	err := s.store.DeleteCategory(ctx, id)
	logResult(ctx, s.logger, "Category deleted", log.NewFields().WithOperation(log.OpDelete).WithCategory(id), err)
	if err != nil {
		return passThrough("delete category", err)
	}
	s.notify(ctx, core.EntityCategory, core.ActionDeleted, id)
	return nil
}

// passThrough returns domain errors untouched so their message reaches the
// caller verbatim, and wraps everything else.
func passThrough(op string, err error) error {
	var de *core.Error
	if errors.As(err, &de) {
		return de
	}
	return fmt.Errorf("%s: %w", op, err)
}
