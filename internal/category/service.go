package category

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	appErrors "github.com/frahmantamala/pocket-ledger/internal"
	categoryDatamodel "github.com/frahmantamala/pocket-ledger/internal/core/datamodel/category"
	"github.com/frahmantamala/pocket-ledger/pkg/logger"
	"gorm.io/gorm"
)

// RepositoryAPI is the category storage. Lookups return (nil, nil) when the
// row does not exist.
type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*categoryDatamodel.Category, error)
	GetByID(ctx context.Context, id int64) (*categoryDatamodel.Category, error)
	// GetByName matches case-insensitively.
	GetByName(ctx context.Context, name string) (*categoryDatamodel.Category, error)
	Create(ctx context.Context, category *categoryDatamodel.Category) error
	Update(ctx context.Context, category *categoryDatamodel.Category) error
	// Delete removes the row only if no transaction references it, returning
	// ErrCategoryInUse otherwise.
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// List returns every category sorted by name. Names compare byte-wise so
// sqlite and postgres agree regardless of the database collation.
func (s *Service) List(ctx context.Context) ([]*Category, error) {
	dataCategories, err := s.repo.GetAll(ctx)
	if err != nil {
		logger.FromOr(ctx, s.logger).Error("failed to get categories from repository", "error", err)
		return nil, appErrors.NewInternalError("failed to list categories", err)
	}

	categories := FromDataModelSlice(dataCategories)
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Category, error) {
	dataCategory, err := s.repo.GetByID(ctx, id)
	if err != nil {
		logger.FromOr(ctx, s.logger).Error("failed to get category", "error", err, "category_id", id)
		return nil, appErrors.NewInternalError("failed to get category", err)
	}
	if dataCategory == nil {
		return nil, appErrors.ErrCategoryNotFound
	}
	return FromDataModel(dataCategory), nil
}

// GetByName returns (nil, nil) when no category matches.
func (s *Service) GetByName(ctx context.Context, name string) (*Category, error) {
	dataCategory, err := s.repo.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		logger.FromOr(ctx, s.logger).Error("failed to get category by name", "error", err, "name", name)
		return nil, appErrors.NewInternalError("failed to get category", err)
	}
	if dataCategory == nil {
		return nil, nil
	}
	return FromDataModel(dataCategory), nil
}

func (s *Service) Create(ctx context.Context, dto CreateCategoryDTO) (*Category, error) {
	log := logger.FromOr(ctx, s.logger)

	if err := dto.Validate(); err != nil {
		log.Warn("category validation failed", "error", err, "name", dto.Name)
		return nil, err
	}

	category := NewCategory(dto.Name, dto.MonthlyLimit)
	if err := s.ensureNameAvailable(ctx, category.Name, 0); err != nil {
		return nil, err
	}

	dataCategory := ToDataModel(category)
	if err := s.repo.Create(ctx, dataCategory); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, appErrors.ErrCategoryExists
		}
		log.Error("failed to create category", "error", err, "name", category.Name)
		return nil, appErrors.NewInternalError("failed to create category", err)
	}

	log.Info("category created", "category_id", dataCategory.ID, "name", dataCategory.Name)
	return FromDataModel(dataCategory), nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateCategoryDTO) (*Category, error) {
	log := logger.FromOr(ctx, s.logger)

	if err := dto.Validate(); err != nil {
		log.Warn("category validation failed", "error", err, "category_id", id)
		return nil, err
	}

	dataCategory, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.Error("failed to get category for update", "error", err, "category_id", id)
		return nil, appErrors.NewInternalError("failed to update category", err)
	}
	if dataCategory == nil {
		return nil, appErrors.ErrCategoryNotFound
	}

	// reserved rows are immutable, including their limit
	if IsReservedName(dataCategory.Name) {
		log.Warn("update of reserved category rejected", "category_id", id, "name", dataCategory.Name)
		return nil, appErrors.ErrReservedCategory
	}

	newName := strings.TrimSpace(dto.Name)
	if newName != dataCategory.Name {
		if err := s.ensureNameAvailable(ctx, newName, id); err != nil {
			return nil, err
		}
	}

	updated := FromDataModel(dataCategory)
	updated.Name = newName
	updated.MonthlyLimit = dto.MonthlyLimit

	next := ToDataModel(updated)
	next.CreatedAt = dataCategory.CreatedAt
	if err := s.repo.Update(ctx, next); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, appErrors.ErrCategoryExists
		}
		log.Error("failed to update category", "error", err, "category_id", id)
		return nil, appErrors.NewInternalError("failed to update category", err)
	}

	log.Info("category updated", "category_id", id, "name", next.Name)
	return FromDataModel(next), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	log := logger.FromOr(ctx, s.logger)

	dataCategory, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.Error("failed to get category for delete", "error", err, "category_id", id)
		return appErrors.NewInternalError("failed to delete category", err)
	}
	if dataCategory == nil {
		return appErrors.ErrCategoryNotFound
	}
	if IsReservedName(dataCategory.Name) {
		log.Warn("delete of reserved category rejected", "category_id", id, "name", dataCategory.Name)
		return appErrors.ErrReservedUndeletable
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, appErrors.ErrCategoryInUse):
			log.Warn("delete of referenced category rejected", "category_id", id)
			return appErrors.ErrCategoryInUse
		case errors.Is(err, appErrors.ErrCategoryNotFound):
			return appErrors.ErrCategoryNotFound
		}
		log.Error("failed to delete category", "error", err, "category_id", id)
		return appErrors.NewInternalError("failed to delete category", err)
	}

	log.Info("category deleted", "category_id", id, "name", dataCategory.Name)
	return nil
}

// EnsureReserved creates the reserved categories that are missing.
func (s *Service) EnsureReserved(ctx context.Context) error {
	for _, name := range ReservedNames {
		existing, err := s.repo.GetByName(ctx, name)
		if err != nil {
			return appErrors.NewInternalError("failed to look up reserved category", err)
		}
		if existing != nil {
			continue
		}
		if err := s.repo.Create(ctx, &categoryDatamodel.Category{Name: name}); err != nil {
			return appErrors.NewInternalError("failed to create reserved category", err)
		}
		logger.FromOr(ctx, s.logger).Info("reserved category created", "name", name)
	}
	return nil
}

// ensureNameAvailable rejects names owned by another category (ignoring case)
// and reserved names. selfID is excluded from the clash check.
func (s *Service) ensureNameAvailable(ctx context.Context, name string, selfID int64) error {
	if IsReservedName(name) {
		return appErrors.ErrCategoryExists
	}
	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		logger.FromOr(ctx, s.logger).Error("failed to check category name", "error", err, "name", name)
		return appErrors.NewInternalError("failed to check category name", err)
	}
	if existing != nil && existing.ID != selfID {
		return appErrors.ErrCategoryExists
	}
	return nil
}
