package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"garage-system/internal/apperr"
	"garage-system/internal/database/models"
)

const (
	SERVICE_CACHE_KEY = "catalog:services"
	PACK_CACHE_KEY    = "catalog:packs"
	CACHE_TTL_LONG    = 2 * time.Hour
)

// CatalogHandler manages the reusable service and pack definitions that
// quote lines reference. Prices live on the quote lines, not here: the
// catalog only names and groups work.
type CatalogHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCatalogHandler(db *gorm.DB, redisClient *redis.Client) *CatalogHandler {
	return &CatalogHandler{
		db:    db,
		redis: redisClient,
	}
}

type ServiceInput struct {
	Name        string `json:"name" binding:"required"`
	Type        string `json:"type" binding:"required"`
	Description string `json:"description"`
}

type PackInput struct {
	Name       string  `json:"name" binding:"required"`
	ServiceIDs []int64 `json:"service_ids" binding:"required,min=1"`
	Discount   string  `json:"discount"`
}

func (h *CatalogHandler) invalidateCache(ctx context.Context) {
	if h.redis == nil {
		return
	}
	_ = h.redis.Del(ctx, SERVICE_CACHE_KEY, PACK_CACHE_KEY)
}

func (h *CatalogHandler) CreateService(ctx context.Context, in ServiceInput) (*models.Service, error) {
	var existing models.Service
	if err := h.db.WithContext(ctx).Where("name = ?", in.Name).First(&existing).Error; err == nil {
		return nil, apperr.New(apperr.KindConflict, "service %q already exists", in.Name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	svc := models.Service{
		Name:        in.Name,
		Type:        in.Type,
		Description: in.Description,
	}
	if err := h.db.WithContext(ctx).Create(&svc).Error; err != nil {
		return nil, err
	}
	h.invalidateCache(ctx)
	return &svc, nil
}

func (h *CatalogHandler) GetService(ctx context.Context, id int64) (*models.Service, error) {
	var svc models.Service
	if err := h.db.WithContext(ctx).First(&svc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "service %d not found", id)
		}
		return nil, err
	}
	return &svc, nil
}

func (h *CatalogHandler) ListServices(ctx context.Context, serviceType string) ([]models.Service, error) {
	query := h.db.WithContext(ctx).Model(&models.Service{})
	if serviceType != "" {
		query = query.Where("type = ?", serviceType)
	}
	var services []models.Service
	err := query.Order("name").Find(&services).Error
	return services, err
}

// CreatePack groups existing services under one name with an optional
// discount. Every referenced service must exist.
func (h *CatalogHandler) CreatePack(ctx context.Context, in PackInput) (*models.ServicePack, error) {
	var existing models.ServicePack
	if err := h.db.WithContext(ctx).Where("name = ?", in.Name).First(&existing).Error; err == nil {
		return nil, apperr.New(apperr.KindConflict, "pack %q already exists", in.Name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var services []models.Service
	if err := h.db.WithContext(ctx).Where("id IN ?", in.ServiceIDs).Find(&services).Error; err != nil {
		return nil, err
	}
	if len(services) != len(in.ServiceIDs) {
		return nil, apperr.New(apperr.KindValidation, "pack references %d services, only %d exist", len(in.ServiceIDs), len(services))
	}

	discount := in.Discount
	if discount == "" {
		discount = "0.00"
	}
	pack := models.ServicePack{
		Name:     in.Name,
		Services: services,
		Discount: discount,
	}
	if err := h.db.WithContext(ctx).Create(&pack).Error; err != nil {
		return nil, err
	}
	h.invalidateCache(ctx)
	return &pack, nil
}

func (h *CatalogHandler) GetPack(ctx context.Context, id int64) (*models.ServicePack, error) {
	var pack models.ServicePack
	if err := h.db.WithContext(ctx).Preload("Services").First(&pack, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "pack %d not found", id)
		}
		return nil, err
	}
	return &pack, nil
}

func (h *CatalogHandler) ListPacks(ctx context.Context) ([]models.ServicePack, error) {
	var packs []models.ServicePack
	err := h.db.WithContext(ctx).Preload("Services").Order("name").Find(&packs).Error
	if err != nil {
		return nil, fmt.Errorf("list packs: %w", err)
	}
	return packs, nil
}
