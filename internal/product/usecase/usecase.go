package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/activity"
	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/product"
	"github.com/fekuna/omnipos-inventory-service/internal/product/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/fekuna/omnipos-inventory-service/pkg/search"
	"go.uber.org/zap"
)

const (
	indexName    = "products"
	listCacheTTL = 5 * time.Minute
	listPattern  = "products:list:*"
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"id": { "type": "long" },
			"sku": { "type": "keyword" },
			"name": { "type": "text" },
			"category": { "type": "keyword" },
			"unit": { "type": "keyword" },
			"price": { "type": "double" },
			"min_stock": { "type": "long" },
			"created_at": { "type": "date" },
			"updated_at": { "type": "date" }
		}
	}
}`

// Cache is the part of the redis client the product list cache uses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
}

// Searcher is the part of the elasticsearch client product search uses.
type Searcher interface {
	CreateIndex(ctx context.Context, index, mapping string) error
	Index(ctx context.Context, index, id string, doc any) error
	Delete(ctx context.Context, index, id string) error
	Search(ctx context.Context, index string, query map[string]any) (*search.SearchResponse, error)
}

type productUseCase struct {
	repo   product.Repository
	tm     txmanager.Transactor
	cache  Cache
	es     Searcher
	sink   activity.Sink
	logger logger.ZapLogger
}

// NewProductUseCase wires the product service. cache and es may be nil, in
// which case lists always come from the database.
func NewProductUseCase(repo product.Repository, tm txmanager.Transactor, cache Cache, es Searcher, sink activity.Sink, log logger.ZapLogger) product.UseCase {
	if sink == nil {
		sink = activity.Nop()
	}
	return &productUseCase{
		repo:   repo,
		tm:     tm,
		cache:  cache,
		es:     es,
		sink:   sink,
		logger: log,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	sku := strings.TrimSpace(input.SKU)
	name := strings.TrimSpace(input.Name)
	if sku == "" || name == "" {
		return nil, apperr.Invalid("sku and name are required")
	}
	if input.Price.IsNegative() {
		return nil, apperr.Invalid("price cannot be negative")
	}
	if input.MinStock < 0 {
		return nil, apperr.Invalid("min stock cannot be negative")
	}

	now := time.Now()
	p := &model.Product{
		BaseModel: model.BaseModel{CreatedAt: now, UpdatedAt: now},
		SKU:       sku,
		Name:      name,
		Category:  input.Category,
		Unit:      input.Unit,
		Price:     input.Price,
		MinStock:  input.MinStock,
	}

	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.repo.Create(ctx, p); err != nil {
			return apperr.Conflict(err, "sku "+sku)
		}
		if err := uc.repo.CreateInventoryRows(ctx, p.ID); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionCreate,
			Table:       "products",
			RecordID:    p.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Created product %s", p.SKU),
		})
		uc.afterChange(ctx, p, false)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("product created", zap.Int64("product_id", p.ID), zap.String("sku", p.SKU))
	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("product", id)
	}
	return p, nil
}

type cachedList struct {
	Products []model.Product
	Count    int
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	f := *filters
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 15
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}

	cacheKey, err := generateCacheKey(&f)
	if err == nil && uc.cache != nil {
		if val, err := uc.cache.Get(ctx, cacheKey); err == nil {
			var result cachedList
			if err := json.Unmarshal(val, &result); err == nil {
				return result.Products, result.Count, nil
			}
		}
	}

	// Full-text search only answers plain queries; everything else is SQL.
	if f.SearchQuery != "" && f.Category == "" && !f.LowStock && uc.es != nil {
		products, count, err := uc.searchElastic(ctx, &f)
		if err == nil {
			return products, count, nil
		}
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	products, count, err := uc.repo.FindAll(ctx, &f)
	if err != nil {
		return nil, 0, err
	}

	if cacheKey != "" && uc.cache != nil {
		if data, err := json.Marshal(cachedList{Products: products, Count: count}); err == nil {
			if err := uc.cache.Set(ctx, cacheKey, data, listCacheTTL); err != nil {
				uc.logger.Error("failed to cache product list", zap.Error(err))
			}
		}
	}
	return products, count, nil
}

func (uc *productUseCase) searchElastic(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	q := map[string]any{
		"query": map[string]any{
			"query_string": map[string]any{
				"query":  fmt.Sprintf("*%s*", f.SearchQuery),
				"fields": []string{"name^3", "sku"},
			},
		},
		"from": (f.Page - 1) * f.PageSize,
		"size": f.PageSize,
	}

	res, err := uc.es.Search(ctx, indexName, q)
	if err != nil {
		return nil, 0, err
	}
	products := make([]model.Product, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var p model.Product
		if err := json.Unmarshal(hit.Source, &p); err != nil {
			uc.logger.Warn("skipping undecodable search hit", zap.String("id", hit.ID), zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products, res.Hits.Total.Value, nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	var p *model.Product
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = uc.GetProduct(ctx, input.ID); err != nil {
			return err
		}

		if input.SKU != nil {
			if p.SKU = strings.TrimSpace(*input.SKU); p.SKU == "" {
				return apperr.Invalid("sku is required")
			}
		}
		if input.Name != nil {
			if p.Name = strings.TrimSpace(*input.Name); p.Name == "" {
				return apperr.Invalid("name is required")
			}
		}
		if input.Category != nil {
			p.Category = *input.Category
		}
		if input.Unit != nil {
			p.Unit = *input.Unit
		}
		if input.Price != nil {
			if input.Price.IsNegative() {
				return apperr.Invalid("price cannot be negative")
			}
			p.Price = *input.Price
		}
		if input.MinStock != nil {
			if *input.MinStock < 0 {
				return apperr.Invalid("min stock cannot be negative")
			}
			p.MinStock = *input.MinStock
		}

		p.UpdatedAt = time.Now()
		if err := uc.repo.Update(ctx, p); err != nil {
			return apperr.Conflict(err, "sku "+p.SKU)
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionUpdate,
			Table:       "products",
			RecordID:    p.ID,
			Actor:       input.UserID,
			Description: fmt.Sprintf("Updated product %s", p.SKU),
		})
		uc.afterChange(ctx, p, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id int64, userID string) error {
	return uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		p, err := uc.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		ref, err := uc.repo.Reference(ctx, id)
		if err != nil {
			return err
		}
		if ref != "" {
			return fmt.Errorf("%w: product %d is referenced by %s", apperr.ErrInUse, id, ref)
		}
		if err := uc.repo.Delete(ctx, id); err != nil {
			return err
		}
		uc.sink.Record(ctx, activity.Event{
			Action:      activity.ActionDelete,
			Table:       "products",
			RecordID:    id,
			Actor:       userID,
			Description: fmt.Sprintf("Deleted product %s", p.SKU),
		})
		uc.afterChange(ctx, p, true)
		return nil
	})
}

// afterChange invalidates list caches and syncs the search index once the
// surrounding transaction commits.
func (uc *productUseCase) afterChange(ctx context.Context, p *model.Product, deleted bool) {
	snapshot := *p
	txmanager.AfterCommit(ctx, func() {
		go uc.invalidateProductCache(context.Background())
		if deleted {
			go uc.removeFromElastic(context.Background(), snapshot.ID)
		} else {
			go uc.syncToElastic(context.Background(), &snapshot)
		}
	})
}

func (uc *productUseCase) syncToElastic(ctx context.Context, p *model.Product) {
	if uc.es == nil {
		return
	}
	if err := uc.es.CreateIndex(ctx, indexName, indexMapping); err != nil {
		uc.logger.Error("failed to ensure product index", zap.Error(err))
	}
	if err := uc.es.Index(ctx, indexName, strconv.FormatInt(p.ID, 10), p); err != nil {
		uc.logger.Error("failed to index product", zap.Int64("product_id", p.ID), zap.Error(err))
	}
}

func (uc *productUseCase) removeFromElastic(ctx context.Context, id int64) {
	if uc.es == nil {
		return
	}
	if err := uc.es.Delete(ctx, indexName, strconv.FormatInt(id, 10)); err != nil {
		uc.logger.Error("failed to delete product from ES", zap.Int64("product_id", id), zap.Error(err))
	}
}

func (uc *productUseCase) invalidateProductCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeletePattern(ctx, listPattern); err != nil {
		uc.logger.Error("failed to invalidate product cache", zap.Error(err))
	}
}

func generateCacheKey(filters *dto.ProductFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("products:list:%x", md5.Sum(data)), nil
}
