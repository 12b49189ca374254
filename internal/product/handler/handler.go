package handler

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/product"
	"github.com/fekuna/omnipos-inventory-service/internal/product/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/grpcx"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const ServiceName = "omnipos.inventory.v1.ProductService"

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ProductHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(grpcx.ServiceDesc(ServiceName,
		grpcx.Method(ServiceName, "CreateProduct", h.CreateProduct),
		grpcx.Method(ServiceName, "GetProduct", h.GetProduct),
		grpcx.Method(ServiceName, "ListProducts", h.ListProducts),
		grpcx.Method(ServiceName, "SearchProducts", h.SearchProducts),
		grpcx.Method(ServiceName, "UpdateProduct", h.UpdateProduct),
		grpcx.Method(ServiceName, "DeleteProduct", h.DeleteProduct),
	), h)
}

type CreateProductRequest struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Unit     string          `json:"unit"`
	Price    decimal.Decimal `json:"price"`
	MinStock int64           `json:"min_stock"`
}

type UpdateProductRequest struct {
	ID       int64            `json:"id"`
	SKU      *string          `json:"sku,omitempty"`
	Name     *string          `json:"name,omitempty"`
	Category *string          `json:"category,omitempty"`
	Unit     *string          `json:"unit,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	MinStock *int64           `json:"min_stock,omitempty"`
}

type ProductIDRequest struct {
	ID int64 `json:"id"`
}

type ListProductsRequest struct {
	Search    string `json:"search"`
	Category  string `json:"category"`
	LowStock  bool   `json:"low_stock"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

type SearchProductsRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type ListProductsResponse struct {
	Products []model.Product `json:"products"`
	Total    int             `json:"total"`
	Page     int             `json:"page,omitempty"`
	PageSize int             `json:"page_size,omitempty"`
}

func (h *ProductHandler) CreateProduct(ctx context.Context, req *CreateProductRequest) (*model.Product, error) {
	p, err := h.uc.CreateProduct(ctx, &dto.CreateProductInput{
		SKU:      req.SKU,
		Name:     req.Name,
		Category: req.Category,
		Unit:     req.Unit,
		Price:    req.Price,
		MinStock: req.MinStock,
		UserID:   auth.GetUserID(ctx),
	})
	if err != nil {
		h.logger.Error("failed to create product", zap.Error(err))
		return nil, apperr.ToStatus(err)
	}
	return p, nil
}

func (h *ProductHandler) GetProduct(ctx context.Context, req *ProductIDRequest) (*model.Product, error) {
	p, err := h.uc.GetProduct(ctx, req.ID)
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return p, nil
}

func (h *ProductHandler) ListProducts(ctx context.Context, req *ListProductsRequest) (*ListProductsResponse, error) {
	products, count, err := h.uc.ListProducts(ctx, &dto.ProductFilters{
		SearchQuery: req.Search,
		Category:    req.Category,
		LowStock:    req.LowStock,
		SortBy:      req.SortBy,
		SortOrder:   req.SortOrder,
		Page:        req.Page,
		PageSize:    req.PageSize,
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &ListProductsResponse{
		Products: products,
		Total:    count,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

func (h *ProductHandler) SearchProducts(ctx context.Context, req *SearchProductsRequest) (*ListProductsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	products, count, err := h.uc.ListProducts(ctx, &dto.ProductFilters{
		SearchQuery: req.Query,
		Page:        1,
		PageSize:    limit,
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &ListProductsResponse{Products: products, Total: count}, nil
}

func (h *ProductHandler) UpdateProduct(ctx context.Context, req *UpdateProductRequest) (*model.Product, error) {
	p, err := h.uc.UpdateProduct(ctx, &dto.UpdateProductInput{
		ID:       req.ID,
		SKU:      req.SKU,
		Name:     req.Name,
		Category: req.Category,
		Unit:     req.Unit,
		Price:    req.Price,
		MinStock: req.MinStock,
		UserID:   auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return p, nil
}

func (h *ProductHandler) DeleteProduct(ctx context.Context, req *ProductIDRequest) (*emptypb.Empty, error) {
	if err := h.uc.DeleteProduct(ctx, req.ID, auth.GetUserID(ctx)); err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &emptypb.Empty{}, nil
}
