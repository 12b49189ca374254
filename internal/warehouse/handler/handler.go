package handler

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/grpcx"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const ServiceName = "omnipos.inventory.v1.WarehouseService"

type WarehouseHandler struct {
	uc     warehouse.UseCase
	logger logger.ZapLogger
}

func NewWarehouseHandler(uc warehouse.UseCase, log logger.ZapLogger) *WarehouseHandler {
	return &WarehouseHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *WarehouseHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(grpcx.ServiceDesc(ServiceName,
		grpcx.Method(ServiceName, "CreateWarehouse", h.CreateWarehouse),
		grpcx.Method(ServiceName, "GetWarehouse", h.GetWarehouse),
		grpcx.Method(ServiceName, "ListWarehouses", h.ListWarehouses),
		grpcx.Method(ServiceName, "UpdateWarehouse", h.UpdateWarehouse),
		grpcx.Method(ServiceName, "DeleteWarehouse", h.DeleteWarehouse),
	), h)
}

type CreateWarehouseRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type UpdateWarehouseRequest struct {
	ID       int64   `json:"id"`
	Name     *string `json:"name,omitempty"`
	Location *string `json:"location,omitempty"`
}

type WarehouseIDRequest struct {
	ID int64 `json:"id"`
}

type ListWarehousesRequest struct {
	Search   string `json:"search"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type ListWarehousesResponse struct {
	Warehouses []model.Warehouse `json:"warehouses"`
	Total      int               `json:"total"`
}

func (h *WarehouseHandler) CreateWarehouse(ctx context.Context, req *CreateWarehouseRequest) (*model.Warehouse, error) {
	w, err := h.uc.CreateWarehouse(ctx, &dto.CreateWarehouseInput{
		Name:     req.Name,
		Location: req.Location,
		UserID:   auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return w, nil
}

func (h *WarehouseHandler) GetWarehouse(ctx context.Context, req *WarehouseIDRequest) (*model.Warehouse, error) {
	w, err := h.uc.GetWarehouse(ctx, req.ID)
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return w, nil
}

func (h *WarehouseHandler) ListWarehouses(ctx context.Context, req *ListWarehousesRequest) (*ListWarehousesResponse, error) {
	warehouses, total, err := h.uc.ListWarehouses(ctx, &dto.WarehouseFilters{
		SearchQuery: req.Search,
		Page:        req.Page,
		PageSize:    req.PageSize,
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &ListWarehousesResponse{Warehouses: warehouses, Total: total}, nil
}

func (h *WarehouseHandler) UpdateWarehouse(ctx context.Context, req *UpdateWarehouseRequest) (*model.Warehouse, error) {
	w, err := h.uc.UpdateWarehouse(ctx, &dto.UpdateWarehouseInput{
		ID:       req.ID,
		Name:     req.Name,
		Location: req.Location,
		UserID:   auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return w, nil
}

func (h *WarehouseHandler) DeleteWarehouse(ctx context.Context, req *WarehouseIDRequest) (*emptypb.Empty, error) {
	if err := h.uc.DeleteWarehouse(ctx, req.ID, auth.GetUserID(ctx)); err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &emptypb.Empty{}, nil
}
