package handler

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/grpcx"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"google.golang.org/grpc"
)

const ServiceName = "omnipos.inventory.v1.InventoryService"

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InventoryHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(grpcx.ServiceDesc(ServiceName,
		grpcx.Method(ServiceName, "GetInventory", h.GetInventory),
		grpcx.Method(ServiceName, "ListInventory", h.ListInventory),
		grpcx.Method(ServiceName, "ListLowStock", h.ListLowStock),
		grpcx.Method(ServiceName, "StockIn", h.StockIn),
		grpcx.Method(ServiceName, "StockOut", h.StockOut),
		grpcx.Method(ServiceName, "Transfer", h.Transfer),
		grpcx.Method(ServiceName, "AdjustInventory", h.AdjustInventory),
		grpcx.Method(ServiceName, "ListStockIns", h.ListStockIns),
		grpcx.Method(ServiceName, "ListStockOuts", h.ListStockOuts),
		grpcx.Method(ServiceName, "ProductMovements", h.ProductMovements),
	), h)
}

type GetInventoryRequest struct {
	ProductID   int64 `json:"product_id"`
	WarehouseID int64 `json:"warehouse_id"`
}

type ListInventoryRequest struct {
	ProductID   int64 `json:"product_id"`
	WarehouseID int64 `json:"warehouse_id"`
	LowStock    bool  `json:"low_stock"`
}

type InventoryEntry struct {
	model.InventoryDetail
	LowStock bool `json:"low_stock"`
}

type ListInventoryResponse struct {
	Items []InventoryEntry `json:"items"`
}

type StockInRequest struct {
	ProductID   int64  `json:"product_id"`
	WarehouseID int64  `json:"warehouse_id"`
	Quantity    int64  `json:"quantity"`
	ImportDate  string `json:"import_date"`
	Note        string `json:"note"`
}

type StockOutRequest struct {
	ProductID   int64  `json:"product_id"`
	WarehouseID int64  `json:"warehouse_id"`
	Quantity    int64  `json:"quantity"`
	ExportDate  string `json:"export_date"`
	Reason      string `json:"reason"`
}

type TransferRequest struct {
	ProductID       int64  `json:"product_id"`
	FromWarehouseID int64  `json:"from_warehouse_id"`
	ToWarehouseID   int64  `json:"to_warehouse_id"`
	Quantity        int64  `json:"quantity"`
	Note            string `json:"note"`
}

type AdjustInventoryRequest struct {
	ProductID   int64  `json:"product_id"`
	WarehouseID int64  `json:"warehouse_id"`
	NewQuantity int64  `json:"new_quantity"`
	Reason      string `json:"reason"`
}

type ListMovementsRequest struct {
	ProductID   int64  `json:"product_id"`
	WarehouseID int64  `json:"warehouse_id"`
	Reason      string `json:"reason"`
	FromDate    string `json:"from_date"`
	ToDate      string `json:"to_date"`
	Page        int    `json:"page"`
	PageSize    int    `json:"page_size"`
}

type ListStockInsResponse struct {
	Items []model.StockIn `json:"items"`
	Total int             `json:"total"`
}

type ListStockOutsResponse struct {
	Items []model.StockOut `json:"items"`
	Total int              `json:"total"`
}

type ProductMovementsResponse struct {
	Movements []model.Movement `json:"movements"`
}

func (h *InventoryHandler) GetInventory(ctx context.Context, req *GetInventoryRequest) (*model.Inventory, error) {
	inv, err := h.uc.GetInventory(ctx, req.ProductID, req.WarehouseID)
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return inv, nil
}

func (h *InventoryHandler) ListInventory(ctx context.Context, req *ListInventoryRequest) (*ListInventoryResponse, error) {
	items, err := h.uc.ListInventory(ctx, &dto.InventoryFilters{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		LowStock:    req.LowStock,
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &ListInventoryResponse{Items: mapEntries(items)}, nil
}

func (h *InventoryHandler) ListLowStock(ctx context.Context, req *ListInventoryRequest) (*ListInventoryResponse, error) {
	items, err := h.uc.ListLowStock(ctx, req.WarehouseID)
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &ListInventoryResponse{Items: mapEntries(items)}, nil
}

func (h *InventoryHandler) StockIn(ctx context.Context, req *StockInRequest) (*model.StockIn, error) {
	date, err := grpcx.ParseDate("import_date", req.ImportDate)
	if err != nil {
		return nil, err
	}
	in, err := h.uc.StockIn(ctx, &dto.StockInInput{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Quantity,
		Date:        date,
		Note:        req.Note,
		UserID:      auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return in, nil
}

func (h *InventoryHandler) StockOut(ctx context.Context, req *StockOutRequest) (*model.StockOut, error) {
	date, err := grpcx.ParseDate("export_date", req.ExportDate)
	if err != nil {
		return nil, err
	}
	out, err := h.uc.StockOut(ctx, &dto.StockOutInput{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Quantity,
		Date:        date,
		Reason:      req.Reason,
		UserID:      auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return out, nil
}

func (h *InventoryHandler) Transfer(ctx context.Context, req *TransferRequest) (*dto.TransferResult, error) {
	res, err := h.uc.Transfer(ctx, &dto.TransferInput{
		ProductID:       req.ProductID,
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		Quantity:        req.Quantity,
		Note:            req.Note,
		UserID:          auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return res, nil
}

func (h *InventoryHandler) AdjustInventory(ctx context.Context, req *AdjustInventoryRequest) (*model.Inventory, error) {
	inv, err := h.uc.Adjust(ctx, &dto.AdjustInput{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		NewQuantity: req.NewQuantity,
		Reason:      req.Reason,
		UserID:      auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return inv, nil
}

func (h *InventoryHandler) ListStockIns(ctx context.Context, req *ListMovementsRequest) (*ListStockInsResponse, error) {
	filters, err := movementFilters(req)
	if err != nil {
		return nil, err
	}
	items, total, err := h.uc.ListStockIns(ctx, filters)
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &ListStockInsResponse{Items: items, Total: total}, nil
}

func (h *InventoryHandler) ListStockOuts(ctx context.Context, req *ListMovementsRequest) (*ListStockOutsResponse, error) {
	filters, err := movementFilters(req)
	if err != nil {
		return nil, err
	}
	items, total, err := h.uc.ListStockOuts(ctx, filters)
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &ListStockOutsResponse{Items: items, Total: total}, nil
}

func (h *InventoryHandler) ProductMovements(ctx context.Context, req *ListMovementsRequest) (*ProductMovementsResponse, error) {
	filters, err := movementFilters(req)
	if err != nil {
		return nil, err
	}
	mvs, err := h.uc.ProductMovements(ctx, req.ProductID, filters.FromDate, filters.ToDate)
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &ProductMovementsResponse{Movements: mvs}, nil
}

func movementFilters(req *ListMovementsRequest) (*dto.MovementFilters, error) {
	from, err := grpcx.ParseOptionalDate("from_date", req.FromDate)
	if err != nil {
		return nil, err
	}
	to, err := grpcx.ParseOptionalDate("to_date", req.ToDate)
	if err != nil {
		return nil, err
	}
	return &dto.MovementFilters{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		Reason:      req.Reason,
		FromDate:    from,
		ToDate:      to,
		Page:        req.Page,
		PageSize:    req.PageSize,
	}, nil
}

func mapEntries(items []model.InventoryDetail) []InventoryEntry {
	entries := make([]InventoryEntry, len(items))
	for i, item := range items {
		entries[i] = InventoryEntry{InventoryDetail: item, LowStock: item.LowStock()}
	}
	return entries
}
