package handler

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/production"
	"github.com/fekuna/omnipos-inventory-service/internal/production/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/grpcx"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const ServiceName = "omnipos.inventory.v1.ProductionService"

type ProductionHandler struct {
	uc     production.UseCase
	logger logger.ZapLogger
}

func NewProductionHandler(uc production.UseCase, log logger.ZapLogger) *ProductionHandler {
	return &ProductionHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ProductionHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(grpcx.ServiceDesc(ServiceName,
		grpcx.Method(ServiceName, "CreateProductionOrder", h.CreateProductionOrder),
		grpcx.Method(ServiceName, "GetProductionOrder", h.GetProductionOrder),
		grpcx.Method(ServiceName, "ListProductionOrders", h.ListProductionOrders),
		grpcx.Method(ServiceName, "UpdateProductionOrder", h.UpdateProductionOrder),
		grpcx.Method(ServiceName, "StartProduction", h.StartProduction),
		grpcx.Method(ServiceName, "CompleteProduction", h.CompleteProduction),
		grpcx.Method(ServiceName, "CancelProduction", h.CancelProduction),
		grpcx.Method(ServiceName, "AddProductionLog", h.AddProductionLog),
		grpcx.Method(ServiceName, "CheckMaterials", h.CheckMaterials),
		grpcx.Method(ServiceName, "MaterialRequirements", h.MaterialRequirements),
		grpcx.Method(ServiceName, "GetStatistics", h.GetStatistics),
		grpcx.Method(ServiceName, "ListBillOfMaterials", h.ListBillOfMaterials),
		grpcx.Method(ServiceName, "SetMaterial", h.SetMaterial),
		grpcx.Method(ServiceName, "RemoveMaterial", h.RemoveMaterial),
	), h)
}

type CreateProductionOrderRequest struct {
	OrderCode string `json:"order_code"`
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type UpdateProductionOrderRequest struct {
	ID        int64   `json:"id"`
	OrderCode *string `json:"order_code,omitempty"`
	ProductID *int64  `json:"product_id,omitempty"`
	Quantity  *int64  `json:"quantity,omitempty"`
}

type ProductionOrderIDRequest struct {
	ID int64 `json:"id"`
}

type ListProductionOrdersRequest struct {
	Status    string `json:"status"`
	ProductID int64  `json:"product_id"`
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

type ListProductionOrdersResponse struct {
	Orders []model.ProductionOrder `json:"orders"`
	Total  int                     `json:"total"`
}

type StartProductionRequest struct {
	ID          int64 `json:"id"`
	WarehouseID int64 `json:"warehouse_id"`
}

type CompleteProductionRequest struct {
	ID             int64  `json:"id"`
	WarehouseID    int64  `json:"warehouse_id"`
	ActualQuantity *int64 `json:"actual_quantity,omitempty"`
}

type CancelProductionRequest struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

type AddProductionLogRequest struct {
	ProductionOrderID int64  `json:"production_order_id"`
	Note              string `json:"note"`
}

type CheckMaterialsRequest struct {
	ProductID   int64 `json:"product_id"`
	Quantity    int64 `json:"quantity"`
	WarehouseID int64 `json:"warehouse_id"`
}

type MaterialRequirementsResponse struct {
	Materials []model.MaterialRequirement `json:"materials"`
}

type StatisticsRequest struct {
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

type BillOfMaterialsRequest struct {
	ProductID int64 `json:"product_id"`
}

type BillOfMaterialsResponse struct {
	Materials []model.BillOfMaterial `json:"materials"`
}

type SetMaterialRequest struct {
	ProductID        int64 `json:"product_id"`
	MaterialID       int64 `json:"material_id"`
	QuantityRequired int64 `json:"quantity_required"`
}

type RemoveMaterialRequest struct {
	ProductID  int64 `json:"product_id"`
	MaterialID int64 `json:"material_id"`
}

func (h *ProductionHandler) CreateProductionOrder(ctx context.Context, req *CreateProductionOrderRequest) (*model.ProductionOrder, error) {
	o, err := h.uc.Create(ctx, &dto.CreateProductionInput{
		OrderCode: req.OrderCode,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UserID:    auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return o, nil
}

func (h *ProductionHandler) GetProductionOrder(ctx context.Context, req *ProductionOrderIDRequest) (*model.ProductionOrder, error) {
	o, err := h.uc.Get(ctx, req.ID)
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return o, nil
}

func (h *ProductionHandler) ListProductionOrders(ctx context.Context, req *ListProductionOrdersRequest) (*ListProductionOrdersResponse, error) {
	from, err := grpcx.ParseOptionalDate("from_date", req.FromDate)
	if err != nil {
		return nil, err
	}
	to, err := grpcx.ParseOptionalDate("to_date", req.ToDate)
	if err != nil {
		return nil, err
	}
	orders, total, err := h.uc.List(ctx, &dto.ProductionFilters{
		Status:    req.Status,
		ProductID: req.ProductID,
		FromDate:  from,
		ToDate:    to,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &ListProductionOrdersResponse{Orders: orders, Total: total}, nil
}

func (h *ProductionHandler) UpdateProductionOrder(ctx context.Context, req *UpdateProductionOrderRequest) (*model.ProductionOrder, error) {
	o, err := h.uc.Update(ctx, &dto.UpdateProductionInput{
		ID:        req.ID,
		OrderCode: req.OrderCode,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UserID:    auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return o, nil
}

func (h *ProductionHandler) StartProduction(ctx context.Context, req *StartProductionRequest) (*model.ProductionOrder, error) {
	o, err := h.uc.Start(ctx, &dto.StartProductionInput{
		ID:          req.ID,
		WarehouseID: req.WarehouseID,
		UserID:      auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return o, nil
}

func (h *ProductionHandler) CompleteProduction(ctx context.Context, req *CompleteProductionRequest) (*model.ProductionOrder, error) {
	o, err := h.uc.Complete(ctx, &dto.CompleteProductionInput{
		ID:             req.ID,
		WarehouseID:    req.WarehouseID,
		ActualQuantity: req.ActualQuantity,
		UserID:         auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return o, nil
}

func (h *ProductionHandler) CancelProduction(ctx context.Context, req *CancelProductionRequest) (*model.ProductionOrder, error) {
	o, err := h.uc.Cancel(ctx, &dto.CancelProductionInput{
		ID:     req.ID,
		Reason: req.Reason,
		UserID: auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return o, nil
}

func (h *ProductionHandler) AddProductionLog(ctx context.Context, req *AddProductionLogRequest) (*model.ProductionLog, error) {
	l, err := h.uc.AddLog(ctx, &dto.AddLogInput{
		ProductionOrderID: req.ProductionOrderID,
		Note:              req.Note,
		UserID:            auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return l, nil
}

func (h *ProductionHandler) CheckMaterials(ctx context.Context, req *CheckMaterialsRequest) (*model.ProductionCheck, error) {
	check, err := h.uc.CanProduce(ctx, req.ProductID, req.Quantity, req.WarehouseID)
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return check, nil
}

func (h *ProductionHandler) MaterialRequirements(ctx context.Context, req *CheckMaterialsRequest) (*MaterialRequirementsResponse, error) {
	reqs, err := h.uc.MaterialRequirements(ctx, req.ProductID, req.Quantity)
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &MaterialRequirementsResponse{Materials: reqs}, nil
}

func (h *ProductionHandler) GetStatistics(ctx context.Context, req *StatisticsRequest) (*model.ProductionStatistics, error) {
	from, err := grpcx.ParseOptionalDate("from_date", req.FromDate)
	if err != nil {
		return nil, err
	}
	to, err := grpcx.ParseOptionalDate("to_date", req.ToDate)
	if err != nil {
		return nil, err
	}
	stats, err := h.uc.Statistics(ctx, from, to)
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return stats, nil
}

func (h *ProductionHandler) ListBillOfMaterials(ctx context.Context, req *BillOfMaterialsRequest) (*BillOfMaterialsResponse, error) {
	boms, err := h.uc.ListBOM(ctx, req.ProductID)
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &BillOfMaterialsResponse{Materials: boms}, nil
}

func (h *ProductionHandler) SetMaterial(ctx context.Context, req *SetMaterialRequest) (*model.BillOfMaterial, error) {
	b, err := h.uc.SetMaterial(ctx, &dto.SetMaterialInput{
		ProductID:        req.ProductID,
		MaterialID:       req.MaterialID,
		QuantityRequired: req.QuantityRequired,
		UserID:           auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return b, nil
}

func (h *ProductionHandler) RemoveMaterial(ctx context.Context, req *RemoveMaterialRequest) (*emptypb.Empty, error) {
	if err := h.uc.RemoveMaterial(ctx, req.ProductID, req.MaterialID, auth.GetUserID(ctx)); err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &emptypb.Empty{}, nil
}
