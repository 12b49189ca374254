package handler

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/grpcx"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const ServiceName = "omnipos.inventory.v1.OrderService"

type OrderHandler struct {
	uc     order.UseCase
	logger logger.ZapLogger
}

func NewOrderHandler(uc order.UseCase, log logger.ZapLogger) *OrderHandler {
	return &OrderHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *OrderHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(grpcx.ServiceDesc(ServiceName,
		grpcx.Method(ServiceName, "CreateOrder", h.CreateOrder),
		grpcx.Method(ServiceName, "GetOrder", h.GetOrder),
		grpcx.Method(ServiceName, "ListOrders", h.ListOrders),
		grpcx.Method(ServiceName, "UpdateOrder", h.UpdateOrder),
		grpcx.Method(ServiceName, "ProcessOrder", h.ProcessOrder),
		grpcx.Method(ServiceName, "CancelOrder", h.CancelOrder),
		grpcx.Method(ServiceName, "DeleteOrder", h.DeleteOrder),
	), h)
}

type OrderItemRequest struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type CreateOrderRequest struct {
	CustomerID int64              `json:"customer_id"`
	OrderCode  string             `json:"order_code"`
	OrderDate  string             `json:"order_date"`
	Status     string             `json:"status"`
	Items      []OrderItemRequest `json:"items"`
}

type UpdateOrderRequest struct {
	ID         int64              `json:"id"`
	CustomerID *int64             `json:"customer_id,omitempty"`
	OrderCode  *string            `json:"order_code,omitempty"`
	OrderDate  *string            `json:"order_date,omitempty"`
	Status     *string            `json:"status,omitempty"`
	Items      []OrderItemRequest `json:"items,omitempty"`
}

type OrderIDRequest struct {
	ID int64 `json:"id"`
}

type ProcessOrderRequest struct {
	ID          int64 `json:"id"`
	WarehouseID int64 `json:"warehouse_id"`
}

type ListOrdersRequest struct {
	Search     string `json:"search"`
	Status     string `json:"status"`
	CustomerID int64  `json:"customer_id"`
	FromDate   string `json:"from_date"`
	ToDate     string `json:"to_date"`
	SortBy     string `json:"sort_by"`
	SortOrder  string `json:"sort_order"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}

type ListOrdersResponse struct {
	Orders []model.Order `json:"orders"`
	Total  int           `json:"total"`
}

func (h *OrderHandler) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.Order, error) {
	date, err := grpcx.ParseDate("order_date", req.OrderDate)
	if err != nil {
		return nil, err
	}
	o, err := h.uc.Create(ctx, &dto.CreateOrderInput{
		CustomerID: req.CustomerID,
		OrderCode:  req.OrderCode,
		OrderDate:  date,
		Status:     model.OrderStatus(req.Status),
		Items:      mapItems(req.Items),
		UserID:     auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return o, nil
}

func (h *OrderHandler) GetOrder(ctx context.Context, req *OrderIDRequest) (*model.Order, error) {
	o, err := h.uc.Get(ctx, req.ID)
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return o, nil
}

func (h *OrderHandler) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error) {
	from, err := grpcx.ParseOptionalDate("from_date", req.FromDate)
	if err != nil {
		return nil, err
	}
	to, err := grpcx.ParseOptionalDate("to_date", req.ToDate)
	if err != nil {
		return nil, err
	}
	orders, total, err := h.uc.List(ctx, &dto.OrderFilters{
		Search:     req.Search,
		Status:     req.Status,
		CustomerID: req.CustomerID,
		FromDate:   from,
		ToDate:     to,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &ListOrdersResponse{Orders: orders, Total: total}, nil
}

func (h *OrderHandler) UpdateOrder(ctx context.Context, req *UpdateOrderRequest) (*model.Order, error) {
	input := &dto.UpdateOrderInput{
		ID:         req.ID,
		CustomerID: req.CustomerID,
		OrderCode:  req.OrderCode,
		UserID:     auth.GetUserID(ctx),
	}
	if req.OrderDate != nil {
		date, err := grpcx.ParseDate("order_date", *req.OrderDate)
		if err != nil {
			return nil, err
		}
		input.OrderDate = &date
	}
	if req.Status != nil {
		status := model.OrderStatus(*req.Status)
		input.Status = &status
	}
	if req.Items != nil {
		input.Items = mapItems(req.Items)
	}

	o, err := h.uc.Update(ctx, input)
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return o, nil
}

func (h *OrderHandler) ProcessOrder(ctx context.Context, req *ProcessOrderRequest) (*model.Order, error) {
	o, err := h.uc.Process(ctx, &dto.ProcessOrderInput{
		OrderID:     req.ID,
		WarehouseID: req.WarehouseID,
		UserID:      auth.GetUserID(ctx),
	})
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return o, nil
}

func (h *OrderHandler) CancelOrder(ctx context.Context, req *OrderIDRequest) (*model.Order, error) {
	o, err := h.uc.Cancel(ctx, req.ID, auth.GetUserID(ctx))
	if err != nil {
		return nil, apperr.ToStatus(err)
	}
	return o, nil
}

func (h *OrderHandler) DeleteOrder(ctx context.Context, req *OrderIDRequest) (*emptypb.Empty, error) {
	if err := h.uc.Delete(ctx, req.ID, auth.GetUserID(ctx)); err != nil {
		return nil, apperr.ToStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func mapItems(items []OrderItemRequest) []dto.OrderItemInput {
	out := make([]dto.OrderItemInput, len(items))
	for i, it := range items {
		out[i] = dto.OrderItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
	}
	return out
}
