package listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/broker"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"go.uber.org/zap"
)

const (
	EventOrderConfirmed = "OrderConfirmed"
	EventOrderCancelled = "OrderCancelled"

	systemUser = "system"
)

type OrderListener struct {
	consumer *broker.KafkaConsumer
	uc       order.UseCase
	logger   logger.ZapLogger
}

func NewOrderListener(consumer *broker.KafkaConsumer, uc order.UseCase, logger logger.ZapLogger) *OrderListener {
	return &OrderListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *OrderListener) Start(ctx context.Context) {
	l.logger.Info("Starting order Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping order Kafka listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type OrderEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	OrderID     int64  `json:"order_id"`
	WarehouseID int64  `json:"warehouse_id"`
	UserID      string `json:"user_id"`
}

func (l *OrderListener) processMessage(ctx context.Context, value []byte) {
	var event OrderEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	user := event.Payload.UserID
	if user == "" {
		user = systemUser
	}

	var err error
	switch event.EventType {
	case EventOrderConfirmed:
		l.logger.Info("Processing OrderConfirmed event",
			zap.Int64("order_id", event.Payload.OrderID),
			zap.Int64("warehouse_id", event.Payload.WarehouseID))
		_, err = l.uc.Process(ctx, &dto.ProcessOrderInput{
			OrderID:     event.Payload.OrderID,
			WarehouseID: event.Payload.WarehouseID,
			UserID:      user,
		})
	case EventOrderCancelled:
		l.logger.Info("Processing OrderCancelled event", zap.Int64("order_id", event.Payload.OrderID))
		_, err = l.uc.Cancel(ctx, event.Payload.OrderID, user)
	default:
		return
	}

	if err == nil {
		return
	}
	// Redelivered events for orders already settled are expected.
	if errors.Is(err, apperr.ErrInvalidState) {
		l.logger.Warn("Order event skipped",
			zap.String("event_id", event.EventID),
			zap.Int64("order_id", event.Payload.OrderID),
			zap.Error(err))
		return
	}
	l.logger.Error("Failed to handle order event",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.Int64("order_id", event.Payload.OrderID),
		zap.Error(err))
}
