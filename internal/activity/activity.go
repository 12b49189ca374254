// Package activity publishes an audit trail of inventory changes. Recording
// never fails the caller's operation.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionStockIn  = "stock_in"
	ActionStockOut = "stock_out"
	ActionTransfer = "transfer"
	ActionAdjust   = "adjust"
	ActionProcess  = "process"
	ActionCancel   = "cancel"
	ActionStart    = "start"
	ActionComplete = "complete"
)

type Event struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Table       string    `json:"table"`
	RecordID    int64     `json:"record_id"`
	Actor       string    `json:"actor,omitempty"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Sink interface {
	Record(ctx context.Context, e Event)
}

type Publisher interface {
	Publish(ctx context.Context, key string, value any) error
}

type nopSink struct{}

func (nopSink) Record(context.Context, Event) {}

// Nop discards events.
func Nop() Sink { return nopSink{} }

// BrokerSink publishes events once the surrounding transaction commits.
// Events from rolled back work are dropped.
type BrokerSink struct {
	pub     Publisher
	logger  logger.ZapLogger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewBrokerSink(pub Publisher, log logger.ZapLogger) *BrokerSink {
	return &BrokerSink{pub: pub, logger: log, timeout: 5 * time.Second}
}

func (s *BrokerSink) Record(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	txmanager.AfterCommit(ctx, func() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			pubCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			if err := s.pub.Publish(pubCtx, e.Table, e); err != nil {
				s.logger.Error("failed to publish activity",
					zap.String("action", e.Action),
					zap.String("table", e.Table),
					zap.Int64("record_id", e.RecordID),
					zap.Error(err))
			}
		}()
	})
}

// Flush waits for in-flight publishes.
func (s *BrokerSink) Flush() {
	s.wg.Wait()
}
