package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
)

// ActionLogModel is one row of the append-only action audit.
type ActionLogModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     string    `gorm:"type:varchar(64);not null;index"`
	Role       string    `gorm:"type:varchar(20);not null"`
	Action     string    `gorm:"type:varchar(32);not null"`
	OrderID    string    `gorm:"type:varchar(64);not null;index"`
	TargetID   string    `gorm:"type:varchar(64)"`
	Outcome    string    `gorm:"type:varchar(16);not null"`
	ErrorCode  string    `gorm:"type:varchar(64)"`
	DurationMS int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

func (ActionLogModel) TableName() string {
	return "action_log"
}

func (m *ActionLogModel) toRecord() dashboard.ActionRecord {
	return dashboard.ActionRecord{
		UserID:    m.UserID,
		Role:      order.Role(m.Role),
		Action:    order.Action(m.Action),
		OrderID:   m.OrderID,
		TargetID:  m.TargetID,
		Outcome:   m.Outcome,
		ErrorCode: m.ErrorCode,
		Duration:  time.Duration(m.DurationMS) * time.Millisecond,
		At:        m.CreatedAt,
	}
}

// ActionLogRepository implements dashboard.ActionLog with gorm.
type ActionLogRepository struct {
	db *gorm.DB
}

func NewActionLogRepository(db *gorm.DB) *ActionLogRepository {
	return &ActionLogRepository{db: db}
}

func (r *ActionLogRepository) Record(ctx context.Context, rec dashboard.ActionRecord) error {
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	m := ActionLogModel{
		ID:         uuid.New(),
		UserID:     rec.UserID,
		Role:       string(rec.Role),
		Action:     string(rec.Action),
		OrderID:    rec.OrderID,
		TargetID:   rec.TargetID,
		Outcome:    rec.Outcome,
		ErrorCode:  rec.ErrorCode,
		DurationMS: rec.Duration.Milliseconds(),
		CreatedAt:  at.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("record %s on %s: %w", rec.Action, rec.OrderID, err)
	}
	return nil
}

// ForOrder returns the newest entries for an order, newest first.
func (r *ActionLogRepository) ForOrder(ctx context.Context, orderID string, limit int) ([]dashboard.ActionRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []ActionLogModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list actions for %s: %w", orderID, err)
	}
	out := make([]dashboard.ActionRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].toRecord()
	}
	return out, nil
}

var _ dashboard.ActionLog = (*ActionLogRepository)(nil)
