package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
)

// DashboardSnapshotModel holds one user's last known orders and view.
type DashboardSnapshotModel struct {
	UserID     string         `gorm:"type:varchar(64);primaryKey"`
	Orders     []*order.Order `gorm:"type:jsonb;not null;serializer:json"`
	View       dashboard.View `gorm:"type:jsonb;not null;serializer:json"`
	OrderCount int            `gorm:"not null;default:0"`
	SavedAt    time.Time      `gorm:"not null"`
}

func (DashboardSnapshotModel) TableName() string {
	return "dashboard_snapshots"
}

// SnapshotRepository implements dashboard.SnapshotStore with gorm.
type SnapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Load(ctx context.Context, userID string) (*dashboard.Snapshot, error) {
	var m DashboardSnapshotModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot for %s: %w", userID, err)
	}

	return &dashboard.Snapshot{UserID: m.UserID, Orders: m.Orders, View: m.View, SavedAt: m.SavedAt}, nil
}

// Save replaces the user's snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, snap dashboard.Snapshot) error {
	orders := snap.Orders
	if orders == nil {
		orders = []*order.Order{}
	}
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	m := DashboardSnapshotModel{
		UserID:     snap.UserID,
		Orders:     orders,
		View:       snap.View,
		OrderCount: len(orders),
		SavedAt:    savedAt.UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"orders", "view", "order_count", "saved_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("save snapshot for %s: %w", snap.UserID, err)
	}
	return nil
}

// DeleteOlderThan drops snapshots nobody has refreshed since cutoff.
func (r *SnapshotRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("saved_at < ?", cutoff.UTC()).Delete(&DashboardSnapshotModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune snapshots: %w", res.Error)
	}
	return res.RowsAffected, nil
}

var _ dashboard.SnapshotStore = (*SnapshotRepository)(nil)
