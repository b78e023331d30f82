package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/infrastructure/export"
	"github.com/bakery/orderdesk/internal/infrastructure/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func exportState() State {
	urgent := newTestOrder("o2", order.OrderStatusApproved)
	urgent.OrderNumber = "ORD-002"
	urgent.Priority = order.PriorityUrgent
	urgent.CreatedAt = testTime.Add(time.Hour)

	withReturn := deliveredOrder("o1")
	withReturn.OrderNumber = "ORD-001"
	ret := pendingReturn("r1", 4)
	ret.Status = order.ReturnStatusApproved
	withReturn.Returns = []order.OrderReturn{ret}

	other := newTestOrder("o3", order.OrderStatusPending)
	other.OrderNumber = "ORD-003"
	other.Branch = order.Branch{ID: "br-2", Name: "فرع جدة", NameEn: "Jeddah"}
	other.TotalAmount = decimal.NewFromInt(100)

	return stateWith(withReturn, urgent, other)
}

func TestBuildDocument_English(t *testing.T) {
	s := exportState()
	s = Reduce(s, SetFilterBranch{BranchID: "br-1"})
	s = Reduce(s, SetPage{Page: 3})

	doc := BuildDocument(s, productionUser, testTime)

	assert.Equal(t, "Orders", doc.Title)
	assert.Equal(t, "en", doc.Lang)
	assert.False(t, doc.RTL)
	assert.Equal(t, "Production", doc.GeneratedBy)
	assert.Len(t, doc.Columns, 9)
	assert.Equal(t, []export.FilterLabel{{Label: "Branch", Value: "Riyadh"}}, doc.Filters)

	require.Len(t, doc.Rows, 2, "pagination is ignored, filters are not")
	assert.Equal(t, "ORD-002", doc.Rows[0].OrderNumber, "newest first")
	first := doc.Rows[1]
	assert.Equal(t, "ORD-001", first.OrderNumber)
	assert.Equal(t, "Riyadh", first.Branch)
	assert.Equal(t, order.StatusLabel(order.OrderStatusDelivered, false), first.Status)
	assert.Equal(t, "20", first.TotalQuantity)
	assert.Equal(t, order.FormatCurrency(decimal.NewFromInt(100), order.LocaleEn), first.Total)
	assert.Equal(t, order.FormatCurrency(decimal.NewFromInt(80), order.LocaleEn), first.AdjustedTotal)
	assert.Equal(t, "2026-03-01 09:00", first.Date)
	assert.Contains(t, first.Items, "Bread × 10")
}

func TestBuildDocument_Arabic(t *testing.T) {
	s := exportState()
	s = Reduce(s, SetFilterPriority{Priority: order.PriorityUrgent})
	s = Reduce(s, SetFilterDepartment{DepartmentID: "dept-pastry"})
	s = Reduce(s, SetSearchQuery{Query: "ORD"})

	doc := BuildDocument(s, branchUser, testTime)

	assert.True(t, doc.RTL)
	assert.Equal(t, "ar", doc.Lang)
	assert.Equal(t, "قائمة الطلبات", doc.Title)
	require.Len(t, doc.Filters, 3)
	assert.Equal(t, order.PriorityLabel(order.PriorityUrgent, true), doc.Filters[0].Value)
	assert.Equal(t, "الحلويات", doc.Filters[1].Value)
	assert.Equal(t, "ORD", doc.Filters[2].Value)
	require.Len(t, doc.Rows, 1)
	assert.Equal(t, "فرع الرياض", doc.Rows[0].Branch)
}

func TestExportService_StreamsWithoutArchive(t *testing.T) {
	api := new(MockOrderAPI)
	sess := openTestSession(t, api, productionUser, exportState().Orders...)
	w := &fakeWriter{data: []byte("xlsx")}

	svc := NewExportService(zaptest.NewLogger(t),
		WithExportWriter(export.FormatExcel, w),
		WithExportClock(func() time.Time { return testTime }),
	)
	res, err := svc.Export(context.Background(), sess, export.FormatExcel)
	require.NoError(t, err)

	assert.Equal(t, []byte("xlsx"), res.Data)
	assert.Empty(t, res.URL)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, "orders-20260301-0900.xlsx", res.FileName)
	assert.Equal(t, export.FormatExcel.ContentType(), res.ContentType)
	assert.Len(t, w.doc.Rows, 3)
}

func TestExportService_ArchivesWhenConfigured(t *testing.T) {
	api := new(MockOrderAPI)
	sess := openTestSession(t, api, productionUser, exportState().Orders...)
	archive := storage.NewMemoryArchive("http://files.local")

	svc := NewExportService(zaptest.NewLogger(t),
		WithExportWriter(export.FormatPDF, &fakeWriter{data: []byte("%PDF")}),
		WithExportArchive(archive),
	)
	res, err := svc.Export(context.Background(), sess, export.FormatPDF)
	require.NoError(t, err)

	assert.Nil(t, res.Data)
	require.NotNil(t, res.ExpiresAt)
	assert.Contains(t, res.URL, "http://files.local/exports/u-prod/")
	key := res.URL[len("http://files.local/"):]
	obj, ok := archive.Get(key)
	require.True(t, ok)
	assert.Equal(t, "%PDF", string(obj.Data))
	assert.Equal(t, "application/pdf", obj.ContentType)
}

func TestExportService_Errors(t *testing.T) {
	api := new(MockOrderAPI)
	sess := openTestSession(t, api, productionUser)

	svc := NewExportService(zaptest.NewLogger(t),
		WithExportWriter(export.FormatExcel, &fakeWriter{err: export.NewError(export.ErrCodeWriteFailed, "disk", nil)}),
	)

	_, err := svc.Export(context.Background(), sess, "csv")
	assert.Equal(t, "INVALID_FORMAT", ErrorCode(err))

	_, err = svc.Export(context.Background(), sess, export.FormatPDF)
	assert.Equal(t, "EXPORT_UNAVAILABLE", ErrorCode(err))

	_, err = svc.Export(context.Background(), sess, export.FormatExcel)
	var xerr *export.Error
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, export.ErrCodeWriteFailed, xerr.Code)
}
