package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/domain/shared"
	"github.com/bakery/orderdesk/internal/infrastructure/export"
	"go.uber.org/zap"
)

// DocumentWriter renders an export document to file bytes
type DocumentWriter interface {
	Write(ctx context.Context, doc export.Document) ([]byte, error)
}

// ExportArchive stores generated files and hands out download links
type ExportArchive interface {
	Key(userID, name string) string
	Put(ctx context.Context, key string, data []byte, contentType string) error
	DownloadURL(ctx context.Context, key string) (string, time.Time, error)
}

// ExportResult is a generated file. Data is set when the file is streamed,
// URL when it was archived.
type ExportResult struct {
	Format      export.Format `json:"format"`
	FileName    string        `json:"fileName"`
	ContentType string        `json:"contentType"`
	Rows        int           `json:"rows"`
	Data        []byte        `json:"-"`
	URL         string        `json:"url,omitempty"`
	ExpiresAt   *time.Time    `json:"expiresAt,omitempty"`
}

// ExportService renders the current filtered order list of a session
type ExportService struct {
	writers map[export.Format]DocumentWriter
	archive ExportArchive
	logger  *zap.Logger
	timeout time.Duration
	clock   func() time.Time
}

// ExportOption configures an ExportService
type ExportOption func(*ExportService)

// WithExportWriter registers the writer of a format
func WithExportWriter(format export.Format, w DocumentWriter) ExportOption {
	return func(s *ExportService) { s.writers[format] = w }
}

// WithExportArchive uploads files instead of streaming them
func WithExportArchive(a ExportArchive) ExportOption {
	return func(s *ExportService) { s.archive = a }
}

// WithExportTimeout bounds rendering and upload
func WithExportTimeout(d time.Duration) ExportOption {
	return func(s *ExportService) { s.timeout = d }
}

// WithExportClock overrides the time source
func WithExportClock(clock func() time.Time) ExportOption {
	return func(s *ExportService) { s.clock = clock }
}

// NewExportService creates an export service
func NewExportService(logger *zap.Logger, opts ...ExportOption) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		writers: make(map[export.Format]DocumentWriter),
		logger:  logger,
		timeout: 30 * time.Second,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export renders every order matching the session's current filters,
// sorted like the list, ignoring pagination.
func (s *ExportService) Export(ctx context.Context, sess *Session, format export.Format) (*ExportResult, error) {
	if !format.IsValid() {
		return nil, shared.NewDomainError("INVALID_FORMAT", "Unsupported export format: "+string(format))
	}
	w, ok := s.writers[format]
	if !ok {
		return nil, shared.NewDomainError("EXPORT_UNAVAILABLE", "Export format is not configured: "+string(format))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.clock()
	doc := BuildDocument(sess.Store.Snapshot(), sess.User, now)
	data, err := w.Write(ctx, doc)
	if err != nil {
		s.logger.Warn("Export failed",
			zap.String("user_id", sess.User.ID),
			zap.String("format", string(format)),
			zap.Error(err))
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}

	res := &ExportResult{
		Format:      format,
		FileName:    "orders-" + now.Format("20060102-1504") + format.Extension(),
		ContentType: format.ContentType(),
		Rows:        len(doc.Rows),
	}

	if s.archive == nil {
		res.Data = data
	} else {
		key := s.archive.Key(sess.User.ID, res.FileName)
		if err := s.archive.Put(ctx, key, data, res.ContentType); err != nil {
			return nil, fmt.Errorf("archive export: %w", err)
		}
		url, expiresAt, err := s.archive.DownloadURL(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("sign export url: %w", err)
		}
		res.URL = url
		res.ExpiresAt = &expiresAt
	}

	s.logger.Info("Export generated",
		zap.String("user_id", sess.User.ID),
		zap.String("format", string(format)),
		zap.Int("rows", res.Rows),
		zap.Int("bytes", len(data)),
		zap.Bool("archived", res.URL != ""))
	return res, nil
}

type exportLabels struct {
	title, orderNumber, branch, status, priority, items, quantity, total, adjusted, date, department, search string
}

var (
	exportLabelsAr = exportLabels{
		title:       "قائمة الطلبات",
		orderNumber: "رقم الطلب",
		branch:      "الفرع",
		status:      "الحالة",
		priority:    "الأولوية",
		items:       "المنتجات",
		quantity:    "إجمالي الكمية",
		total:       "الإجمالي",
		adjusted:    "الإجمالي المعدل",
		date:        "التاريخ",
		department:  "القسم",
		search:      "بحث",
	}
	exportLabelsEn = exportLabels{
		title:       "Orders",
		orderNumber: "Order No.",
		branch:      "Branch",
		status:      "Status",
		priority:    "Priority",
		items:       "Products",
		quantity:    "Total Quantity",
		total:       "Total",
		adjusted:    "Adjusted Total",
		date:        "Date",
		department:  "Department",
		search:      "Search",
	}
)

// BuildDocument formats the filtered, sorted orders of a state in the
// user's locale
func BuildDocument(state State, user User, at time.Time) export.Document {
	locale := user.Locale
	rtl := locale.IsRTL()
	labels := exportLabelsEn
	if rtl {
		labels = exportLabelsAr
	}

	orders := Filter(state.Orders, state.View)
	SortOrders(orders, state.View.SortBy, state.View.SortDirection, locale)

	rows := make([]export.Row, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, export.Row{
			OrderNumber:   o.OrderNumber,
			Branch:        o.Branch.DisplayName(locale),
			Status:        order.StatusLabel(o.Status, rtl),
			Priority:      order.PriorityLabel(o.Priority, rtl),
			Items:         order.ItemSummary(o, locale),
			TotalQuantity: strconv.Itoa(order.CalculateTotalQuantity(o)),
			Total:         order.FormatCurrency(o.TotalAmount, locale),
			AdjustedTotal: order.FormatCurrency(order.CalculateAdjustedTotal(o), locale),
			Date:          o.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	lang := string(order.LocaleEn)
	if rtl {
		lang = string(order.LocaleAr)
	}
	return export.Document{
		Title:   labels.title,
		Lang:    lang,
		RTL:     rtl,
		Filters: filterLabels(state, labels, locale),
		Columns: []string{
			labels.orderNumber, labels.branch, labels.status, labels.priority, labels.items,
			labels.quantity, labels.total, labels.adjusted, labels.date,
		},
		Rows:        rows,
		GeneratedBy: user.Name,
		GeneratedAt: at,
	}
}

func filterLabels(state State, labels exportLabels, locale order.Locale) []export.FilterLabel {
	v := state.View
	rtl := locale.IsRTL()
	var out []export.FilterLabel
	if v.FilterStatus != "" {
		out = append(out, export.FilterLabel{Label: labels.status, Value: order.StatusLabel(v.FilterStatus, rtl)})
	}
	if v.FilterBranch != "" {
		out = append(out, export.FilterLabel{Label: labels.branch, Value: branchName(state.Orders, v.FilterBranch, locale)})
	}
	if v.FilterPriority != "" {
		out = append(out, export.FilterLabel{Label: labels.priority, Value: order.PriorityLabel(v.FilterPriority, rtl)})
	}
	if v.FilterDepartment != "" {
		out = append(out, export.FilterLabel{Label: labels.department, Value: departmentName(state.Orders, v.FilterDepartment, locale)})
	}
	if v.SearchQuery != "" {
		out = append(out, export.FilterLabel{Label: labels.search, Value: v.SearchQuery})
	}
	return out
}

// branchName resolves a branch id through the loaded orders, falling back to the id
func branchName(orders []*order.Order, branchID string, locale order.Locale) string {
	for _, o := range orders {
		if o.Branch.ID == branchID {
			return o.Branch.DisplayName(locale)
		}
	}
	return branchID
}

func departmentName(orders []*order.Order, departmentID string, locale order.Locale) string {
	for _, o := range orders {
		for _, item := range o.Items {
			if item.Product.Department.ID == departmentID {
				return item.Product.Department.DisplayName(locale)
			}
		}
	}
	return departmentID
}
