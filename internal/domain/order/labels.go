package order

import "strings"

type label struct {
	ar string
	en string
}

func (l label) pick(isRTL bool) string {
	if isRTL {
		return l.ar
	}
	return l.en
}

// ====================================================================
// Closed label tables. Lookups never fail: unknown keys render raw.
// ====================================================================

var orderStatusLabels = map[OrderStatus]label{
	OrderStatusPending:      {"قيد الانتظار", "Pending"},
	OrderStatusApproved:     {"تم الاعتماد", "Approved"},
	OrderStatusInProduction: {"قيد الإنتاج", "In Production"},
	OrderStatusCompleted:    {"مكتمل", "Completed"},
	OrderStatusInTransit:    {"قيد التوصيل", "In Transit"},
	OrderStatusDelivered:    {"تم التسليم", "Delivered"},
	OrderStatusCancelled:    {"ملغى", "Cancelled"},
}

var itemStatusLabels = map[ItemStatus]label{
	ItemStatusPending:    {"قيد الانتظار", "Pending"},
	ItemStatusAssigned:   {"تم التعيين", "Assigned"},
	ItemStatusInProgress: {"قيد التنفيذ", "In Progress"},
	ItemStatusCompleted:  {"مكتمل", "Completed"},
	ItemStatusCancelled:  {"ملغى", "Cancelled"},
}

var returnStatusLabels = map[ReturnStatus]label{
	ReturnStatusPendingApproval: {"بانتظار الموافقة", "Pending Approval"},
	ReturnStatusApproved:        {"تمت الموافقة", "Approved"},
	ReturnStatusRejected:        {"مرفوض", "Rejected"},
	ReturnStatusProcessed:       {"تمت المعالجة", "Processed"},
}

var priorityLabels = map[Priority]label{
	PriorityLow:    {"منخفضة", "Low"},
	PriorityMedium: {"متوسطة", "Medium"},
	PriorityHigh:   {"عالية", "High"},
	PriorityUrgent: {"عاجلة", "Urgent"},
}

var roleLabels = map[Role]label{
	RoleBranch:     {"فرع", "Branch"},
	RoleProduction: {"إنتاج", "Production"},
	RoleChef:       {"شيف", "Chef"},
	RoleAdmin:      {"مدير", "Admin"},
}

var actionLabels = map[Action]label{
	ActionApprove:         {"اعتماد", "Approve"},
	ActionCancel:          {"إلغاء", "Cancel"},
	ActionAssignChefs:     {"تعيين الشيفات", "Assign Chefs"},
	ActionShip:            {"شحن", "Ship"},
	ActionConfirmDelivery: {"تأكيد الاستلام", "Confirm Delivery"},
	ActionRequestReturn:   {"طلب إرجاع", "Request Return"},
	ActionApproveReturn:   {"الموافقة على الإرجاع", "Approve Return"},
	ActionRejectReturn:    {"رفض الإرجاع", "Reject Return"},
	ActionStartItem:       {"بدء التحضير", "Start"},
	ActionCompleteItem:    {"إنهاء التحضير", "Complete"},
}

// unitLabels is keyed by the Arabic unit as stored on products
var unitLabels = map[string]label{
	"كيلو":  {"كيلو", "Kilo"},
	"قطعة":  {"قطعة", "Piece"},
	"علبة":  {"علبة", "Pack"},
	"صينية": {"صينية", "Tray"},
	"كرتون": {"كرتون", "Carton"},
	"لتر":   {"لتر", "Liter"},
	"جرام":  {"جرام", "Gram"},
}

var unitAliases = map[string]string{
	"kg":     "كيلو",
	"kilo":   "كيلو",
	"piece":  "قطعة",
	"pcs":    "قطعة",
	"pack":   "علبة",
	"box":    "علبة",
	"tray":   "صينية",
	"carton": "كرتون",
	"liter":  "لتر",
	"l":      "لتر",
	"gram":   "جرام",
	"g":      "جرام",
}

func lookup[K comparable](table map[K]label, key K, raw string, isRTL bool) string {
	if l, ok := table[key]; ok {
		return l.pick(isRTL)
	}
	return raw
}

// StatusLabel returns the display label of an order status
func StatusLabel(s OrderStatus, isRTL bool) string {
	return lookup(orderStatusLabels, s, string(s), isRTL)
}

// ItemStatusLabel returns the display label of an item status
func ItemStatusLabel(s ItemStatus, isRTL bool) string {
	return lookup(itemStatusLabels, s, string(s), isRTL)
}

// ReturnStatusLabel returns the display label of a return status
func ReturnStatusLabel(s ReturnStatus, isRTL bool) string {
	if normalized, ok := ParseReturnStatus(string(s)); ok {
		s = normalized
	}
	return lookup(returnStatusLabels, s, string(s), isRTL)
}

// PriorityLabel returns the display label of a priority
func PriorityLabel(p Priority, isRTL bool) string {
	return lookup(priorityLabels, p, string(p), isRTL)
}

// RoleLabel returns the display label of a role
func RoleLabel(r Role, isRTL bool) string {
	return lookup(roleLabels, r, string(r), isRTL)
}

// ActionLabel returns the display label of an action
func ActionLabel(a Action, isRTL bool) string {
	return lookup(actionLabels, a, string(a), isRTL)
}

// TranslateUnit renders a product unit. Units are matched on their Arabic
// form or an English alias; unknown units are returned unchanged.
func TranslateUnit(unit string, isRTL bool) string {
	key := strings.TrimSpace(unit)
	if alias, ok := unitAliases[strings.ToLower(key)]; ok {
		key = alias
	}
	return lookup(unitLabels, key, unit, isRTL)
}
