package order

import "fmt"

// Notice identifies a user-facing notification message
type Notice string

const (
	NoticeNewOrder           Notice = "newOrder"
	NoticeOrderApproved      Notice = "orderApproved"
	NoticeTaskAssigned       Notice = "taskAssigned"
	NoticeOrderCompleted     Notice = "orderCompleted"
	NoticeOrderInTransit     Notice = "orderInTransit"
	NoticeOrderDelivered     Notice = "orderDelivered"
	NoticeReturnCreated      Notice = "returnCreated"
	NoticeReturnReviewed     Notice = "returnReviewed"
	NoticeMissingAssignments Notice = "missingAssignments"
	NoticeActionSucceeded    Notice = "actionSucceeded"
	NoticeActionFailed       Notice = "actionFailed"
	NoticeServiceUnavailable Notice = "serviceUnavailable"
	NoticeSocketDisconnected Notice = "socketDisconnected"
	NoticeSocketReconnected  Notice = "socketReconnected"
)

// Templates take the order number first where they mention an order.
var noticeTemplates = map[Notice]label{
	NoticeNewOrder:           {"طلب جديد %s من %s", "New order %s from %s"},
	NoticeOrderApproved:      {"تم اعتماد الطلب %s", "Order %s was approved"},
	NoticeTaskAssigned:       {"تم تعيين مهام جديدة في الطلب %s", "New tasks assigned on order %s"},
	NoticeOrderCompleted:     {"اكتمل إنتاج الطلب %s", "Order %s finished production"},
	NoticeOrderInTransit:     {"الطلب %s في الطريق", "Order %s is on its way"},
	NoticeOrderDelivered:     {"تم استلام الطلب %s", "Order %s was received"},
	NoticeReturnCreated:      {"طلب إرجاع جديد على الطلب %s", "New return requested on order %s"},
	NoticeReturnReviewed:     {"تم تحديث حالة الإرجاع في الطلب %s: %s", "Return on order %s is now %s"},
	NoticeMissingAssignments: {"الطلب %s يحتوي على عناصر غير معينة", "Order %s has unassigned items"},
	NoticeActionSucceeded:    {"%s: تم بنجاح للطلب %s", "%s succeeded for order %s"},
	NoticeActionFailed:       {"%s: فشل للطلب %s", "%s failed for order %s"},
	NoticeServiceUnavailable: {"خدمة الطلبات غير متاحة حاليا", "The order service is unavailable"},
	NoticeSocketDisconnected: {"انقطع الاتصال المباشر، جار إعادة المحاولة", "Live updates disconnected, retrying"},
	NoticeSocketReconnected:  {"تمت استعادة الاتصال المباشر", "Live updates restored"},
}

// NoticeText renders a notice in the requested direction. Unknown notices
// render their key.
func NoticeText(n Notice, isRTL bool, args ...any) string {
	tpl, ok := noticeTemplates[n]
	if !ok {
		return string(n)
	}
	if len(args) == 0 {
		return tpl.pick(isRTL)
	}
	return fmt.Sprintf(tpl.pick(isRTL), args...)
}
