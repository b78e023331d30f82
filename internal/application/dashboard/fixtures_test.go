package dashboard

import (
	"fmt"
	"time"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/shopspring/decimal"
)

var (
	testTime   = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	bakeryDept = order.Department{ID: "dept-bakery", Name: "المخبز", NameEn: "Bakery"}
	pastryDept = order.Department{ID: "dept-pastry", Name: "الحلويات", NameEn: "Pastry"}
	chefAli    = order.Chef{UserID: "chef-ali", Name: "علي", NameEn: "Ali", Department: bakeryDept}
	chefSara   = order.Chef{UserID: "chef-sara", Name: "سارة", NameEn: "Sara", Department: pastryDept}

	productionUser = User{ID: "u-prod", Name: "Production", Role: order.RoleProduction, Locale: order.LocaleEn}
	branchUser     = User{ID: "u-branch", Name: "Branch", Role: order.RoleBranch, BranchID: "br-1", Locale: order.LocaleAr}
	chefUser       = User{ID: "chef-ali", Name: "Ali", Role: order.RoleChef, DepartmentID: "dept-bakery", Locale: order.LocaleEn}
)

// newTestOrder builds an order with total 100 and two items of 10 @ 5
func newTestOrder(id string, status order.OrderStatus) *order.Order {
	return &order.Order{
		ID:          id,
		OrderNumber: "ORD-" + id,
		Branch:      order.Branch{ID: "br-1", Name: "فرع الرياض", NameEn: "Riyadh"},
		Status:      status,
		Priority:    order.PriorityMedium,
		Items: []order.OrderItem{
			{
				ID:       "item-1",
				Product:  order.Product{ID: "prod-bread", Name: "خبز", NameEn: "Bread", Unit: "قطعة", Department: bakeryDept},
				Quantity: 10,
				Price:    decimal.NewFromInt(5),
				Status:   order.ItemStatusPending,
			},
			{
				ID:       "item-2",
				Product:  order.Product{ID: "prod-cake", Name: "كيك", NameEn: "Cake", Unit: "علبة", Department: pastryDept},
				Quantity: 10,
				Price:    decimal.NewFromInt(5),
				Status:   order.ItemStatusPending,
			},
		},
		TotalAmount: decimal.NewFromInt(100),
		CreatedAt:   testTime,
	}
}

func assignAll(o *order.Order) *order.Order {
	o.Items[0].AssignedTo = &chefAli
	o.Items[0].Status = order.ItemStatusAssigned
	o.Items[1].AssignedTo = &chefSara
	o.Items[1].Status = order.ItemStatusAssigned
	return o
}

func deliveredOrder(id string) *order.Order {
	o := assignAll(newTestOrder(id, order.OrderStatusDelivered))
	o.Items[0].Status = order.ItemStatusCompleted
	o.Items[1].Status = order.ItemStatusCompleted
	return o
}

func pendingReturn(returnID string, qty int) order.OrderReturn {
	return order.OrderReturn{
		ReturnID: returnID,
		Status:   order.ReturnStatusPendingApproval,
		Items:    []order.ReturnItem{{ProductID: "prod-bread", Quantity: qty, Reason: "damaged"}},
		Reason:   "damaged",
	}
}

// numberedOrders returns n orders ord-001..ord-n created a minute apart
func numberedOrders(n int) []*order.Order {
	out := make([]*order.Order, 0, n)
	for i := 1; i <= n; i++ {
		o := newTestOrder(fmt.Sprintf("ord-%03d", i), order.OrderStatusPending)
		o.CreatedAt = testTime.Add(time.Duration(i) * time.Minute)
		out = append(out, o)
	}
	return out
}

func stateWith(orders ...*order.Order) State {
	return Reduce(NewState(), SetOrders{Orders: orders})
}
