package order

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	testTime   = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	bakeryDept = Department{ID: "dept-bakery", Name: "المخبز", NameEn: "Bakery"}
	pastryDept = Department{ID: "dept-pastry", Name: "الحلويات", NameEn: "Pastry"}
	chefAli    = Chef{UserID: "chef-ali", Name: "علي", NameEn: "Ali", Department: bakeryDept}
	chefSara   = Chef{UserID: "chef-sara", Name: "سارة", NameEn: "Sara", Department: pastryDept}
)

// newTestOrder builds the reference order: total 100, two items of 10 @ 5
func newTestOrder(status OrderStatus) *Order {
	return &Order{
		ID:          "ord-1",
		OrderNumber: "ORD-0001",
		Branch:      Branch{ID: "br-1", Name: "فرع الرياض", NameEn: "Riyadh"},
		Status:      status,
		Priority:    PriorityHigh,
		Items: []OrderItem{
			{
				ID:       "item-1",
				Product:  Product{ID: "prod-bread", Name: "خبز", NameEn: "Bread", Unit: "قطعة", Department: bakeryDept},
				Quantity: 10,
				Price:    decimal.NewFromInt(5),
				Status:   ItemStatusPending,
			},
			{
				ID:       "item-2",
				Product:  Product{ID: "prod-cake", Name: "كيك", NameEn: "Cake", Unit: "علبة", Department: pastryDept},
				Quantity: 10,
				Price:    decimal.NewFromInt(5),
				Status:   ItemStatusPending,
			},
		},
		TotalAmount: decimal.NewFromInt(100),
		CreatedAt:   testTime,
	}
}

func assignAll(o *Order) {
	o.Items[0].AssignedTo = &chefAli
	o.Items[0].Status = ItemStatusAssigned
	o.Items[1].AssignedTo = &chefSara
	o.Items[1].Status = ItemStatusAssigned
}

func deliveredOrder() *Order {
	o := newTestOrder(OrderStatusDelivered)
	assignAll(o)
	o.Items[0].Status = ItemStatusCompleted
	o.Items[1].Status = ItemStatusCompleted
	return o
}

var (
	productionActor = Actor{UserID: "u-prod", Role: RoleProduction}
	adminActor      = Actor{UserID: "u-admin", Role: RoleAdmin}
	branchActor     = Actor{UserID: "u-branch", Role: RoleBranch, BranchID: "br-1"}
	otherBranch     = Actor{UserID: "u-branch-2", Role: RoleBranch, BranchID: "br-2"}
	chefAliActor    = Actor{UserID: "chef-ali", Role: RoleChef, DepartmentID: "dept-bakery"}
)
