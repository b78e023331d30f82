package realtime

import "github.com/bakery/orderdesk/internal/domain/order"

// Room names the server fans events out to
const (
	RoomAdmin      = "admin"
	RoomProduction = "production"
)

// BranchRoom returns the room of one branch
func BranchRoom(branchID string) string { return "branch-" + branchID }

// ChefRoom returns the personal room of one chef
func ChefRoom(userID string) string { return "chef-" + userID }

// DepartmentRoom returns the room of one production department
func DepartmentRoom(departmentID string) string { return "department-" + departmentID }

// RoomsFor returns the rooms an actor joins. The server derives the same
// rooms from the joinRoom payload; broker consumers bind to them directly.
func RoomsFor(a order.Actor) []string {
	switch a.Role {
	case order.RoleAdmin:
		return []string{RoomAdmin, RoomProduction}
	case order.RoleProduction:
		return []string{RoomProduction}
	case order.RoleBranch:
		if a.BranchID == "" {
			return nil
		}
		return []string{BranchRoom(a.BranchID)}
	case order.RoleChef:
		rooms := []string{ChefRoom(a.UserID)}
		if a.DepartmentID != "" {
			rooms = append(rooms, DepartmentRoom(a.DepartmentID))
		}
		return rooms
	}
	return nil
}
