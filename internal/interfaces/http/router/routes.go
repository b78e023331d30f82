package router

import (
	"github.com/gin-gonic/gin"

	"github.com/bakery/orderdesk/internal/interfaces/http/handler"
)

// Handlers bundles the dashboard API handlers. Audit is optional.
type Handlers struct {
	Session   *handler.SessionHandler
	Orders    *handler.OrderHandler
	Actions   *handler.ActionHandler
	Reference *handler.ReferenceHandler
	Export    *handler.ExportHandler
	Stream    *handler.StreamHandler
	Audit     *handler.AuditHandler
}

// SessionRoutes mounts /session.
func SessionRoutes(h *handler.SessionHandler) *RouteGroup {
	g := NewRouteGroup("session", "/session")
	g.POST("", h.Open).
		GET("", h.Get).
		DELETE("", h.Close).
		POST("/reload", h.Reload)
	return g
}

// OrderRoutes mounts the order list, detail and mutation endpoints.
func OrderRoutes(h Handlers) *RouteGroup {
	g := NewRouteGroup("orders", "/orders")
	g.GET("", h.Orders.List).
		GET("/counts", h.Orders.Counts).
		GET("/:id", h.Orders.Get).
		GET("/:id/actions", h.Orders.Actions)
	if h.Audit != nil {
		g.GET("/:id/audit", h.Audit.ForOrder)
	}

	a := g.Group("actions", "/:id")
	a.POST("/approve", h.Actions.Approve).
		POST("/cancel", h.Actions.Cancel).
		POST("/ship", h.Actions.Ship).
		POST("/confirm-delivery", h.Actions.ConfirmDelivery).
		POST("/assign", h.Actions.Assign).
		POST("/items/:itemId/status", h.Actions.UpdateItemStatus).
		POST("/returns", h.Actions.CreateReturn).
		POST("/returns/:returnId/approve", h.Actions.ApproveReturn).
		POST("/returns/:returnId/reject", h.Actions.RejectReturn)
	return g
}

// ReferenceRoutes mounts chef, branch and department lookups and the
// cache invalidation hook.
func ReferenceRoutes(h *handler.ReferenceHandler) RouteRegistrar {
	return registrarFunc(func(rg *gin.RouterGroup) {
		rg.GET("/chefs", h.ListChefs)
		rg.GET("/branches", h.ListBranches)
		rg.GET("/departments", h.ListDepartments)
		rg.POST("/reference/invalidate", h.Invalidate)
	})
}

// Dashboard registers every dashboard route on r.
func Dashboard(r *Router, h Handlers) *Router {
	r.Register(SessionRoutes(h.Session)).
		Register(OrderRoutes(h)).
		Register(ReferenceRoutes(h.Reference)).
		Register(registrarFunc(func(rg *gin.RouterGroup) {
			rg.PUT("/view", h.Orders.UpdateView)
			rg.GET("/export/:format", h.Export.Export)
			rg.GET("/stream", h.Stream.Stream)
		}))
	return r
}

type registrarFunc func(rg *gin.RouterGroup)

func (f registrarFunc) RegisterRoutes(rg *gin.RouterGroup) { f(rg) }
