package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar registers a set of routes under the versioned API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts registrars on a gin engine.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g. "v1").
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithGroupMiddleware runs handlers on every route under BasePath only.
func WithGroupMiddleware(handlers ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.middleware = append(r.middleware, handlers...)
	}
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues a registrar; routes are mounted by Setup.
func (r *Router) Register(registrar RouteRegistrar) *Router {
	if registrar != nil {
		r.registrars = append(r.registrars, registrar)
	}
	return r
}

// BasePath returns the versioned prefix, e.g. "/api/v1".
func (r *Router) BasePath() string {
	return "/api/" + r.apiVersion
}

// Setup mounts every registered registrar under BasePath.
func (r *Router) Setup() {
	api := r.engine.Group(r.BasePath(), r.middleware...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// RouteGroup collects routes sharing a prefix and middleware.
type RouteGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*RouteGroup
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

func NewRouteGroup(name, prefix string) *RouteGroup {
	return &RouteGroup{name: name, prefix: prefix}
}

// Use adds middleware applied to every route of the group and its subgroups.
func (g *RouteGroup) Use(middleware ...gin.HandlerFunc) *RouteGroup {
	g.middleware = append(g.middleware, middleware...)
	return g
}

func (g *RouteGroup) handle(method, path string, handlers []gin.HandlerFunc) *RouteGroup {
	g.routes = append(g.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return g
}

func (g *RouteGroup) GET(path string, handlers ...gin.HandlerFunc) *RouteGroup {
	return g.handle(http.MethodGet, path, handlers)
}

func (g *RouteGroup) POST(path string, handlers ...gin.HandlerFunc) *RouteGroup {
	return g.handle(http.MethodPost, path, handlers)
}

func (g *RouteGroup) PUT(path string, handlers ...gin.HandlerFunc) *RouteGroup {
	return g.handle(http.MethodPut, path, handlers)
}

func (g *RouteGroup) DELETE(path string, handlers ...gin.HandlerFunc) *RouteGroup {
	return g.handle(http.MethodDelete, path, handlers)
}

// Group creates a nested group.
func (g *RouteGroup) Group(name, prefix string) *RouteGroup {
	sub := NewRouteGroup(name, prefix)
	g.subgroups = append(g.subgroups, sub)
	return sub
}

// RegisterRoutes implements RouteRegistrar.
func (g *RouteGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(g.prefix)
	if len(g.middleware) > 0 {
		group.Use(g.middleware...)
	}
	for _, route := range g.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
	for _, sub := range g.subgroups {
		sub.RegisterRoutes(group)
	}
}

func (g *RouteGroup) Name() string {
	return g.name
}

func (g *RouteGroup) Prefix() string {
	return g.prefix
}
