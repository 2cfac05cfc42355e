// Package router assembles the gin engine and registers the API routes.
package router

import (
	"net/http"

	"github.com/erp/flattax/internal/infrastructure/logger"
	"github.com/erp/flattax/internal/interfaces/http/handler"
	"github.com/erp/flattax/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/erp/flattax/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
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

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes under /api/<version>
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// DomainGroup collects the routes of one domain under a prefix
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	middleware []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: http.MethodGet, path: path, handlers: handlers})
	return dg
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: http.MethodPost, path: path, handlers: handlers})
	return dg
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// TaxRoutes registers the flat-tax endpoints under /taxes.
func TaxRoutes(h *handler.TaxHandler) *DomainGroup {
	return NewDomainGroup("taxes", "/taxes").
		Use(middleware.BodyLimit(middleware.DefaultBodyLimit)).
		GET("/rates", h.ListRates).
		POST("/products/price", h.ProductPrice).
		POST("/shipping/price", h.ShippingPrice).
		POST("/checkouts/price", h.CheckoutPrice).
		POST("/orders", h.OrderTaxes).
		POST("/discounts/prorate", h.Prorate)
}

// Options configure the engine built by New.
type Options struct {
	Logger  *zap.Logger
	Tracing middleware.TracingConfig
	Swagger middleware.SwaggerConfig
}

// New builds the engine with request logging, panic recovery and tracing,
// plus a /health probe and the Swagger UI, and registers the tax routes.
func New(taxes *handler.TaxHandler, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.TracingWithConfig(opts.Tracing),
		middleware.SpanErrorMarker(),
	)
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/swagger/*any", middleware.SwaggerProtection(opts.Swagger), ginSwagger.WrapHandler(swaggerFiles.Handler))

	NewRouter(engine).Register(TaxRoutes(taxes)).Setup()
	return engine
}
