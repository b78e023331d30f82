package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bakery/orderdesk/internal/infrastructure/config"
	"github.com/bakery/orderdesk/internal/infrastructure/logger"
)

// CORSConfig lists what browser clients of the dashboard may send and read.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig allows no origin. The stream needs Last-Event-ID and
// Cache-Control; exports need Content-Disposition exposed.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", logger.RequestIDHeader, "Accept", "Origin", "Cache-Control", "Last-Event-ID"},
		ExposeHeaders:    []string{logger.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORS builds the policy from the HTTP settings; unset method and header
// lists keep the defaults.
func CORS(hc config.HTTPConfig) gin.HandlerFunc {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = hc.CORSAllowOrigins
	if len(hc.CORSAllowMethods) > 0 {
		cfg.AllowMethods = hc.CORSAllowMethods
	}
	if len(hc.CORSAllowHeaders) > 0 {
		cfg.AllowHeaders = hc.CORSAllowHeaders
	}
	return CORSWithConfig(cfg)
}

// corsPolicy holds header values joined once at startup.
type corsPolicy struct {
	origins     []string
	anyOrigin   bool
	credentials bool
	methods     string
	headers     string
	expose      string
	maxAge      string
}

func newCORSPolicy(cfg CORSConfig) corsPolicy {
	p := corsPolicy{
		origins:     cfg.AllowOrigins,
		anyOrigin:   slices.Contains(cfg.AllowOrigins, "*"),
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(cfg.AllowMethods, ", "),
		headers:     strings.Join(cfg.AllowHeaders, ", "),
		expose:      strings.Join(cfg.ExposeHeaders, ", "),
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when it is not allowed.
func (p corsPolicy) allowOrigin(origin string) string {
	switch {
	case origin == "" || len(p.origins) == 0:
		return ""
	case p.anyOrigin:
		return "*"
	case slices.Contains(p.origins, origin):
		return origin
	}
	return ""
}

func (p corsPolicy) apply(h http.Header, allowed string) {
	h.Set("Access-Control-Allow-Origin", allowed)
	if p.credentials && allowed != "*" {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	h.Set("Access-Control-Allow-Methods", p.methods)
	h.Set("Access-Control-Allow-Headers", p.headers)
	if p.expose != "" {
		h.Set("Access-Control-Expose-Headers", p.expose)
	}
	if p.maxAge != "" {
		h.Set("Access-Control-Max-Age", p.maxAge)
	}
}

// CORSWithConfig answers preflights with 204 whatever the origin, so they
// never reach the router's 404.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		if !policy.anyOrigin && len(policy.origins) > 0 {
			h.Add("Vary", "Origin")
		}
		if allowed := policy.allowOrigin(c.GetHeader("Origin")); allowed != "" {
			policy.apply(h, allowed)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SecurityConfig controls the response hardening headers.
type SecurityConfig struct {
	HSTSEnabled           bool
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
	CSPDirective          string
}

// DefaultSecurityConfig leaves HSTS to the TLS-terminating proxy.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSMaxAge:            365 * 24 * time.Hour,
		HSTSIncludeSubdomains: true,
		CSPDirective:          "default-src 'self'; img-src 'self' data:; frame-ancestors 'none'; base-uri 'self'",
	}
}

func Secure() gin.HandlerFunc {
	return SecureWithConfig(DefaultSecurityConfig())
}

// SecureWithConfig sets the hardening headers before the handler runs.
// Order data is per user, so responses default to no-store; handlers that
// stream or download override Cache-Control.
func SecureWithConfig(cfg SecurityConfig) gin.HandlerFunc {
	fixed := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"Cache-Control":          "no-store",
	}
	if cfg.CSPDirective != "" {
		fixed["Content-Security-Policy"] = cfg.CSPDirective
	}
	if cfg.HSTSEnabled {
		v := "max-age=" + strconv.FormatInt(int64(cfg.HSTSMaxAge.Seconds()), 10)
		if cfg.HSTSIncludeSubdomains {
			v += "; includeSubDomains"
		}
		fixed["Strict-Transport-Security"] = v
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range fixed {
			h.Set(k, v)
		}
		c.Next()
	}
}
