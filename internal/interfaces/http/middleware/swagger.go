package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bakery/orderdesk/internal/interfaces/http/dto"
)

// SwaggerConfig gates /swagger. AllowedIPs takes addresses or CIDRs; an
// empty list lets every client through.
type SwaggerConfig struct {
	Enabled    bool
	AllowedIPs []string
}

// docsAllowlist is the parsed form of SwaggerConfig.AllowedIPs. Single
// addresses become host prefixes. Unparsable entries are skipped.
type docsAllowlist []netip.Prefix

func parseDocsAllowlist(entries []string) docsAllowlist {
	var out docsAllowlist
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			out = append(out, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
		}
	}
	return out
}

func (l docsAllowlist) permits(clientIP string) bool {
	addr, err := netip.ParseAddr(clientIP)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range l {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// SwaggerProtection answers 404 while docs are disabled and 403 to clients
// outside the allowlist.
func SwaggerProtection(cfg SwaggerConfig) gin.HandlerFunc {
	allow := parseDocsAllowlist(cfg.AllowedIPs)
	restricted := len(cfg.AllowedIPs) > 0

	return func(c *gin.Context) {
		switch {
		case !cfg.Enabled:
			c.AbortWithStatusJSON(http.StatusNotFound,
				dto.NewErrorResponse(dto.ErrCodeNotFound, "API documentation is not available"))
		case restricted && !allow.permits(c.ClientIP()):
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrCodeForbidden, "API documentation is restricted to the office network"))
		default:
			c.Next()
		}
	}
}
