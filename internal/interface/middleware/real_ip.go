package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP resolves the originating client address once per request and
// stores it under "real_ip" for the rate limiter. Proxy headers are
// trusted in order: CF-Connecting-IP (set by Cloudflare at the edge),
// then the first hop of X-Forwarded-For. A header that does not parse
// as an address is ignored rather than trusted.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("real_ip", resolveClientIP(c))
		c.Next()
	}
}

func resolveClientIP(c *gin.Context) string {
	if ip := parseAddr(c.GetHeader("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := parseAddr(first); ip != "" {
			return ip
		}
	}
	return c.ClientIP()
}

func parseAddr(s string) string {
	p := net.ParseIP(strings.TrimSpace(s))
	if p == nil {
		return ""
	}
	return p.String()
}
