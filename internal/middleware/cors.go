package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/marketplace-pricing/internal/common/config"
)

// CORS 跨域；允许列表为 ["*"] 且需要携带凭证时回显请求源
func CORS(cfg *config.CORSConfig) gin.HandlerFunc {
	wildcard := slices.Equal(cfg.AllowedOrigins, []string{"*"})

	fixed := map[string]string{
		"Access-Control-Allow-Methods": strings.Join(cfg.AllowedMethods, ", "),
		"Access-Control-Allow-Headers": strings.Join(cfg.AllowedHeaders, ", "),
	}
	if len(cfg.ExposedHeaders) > 0 {
		fixed["Access-Control-Expose-Headers"] = strings.Join(cfg.ExposedHeaders, ", ")
	}
	if cfg.AllowCredentials {
		fixed["Access-Control-Allow-Credentials"] = "true"
	}
	if cfg.MaxAge > 0 {
		fixed["Access-Control-Max-Age"] = strconv.Itoa(cfg.MaxAge)
	}

	allowed := func(origin string) string {
		switch {
		case origin == "":
			return ""
		case wildcard && !cfg.AllowCredentials:
			return "*"
		case wildcard, slices.Contains(cfg.AllowedOrigins, origin):
			return origin
		}
		return ""
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if !wildcard || cfg.AllowCredentials {
			c.Writer.Header().Add("Vary", "Origin")
		}
		if v := allowed(origin); v != "" {
			c.Header("Access-Control-Allow-Origin", v)
			for k, val := range fixed {
				c.Header(k, val)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
