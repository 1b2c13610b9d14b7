package cors

import (
	"strings"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asrama-api/pkg/middleware/requestid"
)

// New returns a CORS middleware that honors a list of allowed origins. An
// empty list allows any origin, which is what local development expects.
func New(allowedOrigins []string) gin.HandlerFunc {
	cfg := gincors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", requestid.Header},
		ExposeHeaders:    []string{requestid.Header},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}

	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimRight(origin, "/"); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}

	return gincors.New(cfg)
}
