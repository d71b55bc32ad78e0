package cors

import (
	"net/http"
	"strings"

	corsutil "github.com/NYCU-SDC/summer/pkg/cors"
	"go.uber.org/zap"
)

// Middleware admits cross origin calls from the builder dashboard. It wraps
// the whole mux so preflight requests are answered before routing.
type Middleware struct {
	logger       *zap.Logger
	allowOrigins []string
}

func NewMiddleware(logger *zap.Logger, allowOrigins []string) Middleware {
	origins := normalizeOrigins(allowOrigins)
	if len(origins) == 0 {
		logger.Warn("No CORS origins configured, browsers on other origins will be rejected")
	}
	logger.Info("CORS middleware initialized", zap.Strings("allow_origins", origins))

	return Middleware{
		logger:       logger,
		allowOrigins: origins,
	}
}

func (m Middleware) HandlerFunc(next http.HandlerFunc) http.HandlerFunc {
	return corsutil.CORSMiddleware(next, m.logger, m.allowOrigins)
}

func (m Middleware) AllowOrigins() []string {
	return append([]string{}, m.allowOrigins...)
}

// normalizeOrigins drops blanks, trailing slashes and duplicates. A browser
// never sends the Origin header with a trailing slash.
func normalizeOrigins(origins []string) []string {
	seen := make(map[string]bool, len(origins))
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		out = append(out, origin)
	}
	return out
}
