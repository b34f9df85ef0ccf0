package gateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/aakarshsak/ecom-price-tracker/pkg/errors"
	"github.com/aakarshsak/ecom-price-tracker/pkg/response"
)

// Route maps a path prefix to a backing service.
type Route struct {
	Prefix string
	Target string
}

// Proxy forwards filtered requests to their backing service by longest
// matching prefix.
type Proxy struct {
	routes []route
	logger *zap.Logger
}

type route struct {
	prefix  string
	forward *httputil.ReverseProxy
}

// NewProxy builds a proxy from the route table. Invalid target URLs are
// rejected at startup rather than at request time.
func NewProxy(routes []Route, logger *zap.Logger) (*Proxy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Proxy{logger: logger}
	for _, r := range routes {
		target, err := url.Parse(r.Target)
		if err != nil {
			return nil, err
		}
		forward := httputil.NewSingleHostReverseProxy(target)
		forward.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
			logger.Error("upstream request failed",
				zap.String("path", req.URL.Path), zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":{"code":"UPSTREAM_UNAVAILABLE","message":"upstream service unavailable","status":502}}`))
		}
		p.routes = append(p.routes, route{prefix: r.Prefix, forward: forward})
	}
	return p, nil
}

// Handle proxies the request to the first route whose prefix matches.
func (p *Proxy) Handle(c *gin.Context) {
	for _, r := range p.routes {
		if strings.HasPrefix(c.Request.URL.Path, r.prefix) {
			r.forward.ServeHTTP(c.Writer, c.Request)
			return
		}
	}
	response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no route for path"))
}
