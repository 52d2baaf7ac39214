// Package rest exposes the account lifecycle over HTTP using fiber. Handlers
// never write error responses themselves: every error is returned to the
// single errorHandler, which maps error kinds to status codes.
package rest

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const shutdownTimeout = 10 * time.Second

type HTTPServer struct {
	address  string
	app      *fiber.App
	accounts *services.AccountService
	cookies  *auth.CookieManager
	logger   logging.Logger
}

// NewHTTPServer builds the fiber application. allowedOrigins may send
// credentialed cross-origin requests; an empty list disables CORS.
func NewHTTPServer(address string, l logging.Logger, as *services.AccountService, cm *auth.CookieManager, allowedOrigins []string) *HTTPServer {
	s := &HTTPServer{
		address:  address,
		accounts: as,
		cookies:  cm,
		logger:   l.With("module", "http_server"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "gatekeeper",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)
	if len(allowedOrigins) > 0 {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(allowedOrigins, ","),
			AllowCredentials: true,
			AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		}))
	}

	s.routes()
	return s
}

// App returns the underlying fiber application.
func (s *HTTPServer) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
		_ = ln.Close()
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())

	if err := s.app.Listener(ln); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
