package server

import (
	"context"
	"fmt"

	"github.com/findash/bank-import-service/internal/config"
	"github.com/findash/bank-import-service/internal/handler"
	"github.com/findash/bank-import-service/internal/middleware"
	"github.com/findash/bank-import-service/pkg/logger"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo          *echo.Echo
	cfg           *config.Config
	logger        *logger.Logger
	importHandler *handler.ImportHandler
	healthHandler *handler.HealthHandler
}

func New(
	cfg *config.Config,
	log *logger.Logger,
	importHandler *handler.ImportHandler,
	healthHandler *handler.HealthHandler,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	return &Server{
		echo:          e,
		cfg:           cfg,
		logger:        log,
		importHandler: importHandler,
		healthHandler: healthHandler,
	}
}

func (s *Server) Start() error {
	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Info(context.Background(), "Starting HTTP server",
		"address", addr,
	)

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echoMiddleware.Recover())
	s.echo.Use(echoMiddleware.CORS())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.Logging(s.logger))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler.Check)

	s.echo.POST("/imports/upload", s.importHandler.Upload)
	s.echo.GET("/imports", s.importHandler.List)
	s.echo.GET("/imports/:id", s.importHandler.GetByID)
	s.echo.PATCH("/imports/:id/items/batch", s.importHandler.UpdateItemsBatch)
	s.echo.PATCH("/imports/:id/items/:itemId", s.importHandler.UpdateItem)
	s.echo.POST("/imports/:id/confirm", s.importHandler.Confirm)
	s.echo.POST("/imports/:id/cancel", s.importHandler.Cancel)
}

func (s *Server) Handler() *echo.Echo {
	s.setupMiddleware()
	s.setupRoutes()
	return s.echo
}
