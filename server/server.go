package server

import (
	"diskbtree/btree"
	routes "diskbtree/server/routes"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Server exposes the databases under one root directory over HTTP.
type Server struct {
	app   *fiber.App
	store *routes.Store
	log   *zap.Logger
}

func New(root string, logger *zap.Logger, opts ...btree.Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		app:   fiber.New(fiber.Config{DisableStartupMessage: true}),
		store: routes.NewStore(root, opts...),
		log:   logger,
	}
	s.app.Use(s.logRequest)
	routes.SetupRoutes(s.app, s.store)
	return s
}

func (s *Server) logRequest(c *fiber.Ctx) error {
	err := c.Next()
	s.log.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()))
	return err
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Close stops the listener and closes every open database.
func (s *Server) Close() error {
	return errors.CombineErrors(s.app.Shutdown(), s.store.Close())
}
