package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/saxenasajal03/ConnectX/internal/api/gateway"
	"github.com/saxenasajal03/ConnectX/internal/db"
	"github.com/saxenasajal03/ConnectX/internal/events"
	"github.com/saxenasajal03/ConnectX/internal/ratelimit"
	"github.com/saxenasajal03/ConnectX/internal/store"
	"github.com/saxenasajal03/ConnectX/pkg/config"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Server owns the database, the event publisher, the rate-limit storage and
// the HTTP gateway built on them.
type Server struct {
	cfg       config.Config
	logger    *zap.Logger
	dbConn    *sql.DB
	publisher events.Publisher
	limiter   fiber.Storage
	gateway   *gateway.APIGateway
}

// New opens the configured store, applies pending migrations and wires the
// gateway. NATS and Redis are optional and skipped when unconfigured.
func New(cfg config.Config, logger *zap.Logger) (*Server, error) {
	dialect, err := db.DialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.OpenDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(dbConn, dialect, logger); err != nil {
		dbConn.Close()
		return nil, err
	}

	publisher, err := events.New(cfg.NATS, logger)
	if err != nil {
		dbConn.Close()
		return nil, err
	}

	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		dbConn:    dbConn,
		publisher: publisher,
		limiter:   ratelimit.New(cfg.Redis, logger),
	}

	opts := []gateway.Option{gateway.WithPublisher(publisher)}
	if srv.limiter != nil {
		opts = append(opts, gateway.WithLimiterStorage(srv.limiter))
	}
	st := store.NewSQLStore(dbConn, dialect, logger)
	srv.gateway = gateway.NewAPIGateway(cfg, logger, st, opts...)

	return srv, nil
}

// App returns the underlying Fiber application.
func (s *Server) App() *fiber.App {
	return s.gateway.Router()
}

// Run serves until ctx is cancelled or the listener fails, then shuts the
// gateway down and releases every resource.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.gateway.Start()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("gateway failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.gateway.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Gateway shutdown failed", zap.Error(err))
	}
	return s.Close()
}

// Close releases the publisher, the limiter storage and the database.
func (s *Server) Close() error {
	s.publisher.Close()
	if s.limiter != nil {
		if err := s.limiter.Close(); err != nil {
			s.logger.Warn("Failed to close rate limit storage", zap.Error(err))
		}
	}
	return s.dbConn.Close()
}
