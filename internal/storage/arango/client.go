// Package arango implements the graph store on ArangoDB using the official
// Go driver. All calls go through a circuit breaker so a flapping database
// degrades queries instead of cascading failures through the dashboard.
package arango

import (
	"context"
	"fmt"

	driver "github.com/arangodb/go-driver"
	driverhttp "github.com/arangodb/go-driver/http"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"elliptigraph-backend/internal/config"
	"elliptigraph-backend/internal/storage"
	apperrors "elliptigraph-backend/pkg/errors"
)

// Client is the ArangoDB-backed storage.Store implementation.
type Client struct {
	cfg     config.Arango
	logger  *zap.Logger
	client  driver.Client
	db      driver.Database
	breaker *gobreaker.CircuitBreaker
}

var _ storage.Store = (*Client)(nil)

// Connect dials the ArangoDB endpoint and verifies credentials.
func Connect(cfg config.Arango, logger *zap.Logger) (*Client, error) {
	conn, err := driverhttp.NewConnection(driverhttp.ConnectionConfig{
		Endpoints: []string{cfg.Endpoint},
	})
	if err != nil {
		return nil, apperrors.NewUnavailable("failed to create connection", err)
	}

	client, err := driver.NewClient(driver.ClientConfig{
		Connection:     conn,
		Authentication: driver.BasicAuthentication(cfg.Username, cfg.Password),
	})
	if err != nil {
		return nil, apperrors.NewUnavailable("failed to create client", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "arango",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	logger.Info("Connected to ArangoDB",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("database", cfg.Database),
	)

	return &Client{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		breaker: breaker,
	}, nil
}

// Setup idempotently creates the database, both collections, and the named
// graph with its edge definition.
func (c *Client) Setup(ctx context.Context) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.setup(ctx)
	})
	if err != nil {
		return translateBreakerErr(err, "store setup failed")
	}
	return nil
}

func (c *Client) setup(ctx context.Context) error {
	exists, err := c.client.DatabaseExists(ctx, c.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to check database: %w", err)
	}

	var db driver.Database
	if exists {
		db, err = c.client.Database(ctx, c.cfg.Database)
	} else {
		db, err = c.client.CreateDatabase(ctx, c.cfg.Database, nil)
		if err == nil {
			c.logger.Info("Created database", zap.String("database", c.cfg.Database))
		}
	}
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", c.cfg.Database, err)
	}
	c.db = db

	if err := c.ensureCollection(ctx, storage.CollectionTransactions, driver.CollectionTypeDocument); err != nil {
		return err
	}
	if err := c.ensureCollection(ctx, storage.CollectionEdges, driver.CollectionTypeEdge); err != nil {
		return err
	}
	return c.ensureGraph(ctx)
}

func (c *Client) ensureCollection(ctx context.Context, name string, typ driver.CollectionType) error {
	exists, err := c.db.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}

	_, err = c.db.CreateCollection(ctx, name, &driver.CreateCollectionOptions{Type: typ})
	if err != nil && !driver.IsConflict(err) {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	c.logger.Info("Created collection", zap.String("collection", name))
	return nil
}

func (c *Client) ensureGraph(ctx context.Context) error {
	exists, err := c.db.GraphExists(ctx, storage.GraphName)
	if err != nil {
		return fmt.Errorf("failed to check graph: %w", err)
	}
	if exists {
		return nil
	}

	_, err = c.db.CreateGraphV2(ctx, storage.GraphName, &driver.CreateGraphOptions{
		EdgeDefinitions: []driver.EdgeDefinition{
			{
				Collection: storage.CollectionEdges,
				From:       []string{storage.CollectionTransactions},
				To:         []string{storage.CollectionTransactions},
			},
		},
	})
	if err != nil && !driver.IsConflict(err) {
		return fmt.Errorf("failed to create graph %s: %w", storage.GraphName, err)
	}
	c.logger.Info("Created graph", zap.String("graph", storage.GraphName))
	return nil
}

// translateBreakerErr maps breaker and driver failures onto typed errors.
// Errors already typed by the caller pass through unchanged.
func translateBreakerErr(err error, message string) error {
	switch err {
	case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
		return apperrors.NewUnavailable("graph store circuit breaker open", err)
	}
	if _, ok := err.(*apperrors.AppError); ok {
		return err
	}
	return apperrors.NewUnavailable(message, err)
}
