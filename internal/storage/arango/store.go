package arango

import (
	"context"
	"fmt"

	driver "github.com/arangodb/go-driver"
	"go.uber.org/zap"

	"elliptigraph-backend/internal/storage"
	apperrors "elliptigraph-backend/pkg/errors"
)

// InsertTransactions batch-inserts vertex documents. Documents whose key
// already exists are skipped and do not count toward the returned total.
func (c *Client) InsertTransactions(ctx context.Context, docs []storage.TransactionDoc) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	return c.insert(ctx, storage.CollectionTransactions, docs)
}

// InsertEdges batch-inserts edge documents.
func (c *Client) InsertEdges(ctx context.Context, docs []storage.EdgeDoc) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	return c.insert(ctx, storage.CollectionEdges, docs)
}

func (c *Client) insert(ctx context.Context, collection string, docs interface{}) (int, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		col, err := c.collection(ctx, collection)
		if err != nil {
			return 0, err
		}

		_, errs, err := col.CreateDocuments(ctx, docs)
		if err != nil {
			return 0, fmt.Errorf("batch insert into %s failed: %w", collection, err)
		}

		inserted := 0
		for _, docErr := range errs {
			if docErr == nil {
				inserted++
				continue
			}
			if !driver.IsConflict(docErr) {
				c.logger.Warn("Document insert failed",
					zap.String("collection", collection),
					zap.Error(docErr),
				)
			}
		}
		return inserted, nil
	})
	if err != nil {
		return 0, translateBreakerErr(err, fmt.Sprintf("insert into %s failed", collection))
	}
	return result.(int), nil
}

// Query executes an AQL query with bind variables and drains the cursor.
func (c *Client) Query(ctx context.Context, query string, bindVars map[string]interface{}) ([]map[string]interface{}, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		db, err := c.database(ctx)
		if err != nil {
			return nil, err
		}

		cursor, err := db.Query(ctx, query, bindVars)
		if err != nil {
			return nil, fmt.Errorf("query failed: %w", err)
		}
		defer cursor.Close()

		docs := make([]map[string]interface{}, 0)
		for {
			var doc map[string]interface{}
			_, err := cursor.ReadDocument(ctx, &doc)
			if driver.IsNoMoreDocuments(err) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read query result: %w", err)
			}
			docs = append(docs, doc)
		}
		return docs, nil
	})
	if err != nil {
		return nil, translateBreakerErr(err, "query execution failed")
	}
	return result.([]map[string]interface{}), nil
}

// Count returns the number of documents in a collection.
func (c *Client) Count(ctx context.Context, collection string) (int64, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		col, err := c.collection(ctx, collection)
		if err != nil {
			return int64(0), err
		}
		return col.Count(ctx)
	})
	if err != nil {
		return 0, translateBreakerErr(err, fmt.Sprintf("count of %s failed", collection))
	}
	return result.(int64), nil
}

// database returns the opened database handle, opening it lazily when the
// client is used before Setup.
func (c *Client) database(ctx context.Context) (driver.Database, error) {
	if c.db != nil {
		return c.db, nil
	}
	db, err := c.client.Database(ctx, c.cfg.Database)
	if err != nil {
		if driver.IsNotFoundGeneral(err) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("database %s does not exist", c.cfg.Database))
		}
		return nil, fmt.Errorf("failed to open database %s: %w", c.cfg.Database, err)
	}
	c.db = db
	return db, nil
}

func (c *Client) collection(ctx context.Context, name string) (driver.Collection, error) {
	db, err := c.database(ctx)
	if err != nil {
		return nil, err
	}
	col, err := db.Collection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}
	return col, nil
}
