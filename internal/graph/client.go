package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// StoreError wraps a failure from the graph store. From the relay's point of
// view these are transient: the write is idempotent and safe to retry on a
// later attempt.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("graph store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Client executes statement sequences against a Bolt endpoint.
type Client struct {
	driver neo4j.DriverWithContext
}

// NewClient connects to the graph store and verifies the endpoint is
// reachable before returning.
func NewClient(ctx context.Context, uri, username, password string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create graph driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach graph store: %w", err)
	}
	return &Client{driver: driver}, nil
}

// Apply executes the statements in order inside a single write transaction.
// One call is one logical graph write: either every statement commits or none
// do.
func (c *Client) Apply(ctx context.Context, stmts []Statement) error {
	if len(stmts) == 0 {
		return nil
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range stmts {
			if _, err := tx.Run(ctx, st.Cypher, st.Params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return &StoreError{Op: "apply", Err: err}
	}
	return nil
}

// EnsureConstraints applies the uniqueness constraints one statement at a
// time. Schema commands cannot share a transaction with data writes, so each
// runs in its own auto-commit transaction.
func (c *Client) EnsureConstraints(ctx context.Context) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, st := range ConstraintStatements() {
		res, err := session.Run(ctx, st.Cypher, st.Params)
		if err != nil {
			return &StoreError{Op: "ensure constraints", Err: err}
		}
		if _, err := res.Consume(ctx); err != nil {
			return &StoreError{Op: "ensure constraints", Err: err}
		}
	}
	return nil
}

// Close releases the underlying driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}
