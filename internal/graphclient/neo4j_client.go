package graphclient

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
)

// Neo4jConfig holds connection settings for the direct Neo4j backend.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

// DefaultNeo4jConfig reads connection settings from the environment.
func DefaultNeo4jConfig() Neo4jConfig {
	cfg := Neo4jConfig{
		URI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Username: getEnv("NEO4J_USERNAME", "neo4j"),
		Password: getEnv("NEO4J_PASSWORD", "password"),
		Database: getEnv("NEO4J_DATABASE", "neo4j"),
		Timeout:  5 * time.Second,
	}
	if v := os.Getenv("NEO4J_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Timeout = time.Duration(ms) * time.Millisecond
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Neo4jClient implements Service directly against a Neo4j database,
// for deployments where the orchestrator is embedded in a process with
// direct database access instead of going through MCP. Every query runs in
// a read-only session; this client never opens an AccessModeWrite session.
type Neo4jClient struct {
	driver   neo4j.DriverWithContext
	database string
	timeout  time.Duration
}

// NewNeo4jClient connects and verifies connectivity before returning.
func NewNeo4jClient(cfg Neo4jConfig) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4jconfig.Config) {
			c.MaxConnectionPoolSize = 50
			c.ConnectionAcquisitionTimeout = cfg.Timeout
			c.SocketConnectTimeout = cfg.Timeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("graphclient: failed to create Neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graphclient: failed to verify Neo4j connectivity: %w", err)
	}

	return &Neo4jClient{driver: driver, database: cfg.Database, timeout: cfg.Timeout}, nil
}

// Query runs cypherLike as a read-only Cypher statement and normalizes the
// result rows into a QueryResult.
func (c *Neo4jClient) Query(ctx context.Context, cypherLike string) (QueryResult, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer func() { _ = session.Close(ctx) }()

	raw, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, cypherLike, nil)
		if err != nil {
			return nil, err
		}

		nodes := []Node{}
		for res.Next(ctx) {
			record := res.Record()
			nodes = append(nodes, recordToNode(record))
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return nodes, nil
	})
	if err != nil {
		return QueryResult{}, fmt.Errorf("graphclient: cypher query failed: %w", err)
	}

	nodes, _ := raw.([]Node)
	return QueryResult{Nodes: nodes}, nil
}

// recordToNode maps a query row's named columns (name, labels, file_path,
// qualified_name) onto a Node, tolerating any subset being absent. Rows
// that project a whole node (`RETURN n`, as the Claim Verifier and
// decompose queries do) or other columns (the aggregator's schema query)
// map to a Node with empty fields.
func recordToNode(record *neo4j.Record) Node {
	node := Node{}
	if v, ok := record.Get("name"); ok {
		if s, ok := v.(string); ok {
			node.Name = s
		}
	}
	if v, ok := record.Get("labels"); ok {
		if ls, ok := v.([]interface{}); ok {
			for _, l := range ls {
				if s, ok := l.(string); ok {
					node.Labels = append(node.Labels, s)
				}
			}
		}
	}
	if v, ok := record.Get("file_path"); ok {
		if s, ok := v.(string); ok {
			node.FilePath = s
		}
	}
	if v, ok := record.Get("qualified_name"); ok {
		if s, ok := v.(string); ok {
			node.QualifiedName = s
		}
	}
	return node
}

// VerifyConnectivity checks that the driver can still reach the database.
func (c *Neo4jClient) VerifyConnectivity(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// Close releases driver resources.
func (c *Neo4jClient) Close(ctx context.Context) error {
	if c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}

var _ Service = (*Neo4jClient)(nil)
