// Package sqldriver implements storage.Driver over any database/sql
// connection, building dialect-specific queries with ent's SQL builder.
package sqldriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/vilm/pkg/llm"
	"github.com/papercomputeco/vilm/pkg/merkle"
	"github.com/papercomputeco/vilm/pkg/storage"
)

// Table is the name of the table holding transcript nodes.
const Table = "nodes"

// schema creates the nodes table. parent_hash deliberately has no foreign
// key: nodes may be written out of order by the transcript workers.
const schema = `CREATE TABLE IF NOT EXISTS nodes (
	hash        VARCHAR(64) PRIMARY KEY,
	parent_hash VARCHAR(64),
	type        TEXT NOT NULL,
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	model       TEXT NOT NULL,
	stop_reason TEXT NOT NULL DEFAULT '',
	usage       TEXT,
	session     TEXT NOT NULL DEFAULT '',
	created_at  BIGINT NOT NULL
)`

const parentIndex = `CREATE INDEX IF NOT EXISTS nodes_parent_hash ON nodes (parent_hash)`

var columns = []string{
	"hash", "parent_hash", "type", "role", "content", "model",
	"stop_reason", "usage", "session", "created_at",
}

// Driver implements storage.Driver on top of an ent SQL driver.
type Driver struct {
	drv     *entsql.Driver
	dialect string
}

// New wraps db for the given ent dialect (dialect.SQLite, dialect.Postgres)
// and creates the schema if it does not exist.
func New(ctx context.Context, dialectName string, db *sql.DB) (*Driver, error) {
	d := &Driver{
		drv:     entsql.OpenDB(dialectName, db),
		dialect: dialectName,
	}

	for _, stmt := range []string{schema, parentIndex} {
		if err := d.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return d, nil
}

// Dialect returns the ent dialect name the driver was opened with.
func (d *Driver) Dialect() string {
	return d.dialect
}

// Put stores a node. Returns true if the node was newly inserted.
func (d *Driver) Put(ctx context.Context, node *merkle.Node) (bool, error) {
	if node == nil {
		return false, errors.New("cannot store nil node")
	}

	var usage any
	if node.Usage != nil {
		raw, err := json.Marshal(node.Usage)
		if err != nil {
			return false, fmt.Errorf("failed to encode usage: %w", err)
		}
		usage = string(raw)
	}

	var parent any
	if node.ParentHash != nil {
		parent = *node.ParentHash
	}

	createdAt := node.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query, args := entsql.Dialect(d.dialect).
		Insert(Table).
		Columns(columns...).
		Values(
			node.Hash, parent, node.Bucket.Type, node.Bucket.Role,
			node.Bucket.Content, node.Bucket.Model, node.StopReason,
			usage, node.Session, createdAt.UnixNano(),
		).
		OnConflict(entsql.ConflictColumns("hash"), entsql.DoNothing()).
		Query()

	var res sql.Result
	if err := d.drv.Exec(ctx, query, args, &res); err != nil {
		return false, fmt.Errorf("failed to insert node %s: %w", node.Hash, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return n > 0, nil
}

// Get retrieves a node by its hash.
func (d *Driver) Get(ctx context.Context, hash string) (*merkle.Node, error) {
	selector := d.selectNodes().Where(entsql.EQ("hash", hash))

	nodes, err := d.query(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, storage.NotFoundError{Hash: hash}
	}

	return nodes[0], nil
}

// Has checks if a node exists by its hash.
func (d *Driver) Has(ctx context.Context, hash string) (bool, error) {
	_, err := d.Get(ctx, hash)
	if err == nil {
		return true, nil
	}

	var nf storage.NotFoundError
	if errors.As(err, &nf) {
		return false, nil
	}
	return false, err
}

// List returns all nodes, oldest first.
func (d *Driver) List(ctx context.Context) ([]*merkle.Node, error) {
	return d.query(ctx, d.selectNodes().OrderBy("created_at", "hash"))
}

// Leaves returns all nodes that are nobody's parent, newest first.
func (d *Driver) Leaves(ctx context.Context) ([]*merkle.Node, error) {
	parents := entsql.Dialect(d.dialect).
		Select("parent_hash").
		From(entsql.Table(Table)).
		Where(entsql.NotNull("parent_hash"))

	selector := d.selectNodes().
		Where(entsql.NotIn("hash", parents)).
		OrderBy(entsql.Desc("created_at"), "hash")

	return d.query(ctx, selector)
}

// Ancestry returns the path from a node back to its root (node first, root last).
func (d *Driver) Ancestry(ctx context.Context, hash string) ([]*merkle.Node, error) {
	return storage.WalkAncestry(ctx, d, hash)
}

// Close closes the underlying database connection.
func (d *Driver) Close() error {
	return d.drv.Close()
}

func (d *Driver) selectNodes() *entsql.Selector {
	return entsql.Dialect(d.dialect).
		Select(columns...).
		From(entsql.Table(Table))
}

func (d *Driver) query(ctx context.Context, selector *entsql.Selector) ([]*merkle.Node, error) {
	query, args := selector.Query()

	rows := &entsql.Rows{}
	if err := d.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*merkle.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nodes: %w", err)
	}

	return nodes, nil
}

func scanNode(rows *entsql.Rows) (*merkle.Node, error) {
	var (
		node      merkle.Node
		parent    sql.NullString
		usage     sql.NullString
		createdAt int64
	)

	err := rows.Scan(
		&node.Hash, &parent, &node.Bucket.Type, &node.Bucket.Role,
		&node.Bucket.Content, &node.Bucket.Model, &node.StopReason,
		&usage, &node.Session, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan node: %w", err)
	}

	if parent.Valid {
		p := parent.String
		node.ParentHash = &p
	}

	if usage.Valid && usage.String != "" {
		node.Usage = &llm.Usage{}
		if err := json.Unmarshal([]byte(usage.String), node.Usage); err != nil {
			return nil, fmt.Errorf("failed to decode usage for %s: %w", node.Hash, err)
		}
	}

	node.CreatedAt = time.Unix(0, createdAt)
	return &node, nil
}

// Purge deletes every node.
func (d *Driver) Purge(ctx context.Context) (int64, error) {
	query, args := entsql.Dialect(d.dialect).Delete(Table).Query()

	var res sql.Result
	if err := d.drv.Exec(ctx, query, args, &res); err != nil {
		return 0, fmt.Errorf("failed to purge nodes: %w", err)
	}
	return res.RowsAffected()
}
