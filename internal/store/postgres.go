package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bognix/dymek-api/pkg/util"
)

// identifierPattern guards table and attribute names interpolated into SQL.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// PostgresStore keeps records in a table of the form
// (partition_key text, range_key text, item jsonb) with expression indexes
// on the attributes used for secondary lookups.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore builds a store over the named table.
func NewPostgresStore(pool *pgxpool.Pool, table string) (*PostgresStore, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

func (s *PostgresStore) Put(ctx context.Context, key Key, item []byte) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (partition_key, range_key, item)
        VALUES ($1, $2, $3)
        ON CONFLICT (partition_key, range_key) DO UPDATE SET item = EXCLUDED.item`, s.table)
	if _, err := s.pool.Exec(ctx, query, key.Partition, key.Range, item); err != nil {
		return util.NewStoreUnavailable(err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key Key) (Record, error) {
	query := fmt.Sprintf(`
        SELECT partition_key, range_key, item FROM %s
        WHERE partition_key=$1 AND range_key=$2`, s.table)
	var rec Record
	err := s.pool.QueryRow(ctx, query, key.Partition, key.Range).
		Scan(&rec.Key.Partition, &rec.Key.Range, &rec.Item)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, util.NewNotFound("record", map[string]any{
				"partition": key.Partition, "range": key.Range,
			})
		}
		return Record{}, util.NewStoreUnavailable(err)
	}
	return rec, nil
}

func (s *PostgresStore) UpdateAttribute(ctx context.Context, key Key, name string, value any, expectedVersion *int64) error {
	if !identifierPattern.MatchString(name) {
		return util.NewValidationError(fmt.Sprintf("invalid attribute name %q", name), nil)
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return util.NewValidationError("attribute value not serializable", nil)
	}

	query := fmt.Sprintf(`
        UPDATE %s SET item = jsonb_set(
            jsonb_set(item, '{%s}', $3::jsonb),
            '{version}', to_jsonb(COALESCE((item->>'version')::bigint, 0) + 1))
        WHERE partition_key=$1 AND range_key=$2`, s.table, name)
	args := []any{key.Partition, key.Range, encoded}
	if expectedVersion != nil {
		args = append(args, *expectedVersion)
		query += fmt.Sprintf(" AND COALESCE((item->>'version')::bigint, 0) = $%d", len(args))
	}

	cmd, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return util.NewStoreUnavailable(err)
	}
	if cmd.RowsAffected() == 0 {
		if expectedVersion != nil {
			return util.NewConflict("record version changed since read", map[string]any{
				"expectedVersion": *expectedVersion,
			})
		}
		return util.NewNotFound("record", map[string]any{
			"partition": key.Partition, "range": key.Range,
		})
	}
	return nil
}

func (s *PostgresStore) QueryByPartition(ctx context.Context, partition string, f Filters) ([]Record, error) {
	clauses := []string{"partition_key=$1"}
	args := []any{partition}
	clauses, args, err := appendFilterClauses(clauses, args, f)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
        SELECT partition_key, range_key, item FROM %s
        WHERE %s ORDER BY range_key ASC`, s.table, strings.Join(clauses, " AND "))
	return s.fetch(ctx, query, args)
}

func (s *PostgresStore) QueryByAttribute(ctx context.Context, name, value string, f Filters) ([]Record, error) {
	if !identifierPattern.MatchString(name) {
		return nil, util.NewValidationError(fmt.Sprintf("invalid attribute name %q", name), nil)
	}
	clauses := []string{fmt.Sprintf("item->>'%s' = $1", name)}
	args := []any{value}
	clauses, args, err := appendFilterClauses(clauses, args, f)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
        SELECT partition_key, range_key, item FROM %s
        WHERE %s ORDER BY range_key ASC`, s.table, strings.Join(clauses, " AND "))
	return s.fetch(ctx, query, args)
}

func (s *PostgresStore) ScanAll(ctx context.Context, f Filters) ([]Record, error) {
	clauses := []string{"1=1"}
	args := []any{}
	clauses, args, err := appendFilterClauses(clauses, args, f)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
        SELECT partition_key, range_key, item FROM %s
        WHERE %s ORDER BY partition_key ASC, range_key ASC`, s.table, strings.Join(clauses, " AND "))
	return s.fetch(ctx, query, args)
}

func (s *PostgresStore) fetch(ctx context.Context, query string, args []any) ([]Record, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, util.NewStoreUnavailable(err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Key.Partition, &rec.Key.Range, &rec.Item); err != nil {
			return nil, util.NewStoreUnavailable(err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, util.NewStoreUnavailable(err)
	}
	return result, nil
}

func appendFilterClauses(clauses []string, args []any, f Filters) ([]string, []any, error) {
	for name, value := range f.Equals {
		if !identifierPattern.MatchString(name) {
			return nil, nil, util.NewValidationError(fmt.Sprintf("invalid attribute name %q", name), nil)
		}
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("item->>'%s' = $%d", name, len(args)))
	}
	return clauses, args, nil
}
