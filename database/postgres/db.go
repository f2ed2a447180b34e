package postgres

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/runstore"
)

// column describes one column as reported by information_schema.
type column struct {
	dataType string
	nullable bool
}

var tableSchemas = map[string]map[string]column{
	"experiments": {
		"id":          {"uuid", false},
		"name":        {"text", false},
		"description": {"text", false},
		"is_archived": {"boolean", false},
		"created_at":  {"timestamp with time zone", false},
	},
	"tags": {
		"id":          {"uuid", false},
		"name":        {"text", false},
		"color":       {"text", false},
		"description": {"text", false},
		"is_archived": {"boolean", false},
		"created_at":  {"timestamp with time zone", false},
	},
	"runs": {
		"hash":          {"text", false},
		"name":          {"text", false},
		"experiment_id": {"uuid", true},
		"is_archived":   {"boolean", false},
		"created_at":    {"timestamp with time zone", false},
		"updated_at":    {"timestamp with time zone", false},
	},
	"run_tags": {
		"run_hash": {"text", false},
		"tag_id":   {"uuid", false},
	},
}

// readColumns loads the public-schema columns of the given tables in one
// round trip. Tables that do not exist are absent from the result.
func readColumns(ctx context.Context, pool *pgxpool.Pool, tables []string) (map[string]map[string]column, error) {
	rows, err := pool.Query(ctx, `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = ANY($1)
	`, tables)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	result := make(map[string]map[string]column)
	for rows.Next() {
		var table, name, dataType, nullable string
		if err := rows.Scan(&table, &name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if result[table] == nil {
			result[table] = make(map[string]column)
		}
		result[table][name] = column{
			dataType: strings.ToLower(dataType),
			nullable: nullable == "YES",
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

// compareTable reports every missing or mismatched column of one table.
func compareTable(table string, expected, actual map[string]column) error {
	if actual == nil {
		return fmt.Errorf("table %s does not exist: %w", table, runstore.ErrIncompatibleSchema)
	}

	var missing, mismatched []string
	for _, name := range slices.Sorted(maps.Keys(expected)) {
		want := expected[name]
		got, ok := actual[name]
		switch {
		case !ok:
			missing = append(missing, name)
		case got.dataType != want.dataType:
			mismatched = append(mismatched, fmt.Sprintf("%s: expected %s, got %s", name, want.dataType, got.dataType))
		case got.nullable != want.nullable:
			mismatched = append(mismatched, fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", name, want.nullable, got.nullable))
		}
	}

	if len(missing) == 0 && len(mismatched) == 0 {
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "table %s schema validation failed", table)
	if len(missing) > 0 {
		fmt.Fprintf(&msg, "; missing columns: %s", strings.Join(missing, ", "))
	}
	if len(mismatched) > 0 {
		fmt.Fprintf(&msg, "; mismatched columns: %s", strings.Join(mismatched, "; "))
	}

	return fmt.Errorf("%s: %w", msg.String(), runstore.ErrIncompatibleSchema)
}

// ValidateSchema checks every migrated table against its expected columns.
// Differences are reported as runstore.ErrIncompatibleSchema.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	actual, err := readColumns(ctx, pool, tableNames)
	if err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	for _, table := range tableNames {
		if err := compareTable(table, tableSchemas[table], actual[table]); err != nil {
			return fmt.Errorf("validate schema: %w", err)
		}
	}

	return nil
}
