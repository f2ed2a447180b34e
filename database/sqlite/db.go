package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/sagarc03/runstore"
)

// column describes one column as reported by pragma_table_info.
type column struct {
	dataType string
	nullable bool
}

var tableSchemas = map[string]map[string]column{
	"experiments": {
		"id":          {"text", false},
		"name":        {"text", false},
		"description": {"text", false},
		"is_archived": {"integer", false},
		"created_at":  {"text", false},
	},
	"tags": {
		"id":          {"text", false},
		"name":        {"text", false},
		"color":       {"text", false},
		"description": {"text", false},
		"is_archived": {"integer", false},
		"created_at":  {"text", false},
	},
	"runs": {
		"hash":          {"text", false},
		"name":          {"text", false},
		"experiment_id": {"text", true},
		"is_archived":   {"integer", false},
		"created_at":    {"text", false},
		"updated_at":    {"text", false},
	},
	"run_tags": {
		"run_hash": {"text", false},
		"tag_id":   {"text", false},
	},
}

// readColumns returns the columns of table, or nil when the table does not exist.
func readColumns(ctx context.Context, db *sql.DB, table string) (map[string]column, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, type, "notnull" FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("query columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var result map[string]column
	for rows.Next() {
		var name, dataType string
		var notNull int
		if err := rows.Scan(&name, &dataType, &notNull); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if result == nil {
			result = make(map[string]column)
		}
		result[name] = column{
			dataType: strings.ToLower(dataType),
			nullable: notNull == 0,
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
func ValidateSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range tableNames {
		actual, err := readColumns(ctx, db, table)
		if err != nil {
			return fmt.Errorf("validate schema: %w", err)
		}
		if err := compareTable(table, tableSchemas[table], actual); err != nil {
			return fmt.Errorf("validate schema: %w", err)
		}
	}

	return nil
}
