package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/inodb/gtex-eqtl/internal/fileio"
)

const rsidSource = "variant_rsids"

// keyTableSeq names the per-call key tables used by LookupRsIDs.
var keyTableSeq atomic.Uint64

// LoadVariantRsIDs bulk-loads a GTEx variant lookup file using DuckDB's
// read_csv. The file is space-delimited with a header line that is skipped:
//
//	variant_id rs_id_dbSNP155_GRCh38p13
//
// Rows whose rsID is "." are dropped. localPath is the file to read and fp
// identifies its source; when the store already holds a load of the same
// source the call is a no-op and loaded is false.
func (s *Store) LoadVariantRsIDs(localPath string, fp fileio.Fingerprint) (loaded bool, err error) {
	current, ok, err := s.sourceFingerprint(rsidSource)
	if err != nil {
		return false, err
	}
	if ok && sameSource(current, fp) {
		return false, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM variant_rsids`); err != nil {
		return false, fmt.Errorf("clear variant rsids: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO variant_rsids
		SELECT column0, column1
		FROM read_csv(%s, delim=' ', header=false, skip=1,
			columns={
				'column0': 'VARCHAR',
				'column1': 'VARCHAR'
			})
		WHERE column1 IS NOT NULL AND column1 <> '.'`, sqlString(localPath))
	if _, err := tx.Exec(query); err != nil {
		return false, fmt.Errorf("loading rsID lookup: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO lookup_sources VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			path = excluded.path, size = excluded.size, mod_time = excluded.mod_time`,
		rsidSource, fp.Path, fp.Size, fp.ModTime.UTC()); err != nil {
		return false, fmt.Errorf("record source fingerprint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit load: %w", err)
	}
	return true, nil
}

func (s *Store) sourceFingerprint(name string) (fileio.Fingerprint, bool, error) {
	var fp fileio.Fingerprint
	err := s.db.QueryRow(`SELECT path, size, mod_time FROM lookup_sources WHERE name = ?`, name).
		Scan(&fp.Path, &fp.Size, &fp.ModTime)
	if errors.Is(err, sql.ErrNoRows) {
		return fileio.Fingerprint{}, false, nil
	}
	if err != nil {
		return fileio.Fingerprint{}, false, fmt.Errorf("read source fingerprint: %w", err)
	}
	return fp, true, nil
}

// HasRsIDSource reports whether the store already holds a load of the source
// identified by fp, so callers can skip fetching the file.
func (s *Store) HasRsIDSource(fp fileio.Fingerprint) (bool, error) {
	current, ok, err := s.sourceFingerprint(rsidSource)
	if err != nil || !ok {
		return false, err
	}
	return sameSource(current, fp), nil
}

// sameSource compares fingerprints at the microsecond precision of TIMESTAMP.
func sameSource(a, b fileio.Fingerprint) bool {
	return a.Path == b.Path && a.Size == b.Size &&
		a.ModTime.UTC().Truncate(time.Microsecond).Equal(b.ModTime.UTC().Truncate(time.Microsecond))
}

// RsIDCount returns the number of rows in the rsID lookup table.
func (s *Store) RsIDCount() (int64, error) {
	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM variant_rsids").Scan(&count); err != nil {
		return 0, fmt.Errorf("count variant rsids: %w", err)
	}
	return count, nil
}

// LookupRsIDs resolves a batch of GTEx variant ids to rsIDs. Keys are
// inserted into a temporary key table private to the call and joined against the lookup
// in one query. A variant listed several times in the lookup maps to all of
// its rsIDs in file order; unknown variants are absent from the result.
func (s *Store) LookupRsIDs(ctx context.Context, variantIDs []string) (map[string][]string, error) {
	if len(variantIDs) == 0 {
		return map[string][]string{}, nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	keyTable, err := createKeyTable(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer conn.ExecContext(context.Background(), fmt.Sprintf(`DROP TABLE IF EXISTS %s`, keyTable))

	if err := insertKeys(ctx, conn, keyTable, variantIDs); err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT k.variant_id, r.rs_id
		FROM %s k
		JOIN variant_rsids r ON r.variant_id = k.variant_id
		ORDER BY k.variant_id, r.rowid
	`, keyTable))
	if err != nil {
		return nil, fmt.Errorf("rsID lookup query: %w", err)
	}
	defer rows.Close()

	results := make(map[string][]string)
	for rows.Next() {
		var variantID, rsID string
		if err := rows.Scan(&variantID, &rsID); err != nil {
			return nil, fmt.Errorf("scan rsID result: %w", err)
		}
		results[variantID] = append(results[variantID], rsID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rsID lookup rows: %w", err)
	}
	return results, nil
}

// createKeyTable creates a temporary key table private to conn. Temporary
// tables never reach a persistent cache file.
func createKeyTable(ctx context.Context, conn *sql.Conn) (string, error) {
	name := fmt.Sprintf("rsid_keys_%d", keyTableSeq.Add(1))
	if _, err := conn.ExecContext(ctx, fmt.Sprintf(`CREATE OR REPLACE TEMPORARY TABLE %s (variant_id VARCHAR)`, name)); err != nil {
		return "", fmt.Errorf("create key table: %w", err)
	}
	return name, nil
}

// insertKeys writes the distinct variant ids into table in chunks.
func insertKeys(ctx context.Context, conn *sql.Conn, table string, variantIDs []string) error {
	seen := make(map[string]bool, len(variantIDs))
	keys := make([]any, 0, len(variantIDs))
	for _, id := range variantIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, id)
	}

	// Insert in chunks to avoid huge SQL statements.
	const chunkSize = 1000
	for i := 0; i < len(keys); i += chunkSize {
		chunk := keys[i:min(i+chunkSize, len(keys))]
		query := fmt.Sprintf("INSERT INTO %s VALUES %s", table,
			strings.TrimSuffix(strings.Repeat("(?),", len(chunk)), ","))
		if _, err := conn.ExecContext(ctx, query, chunk...); err != nil {
			return fmt.Errorf("insert keys: %w", err)
		}
	}
	return nil
}
