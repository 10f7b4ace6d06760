package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

var _ VectorStore = (*SQLiteStore)(nil)

// SQLiteStore keeps collections in the passage_vectors table and searches
// them by brute-force cosine similarity.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an existing *sql.DB for vector operations.
// The passage_vectors table must already exist (created via migrations).
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Insert adds records to the collection in a single transaction.
func (s *SQLiteStore) Insert(ctx context.Context, collection string, records []Record) error {
	if err := checkDimensions(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passage_vectors (collection, id, source, page, position, text_chunk, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, collection, r.ID, r.Source, r.Page, r.Position, r.Text, encodeFloat32s(r.Embedding)); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// Search scans only rowid and embedding to find the top-K candidates, then
// fetches full rows for the winners.
func (s *SQLiteStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]ScoredRecord, error) {
	if topK <= 0 {
		return nil, nil
	}
	queryNorm := norm(vector)
	if queryNorm == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT rowid, embedding FROM passage_vectors WHERE collection = ? ORDER BY rowid`, collection)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	h := &candidateHeap{}
	var buf []float32
	for rows.Next() {
		var rowid int64
		var blob []byte
		if err := rows.Scan(&rowid, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding at row %d: %w", rowid, err)
		}
		h.offer(candidate{key: rowid, seq: rowid, score: cosine(vector, buf, queryNorm)}, topK)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	if h.Len() == 0 {
		return nil, nil
	}

	ranked := h.ranked()
	args := make([]any, len(ranked))
	for i, c := range ranked {
		args[i] = c.key
	}
	fullRows, err := s.db.QueryContext(ctx, `SELECT rowid, id, source, page, position, text_chunk, embedding
		FROM passage_vectors WHERE rowid IN (?`+strings.Repeat(",?", len(args)-1)+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching top-K records: %w", err)
	}
	defer fullRows.Close()

	byRow := make(map[int64]Record, len(ranked))
	for fullRows.Next() {
		var rowid int64
		var r Record
		var blob []byte
		if err := fullRows.Scan(&rowid, &r.ID, &r.Source, &r.Page, &r.Position, &r.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning full record: %w", err)
		}
		if r.Embedding, err = decodeFloat32s(blob); err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", r.ID, err)
		}
		byRow[rowid] = r
	}
	if err := fullRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating full records: %w", err)
	}

	// IN does not preserve order; rebuild it from the ranking.
	results := make([]ScoredRecord, 0, len(ranked))
	for _, c := range ranked {
		if r, ok := byRow[c.key]; ok {
			results = append(results, ScoredRecord{Record: r, Score: c.score})
		}
	}
	return results, nil
}

func (s *SQLiteStore) Drop(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM passage_vectors WHERE collection = ?", collection); err != nil {
		return fmt.Errorf("dropping collection %s: %w", collection, err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context, collection string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passage_vectors WHERE collection = ?", collection).Scan(&count)
	return count, err
}
