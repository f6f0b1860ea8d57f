package usage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/seedbank/internal/apperr"
	"github.com/starford/seedbank/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS seed_usage (
	seed_id     TEXT PRIMARY KEY,
	usage_count INTEGER NOT NULL DEFAULT 0,
	last_used   TEXT,
	helpful     INTEGER NOT NULL DEFAULT 0,
	not_helpful INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS session_links (
	seed_id     TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	seed_pos    INTEGER NOT NULL,
	session_pos INTEGER NOT NULL,
	UNIQUE(seed_id, session_id)
);

CREATE INDEX IF NOT EXISTS idx_session_links_session ON session_links(session_id);
`

// SQLiteStore keeps the state in a SQLite database. One row of
// session_links records both directions of a seed/session membership.
// Update runs inside a single immediate transaction, which serialises
// writers across processes.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("usage: create db dir: %w", err)
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, &apperr.StoreError{Path: path, Err: err}
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, &apperr.StoreError{Path: path, Err: err}
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, &apperr.StoreError{Path: path, Err: fmt.Errorf("apply schema: %w", err)}
	}
	return &SQLiteStore{conn: conn, path: path}, nil
}

// Load reads the full state.
func (s *SQLiteStore) Load(ctx context.Context) (*models.UsageState, error) {
	tx, err := s.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, &apperr.StoreError{Path: s.path, Err: err}
	}
	defer tx.Rollback() //nolint:errcheck // read-only

	return s.loadTx(ctx, tx)
}

// Save replaces the stored state with state.
func (s *SQLiteStore) Save(ctx context.Context, state *models.UsageState) error {
	return s.Update(ctx, func(current *models.UsageState) error {
		*current = *state
		return nil
	})
}

// Update runs fn on the current state and writes the result in one transaction.
func (s *SQLiteStore) Update(ctx context.Context, fn func(*models.UsageState) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("usage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	state, err := s.loadTx(ctx, tx)
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	if err := replaceTx(ctx, tx, state); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) loadTx(ctx context.Context, tx *sql.Tx) (*models.UsageState, error) {
	state := models.NewUsageState()

	rows, err := tx.QueryContext(ctx, `SELECT seed_id, usage_count, last_used, helpful, not_helpful FROM seed_usage`)
	if err != nil {
		return nil, &apperr.StoreError{Path: s.path, Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id       string
			u        models.SeedUsage
			lastUsed sql.NullString
		)
		if err := rows.Scan(&id, &u.UsageCount, &lastUsed, &u.Helpful, &u.NotHelpful); err != nil {
			return nil, &apperr.StoreError{Path: s.path, Err: err}
		}
		if lastUsed.Valid && lastUsed.String != "" {
			ts, err := models.ParseTimestamp(lastUsed.String)
			if err != nil {
				return nil, &apperr.StoreError{Path: s.path, Err: err}
			}
			u.LastUsed = &models.Timestamp{Time: ts}
		}
		u.Sessions = []string{}
		state.Seeds[id] = &u
	}
	if err := rows.Err(); err != nil {
		return nil, &apperr.StoreError{Path: s.path, Err: err}
	}

	type link struct {
		seed, session       string
		seedPos, sessionPos int
	}
	var links []link
	lrows, err := tx.QueryContext(ctx, `SELECT seed_id, session_id, seed_pos, session_pos FROM session_links`)
	if err != nil {
		return nil, &apperr.StoreError{Path: s.path, Err: err}
	}
	defer lrows.Close()
	for lrows.Next() {
		var l link
		if err := lrows.Scan(&l.seed, &l.session, &l.seedPos, &l.sessionPos); err != nil {
			return nil, &apperr.StoreError{Path: s.path, Err: err}
		}
		links = append(links, l)
	}
	if err := lrows.Err(); err != nil {
		return nil, &apperr.StoreError{Path: s.path, Err: err}
	}

	sort.SliceStable(links, func(i, j int) bool { return links[i].seedPos < links[j].seedPos })
	for _, l := range links {
		u := state.Record(l.seed)
		u.Sessions = append(u.Sessions, l.session)
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].sessionPos < links[j].sessionPos })
	for _, l := range links {
		state.SessionSeeds[l.session] = append(state.SessionSeeds[l.session], l.seed)
	}
	return state, nil
}

func replaceTx(ctx context.Context, tx *sql.Tx, state *models.UsageState) error {
	state.Normalize()
	if _, err := tx.ExecContext(ctx, `DELETE FROM seed_usage`); err != nil {
		return fmt.Errorf("usage: clear seeds: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_links`); err != nil {
		return fmt.Errorf("usage: clear links: %w", err)
	}

	seedStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO seed_usage (seed_id, usage_count, last_used, helpful, not_helpful)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("usage: prepare seed insert: %w", err)
	}
	defer seedStmt.Close()

	type key struct{ seed, session string }
	pos := make(map[key][2]int)
	var order []key
	const unset = 1 << 30

	for _, id := range state.SeedIDs() {
		u := state.Seeds[id]
		var lastUsed any
		if u.LastUsed != nil {
			lastUsed = u.LastUsed.Time.Format(time.RFC3339Nano)
		}
		if _, err := seedStmt.ExecContext(ctx, id, u.UsageCount, lastUsed, u.Helpful, u.NotHelpful); err != nil {
			return fmt.Errorf("usage: insert seed %s: %w", id, err)
		}
		for i, sess := range u.Sessions {
			k := key{id, sess}
			if _, ok := pos[k]; !ok {
				order = append(order, k)
				pos[k] = [2]int{i, unset}
			}
		}
	}

	sessions := make([]string, 0, len(state.SessionSeeds))
	for sess := range state.SessionSeeds {
		sessions = append(sessions, sess)
	}
	sort.Strings(sessions)
	for _, sess := range sessions {
		for j, id := range state.SessionSeeds[sess] {
			k := key{id, sess}
			p, ok := pos[k]
			if !ok {
				order = append(order, k)
				p = [2]int{unset, 0}
			}
			p[1] = j
			pos[k] = p
		}
	}

	if len(order) == 0 {
		return nil
	}
	linkStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO session_links (seed_id, session_id, seed_pos, session_pos)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("usage: prepare link insert: %w", err)
	}
	defer linkStmt.Close()
	for _, k := range order {
		p := pos[k]
		if _, err := linkStmt.ExecContext(ctx, k.seed, k.session, p[0], p[1]); err != nil {
			return fmt.Errorf("usage: insert link: %w", err)
		}
	}
	return nil
}
