// Package persist is the sqlite-backed durability layer: the latest self-state
// snapshot as a single-row blob, plus an append-only memory table with scored
// recall. Everything else in the process is rebuilt from scratch on boot.
package persist

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
	"github.com/Usoramara/alive-intelligence-v3/internal/selfstate"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// STORE
// =============================================================================

// Config tunes recall scoring.
type Config struct {
	// RecencyHalfLife controls how fast old memories fade from recall
	// ranking. Age equal to the half-life costs half the recency weight.
	RecencyHalfLife time.Duration

	// Score weights. Must sum to 1 for scores to stay in [0, 1].
	KeywordWeight      float64
	SignificanceWeight float64
	RecencyWeight      float64
}

// DefaultConfig returns the house defaults.
func DefaultConfig() Config {
	return Config{
		RecencyHalfLife:    24 * time.Hour,
		KeywordWeight:      0.45,
		SignificanceWeight: 0.35,
		RecencyWeight:      0.20,
	}
}

// Store wraps one sqlite database. Safe for concurrent use.
type Store struct {
	cfg    Config
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// Open initializes the database at path, creating parent directories and the
// schema as needed. Use ":memory:" for an ephemeral store.
func Open(path string, cfg Config) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryPersist, "Open")
	defer timer.Stop()

	if cfg.RecencyHalfLife <= 0 {
		cfg = DefaultConfig()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Persist("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.Persist("failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.Persist("failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &Store{cfg: cfg, db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.Persist("store ready at %s", path)
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS self_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		snapshot TEXT NOT NULL,
		saved_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		keywords TEXT NOT NULL,
		significance REAL NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SELF-STATE BLOB
// =============================================================================

// SaveState upserts the single self-state row.
func (s *Store) SaveState(snap selfstate.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	blob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO self_state (id, snapshot, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET snapshot = excluded.snapshot, saved_at = excluded.saved_at`,
		string(blob), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// LoadState returns the persisted snapshot, or ok=false when none was ever
// saved.
func (s *Store) LoadState() (selfstate.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blob string
	err := s.db.QueryRow(`SELECT snapshot FROM self_state WHERE id = 1`).Scan(&blob)
	if err == sql.ErrNoRows {
		return selfstate.Snapshot{}, false, nil
	}
	if err != nil {
		return selfstate.Snapshot{}, false, fmt.Errorf("failed to load state: %w", err)
	}

	var snap selfstate.Snapshot
	if err := json.Unmarshal([]byte(blob), &snap); err != nil {
		return selfstate.Snapshot{}, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, true, nil
}

// =============================================================================
// MEMORIES
// =============================================================================

// SaveMemory appends one record. A missing ID or CreatedAt is filled in.
func (s *Store) SaveMemory(rec types.MemoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO memories (id, text, keywords, significance, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Text, strings.Join(rec.Keywords, " "), rec.Significance, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	return nil
}

// Recall returns the top-limit records for the query, best first. Scoring
// blends keyword overlap with the query, stored significance, and recency
// with exponential decay.
func (s *Store) Recall(query string, limit int) ([]types.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.Query(`SELECT id, text, keywords, significance, created_at FROM memories`)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	type scored struct {
		rec   types.MemoryRecord
		score float64
	}
	queryTerms := tokenize(query)
	now := time.Now()
	var candidates []scored
	for rows.Next() {
		var rec types.MemoryRecord
		var keywords string
		if err := rows.Scan(&rec.ID, &rec.Text, &keywords, &rec.Significance, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		rec.Keywords = strings.Fields(keywords)
		candidates = append(candidates, scored{rec: rec, score: s.score(rec, queryTerms, now)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]types.MemoryRecord, len(candidates))
	for i, c := range candidates {
		out[i] = c.rec
	}
	return out, nil
}

func (s *Store) score(rec types.MemoryRecord, queryTerms map[string]bool, now time.Time) float64 {
	overlap := 0.0
	if len(queryTerms) > 0 {
		hits := 0
		terms := tokenize(rec.Text + " " + strings.Join(rec.Keywords, " "))
		for t := range queryTerms {
			if terms[t] {
				hits++
			}
		}
		overlap = float64(hits) / float64(len(queryTerms))
	}
	age := now.Sub(rec.CreatedAt)
	recency := math.Exp(-float64(age) / float64(s.cfg.RecencyHalfLife) * math.Ln2)
	return s.cfg.KeywordWeight*overlap +
		s.cfg.SignificanceWeight*rec.Significance +
		s.cfg.RecencyWeight*recency
}

// tokenize lowercases and splits on non-letter/digit runs.
func tokenize(text string) map[string]bool {
	terms := make(map[string]bool)
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	}) {
		if len(f) > 1 {
			terms[f] = true
		}
	}
	return terms
}

// MemoryCount reports how many records are stored.
func (s *Store) MemoryCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
