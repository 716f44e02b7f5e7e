// Package store journals completed program runs in SQLite. It records
// what was executed and what came out, keyed by program hash; it never
// persists live machine state.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chazu/icvm/vm"
	"github.com/chazu/icvm/vm/pipe"
)

// ErrRunNotFound indicates the requested run doesn't exist.
var ErrRunNotFound = errors.New("store: run not found")

// Run is one journaled execution.
type Run struct {
	ID          int64
	ProgramHash string
	Request     *pipe.RunRequest
	Result      *pipe.RunResult
	Created     time.Time
}

// Store handles SQLite storage for the run journal.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		program_hash TEXT NOT NULL,
		request      BLOB NOT NULL,
		result       BLOB NOT NULL,
		status       TEXT NOT NULL,
		steps        INTEGER NOT NULL,
		created_at   TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating table: %w", err)
	}
	if _, err := db.Exec(
		`CREATE INDEX IF NOT EXISTS runs_program_hash ON runs (program_hash)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating index: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ProgramHash returns the hex digest identifying a program: the SHA-256
// of its canonical source rendering.
func ProgramHash(program []vm.Word) string {
	sum := sha256.Sum256([]byte(vm.Format(program)))
	return hex.EncodeToString(sum[:])
}

// Record journals one completed run and returns its row ID. Request and
// result are stored in the wire encoding so a journaled run can be
// replayed through the same machinery that served it.
func (s *Store) Record(req *pipe.RunRequest, res *pipe.RunResult) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqData, err := pipe.MarshalRunRequest(req)
	if err != nil {
		return 0, fmt.Errorf("store: encoding request: %w", err)
	}
	resData, err := pipe.MarshalRunResult(res)
	if err != nil {
		return 0, fmt.Errorf("store: encoding result: %w", err)
	}

	r, err := s.db.Exec(
		`INSERT INTO runs (program_hash, request, result, status, steps, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ProgramHash(req.Program), reqData, resData, res.Status, res.Steps,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("store: saving run: %w", err)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: saving run: %w", err)
	}
	return id, nil
}

// Load retrieves one journaled run by row ID.
func (s *Store) Load(id int64) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, program_hash, request, result, created_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("store: querying run: %w", err)
	}
	return run, nil
}

// ByProgram returns all journaled runs of the given program, oldest
// first.
func (s *Store) ByProgram(program []vm.Word) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, program_hash, request, result, created_at
		 FROM runs WHERE program_hash = ? ORDER BY id`,
		ProgramHash(program))
	if err != nil {
		return nil, fmt.Errorf("store: querying by program: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Count returns the total number of journaled runs.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: counting runs: %w", err)
	}
	return n, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run     Run
		reqData []byte
		resData []byte
		created string
	)
	if err := sc.Scan(&run.ID, &run.ProgramHash, &reqData, &resData, &created); err != nil {
		return nil, err
	}

	req, err := pipe.UnmarshalRunRequest(reqData)
	if err != nil {
		return nil, err
	}
	res, err := pipe.UnmarshalRunResult(resData)
	if err != nil {
		return nil, err
	}
	run.Request = req
	run.Result = res

	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		run.Created = t
	}
	return &run, nil
}
