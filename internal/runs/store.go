package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"glslang-runner/db"
	"glslang-runner/internal/spawn"
)

var ErrNotFound = errors.New("run not found")

const (
	CreatedByHTTP     = "http"
	CreatedByRabbitMQ = "rabbitmq"
	CreatedByInngest  = "inngest"
	CreatedByCLI      = "cli"
)

// Run is one persisted toolchain invocation.
type Run struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id,omitempty"`
	Tool       string    `json:"tool"`
	Path       string    `json:"path"`
	Args       []string  `json:"args"`
	Status     string    `json:"status"`
	ExitCode   *int      `json:"exit_code"`
	Signal     string    `json:"signal,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type runRow struct {
	ID         string         `db:"id" validate:"required"`
	EventID    sql.NullString `db:"event_id"`
	Tool       string         `db:"tool" validate:"required"`
	Path       string         `db:"path" validate:"required"`
	Args       string         `db:"args" validate:"required"`
	Status     string         `db:"status" validate:"oneof=succeeded spawn_failed signaled exited_nonzero"`
	ExitCode   sql.NullInt64  `db:"exit_code"`
	Signal     sql.NullString `db:"signal"`
	Error      sql.NullString `db:"error"`
	DurationMs int64          `db:"duration_ms" validate:"gte=0"`
	CreatedBy  string         `db:"created_by" validate:"oneof=http rabbitmq inngest cli"`
	CreatedAt  string         `db:"created_at" validate:"required"`
}

type Store struct {
	conn      db.Conn
	logger    *zap.SugaredLogger
	validator *validator.Validate
	now       func() time.Time
}

type NewStoreParams struct {
	fx.In

	Conn   db.Conn `name:"runs"`
	Logger *zap.SugaredLogger
}

func NewStore(p NewStoreParams) *Store {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{
		conn:      p.Conn,
		logger:    logger,
		validator: validator.New(),
		now:       time.Now,
	}
}

type SaveInput struct {
	EventID   string
	Tool      string
	CreatedBy string
	Result    spawn.Result
}

// Save persists a settled run and returns its id. With no database
// configured the run is only logged.
func (s *Store) Save(ctx context.Context, in SaveInput) (string, error) {
	row, err := s.rowFromInput(in)
	if err != nil {
		return "", err
	}

	if err := s.validator.Struct(row); err != nil {
		return "", fmt.Errorf("validate run: %w", err)
	}

	id, err := db.Tx[string](ctx, s.conn, func(tx *sqlx.Tx) (string, error) {
		q := tx.Rebind(`
INSERT INTO runs (
  id,
  event_id,
  tool,
  path,
  args,
  status,
  exit_code,
  signal,
  error,
  duration_ms,
  created_by,
  created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  status = excluded.status,
  exit_code = excluded.exit_code,
  signal = excluded.signal,
  error = excluded.error,
  duration_ms = excluded.duration_ms
`)
		if _, err := tx.ExecContext(ctx, q,
			row.ID,
			row.EventID,
			row.Tool,
			row.Path,
			row.Args,
			row.Status,
			row.ExitCode,
			row.Signal,
			row.Error,
			row.DurationMs,
			row.CreatedBy,
			row.CreatedAt,
		); err != nil {
			return "", fmt.Errorf("insert runs: %w", err)
		}
		return row.ID, nil
	})
	if errors.Is(err, db.ErrSQLDisabled) {
		s.logger.Infow("runs_db_disabled_skip_persist",
			"id", row.ID,
			"tool", row.Tool,
			"status", row.Status,
		)
		return row.ID, nil
	}
	if err != nil {
		return "", err
	}

	s.logger.Infow("run_persisted",
		"id", id,
		"tool", row.Tool,
		"status", row.Status,
		"created_by", row.CreatedBy,
	)
	return id, nil
}

func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	var row runRow
	err := s.conn.GetContext(ctx, &row, s.conn.Rebind(selectRuns+` WHERE id = ?`), strings.TrimSpace(id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return row.toRun()
}

type ListInput struct {
	Tool  string
	Limit int
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, in ListInput) ([]Run, error) {
	limit := in.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rows []runRow
	var err error
	if tool := strings.TrimSpace(in.Tool); tool != "" {
		err = s.conn.SelectContext(ctx, &rows,
			s.conn.Rebind(selectRuns+` WHERE tool = ? ORDER BY created_at DESC LIMIT ?`), tool, limit)
	} else {
		err = s.conn.SelectContext(ctx, &rows,
			s.conn.Rebind(selectRuns+` ORDER BY created_at DESC LIMIT ?`), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	out := make([]Run, 0, len(rows))
	for _, row := range rows {
		r, err := row.toRun()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// createdAtLayout has a fixed width so text ordering is chronological.
const createdAtLayout = "2006-01-02T15:04:05.000000Z"

const selectRuns = `SELECT id, event_id, tool, path, args, status, exit_code, signal, error, duration_ms, created_by, created_at FROM runs`

func (s *Store) rowFromInput(in SaveInput) (runRow, error) {
	res := in.Result

	id := strings.TrimSpace(res.RunID)
	if id == "" {
		id = uuid.NewString()
	}

	args := res.Args
	if args == nil {
		args = []string{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return runRow{}, fmt.Errorf("encode args: %w", err)
	}

	row := runRow{
		ID:         id,
		Tool:       strings.TrimSpace(in.Tool),
		Path:       res.Path,
		Args:       string(argsJSON),
		Status:     res.Kind.String(),
		DurationMs: res.Duration.Milliseconds(),
		CreatedBy:  in.CreatedBy,
		CreatedAt:  s.now().UTC().Format(createdAtLayout),
	}
	if eventID := strings.TrimSpace(in.EventID); eventID != "" {
		row.EventID = sql.NullString{String: eventID, Valid: true}
	}
	if res.ExitCode != nil {
		row.ExitCode = sql.NullInt64{Int64: int64(*res.ExitCode), Valid: true}
	}
	if res.Signal != "" {
		row.Signal = sql.NullString{String: res.Signal, Valid: true}
	}
	if res.Err != nil {
		row.Error = sql.NullString{String: res.Err.Error(), Valid: true}
	}
	return row, nil
}

func (r runRow) toRun() (Run, error) {
	var args []string
	if err := json.Unmarshal([]byte(r.Args), &args); err != nil {
		return Run{}, fmt.Errorf("decode args of run %s: %w", r.ID, err)
	}
	createdAt, err := time.Parse(createdAtLayout, r.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("decode created_at of run %s: %w", r.ID, err)
	}

	out := Run{
		ID:         r.ID,
		EventID:    r.EventID.String,
		Tool:       r.Tool,
		Path:       r.Path,
		Args:       args,
		Status:     r.Status,
		Signal:     r.Signal.String,
		Error:      r.Error.String,
		DurationMs: r.DurationMs,
		CreatedBy:  r.CreatedBy,
		CreatedAt:  createdAt,
	}
	if r.ExitCode.Valid {
		code := int(r.ExitCode.Int64)
		out.ExitCode = &code
	}
	return out, nil
}
