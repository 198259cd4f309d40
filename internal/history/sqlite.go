package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/miradorstack/mirador-gate/internal/models"
	"github.com/miradorstack/mirador-gate/internal/utils"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	tenant_id   TEXT NOT NULL,
	pipeline_id TEXT NOT NULL,
	action      TEXT NOT NULL,
	verdict     TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_pipeline ON decisions (tenant_id, pipeline_id, seq);
CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions (created_at);
`

// SQLiteStore persists decisions in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("history path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, utils.NewAppError("history.open", path, err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, utils.NewAppError("history.open", "apply schema", err)
	}
	logger.Info("decision history opened", slog.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record appends a decision.
func (s *SQLiteStore) Record(ctx context.Context, decision models.Decision) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, tenant_id, pipeline_id, action, verdict, created_at, payload) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		decision.ID, decision.TenantID, decision.PipelineID, string(decision.Action), string(decision.Chain.Overall),
		decision.CreatedAt.UnixNano(), string(payload),
	)
	if err != nil {
		return utils.NewAppError("history.record", decision.ID, err)
	}
	return nil
}

// Get returns a decision by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (models.Decision, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM decisions WHERE id = ?`, id)
	return scanDecision(row)
}

// Latest returns the newest decision recorded for a pipeline.
func (s *SQLiteStore) Latest(ctx context.Context, tenantID, pipelineID string) (models.Decision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM decisions WHERE tenant_id = ? AND pipeline_id = ? ORDER BY seq DESC LIMIT 1`,
		tenantID, pipelineID,
	)
	return scanDecision(row)
}

// List returns decisions newest first. The page token is the sequence number
// of the last row on the previous page.
func (s *SQLiteStore) List(ctx context.Context, req models.ListDecisionsRequest) (models.ListDecisionsResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var (
		clauses []string
		args    []any
	)
	if req.TenantID != "" {
		clauses = append(clauses, "tenant_id = ?")
		args = append(args, req.TenantID)
	}
	if req.PipelineID != "" {
		clauses = append(clauses, "pipeline_id = ?")
		args = append(args, req.PipelineID)
	}
	if req.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, string(req.Action))
	}
	if !req.Start.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, req.Start.UnixNano())
	}
	if !req.End.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, req.End.UnixNano())
	}
	if req.PageToken != "" {
		cursor, err := strconv.ParseInt(req.PageToken, 10, 64)
		if err != nil || cursor <= 0 {
			return models.ListDecisionsResponse{}, utils.InvalidArgument("history.list", "invalid page token %q", req.PageToken)
		}
		clauses = append(clauses, "seq < ?")
		args = append(args, cursor)
	}

	query := "SELECT seq, payload FROM decisions"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, pageSize+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return models.ListDecisionsResponse{}, utils.NewAppError("history.list", "query decisions", err)
	}
	defer rows.Close()

	var (
		resp    models.ListDecisionsResponse
		lastSeq int64
	)
	for rows.Next() {
		var (
			seq     int64
			payload string
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return models.ListDecisionsResponse{}, fmt.Errorf("scan decision: %w", err)
		}
		if len(resp.Decisions) == pageSize {
			resp.NextPageToken = strconv.FormatInt(lastSeq, 10)
			break
		}
		var decision models.Decision
		if err := json.Unmarshal([]byte(payload), &decision); err != nil {
			return models.ListDecisionsResponse{}, fmt.Errorf("decode decision: %w", err)
		}
		resp.Decisions = append(resp.Decisions, decision)
		lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return models.ListDecisionsResponse{}, fmt.Errorf("iterate decisions: %w", err)
	}
	return resp, nil
}

// Prune deletes decisions created before the cutoff and returns how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM decisions WHERE created_at < ?`, before.UnixNano())
	if err != nil {
		return 0, utils.NewAppError("history.prune", "delete decisions", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	s.logger.Debug("pruned decisions", slog.Int64("deleted", deleted), slog.Time("before", before))
	return deleted, nil
}

func scanDecision(row *sql.Row) (models.Decision, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Decision{}, models.ErrDecisionNotFound
		}
		return models.Decision{}, fmt.Errorf("scan decision: %w", err)
	}
	var decision models.Decision
	if err := json.Unmarshal([]byte(payload), &decision); err != nil {
		return models.Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	return decision, nil
}
