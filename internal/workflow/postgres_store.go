package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresStateStore is the durable StateStore. It is the source of truth
// when a cache layer sits in front of it.
type PostgresStateStore struct {
	db *sqlx.DB
}

func NewPostgresStateStore(db *sqlx.DB) *PostgresStateStore {
	return &PostgresStateStore{db: db}
}

type stateRow struct {
	DocumentID    string         `db:"document_id"`
	WorkflowID    string         `db:"workflow_id"`
	CurrentStage  string         `db:"current_stage"`
	PreviousStage sql.NullString `db:"previous_stage"`
	Status        string         `db:"status"`
	Version       int64          `db:"version"`
	StartedAt     time.Time      `db:"started_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	CompletedAt   sql.NullTime   `db:"completed_at"`
	Data          []byte         `db:"data"`
	History       []byte         `db:"history"`
}

func toRow(s *State) (*stateRow, error) {
	data, err := json.Marshal(s.Data)
	if err != nil {
		return nil, err
	}
	history, err := json.Marshal(s.History)
	if err != nil {
		return nil, err
	}
	row := &stateRow{
		DocumentID:   s.DocumentID,
		WorkflowID:   s.WorkflowID,
		CurrentStage: s.CurrentStage,
		Status:       string(s.Status),
		Version:      s.Version,
		StartedAt:    s.StartedAt,
		UpdatedAt:    s.UpdatedAt,
		Data:         data,
		History:      history,
	}
	if s.PreviousStage != "" {
		row.PreviousStage = sql.NullString{String: s.PreviousStage, Valid: true}
	}
	if s.CompletedAt != nil {
		row.CompletedAt = sql.NullTime{Time: *s.CompletedAt, Valid: true}
	}
	return row, nil
}

func (r *stateRow) toState() (*State, error) {
	s := &State{
		DocumentID:   r.DocumentID,
		WorkflowID:   r.WorkflowID,
		CurrentStage: r.CurrentStage,
		Status:       Status(r.Status),
		Version:      r.Version,
		StartedAt:    r.StartedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.PreviousStage.Valid {
		s.PreviousStage = r.PreviousStage.String
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		s.CompletedAt = &t
	}
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, &s.Data); err != nil {
			return nil, err
		}
	}
	if len(r.History) > 0 {
		if err := json.Unmarshal(r.History, &s.History); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *PostgresStateStore) CreateState(ctx context.Context, state *State) error {
	state.Version = 1
	row, err := toRow(state)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO workflow_states (
			document_id, workflow_id, current_stage, previous_stage,
			status, version, started_at, updated_at, completed_at, data, history
		) VALUES (
			:document_id, :workflow_id, :current_stage, :previous_stage,
			:status, :version, :started_at, :updated_at, :completed_at, :data, :history
		)`
	_, err = p.db.NamedExecContext(ctx, query, row)
	return err
}

func (p *PostgresStateStore) GetState(ctx context.Context, documentID string) (*State, error) {
	var row stateRow
	err := p.db.GetContext(ctx, &row, "SELECT * FROM workflow_states WHERE document_id = $1", documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toState()
}

// UpdateState performs a compare-and-swap on the version column. Zero rows
// affected means another writer got there first.
func (p *PostgresStateStore) UpdateState(ctx context.Context, state *State) error {
	row, err := toRow(state)
	if err != nil {
		return err
	}
	query := `
		UPDATE workflow_states SET
			current_stage = :current_stage,
			previous_stage = :previous_stage,
			status = :status,
			version = :version + 1,
			updated_at = :updated_at,
			completed_at = :completed_at,
			data = :data,
			history = :history
		WHERE document_id = :document_id AND version = :version`
	res, err := p.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConflict
	}
	state.Version++
	return nil
}

func (p *PostgresStateStore) DeleteState(ctx context.Context, documentID string) error {
	res, err := p.db.ExecContext(ctx, "DELETE FROM workflow_states WHERE document_id = $1", documentID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return notFoundErrorf("state for document %s", documentID)
	}
	return nil
}

func (p *PostgresStateStore) ListByWorkflow(ctx context.Context, workflowID string) ([]*State, error) {
	return p.list(ctx, "SELECT * FROM workflow_states WHERE workflow_id = $1 ORDER BY updated_at DESC", workflowID)
}

func (p *PostgresStateStore) ListByStatus(ctx context.Context, status Status) ([]*State, error) {
	return p.list(ctx, "SELECT * FROM workflow_states WHERE status = $1 ORDER BY updated_at DESC", string(status))
}

func (p *PostgresStateStore) ListByStage(ctx context.Context, workflowID, stageID string) ([]*State, error) {
	return p.list(ctx,
		"SELECT * FROM workflow_states WHERE workflow_id = $1 AND current_stage = $2 ORDER BY updated_at DESC",
		workflowID, stageID)
}

func (p *PostgresStateStore) ListOverdue(ctx context.Context, cutoff time.Time) ([]*State, error) {
	return p.list(ctx,
		"SELECT * FROM workflow_states WHERE status = 'active' AND updated_at < $1 ORDER BY updated_at ASC",
		cutoff)
}

func (p *PostgresStateStore) CleanupStale(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := p.db.ExecContext(ctx,
		"DELETE FROM workflow_states WHERE status IN ('completed', 'cancelled') AND updated_at < $1",
		cutoff)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (p *PostgresStateStore) Statistics(ctx context.Context, workflowID string) (*Statistics, error) {
	stats := &Statistics{
		ByStatus: make(map[Status]int),
		ByStage:  make(map[string]int),
	}

	type statusCount struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	var byStatus []statusCount
	err := p.db.SelectContext(ctx, &byStatus,
		"SELECT status, COUNT(*) AS count FROM workflow_states WHERE workflow_id = $1 GROUP BY status",
		workflowID)
	if err != nil {
		return nil, err
	}
	for _, sc := range byStatus {
		stats.ByStatus[Status(sc.Status)] = sc.Count
		stats.Total += sc.Count
	}

	type stageCount struct {
		Stage string `db:"current_stage"`
		Count int    `db:"count"`
	}
	var byStage []stageCount
	err = p.db.SelectContext(ctx, &byStage,
		"SELECT current_stage, COUNT(*) AS count FROM workflow_states WHERE workflow_id = $1 GROUP BY current_stage",
		workflowID)
	if err != nil {
		return nil, err
	}
	for _, sc := range byStage {
		stats.ByStage[sc.Stage] = sc.Count
	}

	var avgSeconds sql.NullFloat64
	err = p.db.GetContext(ctx, &avgSeconds, `
		SELECT AVG(EXTRACT(EPOCH FROM (completed_at - started_at)))
		FROM workflow_states
		WHERE workflow_id = $1 AND status = 'completed' AND completed_at IS NOT NULL`,
		workflowID)
	if err != nil {
		return nil, err
	}
	if avgSeconds.Valid {
		stats.AverageCompletionTime = time.Duration(avgSeconds.Float64 * float64(time.Second))
	}

	return stats, nil
}

func (p *PostgresStateStore) list(ctx context.Context, query string, args ...any) ([]*State, error) {
	var rows []stateRow
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	states := make([]*State, 0, len(rows))
	for i := range rows {
		s, err := rows[i].toState()
		if err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, nil
}

// PostgresRegistryStore persists definitions and activations for the
// registry's best-effort durability.
type PostgresRegistryStore struct {
	db *sqlx.DB
}

func NewPostgresRegistryStore(db *sqlx.DB) *PostgresRegistryStore {
	return &PostgresRegistryStore{db: db}
}

func (p *PostgresRegistryStore) SaveDefinition(ctx context.Context, def *Definition) error {
	cfg, err := json.Marshal(def.Config)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO workflow_definitions (id, name, version, description, organization, author, config, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			version = EXCLUDED.version,
			description = EXCLUDED.description,
			config = EXCLUDED.config,
			updated_at = NOW()`,
		def.ID, def.Name, def.Version, def.Description, def.Organization, def.Author, cfg)
	return err
}

func (p *PostgresRegistryStore) DeleteDefinition(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, "DELETE FROM workflow_definitions WHERE id = $1", id)
	return err
}

func (p *PostgresRegistryStore) SaveActivation(ctx context.Context, documentType, definitionID string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO workflow_activations (document_type, definition_id, activated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (document_type) DO UPDATE SET
			definition_id = EXCLUDED.definition_id,
			activated_at = NOW()`,
		documentType, definitionID)
	return err
}

func (p *PostgresRegistryStore) DeleteActivation(ctx context.Context, documentType string) error {
	_, err := p.db.ExecContext(ctx, "DELETE FROM workflow_activations WHERE document_type = $1", documentType)
	return err
}

func (p *PostgresRegistryStore) LoadActivations(ctx context.Context) (map[string]string, error) {
	type activationRow struct {
		DocumentType string `db:"document_type"`
		DefinitionID string `db:"definition_id"`
	}
	var rows []activationRow
	if err := p.db.SelectContext(ctx, &rows, "SELECT document_type, definition_id FROM workflow_activations"); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.DocumentType] = r.DefinitionID
	}
	return out, nil
}
