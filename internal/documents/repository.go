package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateDocument(ctx context.Context, doc *Document) error
	GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error)
	ListDocuments(ctx context.Context, docType *DocumentType, status *DocumentStatus) ([]Document, error)
	UpdateDocument(ctx context.Context, doc *Document) error
	DeleteDocument(ctx context.Context, id uuid.UUID) error

	CreateVersion(ctx context.Context, version *DocumentVersion) error
	ListVersions(ctx context.Context, documentID uuid.UUID) ([]DocumentVersion, error)
	GetVersion(ctx context.Context, documentID uuid.UUID, versionNumber int) (*DocumentVersion, error)

	LogAccess(ctx context.Context, log *DocumentAccessLog) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateDocument(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (
			id, title, description, document_type, category, content,
			current_version, status, created_by, created_at, updated_at, metadata
		) VALUES (
			:id, :title, :description, :document_type, :category, :content,
			:current_version, :status, :created_by, :created_at, :updated_at, :metadata
		)`
	_, err := r.db.NamedExecContext(ctx, query, doc)
	return err
}

func (r *postgresRepository) GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	var doc Document
	err := r.db.GetContext(ctx, &doc, "SELECT * FROM documents WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *postgresRepository) ListDocuments(ctx context.Context, docType *DocumentType, status *DocumentStatus) ([]Document, error) {
	var docs []Document
	query := "SELECT * FROM documents WHERE 1=1"
	var args []interface{}
	argCount := 1

	if docType != nil {
		query += fmt.Sprintf(" AND document_type = $%d", argCount)
		args = append(args, *docType)
		argCount++
	}
	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *status)
		argCount++
	}
	query += " ORDER BY updated_at DESC"

	err := r.db.SelectContext(ctx, &docs, query, args...)
	return docs, err
}

func (r *postgresRepository) UpdateDocument(ctx context.Context, doc *Document) error {
	query := `
		UPDATE documents SET
			title = :title,
			description = :description,
			category = :category,
			content = :content,
			current_version = :current_version,
			status = :status,
			updated_at = :updated_at,
			metadata = :metadata
		WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, doc)
	return err
}

func (r *postgresRepository) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = $1", id)
	return err
}

func (r *postgresRepository) CreateVersion(ctx context.Context, version *DocumentVersion) error {
	query := `
		INSERT INTO document_versions (
			id, document_id, version_number, content, change_summary, created_by, created_at
		) VALUES (
			:id, :document_id, :version_number, :content, :change_summary, :created_by, :created_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, version)
	return err
}

func (r *postgresRepository) ListVersions(ctx context.Context, documentID uuid.UUID) ([]DocumentVersion, error) {
	var versions []DocumentVersion
	err := r.db.SelectContext(ctx, &versions, "SELECT * FROM document_versions WHERE document_id = $1 ORDER BY version_number DESC", documentID)
	return versions, err
}

func (r *postgresRepository) GetVersion(ctx context.Context, documentID uuid.UUID, versionNumber int) (*DocumentVersion, error) {
	var version DocumentVersion
	err := r.db.GetContext(ctx, &version, "SELECT * FROM document_versions WHERE document_id = $1 AND version_number = $2", documentID, versionNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *postgresRepository) LogAccess(ctx context.Context, log *DocumentAccessLog) error {
	query := `
		INSERT INTO document_access_logs (
			id, document_id, user_id, action, ip_address, user_agent
		) VALUES (
			:id, :document_id, :user_id, :action, :ip_address, :user_agent
		)`
	_, err := r.db.NamedExecContext(ctx, query, log)
	return err
}
