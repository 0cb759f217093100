package documents

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DocumentType drives workflow activation: the registry maps each type to
// the definition that governs its review.
type DocumentType string

const (
	TypePolicy      DocumentType = "policy"
	TypeDirective   DocumentType = "directive"
	TypeInstruction DocumentType = "instruction"
	TypeManual      DocumentType = "manual"
	TypeMemo        DocumentType = "memo"
	TypeCorporate   DocumentType = "corporate"
)

type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"
	StatusInReview  DocumentStatus = "in_review"
	StatusPublished DocumentStatus = "published"
	StatusArchived  DocumentStatus = "archived"
)

type Document struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	Title          string          `json:"title" db:"title"`
	Description    string          `json:"description" db:"description"`
	DocumentType   DocumentType    `json:"document_type" db:"document_type"`
	Category       string          `json:"category" db:"category"`
	Content        string          `json:"content" db:"content"`
	CurrentVersion int             `json:"current_version" db:"current_version"`
	Status         DocumentStatus  `json:"status" db:"status"`
	CreatedBy      uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
	Metadata       json.RawMessage `json:"metadata" db:"metadata"`
}

type DocumentVersion struct {
	ID            uuid.UUID `json:"id" db:"id"`
	DocumentID    uuid.UUID `json:"document_id" db:"document_id"`
	VersionNumber int       `json:"version_number" db:"version_number"`
	Content       string    `json:"content" db:"content"`
	ChangeSummary string    `json:"change_summary" db:"change_summary"`
	CreatedBy     uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type DocumentAccessLog struct {
	ID          uuid.UUID `json:"id" db:"id"`
	DocumentID  uuid.UUID `json:"document_id" db:"document_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Action      string    `json:"action" db:"action"` // 'VIEW', 'CREATE', 'UPDATE', 'DELETE', 'TRANSITION'
	IPAddress   string    `json:"ip_address" db:"ip_address"`
	UserAgent   string    `json:"user_agent" db:"user_agent"`
	PerformedAt time.Time `json:"performed_at" db:"performed_at"`
}
