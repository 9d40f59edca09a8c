// Package store persists documents and users in Postgres. Status
// transitions use a compare-and-set write so racing approvals cannot both
// succeed, and the approval history column is always written whole.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"procure/api/internal/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DocumentUpdate carries the optional free-text fields a transition may
// set. Nil fields keep their current value.
type DocumentUpdate struct {
	Comments        *string
	RejectionReason *string
}

const documentColumns = `id, kind, number, title, creator_id, approver_id, status, history,
	line_items, total_paise, comments, rejection_reason, document_url, document_hash,
	created_at, updated_at`

func (s *PostgresStore) FindDocument(ctx context.Context, id string) (domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("find document %s: %w", id, err)
	}
	return doc, nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc domain.Document) error {
	history, err := json.Marshal(doc.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	lineItems, err := json.Marshal(doc.LineItems)
	if err != nil {
		return fmt.Errorf("marshal line items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, kind, number, title, creator_id, approver_id, status, history,
			line_items, total_paise, comments, rejection_reason, document_url, document_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, doc.ID, doc.Kind, doc.Number, doc.Title, doc.CreatorID, doc.ApproverID, doc.Status,
		history, lineItems, doc.TotalPaise, doc.Comments, doc.RejectionReason,
		doc.DocumentURL, doc.DocumentHash)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID, err)
	}
	return nil
}

// TransitionDocument applies a status transition only if the document is
// still in the expected state. It reports false, nil when another writer
// won the race; the caller translates that into an invalid-state failure.
// The history slice always replaces the stored column in full.
func (s *PostgresStore) TransitionDocument(ctx context.Context, id string, from, to domain.DocStatus, history []domain.ApprovalAction, update DocumentUpdate) (bool, error) {
	encoded, err := json.Marshal(history)
	if err != nil {
		return false, fmt.Errorf("marshal history: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = $3,
		    history = $4,
		    comments = COALESCE($5, comments),
		    rejection_reason = COALESCE($6, rejection_reason),
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to, encoded, update.Comments, update.RejectionReason)
	if err != nil {
		return false, fmt.Errorf("transition document %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition document %s: %w", id, err)
	}
	return affected == 1, nil
}

// SetArtifact stores the rendered artifact reference and its digest in one
// statement, so neither is ever persisted without the other.
func (s *PostgresStore) SetArtifact(ctx context.Context, id, url, hash string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET document_url=$2, document_hash=$3, updated_at=NOW() WHERE id=$1
	`, id, url, hash)
	if err != nil {
		return fmt.Errorf("set artifact for %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set artifact for %s: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListUnrendered returns approved documents whose artifact generation did
// not complete. The repair pass regenerates them.
func (s *PostgresStore) ListUnrendered(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE status = $1 AND document_url = ''
		ORDER BY updated_at
	`, domain.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("list unrendered: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unrendered document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) FindUser(ctx context.Context, id string) (domain.User, error) {
	return s.findUserWhere(ctx, `id=$1`, id)
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.findUserWhere(ctx, `email=$1`, email)
}

func (s *PostgresStore) findUserWhere(ctx context.Context, where string, arg any) (domain.User, error) {
	var user domain.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, role, password_hash, created_at
		FROM users WHERE `+where, arg).
		Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
	`, user.ID, user.DisplayName, user.Email, user.Role, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", user.Email, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var doc domain.Document
	var approverID sql.NullString
	var history, lineItems []byte

	err := row.Scan(
		&doc.ID, &doc.Kind, &doc.Number, &doc.Title, &doc.CreatorID, &approverID,
		&doc.Status, &history, &lineItems, &doc.TotalPaise, &doc.Comments,
		&doc.RejectionReason, &doc.DocumentURL, &doc.DocumentHash,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return domain.Document{}, err
	}

	if approverID.Valid && approverID.String != "" {
		val := approverID.String
		doc.ApproverID = &val
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &doc.History); err != nil {
			return domain.Document{}, fmt.Errorf("decode history: %w", err)
		}
	}
	if len(lineItems) > 0 {
		if err := json.Unmarshal(lineItems, &doc.LineItems); err != nil {
			return domain.Document{}, fmt.Errorf("decode line items: %w", err)
		}
	}
	return doc, nil
}
