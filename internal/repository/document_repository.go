package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/graphtrader/internal/database"
	"github.com/yourusername/graphtrader/internal/models"
)

const errScanDocument = "failed to scan strategy document: %w"

// PostgresDocumentRepository implements DocumentRepository for PostgreSQL
type PostgresDocumentRepository struct {
	db *database.DB
}

// NewPostgresDocumentRepository creates a new document repository
func NewPostgresDocumentRepository(db *database.DB) DocumentRepository {
	return &PostgresDocumentRepository{db: db}
}

// Create inserts a new strategy document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.StrategyDocument) error {
	query := `
		INSERT INTO strategy_documents (id, name, version, body)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.GetPool().Exec(ctx, query, doc.ID, doc.Name, doc.Version, doc.Body)
	if err != nil {
		return fmt.Errorf("failed to create strategy document: %w", err)
	}
	return nil
}

// GetByID retrieves a strategy document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StrategyDocument, error) {
	query := `
		SELECT id, name, version, body, created_at, updated_at
		FROM strategy_documents WHERE id = $1
	`

	doc := &models.StrategyDocument{}
	err := r.db.GetPool().QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.Name, &doc.Version, &doc.Body, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy document: %w", err)
	}
	return doc, nil
}

// GetByName retrieves the latest version of a named strategy document
func (r *PostgresDocumentRepository) GetByName(ctx context.Context, name string) (*models.StrategyDocument, error) {
	query := `
		SELECT id, name, version, body, created_at, updated_at
		FROM strategy_documents
		WHERE name = $1
		ORDER BY version DESC
		LIMIT 1
	`

	doc := &models.StrategyDocument{}
	err := r.db.GetPool().QueryRow(ctx, query, name).Scan(
		&doc.ID, &doc.Name, &doc.Version, &doc.Body, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy document by name: %w", err)
	}
	return doc, nil
}

// List retrieves the most recently updated documents
func (r *PostgresDocumentRepository) List(ctx context.Context, limit int) ([]*models.StrategyDocument, error) {
	query := `
		SELECT id, name, version, body, created_at, updated_at
		FROM strategy_documents
		ORDER BY updated_at DESC
		LIMIT $1
	`

	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategy documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.StrategyDocument
	for rows.Next() {
		doc := &models.StrategyDocument{}
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Version, &doc.Body, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf(errScanDocument, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Update replaces the body and bumps the version of an existing document
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.StrategyDocument) error {
	query := `
		UPDATE strategy_documents SET
			name = $2, version = $3, body = $4, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.GetPool().Exec(ctx, query, doc.ID, doc.Name, doc.Version, doc.Body)
	if err != nil {
		return fmt.Errorf("failed to update strategy document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete removes a strategy document
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := "DELETE FROM strategy_documents WHERE id = $1"

	tag, err := r.db.GetPool().Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete strategy document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
