package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medcore/hospital-api/internal/model"
	"github.com/medcore/hospital-api/internal/repository"
)

type decisionRepository struct {
	db *sqlx.DB
}

func NewDecisionRepository(db *sqlx.DB) repository.DecisionRepository {
	return &decisionRepository{db: db}
}

func (r *decisionRepository) Create(ctx context.Context, record *model.DecisionRecord) error {
	query := `
		INSERT INTO decision_records (
			id, subject_id, role, verb, resource_type, resource_id,
			outcome, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.SubjectID,
		record.Role,
		record.Verb,
		record.ResourceType,
		record.ResourceID,
		record.Outcome,
		record.Reason,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create decision record: %w", err)
	}
	return nil
}

func (r *decisionRepository) List(ctx context.Context, filters *model.DecisionFilters) ([]*model.DecisionRecord, error) {
	query := `
		SELECT id, subject_id, role, verb, resource_type, resource_id,
			   outcome, reason, created_at
		FROM decision_records
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.SubjectID != uuid.Nil {
			query += fmt.Sprintf(" AND subject_id = $%d", argCount)
			args = append(args, filters.SubjectID)
			argCount++
		}
		if filters.ResourceType != "" {
			query += fmt.Sprintf(" AND resource_type = $%d", argCount)
			args = append(args, filters.ResourceType)
			argCount++
		}
		if filters.Outcome != "" {
			query += fmt.Sprintf(" AND outcome = $%d", argCount)
			args = append(args, filters.Outcome)
			argCount++
		}
		if !filters.Since.IsZero() {
			query += fmt.Sprintf(" AND created_at >= $%d", argCount)
			args = append(args, filters.Since)
			argCount++
		}
		if !filters.Until.IsZero() {
			query += fmt.Sprintf(" AND created_at < $%d", argCount)
			args = append(args, filters.Until)
			argCount++
		}
	}

	query += " ORDER BY created_at ASC"

	if filters != nil && filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filters.Limit)
		argCount++
	}
	if filters != nil && filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filters.Offset)
		argCount++
	}

	var records []*model.DecisionRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list decision records: %w", err)
	}
	return records, nil
}
