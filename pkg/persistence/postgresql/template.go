package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/persistence"
)

const templateColumns = `id, name, category, template_data, is_public,
	created_by, created_at, updated_at`

// SaveTemplate inserts or updates a workflow template.
func (p *Persistence) SaveTemplate(ctx context.Context, template *models.WorkflowTemplate) error {
	templateData, err := marshalJSON(template.TemplateData)
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", template.ID, err)
	}

	query := `
		INSERT INTO workflow_templates (id, name, category, template_data,
			is_public, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			template_data = EXCLUDED.template_data,
			is_public = EXCLUDED.is_public,
			updated_at = EXCLUDED.updated_at`

	_, err = p.db.ExecContext(ctx, query,
		template.ID, template.Name, template.Category, templateData,
		template.IsPublic, nullString(template.CreatedBy),
		template.CreatedAt, template.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", template.ID, err)
	}

	return nil
}

// TemplateByID returns a workflow template by its ID.
func (p *Persistence) TemplateByID(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM workflow_templates WHERE id = $1`

	template, err := scanTemplate(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template %s: %w", id, persistence.ErrTemplateNotFound)
		}

		return nil, fmt.Errorf("failed to load template %s: %w", id, err)
	}

	return template, nil
}

// Templates returns all workflow templates, sorted by name.
func (p *Persistence) Templates(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM workflow_templates ORDER BY name ASC`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	templates := make([]*models.WorkflowTemplate, 0)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list templates: %w", err)
		}

		templates = append(templates, template)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return templates, nil
}

func scanTemplate(row rowScanner) (*models.WorkflowTemplate, error) {
	var (
		template     models.WorkflowTemplate
		templateData []byte
		createdBy    sql.NullString
	)

	err := row.Scan(&template.ID, &template.Name, &template.Category,
		&templateData, &template.IsPublic, &createdBy,
		&template.CreatedAt, &template.UpdatedAt)
	if err != nil {
		return nil, err
	}

	template.CreatedBy = createdBy.String

	if err := unmarshalJSON(templateData, &template.TemplateData); err != nil {
		return nil, err
	}

	return &template, nil
}
