package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/persistence"
)

// SaveTemplate writes a workflow template record.
func (p *Persistence) SaveTemplate(_ context.Context, template *models.WorkflowTemplate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.writeJSON(templatesDir, template.ID, template)
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", template.ID, err)
	}

	return nil
}

// TemplateByID returns a workflow template by its ID.
func (p *Persistence) TemplateByID(_ context.Context, id string) (*models.WorkflowTemplate, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var template models.WorkflowTemplate

	err := p.readJSON(templatesDir, id, &template)
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("template %s: %w", id, persistence.ErrTemplateNotFound)
		}

		return nil, fmt.Errorf("failed to load template %s: %w", id, err)
	}

	return &template, nil
}

// Templates returns all workflow templates, sorted by name.
func (p *Persistence) Templates(_ context.Context) ([]*models.WorkflowTemplate, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids, err := p.ids(templatesDir)
	if err != nil {
		return nil, err
	}

	templates := make([]*models.WorkflowTemplate, 0, len(ids))

	for _, id := range ids {
		var template models.WorkflowTemplate

		err := p.readJSON(templatesDir, id, &template)
		if err != nil {
			return nil, fmt.Errorf("failed to load template %s: %w", id, err)
		}

		templates = append(templates, &template)
	}

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Name < templates[j].Name
	})

	return templates, nil
}
