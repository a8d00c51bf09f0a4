package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const projectColumns = `id, name, status, created_at, updated_at`

const stepColumns = `id, project_id, title, status, step_order, content, created_at, updated_at`

// CreateProject inserts a project together with its five pending steps in a
// single transaction.
func (s *Store) CreateProject(ctx context.Context, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("project name is required")
	}

	now := s.stamp()
	p := &Project{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    ProjectDraft,
		CreatedAt: fromMillis(now),
		UpdatedAt: fromMillis(now),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create project: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Status, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}

	for order := 1; order <= StepCount; order++ {
		step := Step{
			ID:        StepID(p.ID, order),
			ProjectID: p.ID,
			Title:     StepTitle(order),
			Status:    StepPending,
			Order:     order,
			Content:   map[string]any{},
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		if err := insertStep(ctx, tx, step, now); err != nil {
			return nil, err
		}
		p.Steps = append(p.Steps, step)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create project: %w", err)
	}

	s.logger.Debug().Str("project", p.ID).Str("name", p.Name).Msg("project created")
	return p, nil
}

// GetProject loads a project and its steps ordered by step order.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	steps, err := s.listSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Steps = steps
	return p, nil
}

// ListProjects returns every project, most recently updated first.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY updated_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	for i := range projects {
		steps, err := s.listSteps(ctx, projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].Steps = steps
	}
	return projects, nil
}

// UpdateProject applies a partial update and bumps updated_at.
func (s *Store) UpdateProject(ctx context.Context, id string, u ProjectUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{s.stamp()}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return errors.New("project name is required")
		}
		sets = append(sets, "name = ?")
		args = append(args, name)
	}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *u.Status)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteProject removes a project and, by cascade, its steps. It reports
// false without error when no such project exists.
func (s *Store) DeleteProject(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	if n > 0 {
		s.logger.Debug().Str("project", id).Msg("project deleted")
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var (
		p                    Project
		status               string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.Name, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Status = ProjectStatus(status)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func scanStep(row rowScanner) (*Step, error) {
	var (
		st                   Step
		status, content      string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&st.ID, &st.ProjectID, &st.Title, &status, &st.Order, &content, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	st.Status = StepStatus(status)
	st.CreatedAt = fromMillis(createdAt)
	st.UpdatedAt = fromMillis(updatedAt)
	st.Content = map[string]any{}
	if content != "" {
		if err := json.Unmarshal([]byte(content), &st.Content); err != nil {
			return nil, fmt.Errorf("decode content of step %s: %w", st.ID, err)
		}
		if st.Content == nil {
			st.Content = map[string]any{}
		}
	}
	return &st, nil
}

func encodeContent(content map[string]any) (string, error) {
	if content == nil {
		return "{}", nil
	}
	b, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("encode step content: %w", err)
	}
	return string(b), nil
}
