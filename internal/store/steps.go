package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertStep(ctx context.Context, db execer, st Step, now int64) error {
	content, err := encodeContent(st.Content)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO steps (`+stepColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.ProjectID, st.Title, st.Status, st.Order, content, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert step %d: %w", st.Order, err)
	}
	return nil
}

func (s *Store) listSteps(ctx context.Context, projectID string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stepColumns+` FROM steps WHERE project_id = ? ORDER BY step_order`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	steps := []Step{}
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, *st)
	}
	return steps, rows.Err()
}

// UpdateStep applies a partial update to one step and bumps the owning
// project's updated_at.
func (s *Store) UpdateStep(ctx context.Context, stepID string, u StepUpdate) error {
	now := s.stamp()
	sets := []string{"updated_at = ?"}
	args := []any{now}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *u.Status)
	}
	if u.Content != nil {
		content, err := encodeContent(u.Content)
		if err != nil {
			return err
		}
		sets = append(sets, "content = ?")
		args = append(args, content)
	}
	args = append(args, stepID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update step: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE steps SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update step: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("step %s: %w", stepID, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE projects SET updated_at = ? WHERE id = (SELECT project_id FROM steps WHERE id = ?)`,
		now, stepID,
	); err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	return tx.Commit()
}

// SaveSteps writes the status and content of the given steps and the
// project status in one transaction. Steps must belong to projectID.
func (s *Store) SaveSteps(ctx context.Context, projectID string, steps []Step, status ProjectStatus) error {
	now := s.stamp()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save steps: %w", err)
	}
	defer tx.Rollback()

	for _, st := range steps {
		content, err := encodeContent(st.Content)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE steps SET status = ?, content = ?, updated_at = ? WHERE id = ? AND project_id = ?`,
			st.Status, content, now, st.ID, projectID,
		)
		if err != nil {
			return fmt.Errorf("save step %d: %w", st.Order, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("step %s: %w", st.ID, ErrNotFound)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`, status, now, projectID)
	if err != nil {
		return fmt.Errorf("save project status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return tx.Commit()
}

// RepairSteps appends any missing step ordinals to a project and resets
// titles that differ from the fixed ones. It returns how many steps were
// added.
func (s *Store) RepairSteps(ctx context.Context, projectID string) (int, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE id = ?`, projectID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("repair steps: %w", err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return s.repairSteps(ctx, projectID)
}

func (s *Store) repairSteps(ctx context.Context, projectID string) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, step_order, title, status FROM steps WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, fmt.Errorf("repair steps: %w", err)
	}
	present := map[int]bool{}
	retitle := map[string]int{}
	var statuses []StepStatus
	for rows.Next() {
		var (
			id, title, status string
			order             int
		)
		if err := rows.Scan(&id, &order, &title, &status); err != nil {
			rows.Close()
			return 0, fmt.Errorf("repair steps: %w", err)
		}
		present[order] = true
		statuses = append(statuses, StepStatus(status))
		if want := StepTitle(order); want != "" && title != want {
			retitle[id] = order
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("repair steps: %w", err)
	}
	missing := 0
	for order := 1; order <= StepCount; order++ {
		if !present[order] {
			missing++
		}
	}
	if missing == 0 && len(retitle) == 0 {
		return 0, nil
	}

	now := s.stamp()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin repair steps: %w", err)
	}
	defer tx.Rollback()

	for id, order := range retitle {
		if _, err := tx.ExecContext(ctx,
			`UPDATE steps SET title = ?, updated_at = ? WHERE id = ?`, StepTitle(order), now, id,
		); err != nil {
			return 0, fmt.Errorf("retitle step: %w", err)
		}
	}

	added := 0
	for order := 1; order <= StepCount; order++ {
		if present[order] {
			continue
		}
		st := Step{
			ID:        StepID(projectID, order),
			ProjectID: projectID,
			Title:     StepTitle(order),
			Status:    StepPending,
			Order:     order,
		}
		if err := insertStep(ctx, tx, st, now); err != nil {
			return 0, err
		}
		statuses = append(statuses, StepPending)
		added++
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`, DeriveStatus(statuses), now, projectID,
	); err != nil {
		return 0, fmt.Errorf("touch project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit repair steps: %w", err)
	}
	s.logger.Debug().Str("project", projectID).Int("added", added).Int("retitled", len(retitle)).Msg("steps repaired")
	return added, nil
}
