package store

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a project or step does not exist.
var ErrNotFound = errors.New("not found")

// ProjectStatus is derived from the statuses of a project's steps.
type ProjectStatus string

const (
	ProjectDraft      ProjectStatus = "draft"
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectCompleted  ProjectStatus = "completed"
)

// StepStatus is the lifecycle state of a single pipeline step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in-progress"
	StepCompleted  StepStatus = "completed"
)

// StepCount is the fixed number of steps every project owns.
const StepCount = 5

// StepTitles holds the fixed title for each ordinal, index 0 being order 1.
var StepTitles = [StepCount]string{
	"Input Analysis",
	"Idea Generation",
	"Idea Refinement",
	"PRD Generation",
	"Project Finalization",
}

// StepID derives the deterministic id of a project's step.
func StepID(projectID string, order int) string {
	return fmt.Sprintf("%s_step_%d", projectID, order)
}

// StepTitle returns the fixed title for order, or "" when out of range.
func StepTitle(order int) string {
	if order < 1 || order > StepCount {
		return ""
	}
	return StepTitles[order-1]
}

type Project struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    ProjectStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Steps     []Step        `json:"steps"`
}

// Step returns the step with the given order, or nil.
func (p *Project) Step(order int) *Step {
	for i := range p.Steps {
		if p.Steps[i].Order == order {
			return &p.Steps[i]
		}
	}
	return nil
}

// Intact reports whether p holds every ordinal under its fixed title.
func (p *Project) Intact() bool {
	for order := 1; order <= StepCount; order++ {
		st := p.Step(order)
		if st == nil || st.Title != StepTitle(order) {
			return false
		}
	}
	return true
}

// StepByID returns the step with the given id, or nil when the step does not
// belong to this project.
func (p *Project) StepByID(id string) *Step {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}

type Step struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"projectId"`
	Title     string         `json:"title"`
	Status    StepStatus     `json:"status"`
	Order     int            `json:"order"`
	Content   map[string]any `json:"content"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ProjectUpdate is a partial update; nil fields are left unchanged.
type ProjectUpdate struct {
	Name   *string
	Status *ProjectStatus
}

// StepUpdate is a partial update; nil fields are left unchanged. Content
// replaces the stored blob wholesale.
type StepUpdate struct {
	Status  *StepStatus
	Content map[string]any
}

// DeriveStatus computes a project status from its step statuses: completed
// when every step is completed, in-progress once any step has left pending,
// draft otherwise.
func DeriveStatus(statuses []StepStatus) ProjectStatus {
	if len(statuses) == 0 {
		return ProjectDraft
	}
	all, started := true, false
	for _, st := range statuses {
		if st != StepCompleted {
			all = false
		}
		if st == StepInProgress || st == StepCompleted {
			started = true
		}
	}
	switch {
	case all:
		return ProjectCompleted
	case started:
		return ProjectInProgress
	default:
		return ProjectDraft
	}
}
