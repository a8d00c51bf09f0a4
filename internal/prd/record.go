// Package prd defines the canonical PRD record, the normalizer that coerces
// loosely shaped model output into it, and the deterministic renderers.
package prd

import (
	"errors"
	"strings"
)

// NotSpecified is the default for tech stack fields the model left empty.
const NotSpecified = "Not specified"

// DefaultPersonaRole is used when a persona arrives without a role.
const DefaultPersonaRole = "N/A"

// Priority is a feature priority.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Section keys accepted by Merge and section regeneration.
const (
	SectionSummary                    = "summary"
	SectionPersonas                   = "personas"
	SectionFeatures                   = "features"
	SectionTechStack                  = "techStack"
	SectionUIDesign                   = "uiDesign"
	SectionImplementation             = "implementation"
	SectionImplementationTimeline     = "implementationTimeline"
	SectionImplementationResources    = "implementationResources"
	SectionImplementationStakeholders = "implementationStakeholders"
)

// ErrUnknownSection is returned for a section key outside the canonical set.
var ErrUnknownSection = errors.New("unknown PRD section")

// Sections lists every regenerable section key in render order.
var Sections = []string{
	SectionSummary,
	SectionPersonas,
	SectionFeatures,
	SectionTechStack,
	SectionUIDesign,
	SectionImplementation,
	SectionImplementationTimeline,
	SectionImplementationResources,
	SectionImplementationStakeholders,
}

// IsSection reports whether key names a canonical section.
func IsSection(key string) bool {
	for _, s := range Sections {
		if s == key {
			return true
		}
	}
	return false
}

// Record is the canonical PRD. Every field is populated; Implementation is
// the only optional section.
type Record struct {
	Summary        Summary         `json:"summary" yaml:"summary"`
	Personas       []Persona       `json:"personas" yaml:"personas"`
	Features       []Feature       `json:"features" yaml:"features"`
	TechStack      TechStack       `json:"techStack" yaml:"techStack"`
	UIDesign       UIDesign        `json:"uiDesign" yaml:"uiDesign"`
	Implementation *Implementation `json:"implementation,omitempty" yaml:"implementation,omitempty"`
}

type Summary struct {
	ElevatorPitch string `json:"elevatorPitch" yaml:"elevatorPitch"`
	Summary       string `json:"summary" yaml:"summary"`
}

type Persona struct {
	Name         string   `json:"name" yaml:"name"`
	Role         string   `json:"role" yaml:"role"`
	Goals        []string `json:"goals" yaml:"goals"`
	Frustrations []string `json:"frustrations" yaml:"frustrations"`
}

type Feature struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Priority    Priority `json:"priority" yaml:"priority"`
}

type TechStack struct {
	Frontend string `json:"frontend" yaml:"frontend"`
	Backend  string `json:"backend" yaml:"backend"`
	Database string `json:"database" yaml:"database"`
	Hosting  string `json:"hosting" yaml:"hosting"`
}

// Complete reports whether every field carries a concrete choice.
func (t TechStack) Complete() bool {
	for _, v := range []string{t.Frontend, t.Backend, t.Database, t.Hosting} {
		if v == "" || v == NotSpecified {
			return false
		}
	}
	return true
}

type UIDesign struct {
	Principles []string          `json:"principles" yaml:"principles"`
	Palette    map[string]string `json:"palette" yaml:"palette"`
	Screens    []Screen          `json:"screens" yaml:"screens"`
}

type Screen struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

type Implementation struct {
	Timeline     []Phase       `json:"timeline" yaml:"timeline"`
	Resources    []Resource    `json:"resources" yaml:"resources"`
	Stakeholders []Stakeholder `json:"stakeholders" yaml:"stakeholders"`
}

type Phase struct {
	Phase        string   `json:"phase" yaml:"phase"`
	Duration     string   `json:"duration" yaml:"duration"`
	Description  string   `json:"description" yaml:"description"`
	Deliverables []string `json:"deliverables" yaml:"deliverables"`
}

type Resource struct {
	Role             string   `json:"role" yaml:"role"`
	Commitment       string   `json:"commitment" yaml:"commitment"`
	Responsibilities []string `json:"responsibilities" yaml:"responsibilities"`
}

type Stakeholder struct {
	Stakeholder   string   `json:"stakeholder" yaml:"stakeholder"`
	Communication string   `json:"communication" yaml:"communication"`
	Frequency     string   `json:"frequency" yaml:"frequency"`
	Deliverables  []string `json:"deliverables" yaml:"deliverables"`
}

// TechPreferences are the user's default technology choices. Non-empty
// fields override model suggestions.
type TechPreferences struct {
	Frontend   string `json:"frontend" yaml:"frontend" mapstructure:"frontend"`
	Backend    string `json:"backend" yaml:"backend" mapstructure:"backend"`
	Database   string `json:"database" yaml:"database" mapstructure:"database"`
	Hosting    string `json:"hosting" yaml:"hosting" mapstructure:"hosting"`
	Additional string `json:"additional" yaml:"additional" mapstructure:"additional"`
}

// IsZero reports whether no preference is set.
func (p TechPreferences) IsZero() bool {
	return strings.TrimSpace(p.Frontend+p.Backend+p.Database+p.Hosting+p.Additional) == ""
}

// Apply overlays the preferences onto a stack and returns the result.
func (p TechPreferences) Apply(t TechStack) TechStack {
	pick := func(pref, current string) string {
		if pref = strings.TrimSpace(pref); pref != "" {
			return pref
		}
		if strings.TrimSpace(current) == "" {
			return NotSpecified
		}
		return current
	}
	return TechStack{
		Frontend: pick(p.Frontend, t.Frontend),
		Backend:  pick(p.Backend, t.Backend),
		Database: pick(p.Database, t.Database),
		Hosting:  pick(p.Hosting, t.Hosting),
	}
}
