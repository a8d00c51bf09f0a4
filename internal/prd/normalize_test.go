package prd

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture %q: %v", s, err)
	}
	return v
}

func roundTrip(t *testing.T, r Record) any {
	t.Helper()
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return decode(t, string(b))
}

func TestNormalize_EmptyInputsYieldDefaults(t *testing.T) {
	want := Record{
		Personas:  []Persona{},
		Features:  []Feature{},
		TechStack: TechStack{Frontend: NotSpecified, Backend: NotSpecified, Database: NotSpecified, Hosting: NotSpecified},
		UIDesign:  UIDesign{Principles: []string{}, Palette: map[string]string{}, Screens: []Screen{}},
	}

	for _, in := range []any{nil, map[string]any{}, "garbage", 42.0, []any{}} {
		got := Normalize(in)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Normalize(%#v) = %#v, want defaults", in, got)
		}
	}
}

func TestNormalize_NoNullLeaves(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"summary": null, "personas": null, "features": null, "techStack": null, "uiDesign": null}`,
		`{"summary": 3, "personas": "Sam", "features": true, "techStack": ["React"], "uiDesign": "minimal"}`,
		`{"personas": [{"name": null, "goals": null}], "uiDesign": {"palette": null, "screens": [null, 1]}}`,
		`{"implementation": {"timeline": "Phase 1: build", "resources": null, "stakeholders": [{}]}}`,
	}
	for _, in := range inputs {
		b, err := json.Marshal(Normalize(decode(t, in)))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if strings.Contains(string(b), "null") {
			t.Errorf("Normalize(%s) produced null leaf: %s", in, b)
		}
	}
}

func TestNormalize_NestedPersonas(t *testing.T) {
	got := Normalize(decode(t, `{"personas": {"personas": [{"name": "Sam"}]}}`))

	want := []Persona{{Name: "Sam", Role: "N/A", Goals: []string{}, Frustrations: []string{}}}
	if !reflect.DeepEqual(got.Personas, want) {
		t.Errorf("Personas = %#v, want %#v", got.Personas, want)
	}
}

func TestNormalize_FieldCoercions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, r Record)
	}{
		{
			name:  "single string goal wraps into list",
			input: `{"personas": [{"name": "Ana", "role": "PM", "goals": "ship faster", "pain_points": ["meetings"]}]}`,
			check: func(t *testing.T, r Record) {
				p := r.Personas[0]
				if !reflect.DeepEqual(p.Goals, []string{"ship faster"}) {
					t.Errorf("Goals = %v", p.Goals)
				}
				if !reflect.DeepEqual(p.Frustrations, []string{"meetings"}) {
					t.Errorf("Frustrations = %v", p.Frustrations)
				}
			},
		},
		{
			name:  "summary object flattens to key value lines",
			input: `{"summary": {"problem": "too many tabs", "solution": "one inbox"}}`,
			check: func(t *testing.T, r Record) {
				if r.Summary.Summary != "problem: too many tabs\nsolution: one inbox" {
					t.Errorf("Summary = %q", r.Summary.Summary)
				}
			},
		},
		{
			name:  "summary nested under its own key",
			input: `{"summary": {"summary": {"elevator_pitch": "Todo for teams", "summary": "Shared lists"}}}`,
			check: func(t *testing.T, r Record) {
				want := Summary{ElevatorPitch: "Todo for teams", Summary: "Shared lists"}
				if r.Summary != want {
					t.Errorf("Summary = %#v", r.Summary)
				}
			},
		},
		{
			name:  "tech stack partial fills defaults",
			input: `{"techStack": {"Frontend": "React", "database": ["Postgres", "Redis"]}}`,
			check: func(t *testing.T, r Record) {
				want := TechStack{Frontend: "React", Backend: NotSpecified, Database: "Postgres, Redis", Hosting: NotSpecified}
				if r.TechStack != want {
					t.Errorf("TechStack = %#v", r.TechStack)
				}
			},
		},
		{
			name:  "screens from strings and objects",
			input: `{"uiDesign": {"screens": ["Home", "Login: sign in", {"title": "Settings", "purpose": "preferences"}]}}`,
			check: func(t *testing.T, r Record) {
				want := []Screen{
					{Name: "Home"},
					{Name: "Login", Description: "sign in"},
					{Name: "Settings", Description: "preferences"},
				}
				if !reflect.DeepEqual(r.UIDesign.Screens, want) {
					t.Errorf("Screens = %#v", r.UIDesign.Screens)
				}
			},
		},
		{
			name:  "palette from list of swatches",
			input: `{"uiDesign": {"colorPalette": [{"name": "primary", "hex": "#112233"}, "accent: #ff0000"]}}`,
			check: func(t *testing.T, r Record) {
				want := map[string]string{"primary": "#112233", "accent": "#ff0000"}
				if !reflect.DeepEqual(r.UIDesign.Palette, want) {
					t.Errorf("Palette = %#v", r.UIDesign.Palette)
				}
			},
		},
		{
			name:  "principles as single string",
			input: `{"uiDesign": {"principles": "Keep it simple"}}`,
			check: func(t *testing.T, r Record) {
				if !reflect.DeepEqual(r.UIDesign.Principles, []string{"Keep it simple"}) {
					t.Errorf("Principles = %#v", r.UIDesign.Principles)
				}
			},
		},
		{
			name:  "features nested and pluralized",
			input: `{"features": {"features": [{"title": "Sync", "description": "offline first", "priority": "CRITICAL"}, "Export: csv"]}}`,
			check: func(t *testing.T, r Record) {
				want := []Feature{
					{Name: "Sync", Description: "offline first", Priority: PriorityHigh},
					{Name: "Export", Description: "csv", Priority: PriorityMedium},
				}
				if !reflect.DeepEqual(r.Features, want) {
					t.Errorf("Features = %#v", r.Features)
				}
			},
		},
		{
			name:  "implementation deliverables wrap",
			input: `{"implementation": {"timeline": [{"phase": "MVP", "duration": "4 weeks", "deliverables": "beta build"}], "resources": [{"role": "Engineer", "responsibilities": "backend"}]}}`,
			check: func(t *testing.T, r Record) {
				if r.Implementation == nil {
					t.Fatal("Implementation is nil")
				}
				if got := r.Implementation.Timeline[0].Deliverables; !reflect.DeepEqual(got, []string{"beta build"}) {
					t.Errorf("Deliverables = %v", got)
				}
				if got := r.Implementation.Resources[0].Responsibilities; !reflect.DeepEqual(got, []string{"backend"}) {
					t.Errorf("Responsibilities = %v", got)
				}
				if r.Implementation.Stakeholders == nil {
					t.Error("Stakeholders should default to empty list")
				}
			},
		},
		{
			name:  "whole record wrapped in prd key",
			input: `{"prd": {"summary": "Short"}}`,
			check: func(t *testing.T, r Record) {
				if r.Summary.Summary != "Short" {
					t.Errorf("Summary = %q", r.Summary.Summary)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Normalize(decode(t, tt.input)))
		})
	}
}

func TestCoercePriority(t *testing.T) {
	tests := []struct {
		in   any
		want Priority
	}{
		{"high", PriorityHigh},
		{"Low", PriorityLow},
		{"CRITICAL", PriorityHigh},
		{"nice to have", PriorityLow},
		{"medium", PriorityMedium},
		{"", PriorityMedium},
		{nil, PriorityMedium},
		{3.0, PriorityMedium},
	}
	for _, tt := range tests {
		if got := coercePriority(tt.in); got != tt.want {
			t.Errorf("coercePriority(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"personas": {"personas": [{"name": "Sam"}]}}`,
		`{"summary": {"elevatorPitch": "A", "summary": {"why": "because"}},
		  "features": ["Login: email", {"name": "Sync", "priority": "must have"}],
		  "techStack": {"frontend": "Svelte"},
		  "uiDesign": {"principles": "clarity", "palette": {"primary": {"hex": "#000"}}, "screens": "Home: landing"},
		  "implementation": {"timeline": "Phase 1", "stakeholders": [{"name": "Board", "frequency": "monthly"}]}}`,
	}
	for _, in := range inputs {
		first := Normalize(decode(t, in))
		second := Normalize(roundTrip(t, first))
		if !reflect.DeepEqual(first, second) {
			t.Errorf("not idempotent for %s:\nfirst  %#v\nsecond %#v", in, first, second)
		}
	}
}

func TestNormalize_KeepsEmptyCanonicalEntries(t *testing.T) {
	in := Record{
		Personas: []Persona{{Name: "", Role: DefaultPersonaRole, Goals: []string{}, Frustrations: []string{}}},
		Features: []Feature{{Priority: PriorityHigh}},
		TechStack: TechStack{
			Frontend: NotSpecified, Backend: NotSpecified, Database: NotSpecified, Hosting: NotSpecified,
		},
		UIDesign: UIDesign{
			Principles: []string{},
			Palette:    map[string]string{"primary": ""},
			Screens:    []Screen{{}},
		},
		Implementation: &Implementation{
			Timeline:     []Phase{{Deliverables: []string{}}},
			Resources:    []Resource{{Responsibilities: []string{}}},
			Stakeholders: []Stakeholder{{Deliverables: []string{}}},
		},
	}
	got := Normalize(roundTrip(t, in))
	if !reflect.DeepEqual(in, got) {
		t.Errorf("canonical record changed:\nin  %#v\ngot %#v", in, got)
	}

	// Entries carrying nothing recognisable are still dropped.
	junk := Normalize(decode(t, `{"features": ["", {}, {"color": "red"}], "uiDesign": {"screens": ["  ", {}]}}`))
	if len(junk.Features) != 0 || len(junk.UIDesign.Screens) != 0 {
		t.Errorf("junk entries kept: %#v %#v", junk.Features, junk.UIDesign.Screens)
	}
}

func TestMerge(t *testing.T) {
	base := Normalize(decode(t, `{"summary": {"elevatorPitch": "P", "summary": "S"}, "features": ["A: a"]}`))

	t.Run("replaces only the named section", func(t *testing.T) {
		got, err := Merge(base, SectionPersonas, decode(t, `{"personas": [{"name": "Lee", "role": "Dev"}]}`))
		if err != nil {
			t.Fatalf("Merge: %v", err)
		}
		if len(got.Personas) != 1 || got.Personas[0].Name != "Lee" {
			t.Errorf("Personas = %#v", got.Personas)
		}
		if got.Summary != base.Summary || !reflect.DeepEqual(got.Features, base.Features) {
			t.Error("unrelated sections changed")
		}
	})

	t.Run("summary at top level", func(t *testing.T) {
		got, err := Merge(base, SectionSummary, decode(t, `{"elevatorPitch": "New", "summary": "Fresh"}`))
		if err != nil {
			t.Fatalf("Merge: %v", err)
		}
		if got.Summary != (Summary{ElevatorPitch: "New", Summary: "Fresh"}) {
			t.Errorf("Summary = %#v", got.Summary)
		}
	})

	t.Run("implementation part creates implementation", func(t *testing.T) {
		got, err := Merge(base, SectionImplementationTimeline, decode(t, `{"timeline": [{"phase": "Alpha"}]}`))
		if err != nil {
			t.Fatalf("Merge: %v", err)
		}
		if got.Implementation == nil || got.Implementation.Timeline[0].Phase != "Alpha" {
			t.Fatalf("Implementation = %#v", got.Implementation)
		}
		if got.Implementation.Resources == nil || got.Implementation.Stakeholders == nil {
			t.Error("sibling implementation lists should be empty, not nil")
		}
		if base.Implementation != nil {
			t.Error("Merge mutated its input")
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := Merge(base, "fileStructure", map[string]any{})
		if !errors.Is(err, ErrUnknownSection) {
			t.Errorf("err = %v, want ErrUnknownSection", err)
		}
	})
}

func TestNormalizeIdeas(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain list", `["A","B"]`, []string{"A", "B"}},
		{"wrapped with tech stack", `{"ideas":["A"],"techStack":{"frontend":"React"}}`, []string{"A"}},
		{"objects", `{"ideas":[{"title":"Tasks","description":"Shared lists"},{"name":"Notes"}]}`, []string{"Tasks: Shared lists", "Notes"}},
		{"single string", `{"ideas":"Only one"}`, []string{"Only one"}},
		{"blanks dropped", `["", "  ", "C"]`, []string{"C"}},
		{"nothing", `null`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeIdeas(decode(t, tt.in))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeIdeas(%s) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}
