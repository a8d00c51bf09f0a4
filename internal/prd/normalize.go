package prd

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// sectionRule binds a canonical section to the keys it may arrive under and
// the coercion that fills it. Every coercion is total.
type sectionRule struct {
	key     string
	aliases []string
	apply   func(r *Record, v any)
}

var sectionRules = []sectionRule{
	{
		key:     SectionSummary,
		aliases: []string{"summary", "overview", "executiveSummary"},
		apply:   func(r *Record, v any) { r.Summary = coerceSummary(v) },
	},
	{
		key:     SectionPersonas,
		aliases: []string{"personas", "persona", "userPersonas", "targetAudience"},
		apply:   func(r *Record, v any) { r.Personas = coercePersonas(v) },
	},
	{
		key:     SectionFeatures,
		aliases: []string{"features", "feature", "keyFeatures"},
		apply:   func(r *Record, v any) { r.Features = coerceFeatures(v) },
	},
	{
		key:     SectionTechStack,
		aliases: []string{"techStack", "technologyStack", "stack", "technicalArchitecture"},
		apply:   func(r *Record, v any) { r.TechStack = coerceTechStack(v) },
	},
	{
		key:     SectionUIDesign,
		aliases: []string{"uiDesign", "uiUxDesign", "design"},
		apply:   func(r *Record, v any) { r.UIDesign = coerceUIDesign(v) },
	},
	{
		key:     SectionImplementation,
		aliases: []string{"implementation", "implementationPlan"},
		apply:   func(r *Record, v any) { r.Implementation = coerceImplementation(v) },
	},
}

var implementationParts = map[string]struct {
	aliases []string
	apply   func(impl *Implementation, v any)
}{
	SectionImplementationTimeline: {
		aliases: []string{"timeline", "implementationTimeline", "phases"},
		apply:   func(impl *Implementation, v any) { impl.Timeline = coercePhases(v) },
	},
	SectionImplementationResources: {
		aliases: []string{"resources", "implementationResources", "team"},
		apply:   func(impl *Implementation, v any) { impl.Resources = coerceResources(v) },
	},
	SectionImplementationStakeholders: {
		aliases: []string{"stakeholders", "implementationStakeholders", "communicationPlan"},
		apply:   func(impl *Implementation, v any) { impl.Stakeholders = coerceStakeholders(v) },
	},
}

// Normalize coerces any decoded JSON value into a fully populated Record.
// It never fails; fields it cannot interpret take their defaults.
func Normalize(raw any) Record {
	m := object(raw)
	if inner := object(field(m, "prd")); inner != nil && len(m) == 1 {
		m = inner
	}
	var r Record
	for _, rule := range sectionRules {
		rule.apply(&r, field(m, rule.aliases...))
	}
	return r
}

// Merge replaces one section of r with the coerced payload and leaves every
// other section untouched.
func Merge(r Record, key string, raw any) (Record, error) {
	if part, ok := implementationParts[key]; ok {
		impl := Implementation{Timeline: []Phase{}, Resources: []Resource{}, Stakeholders: []Stakeholder{}}
		if r.Implementation != nil {
			impl = *r.Implementation
		}
		part.apply(&impl, payload(raw, part.aliases))
		r.Implementation = &impl
		return r, nil
	}
	for _, rule := range sectionRules {
		if rule.key != key {
			continue
		}
		v := payload(raw, rule.aliases)
		if key == SectionSummary {
			if m := object(raw); m != nil && field(m, "elevatorPitch", "pitch") != nil {
				v = m
			}
		}
		if key == SectionImplementation && v == nil {
			v = map[string]any{}
		}
		rule.apply(&r, v)
		return r, nil
	}
	return r, fmt.Errorf("%w: %q", ErrUnknownSection, key)
}

// payload picks the section value out of a response that may or may not wrap
// it under its own key.
func payload(raw any, aliases []string) any {
	if m := object(raw); m != nil {
		if v, ok := lookup(m, aliases...); ok {
			return v
		}
	}
	return raw
}

func coerceSummary(v any) Summary {
	m := object(v)
	if m == nil {
		return Summary{Summary: text(v)}
	}
	if inner := object(field(m, "summary")); inner != nil && field(inner, "elevatorPitch", "pitch", "summary") != nil {
		return coerceSummary(inner)
	}
	s := Summary{
		ElevatorPitch: text(field(m, "elevatorPitch", "pitch", "tagline", "oneLiner")),
		Summary:       text(field(m, "summary", "description", "overview")),
	}
	if s.ElevatorPitch == "" && s.Summary == "" {
		s.Summary = text(m)
	}
	return s
}

// Keys that make an object entry a real list item. An object carrying any of
// them is kept even when every value is empty, so normalizing a normalized
// record changes nothing. Blank strings and objects without them are dropped.
var (
	personaKeys     = []string{"name", "persona", "title", "role", "occupation", "jobTitle", "goals", "goal", "objectives", "needs", "frustrations", "frustration", "painPoints", "challenges"}
	featureKeys     = []string{"name", "title", "feature", "description", "details", "summary", "priority", "importance"}
	screenKeys      = []string{"name", "title", "screen", "description", "purpose", "details"}
	phaseKeys       = []string{"phase", "name", "title", "duration", "timeframe", "weeks", "description", "details", "summary", "deliverables", "deliverable", "outputs"}
	resourceKeys    = []string{"role", "name", "title", "commitment", "allocation", "time", "responsibilities", "responsibility", "tasks"}
	stakeholderKeys = []string{"stakeholder", "name", "group", "communication", "channel", "method", "frequency", "cadence", "deliverables", "deliverable", "updates"}
)

// present reports whether m holds any of keys.
func present(m map[string]any, keys []string) bool {
	_, ok := lookup(m, keys...)
	return ok
}

func coercePersonas(v any) []Persona {
	out := []Persona{}
	for _, item := range items(v, "personas", "persona", "users") {
		var p Persona
		m := object(item)
		if m != nil {
			p = Persona{
				Name:         text(field(m, "name", "persona", "title")),
				Role:         text(field(m, "role", "occupation", "jobTitle")),
				Goals:        textList(field(m, "goals", "goal", "objectives", "needs")),
				Frustrations: textList(field(m, "frustrations", "frustration", "painPoints", "challenges")),
			}
		} else {
			p = Persona{Name: text(item), Goals: []string{}, Frustrations: []string{}}
		}
		if !present(m, personaKeys) && p.Name == "" {
			continue
		}
		p.Role = orDefault(p.Role, DefaultPersonaRole)
		out = append(out, p)
	}
	return out
}

func coerceFeatures(v any) []Feature {
	out := []Feature{}
	for _, item := range items(v, "features", "feature", "items") {
		var f Feature
		m := object(item)
		if m != nil {
			f = Feature{
				Name:        text(field(m, "name", "title", "feature")),
				Description: text(field(m, "description", "details", "summary")),
				Priority:    coercePriority(field(m, "priority", "importance")),
			}
		} else {
			name, desc := splitPair(text(item))
			f = Feature{Name: name, Description: desc, Priority: PriorityMedium}
		}
		if !present(m, featureKeys) && f.Name == "" && f.Description == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func coercePriority(v any) Priority {
	raw := strings.ToLower(text(v))
	switch p := Priority(cases.Title(language.English).String(raw)); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p
	}
	switch {
	case containsAny(raw, "high", "critical", "must", "urgent", "p0"):
		return PriorityHigh
	case containsAny(raw, "low", "nice", "could", "optional"):
		return PriorityLow
	}
	return PriorityMedium
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// NormalizeTechStack coerces a tech stack value, unwrapping it from a
// techStack key when the model nested it.
func NormalizeTechStack(v any) TechStack {
	return coerceTechStack(v)
}

func coerceTechStack(v any) TechStack {
	m := object(v)
	if inner := object(field(m, "techStack", "technologyStack", "stack")); inner != nil {
		m = inner
	}
	return TechStack{
		Frontend: orDefault(text(field(m, "frontend", "client", "ui")), NotSpecified),
		Backend:  orDefault(text(field(m, "backend", "server", "api")), NotSpecified),
		Database: orDefault(text(field(m, "database", "db", "storage")), NotSpecified),
		Hosting:  orDefault(text(field(m, "hosting", "deployment", "infrastructure")), NotSpecified),
	}
}

func coerceUIDesign(v any) UIDesign {
	m := object(v)
	if inner := object(field(m, "uiDesign", "design")); inner != nil {
		m = inner
	}
	return UIDesign{
		Principles: textList(field(m, "principles", "designPrinciples")),
		Palette:    coercePalette(field(m, "palette", "colorPalette", "colors")),
		Screens:    coerceScreens(field(m, "screens", "keyScreens", "pages")),
	}
}

func coercePalette(v any) map[string]string {
	out := map[string]string{}
	if m := object(v); m != nil {
		for k, val := range m {
			if inner := object(val); inner != nil {
				if c := field(inner, "hex", "value", "color"); c != nil {
					val = c
				}
			}
			out[k] = text(val)
		}
		return out
	}
	var entries []any
	switch t := v.(type) {
	case []any:
		entries = t
	case string:
		for _, part := range strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == '\n' }) {
			entries = append(entries, part)
		}
	}
	for i, e := range entries {
		if m := object(e); m != nil {
			name := text(field(m, "name", "role", "label"))
			value := text(field(m, "hex", "value", "color"))
			if name == "" {
				name = fmt.Sprintf("color%d", i+1)
			}
			if value != "" {
				out[name] = value
			}
			continue
		}
		name, value := splitPair(text(e))
		if value == "" {
			name, value = fmt.Sprintf("color%d", i+1), name
		}
		if value != "" {
			out[name] = value
		}
	}
	return out
}

func coerceScreens(v any) []Screen {
	out := []Screen{}
	for _, item := range items(v, "screens", "screen") {
		var s Screen
		m := object(item)
		if m != nil {
			s = Screen{
				Name:        text(field(m, "name", "title", "screen")),
				Description: text(field(m, "description", "purpose", "details")),
			}
		} else {
			s.Name, s.Description = splitPair(text(item))
		}
		if !present(m, screenKeys) && s.Name == "" && s.Description == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func coerceImplementation(v any) *Implementation {
	if v == nil {
		return nil
	}
	m := object(v)
	if m == nil {
		list, ok := v.([]any)
		if !ok {
			return nil
		}
		m = map[string]any{"timeline": list}
	}
	if inner := object(field(m, "implementation", "implementationPlan")); inner != nil {
		m = inner
	}
	impl := &Implementation{}
	for _, key := range []string{SectionImplementationTimeline, SectionImplementationResources, SectionImplementationStakeholders} {
		part := implementationParts[key]
		part.apply(impl, field(m, part.aliases...))
	}
	return impl
}

func coercePhases(v any) []Phase {
	out := []Phase{}
	for _, item := range items(v, "timeline", "phases") {
		var p Phase
		m := object(item)
		if m != nil {
			p = Phase{
				Phase:        text(field(m, "phase", "name", "title")),
				Duration:     text(field(m, "duration", "timeframe", "weeks")),
				Description:  text(field(m, "description", "details", "summary")),
				Deliverables: textList(field(m, "deliverables", "deliverable", "outputs")),
			}
		} else {
			name, desc := splitPair(text(item))
			p = Phase{Phase: name, Description: desc, Deliverables: []string{}}
		}
		if !present(m, phaseKeys) && p.Phase == "" && p.Description == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func coerceResources(v any) []Resource {
	out := []Resource{}
	for _, item := range items(v, "resources", "team") {
		var r Resource
		m := object(item)
		if m != nil {
			r = Resource{
				Role:             text(field(m, "role", "name", "title")),
				Commitment:       text(field(m, "commitment", "allocation", "time")),
				Responsibilities: textList(field(m, "responsibilities", "responsibility", "tasks")),
			}
		} else {
			role, commitment := splitPair(text(item))
			r = Resource{Role: role, Commitment: commitment, Responsibilities: []string{}}
		}
		if !present(m, resourceKeys) && r.Role == "" && r.Commitment == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

func coerceStakeholders(v any) []Stakeholder {
	out := []Stakeholder{}
	for _, item := range items(v, "stakeholders", "stakeholder") {
		var s Stakeholder
		m := object(item)
		if m != nil {
			s = Stakeholder{
				Stakeholder:   text(field(m, "stakeholder", "name", "group")),
				Communication: text(field(m, "communication", "channel", "method")),
				Frequency:     text(field(m, "frequency", "cadence")),
				Deliverables:  textList(field(m, "deliverables", "deliverable", "updates")),
			}
		} else {
			name, comm := splitPair(text(item))
			s = Stakeholder{Stakeholder: name, Communication: comm, Deliverables: []string{}}
		}
		if !present(m, stakeholderKeys) && s.Stakeholder == "" && s.Communication == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// NormalizeIdeas coerces an idea list. Ideas may arrive as strings or as
// objects with a title and description, which are joined as "title: description".
func NormalizeIdeas(v any) []string {
	out := []string{}
	for _, item := range items(v, "ideas", "idea", "projectIdeas", "suggestions") {
		var idea string
		if m := object(item); m != nil {
			name := text(field(m, "title", "name", "idea"))
			desc := text(field(m, "description", "summary", "details"))
			switch {
			case name != "" && desc != "":
				idea = name + ": " + desc
			case name != "":
				idea = name
			default:
				idea = orDefault(desc, text(m))
			}
		} else {
			idea = text(item)
		}
		if idea != "" {
			out = append(out, idea)
		}
	}
	return out
}
