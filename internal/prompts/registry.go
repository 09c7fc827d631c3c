package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Role selects which prompt variant a requester receives.
type Role string

const (
	RoleGeneral      Role = "general"
	RoleProfessional Role = "professional"
)

// IrrelevantImageGuard is present in every task prompt so the model declines
// images that are not bone or joint studies instead of inventing findings.
const IrrelevantImageGuard = "If the image is not a relevant medical image"

// FormattingDirective is appended to every prompt.
const FormattingDirective = "Formatting rules: wrap every important term, heading or value in HTML bold tags like <b>Findings</b>. " +
	"Never use markdown emphasis such as **text**, __text__, *text* or _text_."

// ParseRole maps the client's userType onto a Role. Unknown values fall back to general.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "doctor", "professional", "clinician":
		return RoleProfessional
	default:
		return RoleGeneral
	}
}

// Task is one supported analysis with its per-role prompts.
type Task struct {
	ID      string          `yaml:"id" json:"id"`
	Title   string          `yaml:"title" json:"title"`
	Prompts map[Role]string `yaml:"prompts" json:"-"`
}

type catalog struct {
	Tasks []Task `yaml:"tasks"`
}

//go:embed catalog.yaml
var catalogYAML []byte

var (
	ordered []Task
	byID    map[string]Task
)

func init() {
	tasks, err := parseCatalog(catalogYAML)
	if err != nil {
		panic(fmt.Sprintf("prompts: %v", err))
	}
	ordered = tasks
	byID = make(map[string]Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
}

func parseCatalog(data []byte) ([]Task, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[string]bool, len(c.Tasks))
	for i, t := range c.Tasks {
		if t.ID == "" || t.Title == "" {
			return nil, fmt.Errorf("task %d: id and title are required", i)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("task %s: duplicate id", t.ID)
		}
		seen[t.ID] = true
		for _, role := range []Role{RoleGeneral, RoleProfessional} {
			text := strings.TrimSpace(t.Prompts[role])
			if text == "" {
				return nil, fmt.Errorf("task %s: missing %s prompt", t.ID, role)
			}
			if !strings.Contains(text, IrrelevantImageGuard) {
				return nil, fmt.Errorf("task %s: %s prompt lacks irrelevant-image guard", t.ID, role)
			}
			c.Tasks[i].Prompts[role] = text
		}
	}
	return c.Tasks, nil
}

// Tasks returns every supported task in catalog order.
func Tasks() []Task {
	out := make([]Task, len(ordered))
	copy(out, ordered)
	return out
}

// Lookup returns the task registered under id.
func Lookup(id string) (Task, bool) {
	t, ok := byID[strings.TrimSpace(id)]
	return t, ok
}

// Title returns the task title, or a title derived from the id for unknown tasks.
func Title(id string) string {
	if t, ok := Lookup(id); ok {
		return t.Title
	}
	return humanize(id)
}

// GetPrompt returns the instruction text for the task and role followed by the
// formatting directive. Unknown tasks get a generic instruction; it never fails.
func GetPrompt(taskID string, role Role) string {
	if role != RoleProfessional {
		role = RoleGeneral
	}
	var body string
	if t, ok := Lookup(taskID); ok {
		body = t.Prompts[role]
	} else {
		body = fmt.Sprintf("Analyze this medical image for %s. Describe the relevant findings and recommendations. "+
			"%s, politely say that you cannot analyse it.", humanize(taskID), IrrelevantImageGuard)
	}
	return body + "\n\n" + FormattingDirective
}

// humanize turns "spine-alignment" into "Spine Alignment".
func humanize(id string) string {
	fields := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return "Medical Image Analysis"
	}
	for i, f := range fields {
		runes := []rune(strings.ToLower(f))
		runes[0] = unicode.ToUpper(runes[0])
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}
