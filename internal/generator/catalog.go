package generator

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"aisri/internal/analysis"
	"aisri/internal/store"
)

//go:embed templates.yaml
var embeddedCatalog []byte

// ErrNoTemplate is returned when no template fits a state and type
var ErrNoTemplate = errors.New("no workout template")

// stateAny marks a template usable in every structural state
const stateAny = "ANY"

// Constraints are the limits a template places on the session
type Constraints struct {
	MaxHeartRatePercent     int    `yaml:"max_heart_rate_percent" json:"max_heart_rate_percent"`
	MaxPerceivedExertion    int    `yaml:"max_perceived_exertion" json:"max_perceived_exertion"`
	Focus                   string `yaml:"focus" json:"focus,omitempty"`
	SpeedPermissionRequired bool   `yaml:"speed_permission_required" json:"speed_permission_required"`
}

// Block is one template segment
type Block struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Minutes     int    `yaml:"minutes"`
	Zone        int    `yaml:"zone"`
}

// Template is a fixed workout structure for a structural state and type
type Template struct {
	ID                 string            `yaml:"id"`
	State              string            `yaml:"state"`
	Type               store.WorkoutType `yaml:"type"`
	MaxDurationMinutes int               `yaml:"max_duration_minutes"`
	Zones              []int             `yaml:"zones"`
	Constraints        Constraints       `yaml:"constraints"`
	Blocks             []Block           `yaml:"blocks"`
}

// Catalog indexes templates by state and type
type Catalog struct {
	byKey map[string]*Template
}

// LoadCatalog parses the embedded template catalog
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(embeddedCatalog)
}

// ParseCatalog parses and validates a YAML template catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing template catalog: %w", err)
	}

	c := &Catalog{byKey: make(map[string]*Template, len(doc.Templates))}
	for i := range doc.Templates {
		t := &doc.Templates[i]
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("template %q: %w", t.ID, err)
		}
		key := catalogKey(t.State, t.Type)
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("template %q: duplicate state/type %s", t.ID, key)
		}
		c.byKey[key] = t
	}
	return c, nil
}

func (t *Template) validate() error {
	switch analysis.StructuralState(t.State) {
	case analysis.StructuralRed, analysis.StructuralYellow, analysis.StructuralGreen, stateAny:
	default:
		return fmt.Errorf("unknown state %q", t.State)
	}
	if _, ok := store.ParseWorkoutType(string(t.Type)); !ok {
		return fmt.Errorf("unknown type %q", t.Type)
	}
	if t.MaxDurationMinutes <= 0 {
		return errors.New("max_duration_minutes must be positive")
	}
	for _, z := range t.Zones {
		if z < 1 || z > 5 {
			return fmt.Errorf("zone %d outside 1..5", z)
		}
	}
	if c := t.Constraints.MaxHeartRatePercent; c != 0 && (c < 50 || c > 100) {
		return fmt.Errorf("max_heart_rate_percent %d outside 50..100", c)
	}
	if len(t.Blocks) == 0 {
		return errors.New("template has no blocks")
	}
	return nil
}

// SelectTemplate returns the state-specific template, falling back to ANY
func (c *Catalog) SelectTemplate(state analysis.StructuralState, wt store.WorkoutType) (*Template, error) {
	if t, ok := c.byKey[catalogKey(string(state), wt)]; ok {
		return t, nil
	}
	if t, ok := c.byKey[catalogKey(stateAny, wt)]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w for %s in %s state", ErrNoTemplate, wt, state)
}

// AdjustDuration clamps a requested duration to the template maximum
func AdjustDuration(t *Template, requested int) int {
	if requested <= 0 || requested > t.MaxDurationMinutes {
		return t.MaxDurationMinutes
	}
	return requested
}

func catalogKey(state string, wt store.WorkoutType) string {
	return state + "/" + string(wt)
}
