// Package mandation holds the field-presence rules applied after structural
// validation. Each field key maps to a level per vaccine type; the table is
// configuration, embedded as YAML, and can be replaced by callers.
package mandation

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dlzhry2/immunisation-fhir-api-sub000/fieldpath"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/vaccine"
)

// Level is a mandation level for one field under one vaccine type.
type Level string

const (
	// Mandatory fields fail validation when absent.
	Mandatory Level = "mandatory"
	// Required fields should be sent when known but absence passes.
	Required Level = "required"
	// Optional fields always pass.
	Optional Level = "optional"
	// NotApplicable fields fail validation when present.
	NotApplicable Level = "not_applicable"
)

// IsValid returns true for a known level.
func (l Level) IsValid() bool {
	switch l {
	case Mandatory, Required, Optional, NotApplicable:
		return true
	default:
		return false
	}
}

//go:embed table.yaml
var embeddedTable []byte

// tableDoc is the YAML shape of the mandation table.
type tableDoc struct {
	VaccineTypes []string `yaml:"vaccine_types"`
	Fields       map[string]struct {
		Default   Level            `yaml:"default"`
		Overrides map[string]Level `yaml:"overrides"`
	} `yaml:"fields"`
}

// Table resolves the mandation level of a field key under a vaccine type.
// It is immutable after Load and safe for concurrent reads.
type Table struct {
	vaccineTypes []vaccine.Type
	levels       map[fieldpath.Key]map[vaccine.Type]Level
}

// Load parses a YAML mandation table. Every field needs a valid default
// level; overrides may only name listed vaccine types.
func Load(data []byte) (*Table, error) {
	var doc tableDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing mandation table: %w", err)
	}
	if len(doc.VaccineTypes) == 0 {
		return nil, errors.New("mandation table lists no vaccine types")
	}
	if len(doc.Fields) == 0 {
		return nil, errors.New("mandation table lists no fields")
	}

	types := make([]vaccine.Type, 0, len(doc.VaccineTypes))
	known := make(map[string]bool, len(doc.VaccineTypes))
	for _, vt := range doc.VaccineTypes {
		types = append(types, vaccine.Type(vt))
		known[vt] = true
	}

	levels := make(map[fieldpath.Key]map[vaccine.Type]Level, len(doc.Fields))
	for field, spec := range doc.Fields {
		if !spec.Default.IsValid() {
			return nil, fmt.Errorf("field %s: invalid level %q", field, spec.Default)
		}
		perType := make(map[vaccine.Type]Level, len(types))
		for _, vt := range types {
			perType[vt] = spec.Default
		}
		for vt, level := range spec.Overrides {
			if !known[vt] {
				return nil, fmt.Errorf("field %s: override for unknown vaccine type %q", field, vt)
			}
			if !level.IsValid() {
				return nil, fmt.Errorf("field %s: invalid level %q for %s", field, level, vt)
			}
			perType[vaccine.Type(vt)] = level
		}
		levels[fieldpath.Key(field)] = perType
	}

	return &Table{vaccineTypes: types, levels: levels}, nil
}

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// Default returns the embedded mandation table, parsed once.
func Default() *Table {
	defaultTableOnce.Do(func() {
		t, err := Load(embeddedTable)
		if err != nil {
			// The embedded table ships with the binary; failing to parse
			// it is a build defect, not a runtime condition.
			panic("mandation: embedded table invalid: " + err.Error())
		}
		defaultTable = t
	})
	return defaultTable
}

// VaccineTypes returns the vaccine types the table covers.
func (t *Table) VaccineTypes() []vaccine.Type {
	out := make([]vaccine.Type, len(t.vaccineTypes))
	copy(out, t.vaccineTypes)
	return out
}

// Keys returns every field key in the table.
func (t *Table) Keys() []fieldpath.Key {
	out := make([]fieldpath.Key, 0, len(t.levels))
	for k := range t.levels {
		out = append(out, k)
	}
	return out
}

// Level returns the mandation level of a field key under a vaccine type.
// Unknown keys and types default to optional, so a table edit can never make
// the engine reject fields it does not know about.
func (t *Table) Level(key fieldpath.Key, vaccineType vaccine.Type) Level {
	perType, ok := t.levels[key]
	if !ok {
		return Optional
	}
	level, ok := perType[vaccineType]
	if !ok {
		return Optional
	}
	return level
}

// CheckOption customises the diagnostics Enforce produces.
type CheckOption func(*checkConfig)

type checkConfig struct {
	mandatoryMessage     string
	notApplicableMessage string
}

// WithMandatoryMessage replaces the generic missing-mandatory-field
// diagnostic with a bespoke one.
func WithMandatoryMessage(msg string) CheckOption {
	return func(c *checkConfig) {
		c.mandatoryMessage = msg
	}
}

// WithNotApplicableMessage replaces the generic not-applicable diagnostic
// with a bespoke one.
func WithNotApplicableMessage(msg string) CheckOption {
	return func(c *checkConfig) {
		c.notApplicableMessage = msg
	}
}

// Enforce applies a mandation level to a field's presence. Mandatory fields
// fail when absent; not-applicable fields fail when present; required and
// optional always pass.
func Enforce(level Level, present bool, location string, opts ...CheckOption) error {
	var cfg checkConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if !present && level == Mandatory {
		if cfg.mandatoryMessage != "" {
			return errors.New(cfg.mandatoryMessage)
		}
		return errors.New(location + " is a mandatory field")
	}

	if present && level == NotApplicable {
		if cfg.notApplicableMessage != "" {
			return errors.New(cfg.notApplicableMessage)
		}
		return errors.New(location + " must not be provided for this vaccine type")
	}

	return nil
}
