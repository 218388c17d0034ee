package validator

// The validator guards both ends of the pipeline. Parser output is checked
// against #Design before it is decoded, and the fact tables are checked
// against #Tables before anything downstream reads them. A mismatch is a
// bug in the producer and is reported as an error, never patched over.

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed design_schema.cue
var designSchemaFS embed.FS

//go:embed facts_schema.cue
var factsSchemaFS embed.FS

// schema is one compiled CUE definition. A cue.Context is not safe for
// concurrent use, so every unification holds mu.
type schema struct {
	mu   sync.Mutex
	ctx  *cue.Context
	def  cue.Value
	path string
}

func loadSchema(fs embed.FS, file, path string) (*schema, error) {
	ctx := cuecontext.New()

	schemaBytes, err := fs.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema %s: %w", file, err)
	}

	compiled := ctx.CompileBytes(schemaBytes, cue.Filename(file))
	if compiled.Err() != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", file, compiled.Err())
	}

	def := compiled.LookupPath(cue.ParsePath(path))
	if def.Err() != nil {
		return nil, fmt.Errorf("looking up %s definition: %w", path, def.Err())
	}

	return &schema{ctx: ctx, def: def, path: path}, nil
}

func (s *schema) unify(jsonBytes []byte) (cue.Value, error) {
	dataValue := s.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling data as CUE: %w", dataValue.Err())
	}
	return s.def.Unify(dataValue), nil
}

func (s *schema) validate(jsonBytes []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unified, err := s.unify(jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s validation failed: %w", s.path, err)
	}
	return nil
}

func (s *schema) violations(jsonBytes []byte) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	unified, err := s.unify(jsonBytes)
	if err != nil {
		return []string{err.Error()}
	}
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

// Validator checks parser output against the #Design contract.
type Validator struct {
	design *schema
}

// New creates a new Validator with the embedded design schema.
func New() (*Validator, error) {
	s, err := loadSchema(designSchemaFS, "design_schema.cue", "#Design")
	if err != nil {
		return nil, err
	}
	return &Validator{design: s}, nil
}

// Validate checks that data, once marshaled to JSON, is a valid design
// document.
func (v *Validator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling data to JSON: %w", err)
	}
	return v.design.validate(jsonBytes)
}

// ValidateJSON validates parser output bytes directly.
func (v *Validator) ValidateJSON(jsonBytes []byte) error {
	return v.design.validate(jsonBytes)
}

// ValidationErrors returns one entry per violated constraint.
func (v *Validator) ValidationErrors(jsonBytes []byte) []string {
	return v.design.violations(jsonBytes)
}

// FactsValidator validates relational fact tables against the facts schema.
type FactsValidator struct {
	tables *schema
}

// NewFactsValidator creates a validator for relational fact tables.
func NewFactsValidator() (*FactsValidator, error) {
	s, err := loadSchema(factsSchemaFS, "facts_schema.cue", "#Tables")
	if err != nil {
		return nil, err
	}
	return &FactsValidator{tables: s}, nil
}

// Validate checks that the fact tables conform to the facts schema.
func (v *FactsValidator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling facts to JSON: %w", err)
	}
	return v.tables.validate(jsonBytes)
}

// ValidationErrors returns one entry per violated constraint.
func (v *FactsValidator) ValidationErrors(data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}
	return v.tables.violations(jsonBytes)
}
