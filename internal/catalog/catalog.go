// Package catalog holds the static set of assessment definitions the engine can run.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/SAP-F-2025/ec0249-assessment/internal/models"
	"github.com/SAP-F-2025/ec0249-assessment/internal/questions"
	"github.com/SAP-F-2025/ec0249-assessment/internal/validator"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed data/ec0249.json
var defaultCatalog []byte

//go:embed data/catalog.schema.json
var catalogSchema []byte

const schemaURL = "schema://ec0249-catalog.json"

var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrInvalidCatalog     = errors.New("invalid catalog")
)

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Filters narrows a catalog listing. Empty fields match everything.
type Filters struct {
	Module   string `form:"module" json:"module,omitempty"`
	Element  string `form:"element" json:"element,omitempty"`
	Category string `form:"category" json:"category,omitempty"`
}

func (f Filters) matches(a *models.AssessmentDefinition) bool {
	return (f.Module == "" || f.Module == a.Module) &&
		(f.Element == "" || f.Element == a.Element) &&
		(f.Category == "" || f.Category == a.Category)
}

type document struct {
	Version     string                        `json:"version"`
	Assessments []models.AssessmentDefinition `json:"assessments"`
}

// Catalog is read-only after Load. Returned definitions are shared and must not be modified.
type Catalog struct {
	version     string
	assessments []*models.AssessmentDefinition
	byID        map[string]*models.AssessmentDefinition
}

// Default loads the embedded EC0249 catalog.
func Default(v *validator.Validator) (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog), v)
}

// LoadFile loads a catalog from a JSON file on disk.
func LoadFile(path string, v *validator.Validator) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, v)
}

// Load parses a catalog, checks it against the catalog schema and validates every
// assessment and question before accepting it.
func Load(r io.Reader, v *validator.Validator) (*Catalog, error) {
	if v == nil {
		v = validator.New()
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, fmt.Errorf("%w: schema validation failed: %w", ErrInvalidCatalog, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	evaluator := questions.NewEvaluator(v)
	c := &Catalog{
		version:     doc.Version,
		assessments: make([]*models.AssessmentDefinition, 0, len(doc.Assessments)),
		byID:        make(map[string]*models.AssessmentDefinition, len(doc.Assessments)),
	}
	for i := range doc.Assessments {
		a := &doc.Assessments[i]
		if err := checkAssessment(a, v, evaluator); err != nil {
			return nil, err
		}
		if _, dup := c.byID[a.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate assessment id %q", ErrInvalidCatalog, a.ID)
		}
		c.byID[a.ID] = a
		c.assessments = append(c.assessments, a)
	}

	for _, a := range c.assessments {
		for _, pre := range a.Prerequisites {
			if pre == a.ID {
				return nil, fmt.Errorf("%w: assessment %q lists itself as a prerequisite", ErrInvalidCatalog, a.ID)
			}
			if _, ok := c.byID[pre]; !ok {
				return nil, fmt.Errorf("%w: assessment %q requires unknown assessment %q", ErrInvalidCatalog, a.ID, pre)
			}
		}
	}
	return c, nil
}

func checkAssessment(a *models.AssessmentDefinition, v *validator.Validator, evaluator *questions.Evaluator) error {
	if err := v.Validate(a); err != nil {
		return fmt.Errorf("%w: assessment %q: %w", ErrInvalidCatalog, a.ID, err)
	}
	seen := make(map[string]struct{}, len(a.Questions))
	for i := range a.Questions {
		q := &a.Questions[i]
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: assessment %q has duplicate question id %q", ErrInvalidCatalog, a.ID, q.ID)
		}
		seen[q.ID] = struct{}{}
		if err := evaluator.Validate(q); err != nil {
			return fmt.Errorf("%w: assessment %q: %w", ErrInvalidCatalog, a.ID, err)
		}
	}
	return nil
}

func compileSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(catalogSchema))
		if err != nil {
			compileErr = fmt.Errorf("parse catalog schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add catalog schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

func (c *Catalog) Version() string { return c.version }

func (c *Catalog) Len() int { return len(c.assessments) }

// Get returns the assessment with the given id.
func (c *Catalog) Get(id string) (*models.AssessmentDefinition, error) {
	a, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssessmentNotFound, id)
	}
	return a, nil
}

// All returns every assessment in catalog order.
func (c *Catalog) All() []*models.AssessmentDefinition {
	return append([]*models.AssessmentDefinition(nil), c.assessments...)
}

func (c *Catalog) ByModule(module string) []*models.AssessmentDefinition {
	return c.Filter(Filters{Module: module})
}

func (c *Catalog) ByElement(element string) []*models.AssessmentDefinition {
	return c.Filter(Filters{Element: element})
}

func (c *Catalog) ByCategory(category string) []*models.AssessmentDefinition {
	return c.Filter(Filters{Category: category})
}

// Filter returns the assessments matching every non-empty field of f, in catalog order.
func (c *Catalog) Filter(f Filters) []*models.AssessmentDefinition {
	out := make([]*models.AssessmentDefinition, 0)
	for _, a := range c.assessments {
		if f.matches(a) {
			out = append(out, a)
		}
	}
	return out
}

func (c *Catalog) QuestionCount(id string) (int, error) {
	a, err := c.Get(id)
	if err != nil {
		return 0, err
	}
	return len(a.Questions), nil
}
