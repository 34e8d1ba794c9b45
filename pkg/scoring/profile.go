package scoring

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
	"gopkg.in/yaml.v3"
)

// EvaluatorKind selects the heuristic used to score a field value.
type EvaluatorKind string

const (
	KindText         EvaluatorKind = "text"         // length interpolated between min_length and good_length
	KindLength       EvaluatorKind = "length"       // tiered min/good/excellent length
	KindPresence     EvaluatorKind = "presence"     // any non-blank value
	KindPrice        EvaluatorKind = "price"        // numeric >= min_value
	KindCurrency     EvaluatorKind = "currency"     // code in allowed
	KindImage        EvaluatorKind = "image"        // extension in allowed
	KindJSON         EvaluatorKind = "json"         // object with up to five keys
	KindVerification EvaluatorKind = "verification" // known standards bodies
	KindNumeric      EvaluatorKind = "numeric"      // positive number
	KindBoolean      EvaluatorKind = "boolean"
)

// FieldRule describes how one field of a model is weighted and scored.
type FieldRule struct {
	Name            string        `yaml:"name"`
	Weight          float64       `yaml:"weight"`
	MaxScore        float64       `yaml:"max_score"`
	Kind            EvaluatorKind `yaml:"kind"`
	MinLength       int           `yaml:"min_length"`
	GoodLength      int           `yaml:"good_length"`
	ExcellentLength int           `yaml:"excellent_length"`
	MinValue        float64       `yaml:"min_value"`
	Allowed         []string      `yaml:"allowed"`
}

// Profile is the scoring configuration for one model.
type Profile struct {
	Model  string      `yaml:"model"`
	Fields []FieldRule `yaml:"fields"`
}

// Weights returns the configured weight of every field.
func (p *Profile) Weights() map[string]float64 {
	out := make(map[string]float64, len(p.Fields))
	for _, f := range p.Fields {
		out[f.Name] = f.Weight
	}
	return out
}

func (p *Profile) validate() error {
	if strings.TrimSpace(p.Model) == "" {
		return fmt.Errorf("profile model is required")
	}
	if len(p.Fields) == 0 {
		return fmt.Errorf("profile %s: at least one field is required", p.Model)
	}
	seen := make(map[string]bool, len(p.Fields))
	for i := range p.Fields {
		f := &p.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("profile %s: field %d has no name", p.Model, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("profile %s: duplicate field %q", p.Model, f.Name)
		}
		seen[f.Name] = true
		if f.Weight < 0 {
			return fmt.Errorf("profile %s: field %q has negative weight", p.Model, f.Name)
		}
		if f.MaxScore == 0 {
			f.MaxScore = 1
		}
		if f.Kind == "" {
			f.Kind = kindForFieldName(f.Name)
		}
	}
	return nil
}

var defaultCurrencies = []string{"USD", "EUR", "GBP", "CAD", "AUD", "JPY", "CHF", "SEK", "NOK", "DKK"}

var defaultImageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}

// ProductsProfile is the built-in profile for product records.
func ProductsProfile() *Profile {
	return &Profile{
		Model: "Products",
		Fields: []FieldRule{
			{Name: "title", Weight: 0.20, MaxScore: 1, Kind: KindText, MinLength: 3, GoodLength: 100},
			{Name: "description", Weight: 0.20, MaxScore: 1, Kind: KindLength, MinLength: 20, GoodLength: 100, ExcellentLength: 300},
			{Name: "manufacturer", Weight: 0.15, MaxScore: 1, Kind: KindText, MinLength: 3, GoodLength: 100},
			{Name: "model_number", Weight: 0.10, MaxScore: 1, Kind: KindText, MinLength: 2, GoodLength: 50},
			{Name: "price", Weight: 0.15, MaxScore: 1, Kind: KindPrice, MinValue: 0.01},
			{Name: "currency", Weight: 0.05, MaxScore: 1, Kind: KindCurrency, Allowed: defaultCurrencies},
			{Name: "image", Weight: 0.10, MaxScore: 1, Kind: KindImage, Allowed: defaultImageExtensions},
			{Name: "alt_text", Weight: 0.05, MaxScore: 1, Kind: KindLength, MinLength: 5, GoodLength: 20},
		},
	}
}

// Registry holds profiles by normalized model name.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry creates a registry holding the given profiles.
func NewRegistry(profiles ...*Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]*Profile, len(profiles))}
	for _, p := range profiles {
		if err := r.add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns a registry holding only the built-in profiles.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(ProductsProfile())
	if err != nil {
		panic(err)
	}
	return r
}

type profileFile struct {
	Profiles []*Profile `yaml:"profiles"`
}

// LoadRegistry returns the built-in profiles overlaid with those in the YAML file at
// path. An empty path yields the built-in profiles only.
func LoadRegistry(path string) (*Registry, error) {
	r := DefaultRegistry()
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	for _, p := range file.Profiles {
		if err := r.add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(p *Profile) error {
	if p == nil {
		return fmt.Errorf("nil profile")
	}
	if err := p.validate(); err != nil {
		return err
	}
	p.Model = NormalizeModel(p.Model)
	r.profiles[p.Model] = p
	return nil
}

// Lookup returns the profile for model, normalizing the name first.
func (r *Registry) Lookup(model string) (*Profile, bool) {
	p, ok := r.profiles[NormalizeModel(model)]
	return p, ok
}

// Models returns the registered model names in sorted order.
func (r *Registry) Models() []string {
	out := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NormalizeModel maps table-style names onto the canonical plural, CamelCase model
// name: "product", "products" and "Product" all become "Products", and
// "product_category" becomes "ProductCategories".
func NormalizeModel(name string) string {
	parts := strings.FieldsFunc(strings.TrimSpace(name), func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	if len(parts) == 0 {
		return ""
	}

	var b strings.Builder
	for _, p := range parts {
		runes := []rune(p)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return inflection.Plural(b.String())
}
