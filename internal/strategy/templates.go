package strategy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wonny/rebalancer/internal/contracts"
)

// Template is a named, reusable strategy definition
type Template struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Strategy    string   `json:"strategy" yaml:"strategy"`
	Tickers     []string `json:"tickers,omitempty" yaml:"tickers"`
	Params      Params   `json:"params" yaml:"params"`
}

// TemplateFile is the YAML document root
type TemplateFile struct {
	Templates []Template `yaml:"templates"`
}

// TemplateSet is a validated set of templates with its content hash
type TemplateSet struct {
	Templates map[string]Template
	Hash      string
}

// LoadTemplates reads and validates a YAML template file
// KnownFields(true): 오타/미사용 필드는 즉시 실패
func LoadTemplates(path string) (*TemplateSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	return ParseTemplates(data)
}

// ParseTemplates decodes and validates YAML template bytes
func ParseTemplates(data []byte) (*TemplateSet, error) {
	var file TemplateFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	set := &TemplateSet{Templates: make(map[string]Template, len(file.Templates))}
	for i, t := range file.Templates {
		if err := ValidateTemplate(&t); err != nil {
			return nil, fmt.Errorf("templates[%d]: %w", i, err)
		}
		if _, dup := set.Templates[t.Name]; dup {
			return nil, contracts.Invalid(fmt.Sprintf("templates[%d].name", i), "duplicate template %q", t.Name)
		}
		set.Templates[t.Name] = t
	}

	hash, err := Hash(file.Templates)
	if err != nil {
		return nil, err
	}
	set.Hash = hash
	return set, nil
}

// Get returns the template called name
func (s *TemplateSet) Get(name string) (Template, error) {
	t, ok := s.Templates[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: template %q", contracts.ErrUnknownStrategy, name)
	}
	return t, nil
}

// ValidateTemplate checks a template's required fields
func ValidateTemplate(t *Template) error {
	if strings.TrimSpace(t.Name) == "" {
		return contracts.Invalid("name", "required")
	}

	switch t.Strategy {
	case NameMomentum:
		if len(t.Tickers) == 0 {
			return contracts.Invalid("tickers", "momentum template needs candidate tickers")
		}
		if t.Params.TopN <= 0 {
			return contracts.Invalid("params.top_n", "must be > 0")
		}
		if t.Params.TopN > len(t.Tickers) {
			return contracts.Invalid("params.top_n", "exceeds candidate count %d", len(t.Tickers))
		}
	case NameFixed, NameCustom:
		if err := validateWeights(t.Params.Weights, t.Params.epsilon()); err != nil {
			return err
		}
		if t.Params.TrendFilter && t.Params.TrendMonths <= 0 {
			return contracts.Invalid("params.trend_months", "must be > 0 when trend_filter is on")
		}
	default:
		return contracts.Invalid("strategy", "must be one of momentum, fixed, custom; got %q", t.Strategy)
	}

	if t.Params.AllowedDeviation < 0 || t.Params.AllowedDeviation > 100 {
		return contracts.Invalid("params.allowed_deviation", "must be in [0, 100]")
	}
	return nil
}

// Hash returns the SHA-256 of the canonical JSON of v (struct fields in
// declaration order, map keys sorted)
func Hash(v interface{}) (string, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash templates: %w", err)
	}
	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
