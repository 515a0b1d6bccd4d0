// Package catalog holds the static audit rubric: the four scored categories
// with their ordered criteria, the golden-rule checklist and the barrier
// vocabulary. The rubric is embedded in the binary and loaded once.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/catman-audit/internal/core/domain"
)

const (
	GoldenRuleCount = 10
	BarrierCount    = 5
)

//go:embed catalog.yaml
var rawCatalog []byte

type Criterion struct {
	Key      string `yaml:"key" json:"key"`
	Label    string `yaml:"label" json:"label"`
	Question string `yaml:"question" json:"question"`
	Hint     string `yaml:"hint,omitempty" json:"hint,omitempty"`
}

type Category struct {
	Key      domain.CategoryKey `yaml:"key" json:"key"`
	Label    string             `yaml:"label" json:"label"`
	Subtitle string             `yaml:"subtitle" json:"subtitle"`
	Criteria []Criterion        `yaml:"criteria" json:"criteria"`
}

// Keys returns the criterion keys in rubric order.
func (c Category) Keys() []string {
	keys := make([]string, 0, len(c.Criteria))
	for _, criterion := range c.Criteria {
		keys = append(keys, criterion.Key)
	}
	return keys
}

func (c Category) Has(key string) bool {
	for _, criterion := range c.Criteria {
		if criterion.Key == key {
			return true
		}
	}
	return false
}

type GoldenRule struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
}

type Barrier struct {
	Key         domain.Barrier `yaml:"key" json:"key"`
	Label       string         `yaml:"label" json:"label"`
	Description string         `yaml:"description" json:"description"`
}

type Catalog struct {
	Steps       []string     `yaml:"steps" json:"steps"`
	Categories  []Category   `yaml:"categories" json:"categories"`
	GoldenRules []GoldenRule `yaml:"goldenRules" json:"golden_rules"`
	Barriers    []Barrier    `yaml:"barriers" json:"barriers"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded rubric, parsing it on first use.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(rawCatalog)
	})
	return defaultCatalog, defaultErr
}

// MustDefault is Default for process start-up paths.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes and validates a rubric document.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) Validate() error {
	if len(c.Steps) != int(domain.LastStep)+1 {
		return fmt.Errorf("catalog: expected %d wizard steps, got %d", int(domain.LastStep)+1, len(c.Steps))
	}
	if len(c.Categories) != len(domain.Categories) {
		return fmt.Errorf("catalog: expected %d categories, got %d", len(domain.Categories), len(c.Categories))
	}
	for i, category := range c.Categories {
		if category.Key != domain.Categories[i] {
			return fmt.Errorf("catalog: category %d must be %q, got %q", i, domain.Categories[i], category.Key)
		}
		if len(category.Criteria) == 0 {
			return fmt.Errorf("catalog: category %q has no criteria", category.Key)
		}
		seen := make(map[string]struct{}, len(category.Criteria))
		for _, criterion := range category.Criteria {
			if criterion.Key == "" || criterion.Label == "" {
				return fmt.Errorf("catalog: category %q has a criterion without key or label", category.Key)
			}
			if _, dup := seen[criterion.Key]; dup {
				return fmt.Errorf("catalog: duplicate criterion %q in %q", criterion.Key, category.Key)
			}
			seen[criterion.Key] = struct{}{}
		}
	}

	if len(c.GoldenRules) != GoldenRuleCount {
		return fmt.Errorf("catalog: expected %d golden rules, got %d", GoldenRuleCount, len(c.GoldenRules))
	}
	rules := make(map[string]struct{}, len(c.GoldenRules))
	for _, rule := range c.GoldenRules {
		if _, dup := rules[rule.Key]; dup || rule.Key == "" {
			return fmt.Errorf("catalog: invalid or duplicate golden rule %q", rule.Key)
		}
		rules[rule.Key] = struct{}{}
	}

	if len(c.Barriers) != BarrierCount {
		return fmt.Errorf("catalog: expected %d barriers, got %d", BarrierCount, len(c.Barriers))
	}
	barriers := make(map[domain.Barrier]struct{}, len(c.Barriers))
	for _, barrier := range c.Barriers {
		if _, dup := barriers[barrier.Key]; dup || barrier.Key == "" {
			return fmt.Errorf("catalog: invalid or duplicate barrier %q", barrier.Key)
		}
		barriers[barrier.Key] = struct{}{}
	}
	return nil
}

func (c *Catalog) Category(key domain.CategoryKey) (Category, bool) {
	for _, category := range c.Categories {
		if category.Key == key {
			return category, true
		}
	}
	return Category{}, false
}

// HasCriterion reports whether key is a criterion of the given category.
func (c *Catalog) HasCriterion(category domain.CategoryKey, key string) bool {
	cat, ok := c.Category(category)
	return ok && cat.Has(key)
}

func (c *Catalog) HasGoldenRule(key string) bool {
	for _, rule := range c.GoldenRules {
		if rule.Key == key {
			return true
		}
	}
	return false
}

func (c *Catalog) GoldenRuleKeys() []string {
	keys := make([]string, 0, len(c.GoldenRules))
	for _, rule := range c.GoldenRules {
		keys = append(keys, rule.Key)
	}
	return keys
}

func (c *Catalog) Barrier(key domain.Barrier) (Barrier, bool) {
	for _, barrier := range c.Barriers {
		if barrier.Key == key {
			return barrier, true
		}
	}
	return Barrier{}, false
}

// NormalizeBarriers drops duplicates and orders the set as in the rubric.
// Unknown keys are reported as an error.
func (c *Catalog) NormalizeBarriers(in []domain.Barrier) ([]domain.Barrier, error) {
	wanted := make(map[domain.Barrier]struct{}, len(in))
	for _, key := range in {
		if _, ok := c.Barrier(key); !ok {
			return nil, fmt.Errorf("unknown barrier %q", key)
		}
		wanted[key] = struct{}{}
	}
	out := make([]domain.Barrier, 0, len(wanted))
	for _, barrier := range c.Barriers {
		if _, ok := wanted[barrier.Key]; ok {
			out = append(out, barrier.Key)
		}
	}
	return out, nil
}

// StepName returns the display name of a wizard step.
func (c *Catalog) StepName(step domain.Step) string {
	if !step.Valid() || int(step) >= len(c.Steps) {
		return ""
	}
	return c.Steps[step]
}

// NewSections builds the four empty category sections of a new audit.
func (c *Catalog) NewSections() map[domain.CategoryKey]domain.CategorySection {
	sections := make(map[domain.CategoryKey]domain.CategorySection, len(c.Categories))
	for _, category := range c.Categories {
		sections[category.Key] = domain.NewCategorySection(category.Key, category.Keys())
	}
	return sections
}

// NewGoldenRules builds the unchecked golden-rule map of a new audit.
func (c *Catalog) NewGoldenRules() map[string]bool {
	rules := make(map[string]bool, len(c.GoldenRules))
	for _, rule := range c.GoldenRules {
		rules[rule.Key] = false
	}
	return rules
}
