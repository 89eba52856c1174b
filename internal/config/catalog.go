package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// DrawConfig is one entry of the ticket type name catalog.
type DrawConfig struct {
	Name string  `yaml:"name"`
	Bias float64 `yaml:"bias"`
}

// Catalog is the closed set of ticket type names and the payout bias of each.
type Catalog struct {
	DefaultBias float64      `yaml:"defaultBias"`
	Draws       []DrawConfig `yaml:"draws"`
}

// DefaultCatalog returns the built-in Daily/Weekly/Monthly catalog.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog file, or returns the default when path is empty.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate checks that names are unique and biases are probabilities.
func (c Catalog) Validate() error {
	if len(c.Draws) == 0 {
		return fmt.Errorf("catalog: at least one draw is required")
	}
	if c.DefaultBias < 0 || c.DefaultBias > 1 {
		return fmt.Errorf("catalog: defaultBias %v out of [0,1]", c.DefaultBias)
	}
	seen := make(map[string]bool, len(c.Draws))
	for _, d := range c.Draws {
		if d.Name == "" {
			return fmt.Errorf("catalog: draw name is required")
		}
		if seen[d.Name] {
			return fmt.Errorf("catalog: duplicate draw %q", d.Name)
		}
		if d.Bias < 0 || d.Bias > 1 {
			return fmt.Errorf("catalog: draw %q bias %v out of [0,1]", d.Name, d.Bias)
		}
		seen[d.Name] = true
	}
	return nil
}

// Has reports whether name is a known draw.
func (c Catalog) Has(name string) bool {
	for _, d := range c.Draws {
		if d.Name == name {
			return true
		}
	}
	return false
}

// Names lists the draw names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c.Draws))
	for _, d := range c.Draws {
		names = append(names, d.Name)
	}
	return names
}

// Bias returns the loss-tier probability for name, falling back to
// DefaultBias for names outside the catalog.
func (c Catalog) Bias(name string) float64 {
	for _, d := range c.Draws {
		if d.Name == name {
			return d.Bias
		}
	}
	return c.DefaultBias
}
