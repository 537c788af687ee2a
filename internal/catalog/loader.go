package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a catalog file:
//
//	categories:
//	  - name: MONITORAMENTO_PESSOAL
//	    impact: HIGH
//	    terms: ["maria da silva"]
type File struct {
	Categories []FileCategory `yaml:"categories"`
}

// FileCategory is one category entry of a catalog file
type FileCategory struct {
	Name   string   `yaml:"name"`
	Impact string   `yaml:"impact"`
	Terms  []string `yaml:"terms"`
}

// Load reads a catalog from a YAML file. The list order in the file is the
// catalog order.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML bytes
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	categories := make([]Category, 0, len(f.Categories))
	for _, fc := range f.Categories {
		impact, err := ParseImpact(fc.Impact)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", fc.Name, err)
		}
		categories = append(categories, Category{Name: fc.Name, Terms: fc.Terms, Impact: impact})
	}

	return New(categories...)
}

// LoadOrDefault loads the catalog at path, or returns Default when path is empty
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
