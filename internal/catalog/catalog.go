package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Impact represents the severity tier attached to a keyword category
type Impact int

const (
	ImpactUnknown Impact = iota
	ImpactLow
	ImpactMedium
	ImpactHigh
)

// String returns the wire label of the impact level
func (i Impact) String() string {
	switch i {
	case ImpactLow:
		return "LOW"
	case ImpactMedium:
		return "MEDIUM"
	case ImpactHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// ParseImpact accepts the English labels and the Portuguese labels used by
// earlier report files (BAIXO, MEDIO, ALTO).
func ParseImpact(s string) (Impact, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW", "BAIXO":
		return ImpactLow, nil
	case "MEDIUM", "MEDIO", "MÉDIO":
		return ImpactMedium, nil
	case "HIGH", "ALTO":
		return ImpactHigh, nil
	default:
		return ImpactUnknown, fmt.Errorf("%w: %q", ErrInvalidImpact, s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (i Impact) MarshalText() ([]byte, error) {
	if i < ImpactLow || i > ImpactHigh {
		return nil, fmt.Errorf("%w: %d", ErrInvalidImpact, int(i))
	}
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (i *Impact) UnmarshalText(text []byte) error {
	parsed, err := ParseImpact(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

var (
	ErrInvalidImpact   = errors.New("invalid impact")
	ErrEmptyCatalog    = errors.New("catalog has no categories")
	ErrDuplicateName   = errors.New("duplicate category name")
	ErrInvalidCategory = errors.New("invalid category")
)

// Category is a named group of literal search terms sharing one impact weight
type Category struct {
	Name   string
	Terms  []string
	Impact Impact
}

// Catalog is an ordered, immutable set of keyword categories. Iteration order
// is the order the categories were given to New.
type Catalog struct {
	categories []Category
	index      map[string]int
}

// New validates the categories and builds a catalog. Terms are lower-cased and
// their whitespace collapsed to single spaces, the same shape as normalized
// page text; accents are kept as authored.
func New(categories ...Category) (*Catalog, error) {
	if len(categories) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		categories: make([]Category, 0, len(categories)),
		index:      make(map[string]int, len(categories)),
	}

	for _, cat := range categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrInvalidCategory)
		}
		if _, exists := c.index[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		if cat.Impact < ImpactLow || cat.Impact > ImpactHigh {
			return nil, fmt.Errorf("%w: category %s", ErrInvalidImpact, name)
		}

		terms := make([]string, 0, len(cat.Terms))
		for _, term := range cat.Terms {
			term = strings.ToLower(strings.Join(strings.Fields(term), " "))
			if term == "" {
				continue
			}
			terms = append(terms, term)
		}
		if len(terms) == 0 {
			return nil, fmt.Errorf("%w: category %s has no terms", ErrInvalidCategory, name)
		}

		c.index[name] = len(c.categories)
		c.categories = append(c.categories, Category{Name: name, Terms: terms, Impact: cat.Impact})
	}

	return c, nil
}

// MustNew is like New but panics on error. Intended for static catalogs.
func MustNew(categories ...Category) *Catalog {
	c, err := New(categories...)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of categories
func (c *Catalog) Len() int {
	return len(c.categories)
}

// Categories returns a copy of the categories in catalog order
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	for i, cat := range c.categories {
		out[i] = Category{
			Name:   cat.Name,
			Terms:  append([]string(nil), cat.Terms...),
			Impact: cat.Impact,
		}
	}
	return out
}

// Get looks up a category by name
func (c *Catalog) Get(name string) (Category, bool) {
	i, ok := c.index[name]
	if !ok {
		return Category{}, false
	}
	cat := c.categories[i]
	cat.Terms = append([]string(nil), cat.Terms...)
	return cat, true
}

// Each calls fn for every category in order without copying term slices.
// fn must not modify the terms.
func (c *Catalog) Each(fn func(Category)) {
	for _, cat := range c.categories {
		fn(cat)
	}
}
