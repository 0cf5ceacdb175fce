// Package catalog provides the built-in list of bright stars and Messier
// objects used for alignment and gotos.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/ScopeGo/internal/logic/coords"
)

//go:embed stars.yaml
var starsYAML []byte

//go:embed messier.yaml
var messierYAML []byte

// ErrUnknownObject is returned by Lookup for names not in the catalog.
var ErrUnknownObject = errors.New("unknown celestial object")

// Kind distinguishes catalog sections.
type Kind string

const (
	KindStar    Kind = "star"
	KindMessier Kind = "messier"
)

// Object is one catalog entry.
type Object struct {
	ID   string `yaml:"id" json:"id,omitempty"` // Messier number, empty for stars
	Name string `yaml:"name" json:"name"`
	RA   string `yaml:"ra" json:"ra"`
	Dec  string `yaml:"dec" json:"dec"`
	Kind Kind   `yaml:"-" json:"kind"`

	coord coords.Coordinate
}

// Label is the display name: "M42 Orion Nebula", "M2" or "Vega".
func (o Object) Label() string {
	switch {
	case o.ID == "":
		return o.Name
	case o.Name == "":
		return o.ID
	default:
		return o.ID + " " + o.Name
	}
}

// Coordinate returns the parsed position of the object in radians.
func (o Object) Coordinate() coords.Coordinate {
	return o.coord
}

// Catalog is an immutable, name-indexed set of objects.
type Catalog struct {
	stars   []Object
	messier []Object
	index   map[string]Object
}

// Load parses the embedded catalog files.
func Load() (*Catalog, error) {
	return parse(starsYAML, messierYAML)
}

func parse(starsData, messierData []byte) (*Catalog, error) {
	c := &Catalog{index: make(map[string]Object)}

	var err error
	if c.stars, err = c.section(starsData, KindStar); err != nil {
		return nil, err
	}
	if c.messier, err = c.section(messierData, KindMessier); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) section(data []byte, kind Kind) ([]Object, error) {
	var objs []Object
	if err := yaml.Unmarshal(data, &objs); err != nil {
		return nil, fmt.Errorf("parse %s catalog: %w", kind, err)
	}
	for i := range objs {
		o := &objs[i]
		o.Kind = kind
		coord, err := coords.Parse(o.RA, o.Dec)
		if err != nil {
			return nil, fmt.Errorf("%s catalog entry %q: %w", kind, o.Label(), err)
		}
		o.coord = coord

		for _, key := range []string{o.ID, o.Name, o.Label()} {
			if key == "" {
				continue
			}
			k := normalizeName(key)
			if prev, dup := c.index[k]; dup && prev.Label() != o.Label() {
				return nil, fmt.Errorf("%s catalog: duplicate name %q", kind, key)
			}
			c.index[k] = *o
		}
	}
	sort.SliceStable(objs, func(i, j int) bool { return objs[i].Label() < objs[j].Label() })
	return objs, nil
}

// Lookup finds an object by star name, Messier number or full label.
// Matching ignores case and surrounding spaces.
func (c *Catalog) Lookup(name string) (Object, error) {
	o, ok := c.index[normalizeName(name)]
	if !ok {
		return Object{}, fmt.Errorf("%w: %q", ErrUnknownObject, name)
	}
	return o, nil
}

// Stars returns the star list sorted by name.
func (c *Catalog) Stars() []Object {
	return append([]Object(nil), c.stars...)
}

// Messier returns the Messier list sorted by label.
func (c *Catalog) Messier() []Object {
	return append([]Object(nil), c.messier...)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
