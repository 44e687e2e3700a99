package rules

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oxhq/quarkmig/internal/lang/java"
)

//go:embed catalog.yaml
var catalogYAML []byte

// ErrInvalidCatalog marks a mapping table that cannot be used.
var ErrInvalidCatalog = errors.New("invalid rule catalog")

// Mapping replaces one name with another.
type Mapping struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// DependencyMapping names the Quarkus artifact that takes over the job of a
// Spring @EnableX annotation.
type DependencyMapping struct {
	Annotation string `yaml:"annotation"`
	Group      string `yaml:"group"`
	Artifact   string `yaml:"artifact"`
}

// WebTable drives the Spring MVC to JAX-RS conversion.
type WebTable struct {
	Controllers []string  `yaml:"controllers"`
	Dropped     []string  `yaml:"dropped"`
	Mapping     string    `yaml:"mapping"`
	Verbs       []Mapping `yaml:"verbs"`
	Methods     []Mapping `yaml:"methods"`
	Parameters  []Mapping `yaml:"parameters"`
}

// ResponseTable drives the ResponseEntity to JAX-RS Response conversion.
type ResponseTable struct {
	// Statuses maps HttpStatus constants to Response.Status constants.
	// status(...) calls with any other constant are left alone.
	Statuses []Mapping `yaml:"statuses"`
}

// Catalog holds the mapping tables the rules are built from.
type Catalog struct {
	Dependencies []DependencyMapping `yaml:"dependencies"`
	Stereotypes  []Mapping           `yaml:"stereotypes"`
	Web          WebTable            `yaml:"web"`
	Responses    ResponseTable       `yaml:"responses"`
	Classpath    []java.ClassInfo    `yaml:"classpath"`
}

// ParseCatalog decodes a catalog, rejecting unknown keys.
func ParseCatalog(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	for _, d := range c.Dependencies {
		if d.Annotation == "" || d.Group == "" || d.Artifact == "" {
			return fmt.Errorf("%w: incomplete dependency mapping %+v", ErrInvalidCatalog, d)
		}
	}
	tables := [][]Mapping{c.Stereotypes, c.Web.Verbs, c.Web.Methods, c.Web.Parameters, c.Responses.Statuses}
	for _, table := range tables {
		for _, m := range table {
			if m.From == "" || m.To == "" {
				return fmt.Errorf("%w: incomplete mapping %+v", ErrInvalidCatalog, m)
			}
		}
	}
	if c.Web.Mapping == "" {
		return fmt.Errorf("%w: web.mapping is required", ErrInvalidCatalog)
	}
	return nil
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
})

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// NewClasspath builds the name oracle for the catalog's types.
func (c *Catalog) NewClasspath() *java.Classpath {
	return java.NewClasspath(c.Classpath...)
}

func table(ms []Mapping) map[string]string {
	out := make(map[string]string, len(ms))
	for _, m := range ms {
		out[m.From] = m.To
	}
	return out
}
