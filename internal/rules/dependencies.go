package rules

import (
	"cmp"
	"slices"

	"github.com/oxhq/quarkmig/internal/cursor"
	"github.com/oxhq/quarkmig/internal/lang/xml"
	"github.com/oxhq/quarkmig/internal/matcher"
	"github.com/oxhq/quarkmig/internal/recipe"
	"github.com/oxhq/quarkmig/internal/scan"
	"github.com/oxhq/quarkmig/internal/tree"
	"github.com/oxhq/quarkmig/internal/visitor"
)

// EnableAnnotationsToDependencies replaces Spring @EnableX annotations with
// the Quarkus extension providing the same feature. Every source is scanned
// first; the manifest then gains one dependency per distinct extension
// found anywhere in the project.
type EnableAnnotationsToDependencies struct {
	byAnnotation map[string]DependencyMapping
}

// NewEnableAnnotationsToDependencies builds the rule from the catalog's
// dependency table.
func NewEnableAnnotationsToDependencies(cat *Catalog) *EnableAnnotationsToDependencies {
	r := &EnableAnnotationsToDependencies{byAnnotation: make(map[string]DependencyMapping, len(cat.Dependencies))}
	for _, d := range cat.Dependencies {
		r.byAnnotation[d.Annotation] = d
	}
	return r
}

func (r *EnableAnnotationsToDependencies) Name() string { return "EnableAnnotationsToDependencies" }
func (r *EnableAnnotationsToDependencies) Description() string {
	return "Replace Spring @EnableX annotations with the matching Quarkus extension dependency"
}

func (r *EnableAnnotationsToDependencies) Scanner() recipe.Scanner {
	return &enableScanner{
		rule: r,
		acc:  scan.New[string, DependencyMapping](),
	}
}

// enableScanner records annotation FQN -> dependency for every @EnableX
// applied anywhere in the project.
type enableScanner struct {
	rule *EnableAnnotationsToDependencies
	acc  *scan.Accumulator[string, DependencyMapping]
	snap *scan.Snapshot[string, DependencyMapping]
}

func (s *enableScanner) Scan(f *recipe.File) error {
	if f.Language != recipe.Java {
		return nil
	}
	var err error
	tree.Walk(f.Tree, func(n *tree.Node) bool {
		if err != nil {
			return false
		}
		if n.Kind() != tree.KindAnnotation {
			return true
		}
		if d, ok := s.rule.byAnnotation[n.FQN()]; ok {
			err = s.acc.Put(n.FQN(), d)
		}
		return true
	})
	return err
}

func (s *enableScanner) Freeze() (err error) {
	s.snap, err = s.acc.Freeze()
	return err
}

func (s *enableScanner) Close() error { return s.acc.Close() }

func (s *enableScanner) Transformer(f *recipe.File) *visitor.Visitor {
	if s.snap.Empty() {
		return nil
	}
	switch f.Language {
	case recipe.Java:
		return visitor.New("remove-enable-annotations").On(s.removeAnnotation, tree.KindAnnotation)
	case recipe.Manifest:
		return visitor.New("add-extension-dependencies").On(s.addDependencies, tree.KindTag)
	}
	return nil
}

func (s *enableScanner) removeAnnotation(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	if !s.snap.Has(n.FQN()) {
		return n, nil
	}
	c.Imports().Remove(n.FQN())
	return nil, nil
}

// artifacts returns the distinct dependencies found, sorted by artifact.
func (s *enableScanner) artifacts() []DependencyMapping {
	deps := s.snap.Values(func(a, b DependencyMapping) bool {
		return a.Group == b.Group && a.Artifact == b.Artifact
	})
	slices.SortFunc(deps, func(a, b DependencyMapping) int {
		return cmp.Compare(a.Group+":"+a.Artifact, b.Group+":"+b.Artifact)
	})
	return deps
}

func (s *enableScanner) addDependencies(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	if !isProject(c, n) {
		return n, nil
	}
	unit := xml.IndentUnit(c.Root().Node())
	deps := matcher.ChildTag(n, "dependencies")
	created := deps == nil
	if created {
		deps = xml.Parent("dependencies", unit)
	}
	added := false
	for _, d := range s.artifacts() {
		if xml.HasDependency(deps, d.Group, d.Artifact) {
			continue
		}
		deps = xml.AppendChild(deps, xml.Dependency(d.Group, d.Artifact, unit), unit)
		added = true
	}
	if !added {
		return n, nil
	}
	if !created {
		return n.WithChild(n.IndexOf(deps.ID()), deps), nil
	}
	if dm := matcher.ChildTag(n, "dependencyManagement"); dm != nil {
		return xml.InsertAfter(n, dm, deps), nil
	}
	return xml.AppendChild(n, deps, unit), nil
}
