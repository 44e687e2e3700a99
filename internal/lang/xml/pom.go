package xml

import (
	"regexp"

	"github.com/oxhq/quarkmig/internal/matcher"
	"github.com/oxhq/quarkmig/internal/tree"
)

// Coordinates identifies a Maven artifact.
type Coordinates struct {
	GroupID    string
	ArtifactID string
	Version    string
}

func (c Coordinates) String() string {
	s := c.GroupID + ":" + c.ArtifactID
	if c.Version != "" {
		s += ":" + c.Version
	}
	return s
}

// CoordinatesOf reads groupId, artifactId and version below tag.
func CoordinatesOf(tag *tree.Node) Coordinates {
	return Coordinates{
		GroupID:    matcher.TagValue(matcher.ChildTag(tag, "groupId")),
		ArtifactID: matcher.TagValue(matcher.ChildTag(tag, "artifactId")),
		Version:    matcher.TagValue(matcher.ChildTag(tag, "version")),
	}
}

// Dependency builds a <dependency> element without a version.
func Dependency(groupID, artifactID, unit string) *tree.Node {
	return Parent("dependency", unit,
		Element("groupId", groupID),
		Element("artifactId", artifactID),
	)
}

// Path follows child element names from tag, returning nil when a step is
// missing.
func Path(tag *tree.Node, names ...string) *tree.Node {
	for _, name := range names {
		if tag == nil {
			return nil
		}
		tag = matcher.ChildTag(tag, name)
	}
	return tag
}

// HasDependency reports whether the dependency list holds groupID:artifactID.
func HasDependency(dependencies *tree.Node, groupID, artifactID string) bool {
	if dependencies == nil {
		return false
	}
	for _, dep := range matcher.ChildTags(dependencies, "dependency") {
		c := CoordinatesOf(dep)
		if c.GroupID == groupID && c.ArtifactID == artifactID {
			return true
		}
	}
	return false
}

var propertyRef = regexp.MustCompile(`^\$\{([^}]+)\}$`)

// Property resolves a ${name} reference against the project's
// <properties>. Other values are returned as they are; an undefined
// property is returned unresolved.
func Property(project *tree.Node, value string) string {
	m := propertyRef.FindStringSubmatch(value)
	if m == nil {
		return value
	}
	if p := Path(project, "properties", m[1]); p != nil {
		if v := matcher.TagValue(p); v != "" {
			return v
		}
	}
	return value
}

// BOMVersion returns the version the manifest pins the Quarkus platform BOM
// to in dependencyManagement, with property references resolved.
func BOMVersion(doc *tree.Node) (string, bool) {
	project := Root(doc)
	deps := Path(project, "dependencyManagement", "dependencies")
	if deps == nil {
		return "", false
	}
	for _, dep := range matcher.ChildTags(deps, "dependency") {
		c := CoordinatesOf(dep)
		if c.ArtifactID != "quarkus-bom" {
			continue
		}
		if c.GroupID != "io.quarkus.platform" && c.GroupID != "io.quarkus" {
			continue
		}
		if c.Version == "" {
			return "", false
		}
		return Property(project, c.Version), true
	}
	return "", false
}
