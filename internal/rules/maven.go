package rules

import (
	"github.com/oxhq/quarkmig/internal/cursor"
	"github.com/oxhq/quarkmig/internal/gate"
	"github.com/oxhq/quarkmig/internal/lang/xml"
	"github.com/oxhq/quarkmig/internal/matcher"
	"github.com/oxhq/quarkmig/internal/recipe"
	"github.com/oxhq/quarkmig/internal/tree"
	"github.com/oxhq/quarkmig/internal/visitor"
)

const (
	quarkusPlatform = "io.quarkus.platform"
	quarkusPlugin   = "quarkus-maven-plugin"
)

// pluginGoals are the goals the Quarkus plugin must run for a build.
var pluginGoals = []string{"build", "generate-code", "generate-code-tests"}

// isProject reports whether n is the root <project> of a manifest.
func isProject(c *cursor.Cursor, n *tree.Node) bool {
	parent := c.ParentNode()
	return n.Name() == "project" && parent != nil && parent.Kind() == tree.KindDocument
}

// NewRemoveSpringBootParent drops the spring-boot-starter-parent POM.
func NewRemoveSpringBootParent() *recipe.Simple {
	parent := matcher.Tag("/project/parent").
		WithChild("groupId", "org.springframework.boot").
		WithChild("artifactId", "spring-boot-starter-parent")

	visit := func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		if parent.MatchesPath(c.Path()) {
			return nil, nil
		}
		return n, nil
	}

	return &recipe.Simple{
		ID:      "RemoveSpringBootParent",
		Summary: "Remove the Spring Boot starter parent POM",
		When:    gate.And(gate.IsManifest, gate.HasTag("/project/parent")),
		Visit:   visitor.New("RemoveSpringBootParent").On(visit, tree.KindTag),
	}
}

// NewAddQuarkusMavenPlugin adds quarkus-maven-plugin at the version of the
// imported Quarkus platform BOM. Manifests without the BOM, or that already
// declare the plugin, are left alone.
func NewAddQuarkusMavenPlugin() *recipe.Simple {
	visit := func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		if !isProject(c, n) {
			return n, nil
		}
		version, ok := xml.BOMVersion(c.Root().Node())
		if !ok {
			return n, nil
		}
		build := matcher.ChildTag(n, "build")
		plugins := xml.Path(build, "plugins")
		if plugins != nil {
			for _, p := range matcher.ChildTags(plugins, "plugin") {
				if xml.CoordinatesOf(p).ArtifactID == quarkusPlugin {
					return n, nil
				}
			}
		}

		unit := xml.IndentUnit(c.Root().Node())
		plugin := quarkusPluginTag(version, unit)
		switch {
		case plugins != nil:
			build = build.WithChild(build.IndexOf(plugins.ID()), xml.AppendChild(plugins, plugin, unit))
		case build != nil:
			build = xml.AppendChild(build, xml.Parent("plugins", unit, plugin), unit)
		default:
			return xml.AppendChild(n, xml.Parent("build", unit, xml.Parent("plugins", unit, plugin)), unit), nil
		}
		return n.WithChild(n.IndexOf(build.ID()), build), nil
	}

	return &recipe.Simple{
		ID:      "AddQuarkusMavenPlugin",
		Summary: "Add the Quarkus Maven plugin at the platform BOM version",
		When:    gate.And(gate.IsManifest, gate.HasTag("/project/dependencyManagement/dependencies/dependency")),
		Visit:   visitor.New("AddQuarkusMavenPlugin").On(visit, tree.KindTag),
	}
}

func quarkusPluginTag(version, unit string) *tree.Node {
	goals := make([]*tree.Node, len(pluginGoals))
	for i, g := range pluginGoals {
		goals[i] = xml.Element("goal", g)
	}
	return xml.Parent("plugin", unit,
		xml.Element("groupId", quarkusPlatform),
		xml.Element("artifactId", quarkusPlugin),
		xml.Element("version", version),
		xml.Element("extensions", "true"),
		xml.Parent("executions", unit,
			xml.Parent("execution", unit,
				xml.Parent("goals", unit, goals...),
			),
		),
	)
}
