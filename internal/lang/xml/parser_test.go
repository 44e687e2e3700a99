package xml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/quarkmig/internal/matcher"
	"github.com/oxhq/quarkmig/internal/template"
	"github.com/oxhq/quarkmig/internal/tree"
)

const pom = `<?xml version="1.0" encoding="UTF-8"?>
<!-- demo -->
<project xmlns="http://maven.apache.org/POM/4.0.0">
    <modelVersion>4.0.0</modelVersion>
    <properties>
        <quarkus.platform.version>3.17.0</quarkus.platform.version>
        <skip/>
    </properties>
    <description><![CDATA[a <b> c]]></description>
    <name>a &amp; b</name>
    <dependencyManagement>
        <dependencies>
            <dependency>
                <groupId>io.quarkus.platform</groupId>
                <artifactId>quarkus-bom</artifactId>
                <version>${quarkus.platform.version}</version>
                <type>pom</type>
                <scope>import</scope>
            </dependency>
        </dependencies>
    </dependencyManagement>
</project>
`

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "pom", src: pom},
		{name: "no prolog", src: "<a><b>x</b></a>"},
		{name: "self closing", src: "<a>\n  <b/>\n  <c attr='1' />\n</a>\n\n"},
		{name: "leading text space", src: "<a>  x  </a>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tree.KindDocument, doc.Kind())
			assert.Equal(t, tt.src, doc.String())
		})
	}
}

func TestStructure(t *testing.T) {
	doc, err := Parse([]byte(pom))
	require.NoError(t, err)

	kinds := []tree.Kind{}
	for _, c := range doc.Children() {
		kinds = append(kinds, c.Kind())
	}
	assert.Equal(t, []tree.Kind{tree.KindProcInst, tree.KindXMLComment, tree.KindTag, tree.KindEOF}, kinds)

	project := Root(doc)
	require.NotNil(t, project)
	assert.Equal(t, "project", project.Name())
	ns, ok := Attr(project, "xmlns")
	assert.True(t, ok)
	assert.Equal(t, "http://maven.apache.org/POM/4.0.0", ns)

	assert.Equal(t, "a & b", matcher.TagValue(Path(project, "name")))
	assert.Equal(t, "a <b> c", matcher.TagValue(Path(project, "description")))
	skip := Path(project, "properties", "skip")
	require.NotNil(t, skip)
	assert.Equal(t, 1, skip.Len())
	assert.Equal(t, EmptyTag, skip.Child(0).Syntax())
}

func TestMalformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "crossed tags", src: "<a><b></a></b>"},
		{name: "unclosed", src: "<a><b></b>"},
		{name: "garbage", src: "<a <"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestAppendChild(t *testing.T) {
	src := "<project>\n    <dependencies>\n    </dependencies>\n</project>\n"
	doc, err := Parse([]byte(src))
	require.NoError(t, err)
	deps := Path(Root(doc), "dependencies")

	grown := AppendChild(deps, Dependency("io.quarkus", "quarkus-cache", IndentUnit(doc)), IndentUnit(doc))
	out := tree.Replace(doc, deps.ID(), grown)
	assert.Equal(t, `<project>
    <dependencies>
        <dependency>
            <groupId>io.quarkus</groupId>
            <artifactId>quarkus-cache</artifactId>
        </dependency>
    </dependencies>
</project>
`, out.String())

	again := AppendChild(grown, Dependency("io.quarkus", "quarkus-scheduler", "    "), "    ")
	assert.Contains(t, tree.Replace(doc, deps.ID(), again).String(), `        </dependency>
        <dependency>
            <groupId>io.quarkus</groupId>
            <artifactId>quarkus-scheduler</artifactId>
        </dependency>
    </dependencies>`)
	assert.True(t, HasDependency(again, "io.quarkus", "quarkus-scheduler"))
	assert.False(t, HasDependency(again, "io.quarkus", "quarkus-arc"))
}

func TestAppendChildExpandsEmptyTag(t *testing.T) {
	doc, err := Parse([]byte("<a><b /></a>"))
	require.NoError(t, err)
	b := Path(Root(doc), "b")
	out := tree.Replace(doc, b.ID(), AppendChild(b, Element("c", "x"), "  "))
	assert.Equal(t, "<a><b>\n  <c>x</c>\n</b></a>", out.String())
}

func TestInsertAfterAndBefore(t *testing.T) {
	src := "<project>\n  <a>1</a>\n\n  <b>2</b>\n</project>"
	doc, err := Parse([]byte(src))
	require.NoError(t, err)
	project := Root(doc)
	a, b := Path(project, "a"), Path(project, "b")

	after := InsertAfter(project, a, Parent("x", "  ", Element("y", "")))
	assert.Equal(t, "<project>\n  <a>1</a>\n  <x>\n    <y></y>\n  </x>\n\n  <b>2</b>\n</project>", after.String())

	before := InsertBefore(project, b, Element("z", "3"))
	assert.Equal(t, "<project>\n  <a>1</a>\n\n  <z>3</z>\n  <b>2</b>\n</project>", before.String())
}

func TestIndentUnit(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{src: "<p>\n  <a/>\n</p>", want: "  "},
		{src: "<p>\n\t<a/>\n</p>", want: "\t"},
		{src: "<p><a/></p>", want: DefaultIndent},
	}
	for _, tt := range tests {
		doc, err := Parse([]byte(tt.src))
		require.NoError(t, err)
		assert.Equal(t, tt.want, IndentUnit(doc), tt.src)
	}
}

func TestBOMVersion(t *testing.T) {
	doc, err := Parse([]byte(pom))
	require.NoError(t, err)
	v, ok := BOMVersion(doc)
	assert.True(t, ok)
	assert.Equal(t, "3.17.0", v)

	bare, err := Parse([]byte("<project><modelVersion>4.0.0</modelVersion></project>"))
	require.NoError(t, err)
	_, ok = BOMVersion(bare)
	assert.False(t, ok)

	literal, err := Parse([]byte(`<project><dependencyManagement><dependencies><dependency>
<groupId>io.quarkus.platform</groupId><artifactId>quarkus-bom</artifactId><version>${missing}</version>
</dependency></dependencies></dependencyManagement></project>`))
	require.NoError(t, err)
	v, ok = BOMVersion(literal)
	assert.True(t, ok)
	assert.Equal(t, "${missing}", v)
}

func TestElementEscapes(t *testing.T) {
	assert.Equal(t, "<v>a&amp;b</v>", Element("v", "a&b").String())
	assert.Equal(t, "<v></v>", Element("v", "").String())
	assert.Equal(t, "io.quarkus:quarkus-cache", Coordinates{GroupID: "io.quarkus", ArtifactID: "quarkus-cache"}.String())
}

func TestTemplateReplacesTag(t *testing.T) {
	doc, err := Parse([]byte(pom))
	require.NoError(t, err)
	version := Path(Root(doc), "properties", "quarkus.platform.version")
	require.NotNil(t, version)

	bump := Template("<quarkus.platform.version>#{}</quarkus.platform.version>")
	out, err := bump.Apply(nil, template.Replace(version), "3.18.1")
	require.NoError(t, err)
	assert.Equal(t, "<quarkus.platform.version>3.18.1</quarkus.platform.version>", strings.TrimSpace(out.String()))
	assert.Equal(t, version.Prefix(), out.Prefix())

	same, err := bump.Apply(nil, template.Replace(version), "3.17.0")
	require.NoError(t, err)
	assert.Same(t, version, same)

	_, err = Template("<a/>").Context(template.Annotation).Apply(nil, template.Replace(version))
	assert.ErrorIs(t, err, template.ErrSynthesis)
}

const managedPOM = `<project>
    <dependencies>
        <dependency>
            <groupId>io.quarkus</groupId>
            <artifactId>quarkus-arc</artifactId>
        </dependency>
    </dependencies>
    <build>
        <plugins>
            <plugin>
                <groupId>io.quarkus.platform</groupId>
                <artifactId>quarkus-maven-plugin</artifactId>
            </plugin>
        </plugins>
    </build>
</project>
`

func TestVersionlessCoordinates(t *testing.T) {
	doc, err := Parse([]byte(managedPOM))
	require.NoError(t, err)
	project := Root(doc)

	deps := Path(project, "dependencies")
	require.NotNil(t, deps)
	assert.True(t, HasDependency(deps, "io.quarkus", "quarkus-arc"))
	assert.False(t, HasDependency(deps, "io.quarkus", "quarkus-scheduler"))
	assert.Equal(t, Coordinates{GroupID: "io.quarkus", ArtifactID: "quarkus-arc"}, CoordinatesOf(Path(deps, "dependency")))

	plugin := Path(project, "build", "plugins", "plugin")
	require.NotNil(t, plugin)
	c := CoordinatesOf(plugin)
	assert.Equal(t, "quarkus-maven-plugin", c.ArtifactID)
	assert.Empty(t, c.Version)
	assert.Equal(t, Coordinates{}, CoordinatesOf(nil))

	_, ok := BOMVersion(doc)
	assert.False(t, ok)
}
