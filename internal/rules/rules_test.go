package rules

import (
	"context"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/quarkmig/internal/lang/java"
	"github.com/oxhq/quarkmig/internal/recipe"
)

// project maps slash separated paths to file contents.
type project map[string]string

func newParser() *java.Parser { return java.NewParser(Default().NewClasspath()) }

func parseProject(t *testing.T, jp *java.Parser, files project) []*recipe.File {
	t.Helper()
	var parsed []*recipe.File
	for _, p := range slices.Sorted(maps.Keys(files)) {
		f, err := recipe.Parse(context.Background(), jp, p, []byte(files[p]))
		require.NoError(t, err, p)
		parsed = append(parsed, f)
	}
	return parsed
}

// migrateWith runs the named built-in rules, or all of them, over files.
func migrateWith(t *testing.T, files project, opts recipe.Options, names ...string) map[string]*recipe.Outcome {
	t.Helper()
	jp := newParser()
	reg, err := Builtin(Default(), jp)
	require.NoError(t, err)
	rules, err := reg.Select(names)
	require.NoError(t, err)

	outcomes, err := recipe.Apply(context.Background(), rules, parseProject(t, jp, files), opts)
	require.NoError(t, err)
	out := make(map[string]*recipe.Outcome, len(outcomes))
	for _, o := range outcomes {
		require.Empty(t, o.Errors, "%s: %v", o.Path, o.Errors)
		out[o.Path] = o
	}
	return out
}

func migrate(t *testing.T, files project, names ...string) map[string]*recipe.Outcome {
	t.Helper()
	return migrateWith(t, files, recipe.Options{Workers: 2}, names...)
}

// migrated returns the printed result of every file.
func migrated(t *testing.T, files project, names ...string) project {
	t.Helper()
	out := project{}
	for p, o := range migrate(t, files, names...) {
		out[p] = o.Tree.String()
	}
	return out
}

func TestParseCatalog(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "minimal",
			yaml: "web:\n  mapping: org.example.Mapping\n",
		},
		{
			name:    "unknown key",
			yaml:    "web:\n  mapping: org.example.Mapping\nextras: true\n",
			wantErr: true,
		},
		{
			name:    "missing mapping",
			yaml:    "stereotypes: []\n",
			wantErr: true,
		},
		{
			name: "incomplete dependency",
			yaml: `
dependencies:
  - annotation: org.example.EnableThing
    group: io.quarkus
web:
  mapping: org.example.Mapping
`,
			wantErr: true,
		},
		{
			name: "incomplete stereotype",
			yaml: `
stereotypes:
  - from: org.example.Service
web:
  mapping: org.example.Mapping
`,
			wantErr: true,
		},
		{
			name: "incomplete status mapping",
			yaml: `
responses:
  statuses:
    - to: CONFLICT
web:
  mapping: org.example.Mapping
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCatalog([]byte(tt.yaml))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCatalog)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "org.example.Mapping", c.Web.Mapping)
		})
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	assert.Len(t, c.Dependencies, 5)
	assert.Same(t, c, Default())

	cp := c.NewClasspath()
	assert.True(t, cp.Has("org.springframework.web.bind.annotation.GetMapping"))
	assert.True(t, cp.Has("jakarta.ws.rs.Path"))
	assert.True(t, cp.Has("org.springframework.boot.actuate.health.HealthIndicator"))
	assert.Contains(t, table(c.Responses.Statuses), "PAYLOAD_TOO_LARGE")
	assert.Contains(t, cp.Supertypes("org.springframework.context.event.ContextRefreshedEvent"),
		"org.springframework.context.ApplicationEvent")
}

func TestBuiltinOrder(t *testing.T) {
	reg, err := Builtin(Default(), newParser())
	require.NoError(t, err)

	var names []string
	for _, r := range reg.List() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{
		"EnableAnnotationsToDependencies",
		"SpringWebToJaxRs",
		"ResponseEntityToJaxRsResponse",
		"SpringValueToConfigProperty",
		"SpringApplicationRunToQuarkusRun",
		"RemoveSpringBootApplication",
		"EventListenerToObserves",
		"SpringBeanToCdiProduces",
		"StereotypesToCdi",
		"JpaEntityToPanacheEntity",
		"SpringHealthIndicatorToQuarkus",
		"RemoveSpringBootParent",
		"AddQuarkusMavenPlugin",
	}, names)

	for _, r := range reg.List() {
		assert.NotEmpty(t, r.Description(), r.Name())
	}
}

func TestRegistrySelect(t *testing.T) {
	reg, err := Builtin(Default(), newParser())
	require.NoError(t, err)

	t.Run("all", func(t *testing.T) {
		rules, err := reg.Select(nil)
		require.NoError(t, err)
		assert.Len(t, rules, 13)
	})

	t.Run("registration order and case", func(t *testing.T) {
		rules, err := reg.Select([]string{"stereotypestocdi", " SpringWebToJaxRs ", ""})
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, "SpringWebToJaxRs", rules[0].Name())
		assert.Equal(t, "StereotypesToCdi", rules[1].Name())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := reg.Select([]string{"SpringWebToJaxRs", "NoSuchRule", "Other"})
		require.ErrorIs(t, err, ErrUnknownRule)
		assert.Contains(t, err.Error(), "NoSuchRule, Other")
	})
}

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewRemoveSpringBootParent()))

	err := reg.Register(NewRemoveSpringBootParent())
	assert.ErrorIs(t, err, ErrDuplicateRule)

	assert.Error(t, reg.Register(nil))
	var missing *recipe.Simple
	assert.Error(t, reg.Register(missing))
	assert.Error(t, reg.Register(&recipe.Simple{}))

	r, ok := reg.Get("removespringbootparent")
	require.True(t, ok)
	assert.Equal(t, "RemoveSpringBootParent", r.Name())
}
