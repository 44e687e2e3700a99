package java

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/quarkmig/internal/template"
	"github.com/oxhq/quarkmig/internal/tree"
)

const controller = `package com.example;

import org.springframework.boot.SpringApplication;
import org.springframework.web.bind.annotation.GetMapping;
import org.springframework.web.bind.annotation.*;

/* users */
@RestController
public class UserController extends BaseController implements Api {

    private final UserService users;

    @GetMapping("/users")
    public List<String> list(@PathVariable("id") String id, int limit) {
        return users.findAll(id, limit);
    }

    public static void main(String[] args) {
        SpringApplication.run(UserController.class, args);
        this.helper();
    }

    void helper() {}
}
`

func testClasspath() *Classpath {
	return NewClasspath(
		ClassInfo{FQN: "org.springframework.web.bind.annotation.RestController"},
		ClassInfo{FQN: "org.springframework.web.bind.annotation.PathVariable"},
		ClassInfo{FQN: "com.example.BaseController", Supertypes: []string{"com.example.Root"}},
	)
}

func parse(t *testing.T, src string) *tree.Node {
	t.Helper()
	unit, err := NewParser(testClasspath()).Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	return unit
}

func find(root *tree.Node, kind tree.Kind, name string) *tree.Node {
	return tree.Find(root, func(n *tree.Node) bool {
		return n.Kind() == kind && n.Name() == name
	})
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "controller", src: controller},
		{name: "leading whitespace", src: "\n\n  class A {}\n"},
		{name: "no trailing newline", src: "class A { int x = 1; }"},
		{name: "comments", src: "// head\nclass A {\n  /** doc */\n  void f() { /* in */ }\n}\n"},
		{name: "strings", src: "class A { String s = \"a \\\" b\"; char c = 'x'; String t = \"\"\"\n  block\n  \"\"\"; }\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit := parse(t, tt.src)
			assert.Equal(t, tree.KindCompilationUnit, unit.Kind())
			assert.Equal(t, tt.src, unit.String())
		})
	}
}

func TestSyntaxError(t *testing.T) {
	_, err := NewParser(nil).Parse(context.Background(), []byte("class {"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntax)
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Line)
}

func TestNames(t *testing.T) {
	unit := parse(t, controller)

	var imports []string
	for _, imp := range unit.ChildrenOf(tree.KindImport) {
		imports = append(imports, imp.Name())
	}
	assert.Equal(t, []string{
		"org.springframework.boot.SpringApplication",
		"org.springframework.web.bind.annotation.GetMapping",
		"org.springframework.web.bind.annotation.*",
	}, imports)
	assert.Equal(t, "com.example", unit.FirstChild(tree.KindPackage).Name())

	require.NotNil(t, find(unit, tree.KindClassDecl, "UserController"))
	require.NotNil(t, find(unit, tree.KindMethodDecl, "list"))
	require.NotNil(t, find(unit, tree.KindParameter, "limit"))
	require.NotNil(t, find(unit, tree.KindField, "users"))
	require.NotNil(t, find(unit, tree.KindMethodCall, "findAll"))
}

func TestModifiersHoldAnnotations(t *testing.T) {
	unit := parse(t, controller)
	method := find(unit, tree.KindMethodDecl, "list")
	mods := method.FirstChild(tree.KindModifiers)
	require.NotNil(t, mods)
	require.Equal(t, 2, mods.Len())
	assert.Equal(t, tree.KindAnnotation, mods.Child(0).Kind())
	assert.Equal(t, "", mods.Child(0).Prefix())
	assert.Equal(t, tree.KindModifier, mods.Child(1).Kind())
	assert.Equal(t, "\n    ", mods.Child(1).Prefix())
	assert.Equal(t, "\n\n    ", method.Prefix())
}

func TestResolution(t *testing.T) {
	unit := parse(t, controller)

	tests := []struct {
		name string
		fqn  string
	}{
		{name: "RestController", fqn: "org.springframework.web.bind.annotation.RestController"},
		{name: "GetMapping", fqn: "org.springframework.web.bind.annotation.GetMapping"},
		{name: "PathVariable", fqn: "org.springframework.web.bind.annotation.PathVariable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ann := find(unit, tree.KindAnnotation, tt.name)
			require.NotNil(t, ann)
			assert.Equal(t, tt.fqn, ann.FQN())
			assert.Equal(t, tt.fqn, ann.Child(1).FQN())
		})
	}

	class := find(unit, tree.KindClassDecl, "UserController")
	assert.Equal(t, "com.example.UserController", class.FQN())
	assert.Equal(t, []string{"com.example.BaseController", "Api", "com.example.Root"}, class.Type().Supertypes)

	str := tree.Find(unit, func(n *tree.Node) bool {
		return n.Kind() == tree.KindIdentifier && n.Text() == "String"
	})
	require.NotNil(t, str)
	assert.Equal(t, "java.lang.String", str.FQN())

	unresolved := tree.Find(unit, func(n *tree.Node) bool {
		return n.Kind() == tree.KindIdentifier && n.Text() == "UserService"
	})
	require.NotNil(t, unresolved)
	assert.Nil(t, unresolved.Type())

	lit := tree.Find(unit, tree.OfKind(tree.KindLiteral))
	assert.Equal(t, "java.lang.String", lit.FQN())
}

func TestMethodMetadata(t *testing.T) {
	unit := parse(t, controller)

	list := find(unit, tree.KindMethodDecl, "list")
	require.NotNil(t, list.Type().Method)
	assert.Equal(t, "com.example.UserController", list.Type().Method.Declaring)
	assert.Equal(t, []string{"java.lang.String", "int"}, list.Type().Method.Params)
	assert.Contains(t, list.Type().Method.DeclaringSupertypes, "com.example.BaseController")

	run := find(unit, tree.KindMethodCall, "run")
	require.NotNil(t, run.Type())
	m := run.Type().Method
	assert.Equal(t, "org.springframework.boot.SpringApplication", m.Declaring)
	assert.Equal(t, []string{"java.lang.Class", "java.lang.String[]"}, m.Params)

	helper := find(unit, tree.KindMethodCall, "helper")
	require.NotNil(t, helper.Type())
	assert.Equal(t, "com.example.UserController", helper.Type().Method.Declaring)
	assert.Empty(t, helper.Type().Method.Params)

	// The receiver's type is not on the classpath.
	findAll := find(unit, tree.KindMethodCall, "findAll")
	assert.Nil(t, findAll.Type())

	main := find(unit, tree.KindMethodDecl, "main")
	assert.Equal(t, []string{"java.lang.String[]"}, main.Type().Method.Params)
	assert.Equal(t, "void", main.FQN())
}

func TestParseFragment(t *testing.T) {
	p := NewParser(testClasspath())
	file := parse(t, controller)

	tests := []struct {
		name   string
		req    template.Request
		kind   tree.Kind
		source string
		fqn    string
	}{
		{
			name:   "annotation",
			req:    template.Request{Source: `@Path("/users")`, Context: template.Annotation, Imports: []string{"jakarta.ws.rs.Path"}},
			kind:   tree.KindAnnotation,
			source: `@Path("/users")`,
			fqn:    "jakarta.ws.rs.Path",
		},
		{
			name:   "annotation resolved through file imports",
			req:    template.Request{Source: `@GetMapping`, Context: template.Annotation, File: file},
			kind:   tree.KindAnnotation,
			source: `@GetMapping`,
			fqn:    "org.springframework.web.bind.annotation.GetMapping",
		},
		{
			name:   "expression",
			req:    template.Request{Source: `Quarkus.run(args)`, Context: template.Expression, Imports: []string{"io.quarkus.runtime.Quarkus"}},
			kind:   tree.KindMethodCall,
			source: `Quarkus.run(args)`,
		},
		{
			name:   "statement",
			req:    template.Request{Source: `return 1;`, Context: template.Statement},
			kind:   tree.KindStatement,
			source: `return 1;`,
		},
		{
			name:   "member",
			req:    template.Request{Source: `private int x;`, Context: template.ClassMember},
			kind:   tree.KindField,
			source: `private int x;`,
		},
		{
			name:   "parameter",
			req:    template.Request{Source: `@Observes MyEvent e`, Context: template.Parameter, Imports: []string{"jakarta.enterprise.event.Observes"}},
			kind:   tree.KindParameter,
			source: `@Observes MyEvent e`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := p.ParseFragment(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, n.Kind())
			assert.Equal(t, "", n.Prefix())
			assert.Equal(t, tt.source, n.Source())
			if tt.fqn != "" {
				assert.Equal(t, tt.fqn, n.FQN())
			}
		})
	}
}

func TestFragmentCache(t *testing.T) {
	p := NewParser(nil, WithFragmentCache(4))
	req := template.Request{Source: `@Inject`, Context: template.Annotation, Imports: []string{"jakarta.inject.Inject"}}

	first, err := p.ParseFragment(req)
	require.NoError(t, err)
	second, err := p.ParseFragment(req)
	require.NoError(t, err)

	assert.Equal(t, 1, p.CachedFragments())
	assert.True(t, tree.Equal(first, second))
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestFragmentErrors(t *testing.T) {
	p := NewParser(nil)
	_, err := p.ParseFragment(template.Request{Source: `@@`, Context: template.Annotation})
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = p.ParseFragment(template.Request{Source: `<a/>`, Context: template.Tag})
	assert.Error(t, err)
}

func TestClasspathSupertypes(t *testing.T) {
	cp := NewClasspath(
		ClassInfo{FQN: "a.C", Supertypes: []string{"a.B"}},
		ClassInfo{FQN: "a.B", Supertypes: []string{"a.A", "a.I"}},
		ClassInfo{FQN: "a.A", Supertypes: []string{"a.I"}},
	)
	assert.Equal(t, []string{"a.B", "a.A", "a.I"}, cp.Supertypes("a.C"))
	assert.Equal(t, []string{"x.Y", "a.B", "a.A", "a.I"}, cp.Supertypes("a.C", "x.Y"))
	assert.True(t, cp.Has("java.lang.String"))
	assert.False(t, cp.Has("a.Missing"))
	fqn, ok := cp.Lookup("a", "B")
	assert.True(t, ok)
	assert.Equal(t, "a.B", fqn)
}
