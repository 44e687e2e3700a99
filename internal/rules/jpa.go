package rules

import (
	"github.com/oxhq/quarkmig/internal/cursor"
	"github.com/oxhq/quarkmig/internal/gate"
	"github.com/oxhq/quarkmig/internal/recipe"
	"github.com/oxhq/quarkmig/internal/tree"
	"github.com/oxhq/quarkmig/internal/visitor"
)

const panacheEntity = "io.quarkus.hibernate.orm.panache.PanacheEntity"

var (
	jpaEntities = []string{"jakarta.persistence.Entity", "javax.persistence.Entity"}
	jpaIDs      = []string{"jakarta.persistence.Id", "javax.persistence.Id"}
)

// NewJpaEntityToPanacheEntity makes JPA entities without a superclass
// extend PanacheEntity, which supplies the id. The entity's own @Id field
// named id goes, along with getId() and setId().
func NewJpaEntityToPanacheEntity() *recipe.Simple {
	visit := func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		if n.Syntax() != "class_declaration" || !hasAnyAnnotation(n, jpaEntities) {
			return n, nil
		}
		at := superclassIndex(n)
		if at < 0 {
			return n, nil
		}
		body := n.FirstChild(tree.KindBlock)
		if body == nil {
			return n, nil
		}
		bi := n.IndexOf(body.ID())
		n = n.WithChild(bi, dropEntityID(c, body))

		extends := tree.New(tree.KindOther, "superclass",
			tree.Token("", "extends"),
			tree.Leaf(tree.KindIdentifier, "type_identifier", " ", "PanacheEntity").
				WithType(&tree.Type{FQN: panacheEntity}),
		).WithPrefix(" ")
		c.Imports().Add(panacheEntity)
		return n.Insert(at, extends), nil
	}

	return &recipe.Simple{
		ID:      "JpaEntityToPanacheEntity",
		Summary: "Make JPA entities extend PanacheEntity and drop their id field",
		When:    gate.UsesAnyType(jpaEntities...),
		Visit:   visitor.New("JpaEntityToPanacheEntity").On(visit, tree.KindClassDecl),
	}
}

// superclassIndex returns where an extends clause goes in decl: after the
// name and any type parameters. It is -1 when decl already extends a class.
func superclassIndex(decl *tree.Node) int {
	at := -1
	for i, c := range decl.Children() {
		switch {
		case c.Syntax() == "superclass":
			return -1
		case c.Kind() == tree.KindIdentifier && c.Text() == decl.Name() && at < 0:
			at = i + 1
		case c.Syntax() == "type_parameters" && at == i:
			at = i + 1
		}
	}
	return at
}

// dropEntityID removes the @Id field named id and its accessors from an
// entity body.
func dropEntityID(c *cursor.Cursor, body *tree.Node) *tree.Node {
	for i := body.Len() - 1; i >= 0; i-- {
		m := body.Child(i)
		drop := false
		switch m.Kind() {
		case tree.KindField:
			drop = hasAnyAnnotation(m, jpaIDs) && declaresVariable(m, "id")
		case tree.KindMethodDecl:
			drop = isAccessor(m, "getId", 0) || isAccessor(m, "setId", 1)
		}
		if drop {
			forgetTypes(c, m)
			body = body.Remove(i)
		}
	}
	return body
}

func declaresVariable(field *tree.Node, name string) bool {
	for _, d := range field.Children() {
		if d.Syntax() != "variable_declarator" {
			continue
		}
		if id := d.FirstChild(tree.KindIdentifier); id != nil && id.Text() == name {
			return true
		}
	}
	return false
}

func isAccessor(decl *tree.Node, name string, params int) bool {
	if decl.Name() != name {
		return false
	}
	ps := decl.FirstChild(tree.KindParameters)
	return ps != nil && len(ps.ChildrenOf(tree.KindParameter)) == params
}

// forgetTypes asks for the imports of every type a removed subtree named.
func forgetTypes(c *cursor.Cursor, removed *tree.Node) {
	tree.Walk(removed, func(n *tree.Node) bool {
		if fqn := n.FQN(); fqn != "" && (n.Kind() == tree.KindIdentifier || n.Kind() == tree.KindQualifiedName || n.Kind() == tree.KindAnnotation) {
			c.Imports().Remove(fqn)
		}
		return true
	})
}

func hasAnyAnnotation(decl *tree.Node, fqns []string) bool {
	for _, fqn := range fqns {
		if hasAnnotation(decl, fqn) {
			return true
		}
	}
	return false
}
