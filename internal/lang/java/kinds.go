package java

import (
	"strings"

	"github.com/oxhq/quarkmig/internal/tree"
)

var kindBySyntax = map[string]tree.Kind{
	"program":                     tree.KindCompilationUnit,
	"package_declaration":         tree.KindPackage,
	"import_declaration":          tree.KindImport,
	"class_declaration":           tree.KindClassDecl,
	"interface_declaration":       tree.KindClassDecl,
	"enum_declaration":            tree.KindClassDecl,
	"record_declaration":          tree.KindClassDecl,
	"annotation_type_declaration": tree.KindClassDecl,
	"method_declaration":          tree.KindMethodDecl,
	"constructor_declaration":     tree.KindMethodDecl,
	"formal_parameters":           tree.KindParameters,
	"formal_parameter":            tree.KindParameter,
	"spread_parameter":            tree.KindParameter,
	"field_declaration":           tree.KindField,
	"constant_declaration":        tree.KindField,
	"local_variable_declaration":  tree.KindVariable,
	"block":                       tree.KindBlock,
	"class_body":                  tree.KindBlock,
	"interface_body":              tree.KindBlock,
	"enum_body":                   tree.KindBlock,
	"annotation_type_body":        tree.KindBlock,
	"constructor_body":            tree.KindBlock,
	"switch_block":                tree.KindBlock,
	"modifiers":                   tree.KindModifiers,
	"annotation":                  tree.KindAnnotation,
	"marker_annotation":           tree.KindAnnotation,
	"annotation_argument_list":    tree.KindArguments,
	"argument_list":               tree.KindArguments,
	"element_value_pair":          tree.KindAssignment,
	"assignment_expression":       tree.KindAssignment,
	"method_invocation":           tree.KindMethodCall,
	"field_access":                tree.KindFieldAccess,
	"identifier":                  tree.KindIdentifier,
	"type_identifier":             tree.KindIdentifier,
	"scoped_identifier":           tree.KindQualifiedName,
	"scoped_type_identifier":      tree.KindQualifiedName,
	"generic_type":                tree.KindTypeRef,
	"array_type":                  tree.KindTypeRef,
	"integral_type":               tree.KindTypeRef,
	"floating_point_type":         tree.KindTypeRef,
	"boolean_type":                tree.KindTypeRef,
	"void_type":                   tree.KindTypeRef,
	"class_literal":               tree.KindClassLiteral,
	"line_comment":                tree.KindComment,
	"block_comment":               tree.KindComment,
	"comment":                     tree.KindComment,
}

// literalTypes maps literal syntax to the type of its value.
var literalTypes = map[string]string{
	"decimal_integer_literal":        "int",
	"hex_integer_literal":            "int",
	"octal_integer_literal":          "int",
	"binary_integer_literal":         "int",
	"decimal_floating_point_literal": "double",
	"hex_floating_point_literal":     "double",
	"string_literal":                 "java.lang.String",
	"text_block":                     "java.lang.String",
	"character_literal":              "char",
	"true":                           "boolean",
	"false":                          "boolean",
	"null_literal":                   "null",
}

// collapsed syntax is kept as a single leaf even where the grammar has
// children, so its text can be compared and resolved as one name.
var collapsed = map[string]bool{
	"string_literal":         true,
	"character_literal":      true,
	"text_block":             true,
	"integral_type":          true,
	"floating_point_type":    true,
	"boolean_type":           true,
	"scoped_identifier":      true,
	"scoped_type_identifier": true,
}

func kindOf(syntax string, named bool, parent string) tree.Kind {
	if k, ok := kindBySyntax[syntax]; ok {
		return k
	}
	if _, ok := literalTypes[syntax]; ok {
		return tree.KindLiteral
	}
	if strings.HasSuffix(syntax, "_statement") {
		return tree.KindStatement
	}
	if !named {
		if parent == "modifiers" {
			return tree.KindModifier
		}
		return tree.KindToken
	}
	return tree.KindOther
}

// literalType returns the value type of a literal leaf.
func literalType(n *tree.Node) string {
	typ := literalTypes[n.Syntax()]
	text := n.Text()
	switch {
	case typ == "int" && strings.HasSuffix(strings.ToLower(text), "l"):
		return "long"
	case typ == "double" && strings.HasSuffix(strings.ToLower(text), "f"):
		return "float"
	}
	return typ
}

// nameOf derives the declared or referenced name of a converted node.
func nameOf(kind tree.Kind, children []*tree.Node) string {
	switch kind {
	case tree.KindClassDecl, tree.KindMethodDecl:
		if id := firstSyntax(children, "identifier"); id != nil {
			return id.Text()
		}
	case tree.KindParameter:
		for i := len(children) - 1; i >= 0; i-- {
			switch c := children[i]; c.Syntax() {
			case "identifier":
				return c.Text()
			case "variable_declarator":
				if id := firstSyntax(c.Children(), "identifier"); id != nil {
					return id.Text()
				}
			}
		}
	case tree.KindField, tree.KindVariable:
		if d := firstSyntax(children, "variable_declarator"); d != nil {
			if id := firstSyntax(d.Children(), "identifier"); id != nil {
				return id.Text()
			}
		}
	case tree.KindAnnotation:
		if len(children) > 1 {
			return compact(children[1].Text())
		}
	case tree.KindMethodCall:
		name := ""
		for _, c := range children {
			if c.Kind() == tree.KindArguments {
				break
			}
			if c.Syntax() == "identifier" {
				name = c.Text()
			}
		}
		return name
	case tree.KindImport:
		var b strings.Builder
		for _, c := range children {
			switch c.Syntax() {
			case "import", "static", ";":
				continue
			}
			if c.Kind() != tree.KindComment {
				b.WriteString(c.String())
			}
		}
		return compact(b.String())
	case tree.KindPackage:
		for _, c := range children {
			if c.Kind() == tree.KindIdentifier || c.Kind() == tree.KindQualifiedName {
				return compact(c.Text())
			}
		}
	}
	return ""
}

func firstSyntax(children []*tree.Node, syntax string) *tree.Node {
	for _, c := range children {
		if c.Syntax() == syntax {
			return c
		}
	}
	return nil
}

// compact drops the whitespace a dotted name may contain.
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
