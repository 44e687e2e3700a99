package tree

// Kind is the closed set of syntactic shapes a Node can take.
type Kind uint8

const (
	KindInvalid Kind = iota

	// Java shapes
	KindCompilationUnit
	KindPackage
	KindImport
	KindClassDecl
	KindMethodDecl
	KindParameters
	KindParameter
	KindField
	KindVariable
	KindBlock
	KindStatement
	KindModifiers
	KindModifier
	KindAnnotation
	KindArguments
	KindAssignment
	KindMethodCall
	KindFieldAccess
	KindIdentifier
	KindQualifiedName
	KindTypeRef
	KindLiteral
	KindClassLiteral
	KindComment
	KindToken
	KindOther

	// XML shapes
	KindDocument
	KindTag
	KindText
	KindCData
	KindXMLComment
	KindProcInst
	KindDirective

	KindEOF

	// KindCount sizes every table keyed by Kind.
	KindCount
)

var kindNames = [KindCount]string{
	KindInvalid:         "invalid",
	KindCompilationUnit: "compilation-unit",
	KindPackage:         "package",
	KindImport:          "import",
	KindClassDecl:       "class-decl",
	KindMethodDecl:      "method-decl",
	KindParameters:      "parameters",
	KindParameter:       "parameter",
	KindField:           "field",
	KindVariable:        "variable",
	KindBlock:           "block",
	KindStatement:       "statement",
	KindModifiers:       "modifiers",
	KindModifier:        "modifier",
	KindAnnotation:      "annotation",
	KindArguments:       "arguments",
	KindAssignment:      "assignment",
	KindMethodCall:      "method-call",
	KindFieldAccess:     "field-access",
	KindIdentifier:      "identifier",
	KindQualifiedName:   "qualified-name",
	KindTypeRef:         "type-ref",
	KindLiteral:         "literal",
	KindClassLiteral:    "class-literal",
	KindComment:         "comment",
	KindToken:           "token",
	KindOther:           "other",
	KindDocument:        "document",
	KindTag:             "tag",
	KindText:            "text",
	KindCData:           "cdata",
	KindXMLComment:      "xml-comment",
	KindProcInst:        "proc-inst",
	KindDirective:       "directive",
	KindEOF:             "eof",
}

func (k Kind) String() string {
	if k >= KindCount {
		return "unknown"
	}
	return kindNames[k]
}

// Valid reports whether k is a member of the closed set.
func (k Kind) Valid() bool {
	return k > KindInvalid && k < KindCount
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, KindCount-1)
	for k := KindInvalid + 1; k < KindCount; k++ {
		out = append(out, k)
	}
	return out
}

// IsDeclaration reports whether k can carry modifiers and annotations.
func (k Kind) IsDeclaration() bool {
	switch k {
	case KindClassDecl, KindMethodDecl, KindField, KindParameter, KindVariable:
		return true
	}
	return false
}
