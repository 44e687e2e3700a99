// Package recipe defines the rule contract and applies rules to the parsed
// files of a project: gate, scan, transform, drain scheduled visitors and
// reconcile imports, one rule at a time.
package recipe

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/oxhq/quarkmig/internal/gate"
	"github.com/oxhq/quarkmig/internal/lang/java"
	"github.com/oxhq/quarkmig/internal/lang/xml"
	"github.com/oxhq/quarkmig/internal/tree"
	"github.com/oxhq/quarkmig/internal/visitor"
)

// Rule is anything the runner can apply.
type Rule interface {
	Name() string
	Description() string
}

// Recipe is a rule that needs nothing beyond the file it visits.
type Recipe interface {
	Rule
	// Precondition filters the files the visitor runs on. nil admits all.
	Precondition() gate.Gate
	Visitor() *visitor.Visitor
}

// Repeating is implemented by recipes whose visitor runs until the file
// stops changing rather than once.
type Repeating interface {
	Recipe
	Repeat() bool
}

// ScanningRecipe is a rule that reads the whole project before changing
// any file of it.
type ScanningRecipe interface {
	Rule
	// Scanner returns the state for one run.
	Scanner() Scanner
}

// Scanner is one run of a ScanningRecipe. Scan is called for every file,
// concurrently, then Freeze once, then Transformer for every file, then
// Close once the visitors they scheduled have drained.
type Scanner interface {
	Scan(f *File) error
	Freeze() error
	// Transformer returns the visitor for f, or nil to leave f alone.
	Transformer(f *File) *visitor.Visitor
	Close() error
}

// Simple is a Recipe assembled from its parts.
type Simple struct {
	ID       string
	Summary  string
	When     gate.Gate
	Visit    *visitor.Visitor
	Fixpoint bool
}

func (s *Simple) Name() string              { return s.ID }
func (s *Simple) Description() string       { return s.Summary }
func (s *Simple) Precondition() gate.Gate   { return s.When }
func (s *Simple) Visitor() *visitor.Visitor { return s.Visit }
func (s *Simple) Repeat() bool              { return s.Fixpoint }

// Language tells which parser produced a file's tree.
type Language string

const (
	Java     Language = "java"
	Manifest Language = "manifest"
)

// File is one parsed source of the project.
type File struct {
	// Path is slash separated and relative to the project root.
	Path     string
	Language Language
	Tree     *tree.Node
}

// LanguageOf picks the language of a project file from its name.
func LanguageOf(p string) (Language, bool) {
	switch {
	case strings.EqualFold(path.Ext(p), ".java"):
		return Java, true
	case path.Base(p) == "pom.xml":
		return Manifest, true
	}
	return "", false
}

// Parse builds the File for src.
func Parse(ctx context.Context, jp *java.Parser, p string, src []byte) (*File, error) {
	lang, ok := LanguageOf(p)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, p)
	}
	var (
		root *tree.Node
		err  error
	)
	switch lang {
	case Java:
		root, err = jp.Parse(ctx, src)
	case Manifest:
		root, err = xml.Parse(src)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	return &File{Path: p, Language: lang, Tree: root}, nil
}
