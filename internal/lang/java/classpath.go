package java

import (
	"slices"
	"strings"
)

// ClassInfo describes one type known to the classpath oracle.
type ClassInfo struct {
	FQN        string   `yaml:"fqn"`
	Supertypes []string `yaml:"supertypes,omitempty"`
}

// Classpath is the name oracle consulted for wildcard imports, same-package
// references and supertype closure. It is read-only once built.
type Classpath struct {
	types map[string][]string
}

// NewClasspath builds an oracle over infos and the java.lang core.
func NewClasspath(infos ...ClassInfo) *Classpath {
	cp := &Classpath{types: make(map[string][]string, len(infos)+len(javaLang))}
	for _, name := range javaLang {
		cp.types["java.lang."+name] = nil
	}
	for _, info := range infos {
		if info.FQN == "" {
			continue
		}
		cp.types[info.FQN] = append(cp.types[info.FQN], info.Supertypes...)
	}
	return cp
}

// Has reports whether fqn is known.
func (cp *Classpath) Has(fqn string) bool {
	if cp == nil {
		return false
	}
	_, ok := cp.types[fqn]
	return ok
}

// Len returns the number of known types.
func (cp *Classpath) Len() int {
	if cp == nil {
		return 0
	}
	return len(cp.types)
}

// Supertypes returns the transitive supertypes of fqn, nearest first.
// extra seeds the walk with direct supertypes the classpath does not know,
// such as those of a type declared in the file being parsed.
func (cp *Classpath) Supertypes(fqn string, extra ...string) []string {
	var out []string
	queue := slices.Clone(extra)
	if cp != nil {
		queue = append(queue, cp.types[fqn]...)
	}
	seen := map[string]bool{fqn: true}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if cp != nil {
			queue = append(queue, cp.types[t]...)
		}
	}
	return out
}

// Lookup returns pkg.simple when the classpath knows it.
func (cp *Classpath) Lookup(pkg, simple string) (string, bool) {
	fqn := simple
	if pkg != "" {
		fqn = pkg + "." + simple
	}
	if cp.Has(fqn) {
		return fqn, true
	}
	return "", false
}

func isTypeName(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

func packageOf(fqn string) string {
	i := strings.LastIndexByte(fqn, '.')
	if i < 0 {
		return ""
	}
	return fqn[:i]
}

// javaLang lists the java.lang types every file sees without an import.
var javaLang = []string{
	"AutoCloseable", "Boolean", "Byte", "CharSequence", "Character", "Class",
	"ClassCastException", "Cloneable", "Comparable", "Deprecated", "Double",
	"Enum", "Error", "Exception", "Float", "FunctionalInterface",
	"IllegalArgumentException", "IllegalStateException",
	"IndexOutOfBoundsException", "Integer", "InterruptedException",
	"Iterable", "Long", "Math", "NullPointerException", "Number", "Object",
	"Override", "Process", "Record", "Runnable", "Runtime",
	"RuntimeException", "SafeVarargs", "Short", "StackOverflowError",
	"String", "StringBuffer", "StringBuilder", "SuppressWarnings", "System",
	"Thread", "ThreadLocal", "Throwable", "UnsupportedOperationException",
	"Void",
}
