// Package tool declares the closed registry of named capabilities the
// dispatcher can invoke, with per-tool parameter schemas for the intent
// resolver.
package tool

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Args carries model-supplied parameters into a tool run. The values
// are untrusted input and every tool validates what it reads.
type Args map[string]string

// Get returns the named argument with surrounding whitespace removed.
func (a Args) Get(name string) string {
	return strings.TrimSpace(a[name])
}

// Int parses the named argument as an integer, using fallback when the
// argument is absent or not numeric.
func (a Args) Int(name string, fallback int) int {
	raw := a.Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// RunFunc executes one tool invocation. The returned string is a short
// natural-language sentence; an error means the invocation itself
// failed and the dispatcher converts it to a spoken apology.
type RunFunc func(ctx context.Context, args Args) (string, error)

// Param is one named parameter with its human-readable description.
type Param struct {
	Name string
	Desc string
}

// Tool is one named capability: a one-line description, a declared
// parameter schema, and an executable body.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Run         RunFunc
}

// Registry is the closed, enumerable tool table built at startup.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a registry from the given tools. Duplicate names
// are a programming error.
func NewRegistry(tools ...Tool) (*Registry, error) {
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, exists := byName[t.Name]; exists {
			return nil, fmt.Errorf("duplicate tool %q", t.Name)
		}
		byName[t.Name] = t
	}
	return &Registry{tools: byName}, nil
}

// Lookup returns the named tool; ok is false for unknown names.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns every registered tool sorted by name.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}
