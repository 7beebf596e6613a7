// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Registry maps file extensions to Parser implementations.
//
// Description:
//
//	A Registry is an explicit value constructed at program start and
//	passed into the analysis entry points. Registration after
//	construction is allowed but not expected; the zero Registry is not
//	usable, use NewRegistry.
//
// Thread Safety:
//
//	Safe for concurrent reads after all Register calls complete.
//	Register itself is not synchronized.
type Registry struct {
	byExtension map[string]Parser
}

// NewRegistry creates a Registry holding the given parsers.
//
// Inputs:
//
//	parsers - Parser implementations. Later parsers win extension conflicts.
//
// Outputs:
//
//	*Registry - The populated registry. Never nil.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{byExtension: make(map[string]Parser)}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

// DefaultRegistry returns a registry with the built-in TypeScript,
// JavaScript and Python parsers.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewTypeScriptParser(),
		NewJavaScriptParser(),
		NewPythonParser(),
	)
}

// Register adds a parser for each of its extensions.
func (r *Registry) Register(p Parser) {
	if p == nil {
		return
	}
	for _, ext := range p.Extensions() {
		r.byExtension[strings.ToLower(ext)] = p
	}
}

// ForFile returns the parser handling the given path's extension.
//
// Outputs:
//
//	Parser - The matching parser.
//	error - Non-nil when no parser handles the extension.
func (r *Registry) ForFile(path string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := r.byExtension[ext]
	if !ok {
		return nil, fmt.Errorf("no parser registered for extension %q", ext)
	}
	return p, nil
}

// Supports reports whether any parser handles the given path.
func (r *Registry) Supports(path string) bool {
	_, err := r.ForFile(path)
	return err == nil
}

// Extensions returns all registered extensions, unordered.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		exts = append(exts, ext)
	}
	return exts
}
