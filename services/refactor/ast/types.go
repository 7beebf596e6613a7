// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast defines the language front-end contract for the refactor
// engine: per-file parsing into exports, imports, local symbol tables,
// function declarations and call sites, plus import-specifier resolution
// and usage classification.
//
// Each supported language provides one Parser implementation. Parsers are
// standalone values selected through an explicit Registry; there is no
// package-level mutable parser set.
package ast

import (
	"context"
	"errors"
	"fmt"
)

// Default parser limits.
const (
	// DefaultMaxFileSize is the maximum file size parsers accept (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the threshold above which a parse logs a warning (1MB).
	WarnFileSize = 1 * 1024 * 1024
)

// Sentinel errors returned by Parser implementations.
var (
	// ErrFileTooLarge indicates the content exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent indicates the content is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")
)

// ExportKind classifies what kind of declaration an export is.
type ExportKind string

// Export kinds.
const (
	ExportKindFunction  ExportKind = "function"
	ExportKindClass     ExportKind = "class"
	ExportKindVariable  ExportKind = "variable"
	ExportKindType      ExportKind = "type"
	ExportKindInterface ExportKind = "interface"
	ExportKindConstant  ExportKind = "constant"
	ExportKindEnum      ExportKind = "enum"
	ExportKindModule    ExportKind = "module"
	ExportKindUnknown   ExportKind = "unknown"
)

// Export is a named symbol a file makes available to other files.
//
// The unique key for an export is FilePath + ":" + Name. Multiple exports
// may share a name across files, never within one file.
type Export struct {
	// Name is the exported symbol name.
	Name string `json:"name"`

	// Kind classifies the declaration.
	Kind ExportKind `json:"kind"`

	// FilePath is the project-relative path of the declaring file.
	FilePath string `json:"file_path"`

	// StartLine is the 1-based line of the declaration.
	StartLine int `json:"start_line"`

	// IsDefault marks a default export (export default ...).
	IsDefault bool `json:"is_default"`

	// IsReExport marks an export re-exported from another module.
	IsReExport bool `json:"is_re_export"`

	// OriginalSource is the specifier a re-export forwards from, if any.
	OriginalSource string `json:"original_source,omitempty"`

	// Signature is the declaration signature text, if captured.
	Signature string `json:"signature,omitempty"`
}

// Key returns the unique export key "filePath:name".
func (e Export) Key() string {
	return e.FilePath + ":" + e.Name
}

// Import is a single imported binding in a file.
type Import struct {
	// Name is the origin name in the source module.
	Name string `json:"name"`

	// Alias is the local name when the import is aliased; empty otherwise.
	Alias string `json:"alias,omitempty"`

	// Source is the raw import specifier as written.
	Source string `json:"source"`

	// ResolvedPath is the project-relative path the specifier resolves to.
	// Empty when resolution fails (external package, unresolvable alias);
	// that is an expected condition, not an error.
	ResolvedPath string `json:"resolved_path,omitempty"`

	// FilePath is the importing file.
	FilePath string `json:"file_path"`

	// StartLine is the 1-based line of the import statement.
	StartLine int `json:"start_line"`

	// IsDefault marks a default import.
	IsDefault bool `json:"is_default"`
}

// LocalName returns the name the binding is known by inside the file.
func (i Import) LocalName() string {
	if i.Alias != "" {
		return i.Alias
	}
	return i.Name
}

// UsageType classifies how a symbol is used at a site.
type UsageType string

// Usage types.
const (
	UsageCall      UsageType = "call"
	UsageReference UsageType = "reference"
	UsageExtend    UsageType = "extend"
	UsageImplement UsageType = "implement"
	UsageSpread    UsageType = "spread"
	UsageAssign    UsageType = "assign"
	UsagePass      UsageType = "pass"
	UsageReturn    UsageType = "return"
)

// Usage records one use of a symbol, classified by how it is used,
// not just that it is used.
type Usage struct {
	// FilePath is the file containing the usage.
	FilePath string `json:"file_path"`

	// Line is the 1-based line of the usage.
	Line int `json:"line"`

	// Context is the source line snippet around the usage.
	Context string `json:"context"`

	// Type classifies the usage.
	Type UsageType `json:"type"`
}

// CallSite is one statically recognizable call inside a function body.
type CallSite struct {
	// Target is the called name (function name, or method name for
	// receiver calls).
	Target string `json:"target"`

	// Receiver is the receiver expression text for method calls.
	Receiver string `json:"receiver,omitempty"`

	// Line is the 1-based line of the call.
	Line int `json:"line"`

	// IsMethod marks receiver-qualified calls.
	IsMethod bool `json:"is_method"`

	// IsConstructor marks `new X(...)` style calls.
	IsConstructor bool `json:"is_constructor"`

	// IsCallback marks calls where the target is passed as an argument
	// rather than invoked directly at this site.
	IsCallback bool `json:"is_callback"`

	// IsDynamic marks calls through untraceable dynamic dispatch
	// (computed members, getattr). Dynamic calls make the caller's
	// purity unknown rather than impure.
	IsDynamic bool `json:"is_dynamic"`
}

// FunctionDecl is one function-like construct found in a file: named or
// anonymous functions, arrow functions bound to names, and class methods.
type FunctionDecl struct {
	// Name is the declared name; empty for anonymous functions.
	Name string `json:"name"`

	// StartLine and EndLine bound the declaration (1-based, inclusive).
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Signature is the parameter list text (plus return type if present).
	Signature string `json:"signature"`

	// Exported marks functions visible outside the file.
	Exported bool `json:"exported"`

	// IsMethod and ClassName identify class methods.
	IsMethod  bool   `json:"is_method"`
	ClassName string `json:"class_name,omitempty"`

	// IsNested marks functions declared inside another function.
	IsNested bool `json:"is_nested"`

	// IsAsync and IsGenerator carry the declaration modifiers.
	IsAsync     bool `json:"is_async"`
	IsGenerator bool `json:"is_generator"`

	// Body is the raw body text, used for purity pattern scanning.
	Body string `json:"-"`

	// Calls are the statically recognizable call sites in the body.
	Calls []CallSite `json:"calls,omitempty"`
}

// ParseResult is the complete output of parsing one file.
//
// A ParseResult is immutable after Parse returns. Syntactically invalid
// files yield partial results with entries in Errors rather than a
// failed parse.
type ParseResult struct {
	// FilePath is the project-relative path, forward slashes.
	FilePath string `json:"file_path"`

	// Language is the canonical language name.
	Language string `json:"language"`

	// Content is the raw source, retained for usage classification.
	Content []byte `json:"-"`

	// Exports, Imports and Functions are the extracted declarations.
	Exports   []Export       `json:"exports"`
	Imports   []Import       `json:"imports"`
	Functions []FunctionDecl `json:"functions"`

	// LocalSymbols maps local names back to origin export names for
	// aliased imports ("pd_merge" -> "merge").
	LocalSymbols map[string]string `json:"local_symbols,omitempty"`

	// Errors lists non-fatal problems encountered during extraction.
	Errors []string `json:"errors,omitempty"`
}

// Validate checks internal consistency of the result.
func (r *ParseResult) Validate() error {
	if r.FilePath == "" {
		return fmt.Errorf("parse result has empty file path")
	}
	seen := make(map[string]bool, len(r.Exports))
	for _, e := range r.Exports {
		if e.Name == "" {
			return fmt.Errorf("%s: export with empty name", r.FilePath)
		}
		// Star re-exports all carry the name "*"; a barrel file holds
		// one per forwarded module, so they dedupe by source instead.
		key := e.Name
		if e.Name == "*" {
			key += ":" + e.OriginalSource
		}
		if seen[key] {
			return fmt.Errorf("%s: duplicate export %q", r.FilePath, e.Name)
		}
		seen[key] = true
	}
	return nil
}

// ResolverConfig carries the shared, read-only inputs for import
// resolution. Resolution probes against the known project file set rather
// than the filesystem, which keeps building idempotent for a fixed
// snapshot.
type ResolverConfig struct {
	// Files is the set of project-relative paths known to the analysis.
	Files map[string]bool

	// Aliases maps specifier prefixes to path prefixes ("@/" -> "src/").
	Aliases map[string]string
}

// HasFile reports whether the given project-relative path exists in the
// snapshot.
func (c ResolverConfig) HasFile(path string) bool {
	return c.Files[path]
}

// Parser is the per-language capability contract.
//
// Implementations must be safe for concurrent use; per-file parsing runs
// on a bounded worker pool.
type Parser interface {
	// Parse extracts exports, imports, local symbols, functions and call
	// sites from one file. Unsupported constructs yield empty results,
	// never an aborted analysis.
	Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error)

	// ResolveImport resolves a specifier from the given file to a
	// project-relative path, or "" when the specifier is external or
	// unresolvable.
	ResolveImport(specifier, fromFile string, cfg ResolverConfig) string

	// FindUsages returns the classified usages of symbolName in the file.
	// localSymbols maps aliased local names back to origin export names.
	FindUsages(filePath string, content []byte, symbolName string, localSymbols map[string]string) []Usage

	// Language returns the canonical language name.
	Language() string

	// Extensions returns the file extensions this parser handles.
	Extensions() []string
}
