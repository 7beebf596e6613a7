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
	"context"

	"github.com/smacker/go-tree-sitter/javascript"
)

// javascriptProbeExtensions is the resolution probe order for JS projects.
var javascriptProbeExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx"}

// JavaScriptParserOption configures a JavaScriptParser instance.
type JavaScriptParserOption func(*JavaScriptParser)

// WithJavaScriptMaxFileSize sets the maximum file size the parser accepts.
func WithJavaScriptMaxFileSize(bytes int64) JavaScriptParserOption {
	return func(p *JavaScriptParser) {
		if bytes > 0 {
			p.extractor.maxFileSize = bytes
		}
	}
}

// JavaScriptParser implements the Parser interface for JavaScript source.
//
// Handles both ES modules and CommonJS (require/module.exports).
//
// Thread Safety: Safe for concurrent use.
type JavaScriptParser struct {
	extractor ecmaExtractor
}

// NewJavaScriptParser creates a JavaScriptParser with the given options.
func NewJavaScriptParser(opts ...JavaScriptParserOption) *JavaScriptParser {
	p := &JavaScriptParser{
		extractor: ecmaExtractor{
			language:    "javascript",
			maxFileSize: DefaultMaxFileSize,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts declarations from JavaScript source. See
// TypeScriptParser.Parse for the contract; semantics are identical except
// the grammar.
func (p *JavaScriptParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	return p.extractor.parse(ctx, javascript.GetLanguage(), content, filePath)
}

// ResolveImport resolves a JavaScript import/require specifier to a
// project-relative path, or "" for external packages.
func (p *JavaScriptParser) ResolveImport(specifier, fromFile string, cfg ResolverConfig) string {
	return ecmaResolveImport(specifier, fromFile, cfg, javascriptProbeExtensions)
}

// FindUsages returns the classified usages of symbolName in the file.
func (p *JavaScriptParser) FindUsages(filePath string, content []byte, symbolName string, localSymbols map[string]string) []Usage {
	return ecmaUsages(javascript.GetLanguage(), filePath, content, symbolName, localSymbols)
}

// Language returns "javascript".
func (p *JavaScriptParser) Language() string { return "javascript" }

// Extensions returns the extensions this parser handles.
func (p *JavaScriptParser) Extensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs"}
}

var _ Parser = (*JavaScriptParser)(nil)
