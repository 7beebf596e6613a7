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
	"strings"

	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// typescriptProbeExtensions is the resolution probe order for TS projects.
// TS files may import JS siblings, so both families are probed.
var typescriptProbeExtensions = []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs"}

// TypeScriptParserOption configures a TypeScriptParser instance.
type TypeScriptParserOption func(*TypeScriptParser)

// WithTypeScriptMaxFileSize sets the maximum file size the parser accepts.
func WithTypeScriptMaxFileSize(bytes int64) TypeScriptParserOption {
	return func(p *TypeScriptParser) {
		if bytes > 0 {
			p.extractor.maxFileSize = bytes
		}
	}
}

// TypeScriptParser implements the Parser interface for TypeScript source.
//
// Description:
//
//	Uses tree-sitter to parse TypeScript/TSX files and extract exports,
//	imports, function declarations and call sites. Error-tolerant: files
//	with syntax errors produce partial results.
//
// Thread Safety:
//
//	Safe for concurrent use. Each Parse call creates its own tree-sitter
//	parser instance.
type TypeScriptParser struct {
	extractor ecmaExtractor
}

// NewTypeScriptParser creates a TypeScriptParser with the given options.
func NewTypeScriptParser(opts ...TypeScriptParserOption) *TypeScriptParser {
	p := &TypeScriptParser{
		extractor: ecmaExtractor{
			language:    "typescript",
			maxFileSize: DefaultMaxFileSize,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts declarations from TypeScript source.
//
// Inputs:
//   - ctx: Context for cancellation. Tree-sitter cannot be interrupted
//     mid-parse; the context is checked at phase boundaries.
//   - content: Raw source bytes. Must be valid UTF-8.
//   - filePath: Project-relative path with forward slashes. TSX files are
//     parsed with the TSX grammar.
//
// Outputs:
//   - *ParseResult: Extracted declarations, never nil on success. May carry
//     partial results plus Errors entries for invalid syntax.
//   - error: Non-nil for ErrFileTooLarge, ErrInvalidContent, or context errors.
//
// Thread Safety: Safe for concurrent use.
func (p *TypeScriptParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	lang := typescript.GetLanguage()
	if strings.HasSuffix(filePath, ".tsx") {
		lang = tsx.GetLanguage()
	}
	return p.extractor.parse(ctx, lang, content, filePath)
}

// ResolveImport resolves a TypeScript import specifier to a
// project-relative path, or "" for external packages.
func (p *TypeScriptParser) ResolveImport(specifier, fromFile string, cfg ResolverConfig) string {
	return ecmaResolveImport(specifier, fromFile, cfg, typescriptProbeExtensions)
}

// FindUsages returns the classified usages of symbolName in the file.
func (p *TypeScriptParser) FindUsages(filePath string, content []byte, symbolName string, localSymbols map[string]string) []Usage {
	lang := typescript.GetLanguage()
	if strings.HasSuffix(filePath, ".tsx") {
		lang = tsx.GetLanguage()
	}
	return ecmaUsages(lang, filePath, content, symbolName, localSymbols)
}

// Language returns "typescript".
func (p *TypeScriptParser) Language() string { return "typescript" }

// Extensions returns the extensions this parser handles.
func (p *TypeScriptParser) Extensions() []string {
	return []string{".ts", ".tsx", ".mts", ".cts"}
}

var _ Parser = (*TypeScriptParser)(nil)
