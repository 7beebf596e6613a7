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
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// ecmaExtractor holds the shared extraction logic for TypeScript and
// JavaScript. Both grammars emit the same statement-level node types; the
// TypeScript grammar adds type declarations, which extractDeclarations
// handles when present.
type ecmaExtractor struct {
	language    string
	maxFileSize int64
}

// parse runs the full extraction pipeline for one ECMAScript-family file.
func (x *ecmaExtractor) parse(ctx context.Context, lang *sitter.Language, content []byte, filePath string) (*ParseResult, error) {
	ctx, span := startParseSpan(ctx, x.language, filePath, len(content))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, x.language, time.Since(start), 0, false)
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}
	if int64(len(content)) > x.maxFileSize {
		recordParseMetrics(ctx, x.language, time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), x.maxFileSize)
	}
	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}
	if !utf8.Valid(content) {
		recordParseMetrics(ctx, x.language, time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	// New tree-sitter parser per call for thread safety.
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(ctx, x.language, time.Since(start), 0, false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	result := &ParseResult{
		FilePath:     filePath,
		Language:     x.language,
		Content:      content,
		Exports:      make([]Export, 0),
		Imports:      make([]Import, 0),
		Functions:    make([]FunctionDecl, 0),
		LocalSymbols: make(map[string]string),
		Errors:       make([]string, 0),
	}

	root := tree.RootNode()
	if root == nil {
		result.Errors = append(result.Errors, "tree-sitter returned nil root node")
		return result, nil
	}
	if root.HasError() {
		result.Errors = append(result.Errors, "source contains syntax errors")
	}

	x.extractImports(root, content, filePath, result)
	x.extractDeclarations(root, content, filePath, result)

	if err := result.Validate(); err != nil {
		recordParseMetrics(ctx, x.language, time.Since(start), 0, false)
		return nil, fmt.Errorf("result validation failed: %w", err)
	}

	setParseSpanResult(span, len(result.Exports), len(result.Imports), len(result.Functions), len(result.Errors))
	recordParseMetrics(ctx, x.language, time.Since(start), len(result.Exports), true)

	return result, nil
}

// nodeText returns the source text of a node.
func nodeText(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

// lineOf returns the 1-based start line of a node.
func lineOf(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// stringLiteral strips the quotes from a string node.
func stringLiteral(n *sitter.Node, content []byte) string {
	s := nodeText(n, content)
	return strings.Trim(s, "'\"`")
}

// lineSnippet returns the full source line containing the 1-based line.
func lineSnippet(content []byte, line int) string {
	lines := strings.Split(string(content), "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}

// extractImports collects ES module imports, re-export sources and
// CommonJS requires at the top level of the file.
func (x *ecmaExtractor) extractImports(root *sitter.Node, content []byte, filePath string, result *ParseResult) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "import_statement":
			x.processImportStatement(child, content, filePath, result)
		case "lexical_declaration", "variable_declaration":
			x.processRequire(child, content, filePath, result)
		}
	}
}

// processImportStatement handles one ES import statement.
func (x *ecmaExtractor) processImportStatement(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	var source string
	line := lineOf(node)

	for i := 0; i < int(node.ChildCount()); i++ {
		if c := node.Child(i); c.Type() == "string" {
			source = stringLiteral(c, content)
		}
	}
	if source == "" {
		return
	}

	added := false
	for i := 0; i < int(node.ChildCount()); i++ {
		clause := node.Child(i)
		if clause.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(clause.ChildCount()); j++ {
			c := clause.Child(j)
			switch c.Type() {
			case "identifier":
				// import foo from 'bar'
				local := nodeText(c, content)
				result.Imports = append(result.Imports, Import{
					Name: "default", Alias: local, Source: source,
					FilePath: filePath, StartLine: line, IsDefault: true,
				})
				result.LocalSymbols[local] = "default"
				added = true
			case "namespace_import":
				// import * as foo from 'bar'
				for k := 0; k < int(c.ChildCount()); k++ {
					if gc := c.Child(k); gc.Type() == "identifier" {
						local := nodeText(gc, content)
						result.Imports = append(result.Imports, Import{
							Name: "*", Alias: local, Source: source,
							FilePath: filePath, StartLine: line,
						})
						result.LocalSymbols[local] = "*"
						added = true
					}
				}
			case "named_imports":
				for k := 0; k < int(c.ChildCount()); k++ {
					spec := c.Child(k)
					if spec.Type() != "import_specifier" {
						continue
					}
					name := nodeText(spec.ChildByFieldName("name"), content)
					alias := nodeText(spec.ChildByFieldName("alias"), content)
					if name == "" {
						continue
					}
					result.Imports = append(result.Imports, Import{
						Name: name, Alias: alias, Source: source,
						FilePath: filePath, StartLine: lineOf(spec),
					})
					if alias != "" {
						result.LocalSymbols[alias] = name
					} else {
						result.LocalSymbols[name] = name
					}
					added = true
				}
			}
		}
	}

	// Side-effect import: import './polyfill'
	if !added {
		result.Imports = append(result.Imports, Import{
			Name: "*", Source: source, FilePath: filePath, StartLine: line,
		})
	}
}

// processRequire handles CommonJS `const x = require('y')` declarations.
func (x *ecmaExtractor) processRequire(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	for i := 0; i < int(node.ChildCount()); i++ {
		decl := node.Child(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		value := decl.ChildByFieldName("value")
		if value == nil || value.Type() != "call_expression" {
			continue
		}
		fn := value.ChildByFieldName("function")
		if fn == nil || nodeText(fn, content) != "require" {
			continue
		}
		args := value.ChildByFieldName("arguments")
		if args == nil {
			continue
		}
		var source string
		for j := 0; j < int(args.ChildCount()); j++ {
			if a := args.Child(j); a.Type() == "string" {
				source = stringLiteral(a, content)
			}
		}
		if source == "" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		if nameNode.Type() == "identifier" {
			local := nodeText(nameNode, content)
			result.Imports = append(result.Imports, Import{
				Name: "default", Alias: local, Source: source,
				FilePath: filePath, StartLine: lineOf(decl), IsDefault: true,
			})
			result.LocalSymbols[local] = "default"
			continue
		}
		// const { a, b: c } = require('y')
		if nameNode.Type() == "object_pattern" {
			for j := 0; j < int(nameNode.ChildCount()); j++ {
				p := nameNode.Child(j)
				switch p.Type() {
				case "shorthand_property_identifier_pattern":
					name := nodeText(p, content)
					result.Imports = append(result.Imports, Import{
						Name: name, Source: source,
						FilePath: filePath, StartLine: lineOf(decl),
					})
					result.LocalSymbols[name] = name
				case "pair_pattern":
					name := nodeText(p.ChildByFieldName("key"), content)
					alias := nodeText(p.ChildByFieldName("value"), content)
					if name == "" {
						continue
					}
					result.Imports = append(result.Imports, Import{
						Name: name, Alias: alias, Source: source,
						FilePath: filePath, StartLine: lineOf(decl),
					})
					if alias != "" {
						result.LocalSymbols[alias] = name
					}
				}
			}
		}
	}
}

// extractDeclarations walks top-level statements collecting exports and
// all function-like constructs (including nested ones and class methods).
func (x *ecmaExtractor) extractDeclarations(root *sitter.Node, content []byte, filePath string, result *ParseResult) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "export_statement":
			x.processExportStatement(child, content, filePath, result)
		case "function_declaration", "generator_function_declaration":
			x.collectFunction(child, content, result, false, "", false)
		case "class_declaration", "abstract_class_declaration":
			x.collectClassMethods(child, content, result, false)
		case "lexical_declaration", "variable_declaration":
			x.collectDeclaratorFunctions(child, content, result, false, false)
		case "expression_statement":
			x.processModuleExports(child, content, filePath, result)
		}
	}
}

// processExportStatement handles all forms of `export ...`.
func (x *ecmaExtractor) processExportStatement(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	line := lineOf(node)

	var source string
	isDefault := false
	hasStar := false
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "string":
			source = stringLiteral(c, content)
		case "default":
			isDefault = true
		case "*":
			hasStar = true
		}
	}

	// export * from './mod'
	if hasStar && source != "" {
		result.Exports = append(result.Exports, Export{
			Name: "*", Kind: ExportKindModule, FilePath: filePath,
			StartLine: line, IsReExport: true, OriginalSource: source,
		})
		result.Imports = append(result.Imports, Import{
			Name: "*", Source: source, FilePath: filePath, StartLine: line,
		})
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "export_clause":
			// export { a, b as c } [from './mod']
			for j := 0; j < int(c.ChildCount()); j++ {
				spec := c.Child(j)
				if spec.Type() != "export_specifier" {
					continue
				}
				name := nodeText(spec.ChildByFieldName("name"), content)
				alias := nodeText(spec.ChildByFieldName("alias"), content)
				exported := name
				if alias != "" {
					exported = alias
				}
				result.Exports = append(result.Exports, Export{
					Name: exported, Kind: ExportKindUnknown, FilePath: filePath,
					StartLine: lineOf(spec), IsReExport: source != "",
					OriginalSource: source,
				})
				if source != "" {
					result.Imports = append(result.Imports, Import{
						Name: name, Alias: alias, Source: source,
						FilePath: filePath, StartLine: lineOf(spec),
					})
				}
			}

		case "function_declaration", "generator_function_declaration":
			name := nodeText(c.ChildByFieldName("name"), content)
			result.Exports = append(result.Exports, Export{
				Name: exportName(name, isDefault), Kind: ExportKindFunction,
				FilePath: filePath, StartLine: lineOf(c), IsDefault: isDefault,
				Signature: functionSignature(c, content),
			})
			x.collectFunction(c, content, result, false, "", true)

		case "class_declaration", "abstract_class_declaration":
			name := nodeText(c.ChildByFieldName("name"), content)
			result.Exports = append(result.Exports, Export{
				Name: exportName(name, isDefault), Kind: ExportKindClass,
				FilePath: filePath, StartLine: lineOf(c), IsDefault: isDefault,
			})
			x.collectClassMethods(c, content, result, true)

		case "lexical_declaration", "variable_declaration":
			kind := ExportKindVariable
			if strings.HasPrefix(nodeText(c, content), "const") {
				kind = ExportKindConstant
			}
			for j := 0; j < int(c.ChildCount()); j++ {
				decl := c.Child(j)
				if decl.Type() != "variable_declarator" {
					continue
				}
				name := nodeText(decl.ChildByFieldName("name"), content)
				if name == "" {
					continue
				}
				declKind := kind
				if v := decl.ChildByFieldName("value"); v != nil &&
					(v.Type() == "arrow_function" || v.Type() == "function_expression" || v.Type() == "function") {
					declKind = ExportKindFunction
				}
				result.Exports = append(result.Exports, Export{
					Name: name, Kind: declKind, FilePath: filePath,
					StartLine: lineOf(decl),
				})
			}
			x.collectDeclaratorFunctions(c, content, result, false, true)

		case "interface_declaration":
			name := nodeText(c.ChildByFieldName("name"), content)
			result.Exports = append(result.Exports, Export{
				Name: name, Kind: ExportKindInterface, FilePath: filePath,
				StartLine: lineOf(c),
			})

		case "type_alias_declaration":
			name := nodeText(c.ChildByFieldName("name"), content)
			result.Exports = append(result.Exports, Export{
				Name: name, Kind: ExportKindType, FilePath: filePath,
				StartLine: lineOf(c),
			})

		case "enum_declaration":
			name := nodeText(c.ChildByFieldName("name"), content)
			result.Exports = append(result.Exports, Export{
				Name: name, Kind: ExportKindEnum, FilePath: filePath,
				StartLine: lineOf(c),
			})

		case "identifier":
			// export default someName
			if isDefault {
				result.Exports = append(result.Exports, Export{
					Name: "default", Kind: ExportKindUnknown, FilePath: filePath,
					StartLine: line, IsDefault: true,
				})
			}

		case "arrow_function", "function_expression", "function", "object", "call_expression":
			// export default <expr>
			if isDefault {
				kind := ExportKindUnknown
				if c.Type() != "object" && c.Type() != "call_expression" {
					kind = ExportKindFunction
				}
				result.Exports = append(result.Exports, Export{
					Name: "default", Kind: kind, FilePath: filePath,
					StartLine: line, IsDefault: true,
				})
				if kind == ExportKindFunction {
					x.collectAnonymousFunction(c, content, result, true)
				}
			}
		}
	}
}

// processModuleExports handles `module.exports = ...` and
// `module.exports.name = ...` / `exports.name = ...`.
func (x *ecmaExtractor) processModuleExports(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	if node.ChildCount() == 0 {
		return
	}
	expr := node.Child(0)
	if expr.Type() != "assignment_expression" {
		return
	}
	left := expr.ChildByFieldName("left")
	if left == nil {
		return
	}
	leftText := nodeText(left, content)

	switch {
	case leftText == "module.exports":
		result.Exports = append(result.Exports, Export{
			Name: "default", Kind: ExportKindModule, FilePath: filePath,
			StartLine: lineOf(node), IsDefault: true,
		})
	case strings.HasPrefix(leftText, "module.exports."), strings.HasPrefix(leftText, "exports."):
		name := leftText[strings.LastIndex(leftText, ".")+1:]
		kind := ExportKindVariable
		if right := expr.ChildByFieldName("right"); right != nil {
			t := right.Type()
			if t == "arrow_function" || t == "function_expression" || t == "function" {
				kind = ExportKindFunction
				x.collectAnonymousFunction(right, content, result, true)
			}
		}
		result.Exports = append(result.Exports, Export{
			Name: name, Kind: kind, FilePath: filePath, StartLine: lineOf(node),
		})
	}
}

// exportName returns "default" for default exports with no usable name.
func exportName(name string, isDefault bool) string {
	if name == "" && isDefault {
		return "default"
	}
	if isDefault {
		return name
	}
	return name
}

// functionSignature renders "name(params)[: ret]" for a function node.
func functionSignature(n *sitter.Node, content []byte) string {
	name := nodeText(n.ChildByFieldName("name"), content)
	params := nodeText(n.ChildByFieldName("parameters"), content)
	sig := name + params
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		sig += nodeText(rt, content)
	}
	return sig
}

// collectFunction records one named function declaration plus any
// functions nested inside its body.
func (x *ecmaExtractor) collectFunction(n *sitter.Node, content []byte, result *ParseResult, nested bool, className string, exported bool) {
	name := nodeText(n.ChildByFieldName("name"), content)
	body := n.ChildByFieldName("body")

	decl := FunctionDecl{
		Name:        name,
		StartLine:   lineOf(n),
		EndLine:     int(n.EndPoint().Row) + 1,
		Signature:   functionSignature(n, content),
		Exported:    exported,
		IsMethod:    className != "",
		ClassName:   className,
		IsNested:    nested,
		IsAsync:     hasKeywordChild(n, "async"),
		IsGenerator: n.Type() == "generator_function_declaration" || hasKeywordChild(n, "*"),
		Body:        nodeText(body, content),
	}
	if body != nil {
		decl.Calls = x.extractCallSites(body, content)
		x.collectNestedFunctions(body, content, result)
	}
	result.Functions = append(result.Functions, decl)
}

// collectAnonymousFunction records an unnamed function-like expression.
func (x *ecmaExtractor) collectAnonymousFunction(n *sitter.Node, content []byte, result *ParseResult, exported bool) {
	body := n.ChildByFieldName("body")
	decl := FunctionDecl{
		StartLine: lineOf(n),
		EndLine:   int(n.EndPoint().Row) + 1,
		Signature: nodeText(n.ChildByFieldName("parameters"), content),
		Exported:  exported,
		IsAsync:   hasKeywordChild(n, "async"),
		Body:      nodeText(body, content),
	}
	if body != nil {
		decl.Calls = x.extractCallSites(body, content)
		x.collectNestedFunctions(body, content, result)
	}
	result.Functions = append(result.Functions, decl)
}

// collectDeclaratorFunctions records arrow/function expressions bound to
// variable names: const f = () => {}.
func (x *ecmaExtractor) collectDeclaratorFunctions(n *sitter.Node, content []byte, result *ParseResult, nested, exported bool) {
	for i := 0; i < int(n.ChildCount()); i++ {
		decl := n.Child(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		value := decl.ChildByFieldName("value")
		if value == nil {
			continue
		}
		t := value.Type()
		if t != "arrow_function" && t != "function_expression" && t != "function" && t != "generator_function" {
			continue
		}
		name := nodeText(decl.ChildByFieldName("name"), content)
		body := value.ChildByFieldName("body")
		fd := FunctionDecl{
			Name:        name,
			StartLine:   lineOf(decl),
			EndLine:     int(value.EndPoint().Row) + 1,
			Signature:   name + nodeText(value.ChildByFieldName("parameters"), content),
			Exported:    exported,
			IsNested:    nested,
			IsAsync:     hasKeywordChild(value, "async"),
			IsGenerator: t == "generator_function",
			Body:        nodeText(body, content),
		}
		if body != nil {
			fd.Calls = x.extractCallSites(body, content)
			x.collectNestedFunctions(body, content, result)
		}
		result.Functions = append(result.Functions, fd)
	}
}

// collectClassMethods records every method of a class declaration.
func (x *ecmaExtractor) collectClassMethods(n *sitter.Node, content []byte, result *ParseResult, exported bool) {
	className := nodeText(n.ChildByFieldName("name"), content)
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		m := body.Child(i)
		if m.Type() != "method_definition" {
			continue
		}
		name := nodeText(m.ChildByFieldName("name"), content)
		mBody := m.ChildByFieldName("body")
		decl := FunctionDecl{
			Name:        name,
			StartLine:   lineOf(m),
			EndLine:     int(m.EndPoint().Row) + 1,
			Signature:   name + nodeText(m.ChildByFieldName("parameters"), content),
			Exported:    exported,
			IsMethod:    true,
			ClassName:   className,
			IsAsync:     hasKeywordChild(m, "async"),
			IsGenerator: hasKeywordChild(m, "*"),
			Body:        nodeText(mBody, content),
		}
		if mBody != nil {
			decl.Calls = x.extractCallSites(mBody, content)
			x.collectNestedFunctions(mBody, content, result)
		}
		result.Functions = append(result.Functions, decl)
	}
}

// collectNestedFunctions walks a function body recording nested
// function declarations and named function expressions.
func (x *ecmaExtractor) collectNestedFunctions(body *sitter.Node, content []byte, result *ParseResult) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			switch c.Type() {
			case "function_declaration", "generator_function_declaration":
				x.collectFunction(c, content, result, true, "", false)
				continue // collectFunction recurses into the body itself
			case "lexical_declaration", "variable_declaration":
				x.collectDeclaratorFunctions(c, content, result, true, false)
				continue
			}
			walk(c)
		}
	}
	walk(body)
}

// hasKeywordChild reports whether a node has a direct child token of the
// given type ("async", "*").
func hasKeywordChild(n *sitter.Node, keyword string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == keyword {
			return true
		}
	}
	return false
}

// extractCallSites finds statically recognizable calls in a body,
// skipping calls that belong to nested function declarations (those are
// attributed to the nested function itself).
func (x *ecmaExtractor) extractCallSites(body *sitter.Node, content []byte) []CallSite {
	var calls []CallSite
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration", "generator_function_declaration",
			"arrow_function", "function_expression", "function", "method_definition":
			if n != body {
				return
			}
		case "call_expression":
			if cs := x.callSiteFromExpression(n, content); cs != nil {
				calls = append(calls, *cs)
			}
			calls = append(calls, x.callbackArguments(n, content)...)
		case "new_expression":
			ctor := n.ChildByFieldName("constructor")
			if ctor != nil && ctor.Type() == "identifier" {
				calls = append(calls, CallSite{
					Target: nodeText(ctor, content), Line: lineOf(n),
					IsConstructor: true,
				})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
	return calls
}

// callSiteFromExpression classifies one call_expression node.
func (x *ecmaExtractor) callSiteFromExpression(n *sitter.Node, content []byte) *CallSite {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return nil
	}
	cs := &CallSite{Line: lineOf(n)}

	switch fn.Type() {
	case "identifier":
		cs.Target = nodeText(fn, content)
	case "member_expression":
		prop := fn.ChildByFieldName("property")
		obj := fn.ChildByFieldName("object")
		if prop == nil {
			return nil
		}
		cs.Target = nodeText(prop, content)
		cs.Receiver = nodeText(obj, content)
		cs.IsMethod = true
	case "subscript_expression":
		// obj[computed]() is untraceable dynamic dispatch.
		cs.Target = nodeText(fn, content)
		cs.IsDynamic = true
	default:
		return nil
	}
	return cs
}

// callbackArguments records plain identifier arguments of a call as
// callback references: items.forEach(handler) yields a callback site for
// handler. Inline function arguments are handled as nested declarations.
func (x *ecmaExtractor) callbackArguments(n *sitter.Node, content []byte) []CallSite {
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	var calls []CallSite
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() != "identifier" {
			continue
		}
		calls = append(calls, CallSite{
			Target:     nodeText(arg, content),
			Line:       lineOf(arg),
			IsCallback: true,
		})
	}
	return calls
}

// ecmaUsages finds classified usages of a symbol in ECMAScript source.
func ecmaUsages(lang *sitter.Language, filePath string, content []byte, symbolName string, localSymbols map[string]string) []Usage {
	// The symbol may be known locally under an alias.
	names := map[string]bool{symbolName: true}
	for local, origin := range localSymbols {
		if origin == symbolName {
			names[local] = true
		}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil
	}
	defer tree.Close()

	var usages []Usage
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "identifier" && names[nodeText(n, content)] {
			if !isEcmaDeclarationSite(n) && !isEcmaImportSite(n) {
				usages = append(usages, Usage{
					FilePath: filePath,
					Line:     lineOf(n),
					Context:  lineSnippet(content, lineOf(n)),
					Type:     classifyEcmaUsage(n),
				})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return usages
}

// isEcmaDeclarationSite filters out the identifier's own declaration.
func isEcmaDeclarationSite(n *sitter.Node) bool {
	p := n.Parent()
	if p == nil {
		return false
	}
	switch p.Type() {
	case "function_declaration", "generator_function_declaration",
		"class_declaration", "abstract_class_declaration",
		"variable_declarator", "method_definition",
		"required_parameter", "formal_parameters":
		name := p.ChildByFieldName("name")
		return name != nil && name.StartByte() == n.StartByte()
	}
	return false
}

// isEcmaImportSite filters out import statement bindings.
func isEcmaImportSite(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "import_statement", "import_clause", "named_imports", "namespace_import":
			return true
		case "program":
			return false
		}
	}
	return false
}

// classifyEcmaUsage maps the identifier's syntactic position to a
// UsageType.
func classifyEcmaUsage(n *sitter.Node) UsageType {
	p := n.Parent()
	if p == nil {
		return UsageReference
	}

	switch p.Type() {
	case "call_expression":
		if fn := p.ChildByFieldName("function"); fn != nil && fn.StartByte() == n.StartByte() {
			return UsageCall
		}
		return UsagePass
	case "new_expression":
		if c := p.ChildByFieldName("constructor"); c != nil && c.StartByte() == n.StartByte() {
			return UsageCall
		}
		return UsagePass
	case "extends_clause", "class_heritage":
		return UsageExtend
	case "implements_clause":
		return UsageImplement
	case "spread_element", "rest_pattern":
		return UsageSpread
	case "arguments":
		return UsagePass
	case "return_statement":
		return UsageReturn
	case "assignment_expression":
		return UsageAssign
	case "member_expression":
		// ns.symbol: classify by the member expression's own parent.
		if gp := p.Parent(); gp != nil && gp.Type() == "call_expression" {
			if fn := gp.ChildByFieldName("function"); fn != nil && fn.StartByte() == p.StartByte() {
				return UsageCall
			}
		}
		return UsageReference
	}

	// Walk one level for common wrappers (parenthesized args, pairs).
	if gp := p.Parent(); gp != nil {
		switch gp.Type() {
		case "arguments":
			return UsagePass
		case "return_statement":
			return UsageReturn
		case "class_heritage", "extends_clause":
			return UsageExtend
		}
	}
	return UsageReference
}

// ecmaResolveImport resolves ES/CommonJS specifiers against the snapshot
// file set: alias substitution, relative joins, extension probing and
// index-file fallback. External packages return "".
func ecmaResolveImport(specifier, fromFile string, cfg ResolverConfig, extensions []string) string {
	if specifier == "" {
		return ""
	}

	// Alias substitution (longest prefix wins).
	expanded := specifier
	bestLen := -1
	for prefix, target := range cfg.Aliases {
		if strings.HasPrefix(specifier, prefix) && len(prefix) > bestLen {
			expanded = target + specifier[len(prefix):]
			bestLen = len(prefix)
		}
	}

	var base string
	switch {
	case strings.HasPrefix(expanded, "./"), strings.HasPrefix(expanded, "../"):
		base = joinRelative(dirOf(fromFile), expanded)
	case bestLen >= 0:
		base = cleanPath(expanded)
	case strings.HasPrefix(expanded, "/"):
		base = cleanPath(strings.TrimPrefix(expanded, "/"))
	default:
		// Bare specifier: external package.
		return ""
	}
	if base == "" {
		return ""
	}

	// Exact match (specifier already carries an extension).
	if cfg.HasFile(base) {
		return base
	}
	// Extension probing.
	for _, ext := range extensions {
		if cfg.HasFile(base + ext) {
			return base + ext
		}
	}
	// Index fallback.
	for _, ext := range extensions {
		if cfg.HasFile(base + "/index" + ext) {
			return base + "/index" + ext
		}
	}
	return ""
}

// dirOf returns the directory portion of a slash path, or "".
func dirOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// joinRelative joins a relative specifier onto a base directory and
// normalizes "." and ".." segments.
func joinRelative(dir, spec string) string {
	if dir == "" {
		return cleanPath(spec)
	}
	return cleanPath(dir + "/" + spec)
}

// cleanPath normalizes a slash path, resolving "." and ".." segments.
// Paths escaping the project root return "".
func cleanPath(p string) string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(out) == 0 {
				return ""
			}
			out = out[:len(out)-1]
		default:
			out = append(out, part)
		}
	}
	return strings.Join(out, "/")
}
