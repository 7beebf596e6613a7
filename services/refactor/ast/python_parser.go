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
	"github.com/smacker/go-tree-sitter/python"
)

// PythonParserOption configures a PythonParser instance.
type PythonParserOption func(*PythonParser)

// WithPythonMaxFileSize sets the maximum file size the parser accepts.
func WithPythonMaxFileSize(bytes int64) PythonParserOption {
	return func(p *PythonParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// PythonParser implements the Parser interface for Python source code.
//
// Description:
//
//	Python has no export keyword; every module-level function, class and
//	constant whose name does not start with "_" is treated as exported.
//	An explicit __all__ list narrows the exported set when present.
//
// Thread Safety: Safe for concurrent use.
type PythonParser struct {
	maxFileSize int64
}

// NewPythonParser creates a PythonParser with the given options.
func NewPythonParser(opts ...PythonParserOption) *PythonParser {
	p := &PythonParser{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts declarations from Python source.
//
// Outputs:
//   - *ParseResult: Extracted declarations; partial results with Errors
//     entries for syntactically invalid code.
//   - error: Non-nil for ErrFileTooLarge, ErrInvalidContent, or context errors.
//
// Thread Safety: Safe for concurrent use.
func (p *PythonParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	ctx, span := startParseSpan(ctx, "python", filePath, len(content))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, "python", time.Since(start), 0, false)
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}
	if int64(len(content)) > p.maxFileSize {
		recordParseMetrics(ctx, "python", time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}
	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}
	if !utf8.Valid(content) {
		recordParseMetrics(ctx, "python", time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(ctx, "python", time.Since(start), 0, false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	result := &ParseResult{
		FilePath:     filePath,
		Language:     "python",
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

	p.extractModule(root, content, filePath, result)

	if err := result.Validate(); err != nil {
		recordParseMetrics(ctx, "python", time.Since(start), 0, false)
		return nil, fmt.Errorf("result validation failed: %w", err)
	}

	setParseSpanResult(span, len(result.Exports), len(result.Imports), len(result.Functions), len(result.Errors))
	recordParseMetrics(ctx, "python", time.Since(start), len(result.Exports), true)

	return result, nil
}

// extractModule walks module-level statements.
func (p *PythonParser) extractModule(root *sitter.Node, content []byte, filePath string, result *ParseResult) {
	var allNames []string
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "import_statement":
			p.processImport(child, content, filePath, result)
		case "import_from_statement":
			p.processImportFrom(child, content, filePath, result)
		case "function_definition":
			p.processFunction(child, content, filePath, result, "", false)
		case "decorated_definition":
			if def := child.ChildByFieldName("definition"); def != nil {
				switch def.Type() {
				case "function_definition":
					p.processFunction(def, content, filePath, result, "", false)
				case "class_definition":
					p.processClass(def, content, filePath, result)
				}
			}
		case "class_definition":
			p.processClass(child, content, filePath, result)
		case "expression_statement":
			if names, ok := allAssignment(child, content); ok {
				allNames = names
				continue
			}
			p.processModuleAssignment(child, content, filePath, result)
		}
	}
	if allNames != nil {
		narrowToAll(result, allNames)
	}
}

// allAssignment matches an `__all__ = [...]` statement and returns the
// listed names. Works regardless of where the assignment sits relative to
// the definitions it names.
func allAssignment(node *sitter.Node, content []byte) ([]string, bool) {
	if node.ChildCount() == 0 {
		return nil, false
	}
	assign := node.Child(0)
	if assign.Type() != "assignment" {
		return nil, false
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" || nodeText(left, content) != "__all__" {
		return nil, false
	}
	right := assign.ChildByFieldName("right")
	if right == nil || (right.Type() != "list" && right.Type() != "tuple") {
		return nil, false
	}

	names := make([]string, 0, right.NamedChildCount())
	for i := 0; i < int(right.NamedChildCount()); i++ {
		el := right.NamedChild(i)
		if el.Type() != "string" {
			continue
		}
		if name := strings.Trim(nodeText(el, content), `"'`); name != "" {
			names = append(names, name)
		}
	}
	return names, true
}

// narrowToAll drops exports absent from an explicit __all__ list and
// clears the exported flag on the corresponding function declarations.
func narrowToAll(result *ParseResult, allNames []string) {
	allowed := make(map[string]bool, len(allNames))
	for _, n := range allNames {
		allowed[n] = true
	}
	kept := result.Exports[:0]
	for _, e := range result.Exports {
		if allowed[e.Name] {
			kept = append(kept, e)
		}
	}
	result.Exports = kept
	for i := range result.Functions {
		f := &result.Functions[i]
		if f.Exported && !allowed[f.Name] {
			f.Exported = false
		}
	}
}

// processImport handles `import a.b` and `import a.b as c`.
func (p *PythonParser) processImport(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "dotted_name":
			module := nodeText(c, content)
			result.Imports = append(result.Imports, Import{
				Name: "*", Alias: lastDotSegment(module), Source: module,
				FilePath: filePath, StartLine: lineOf(node),
			})
			result.LocalSymbols[lastDotSegment(module)] = "*"
		case "aliased_import":
			module := nodeText(c.ChildByFieldName("name"), content)
			alias := nodeText(c.ChildByFieldName("alias"), content)
			result.Imports = append(result.Imports, Import{
				Name: "*", Alias: alias, Source: module,
				FilePath: filePath, StartLine: lineOf(node),
			})
			if alias != "" {
				result.LocalSymbols[alias] = "*"
			}
		}
	}
}

// processImportFrom handles `from a.b import c [as d]` and relative forms.
func (p *PythonParser) processImportFrom(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	module := nodeText(node.ChildByFieldName("module_name"), content)
	if module == "" {
		return
	}

	sawName := false
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "dotted_name":
			name := nodeText(c, content)
			if name == module && !sawName {
				// The module_name child itself.
				sawName = true
				continue
			}
			result.Imports = append(result.Imports, Import{
				Name: name, Source: module,
				FilePath: filePath, StartLine: lineOf(node),
			})
			result.LocalSymbols[name] = name
		case "aliased_import":
			name := nodeText(c.ChildByFieldName("name"), content)
			alias := nodeText(c.ChildByFieldName("alias"), content)
			result.Imports = append(result.Imports, Import{
				Name: name, Alias: alias, Source: module,
				FilePath: filePath, StartLine: lineOf(node),
			})
			if alias != "" {
				result.LocalSymbols[alias] = name
			}
		case "wildcard_import":
			result.Imports = append(result.Imports, Import{
				Name: "*", Source: module,
				FilePath: filePath, StartLine: lineOf(node),
			})
		}
	}
}

// processFunction records one function definition, its call sites and any
// nested definitions. className is non-empty for methods.
func (p *PythonParser) processFunction(node *sitter.Node, content []byte, filePath string, result *ParseResult, className string, nested bool) {
	name := nodeText(node.ChildByFieldName("name"), content)
	body := node.ChildByFieldName("body")

	sig := name + nodeText(node.ChildByFieldName("parameters"), content)
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		sig += " -> " + nodeText(rt, content)
	}

	exported := className == "" && !nested && !strings.HasPrefix(name, "_")

	decl := FunctionDecl{
		Name:      name,
		StartLine: lineOf(node),
		EndLine:   int(node.EndPoint().Row) + 1,
		Signature: sig,
		Exported:  exported,
		IsMethod:  className != "",
		ClassName: className,
		IsNested:  nested,
		IsAsync:   hasKeywordChild(node, "async"),
		Body:      nodeText(body, content),
	}
	if body != nil {
		decl.Calls = p.extractCallSites(body, content)
		p.collectNested(body, content, filePath, result)
	}
	result.Functions = append(result.Functions, decl)

	if exported {
		result.Exports = append(result.Exports, Export{
			Name: name, Kind: ExportKindFunction, FilePath: filePath,
			StartLine: lineOf(node), Signature: sig,
		})
	}
}

// processClass records the class export and its methods.
func (p *PythonParser) processClass(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	name := nodeText(node.ChildByFieldName("name"), content)
	if name != "" && !strings.HasPrefix(name, "_") {
		result.Exports = append(result.Exports, Export{
			Name: name, Kind: ExportKindClass, FilePath: filePath,
			StartLine: lineOf(node),
		})
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		c := body.Child(i)
		switch c.Type() {
		case "function_definition":
			p.processFunction(c, content, filePath, result, name, false)
		case "decorated_definition":
			if def := c.ChildByFieldName("definition"); def != nil && def.Type() == "function_definition" {
				p.processFunction(def, content, filePath, result, name, false)
			}
		}
	}
}

// processModuleAssignment records module-level constant assignments as
// exports (NAME = value).
func (p *PythonParser) processModuleAssignment(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	if node.ChildCount() == 0 {
		return
	}
	assign := node.Child(0)
	if assign.Type() != "assignment" {
		return
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return
	}
	name := nodeText(left, content)
	if name == "" || strings.HasPrefix(name, "_") || name == "__all__" {
		return
	}
	kind := ExportKindVariable
	if name == strings.ToUpper(name) {
		kind = ExportKindConstant
	}
	result.Exports = append(result.Exports, Export{
		Name: name, Kind: kind, FilePath: filePath, StartLine: lineOf(node),
	})
}

// collectNested records function definitions nested inside a body.
func (p *PythonParser) collectNested(body *sitter.Node, content []byte, filePath string, result *ParseResult) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if c.Type() == "function_definition" {
				p.processFunction(c, content, filePath, result, "", true)
				continue
			}
			walk(c)
		}
	}
	walk(body)
}

// extractCallSites finds call nodes in a body, excluding calls inside
// nested function definitions.
func (p *PythonParser) extractCallSites(body *sitter.Node, content []byte) []CallSite {
	var calls []CallSite
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition":
			if n != body {
				return
			}
		case "call":
			if cs := p.callSiteFromCall(n, content); cs != nil {
				calls = append(calls, *cs)
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
	return calls
}

// callSiteFromCall classifies one Python call node.
func (p *PythonParser) callSiteFromCall(node *sitter.Node, content []byte) *CallSite {
	fn := node.ChildByFieldName("function")
	if fn == nil && node.ChildCount() > 0 {
		fn = node.Child(0)
	}
	if fn == nil {
		return nil
	}

	cs := &CallSite{Line: lineOf(node)}
	switch fn.Type() {
	case "identifier":
		cs.Target = nodeText(fn, content)
		// getattr-style dynamic access makes purity untraceable.
		if cs.Target == "getattr" {
			cs.IsDynamic = true
		}
		// Capitalized bare calls are constructor calls by convention.
		if cs.Target != "" && cs.Target[0] >= 'A' && cs.Target[0] <= 'Z' {
			cs.IsConstructor = true
		}
	case "attribute":
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		if attr == nil {
			return nil
		}
		cs.Target = nodeText(attr, content)
		cs.Receiver = nodeText(obj, content)
		cs.IsMethod = true
	case "subscript":
		cs.Target = nodeText(fn, content)
		cs.IsDynamic = true
	default:
		return nil
	}
	return cs
}

// ResolveImport resolves a Python module specifier to a project-relative
// path, or "" for external packages.
//
// Description:
//
//	Relative specifiers ("." / ".." prefixes) resolve against the
//	importing file's package; absolute dotted paths resolve from the
//	project root. Both probe "<path>.py" then "<path>/__init__.py".
func (p *PythonParser) ResolveImport(specifier, fromFile string, cfg ResolverConfig) string {
	if specifier == "" {
		return ""
	}

	var base string
	if strings.HasPrefix(specifier, ".") {
		// Count leading dots: one dot = current package, each extra
		// climbs one level.
		dots := 0
		for dots < len(specifier) && specifier[dots] == '.' {
			dots++
		}
		dir := dirOf(fromFile)
		for i := 1; i < dots; i++ {
			dir = dirOf(dir)
		}
		rest := strings.ReplaceAll(specifier[dots:], ".", "/")
		if rest == "" {
			base = dir
		} else if dir == "" {
			base = rest
		} else {
			base = dir + "/" + rest
		}
	} else {
		base = strings.ReplaceAll(specifier, ".", "/")
	}
	if base == "" {
		return ""
	}

	if cfg.HasFile(base + ".py") {
		return base + ".py"
	}
	if cfg.HasFile(base + "/__init__.py") {
		return base + "/__init__.py"
	}
	return ""
}

// FindUsages returns the classified usages of symbolName in the file.
func (p *PythonParser) FindUsages(filePath string, content []byte, symbolName string, localSymbols map[string]string) []Usage {
	names := map[string]bool{symbolName: true}
	for local, origin := range localSymbols {
		if origin == symbolName {
			names[local] = true
		}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil
	}
	defer tree.Close()

	var usages []Usage
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "identifier" && names[nodeText(n, content)] {
			if !p.isDeclarationSite(n) && !p.isImportSite(n) {
				usages = append(usages, Usage{
					FilePath: filePath,
					Line:     lineOf(n),
					Context:  lineSnippet(content, lineOf(n)),
					Type:     p.classifyUsage(n),
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

// isDeclarationSite filters out the identifier's own declaration.
func (p *PythonParser) isDeclarationSite(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	switch parent.Type() {
	case "function_definition", "class_definition":
		name := parent.ChildByFieldName("name")
		return name != nil && name.StartByte() == n.StartByte()
	case "parameters", "default_parameter", "typed_parameter":
		return true
	}
	return false
}

// isImportSite filters out import statement bindings.
func (p *PythonParser) isImportSite(n *sitter.Node) bool {
	for parent := n.Parent(); parent != nil; parent = parent.Parent() {
		switch parent.Type() {
		case "import_statement", "import_from_statement":
			return true
		case "module":
			return false
		}
	}
	return false
}

// classifyUsage maps the identifier's syntactic position to a UsageType.
func (p *PythonParser) classifyUsage(n *sitter.Node) UsageType {
	parent := n.Parent()
	if parent == nil {
		return UsageReference
	}

	switch parent.Type() {
	case "call":
		if fn := parent.ChildByFieldName("function"); fn != nil && fn.StartByte() == n.StartByte() {
			return UsageCall
		}
		return UsagePass
	case "argument_list":
		// Superclass list of a class definition is an extend; a plain
		// argument list is a pass.
		if gp := parent.Parent(); gp != nil && gp.Type() == "class_definition" {
			return UsageExtend
		}
		return UsagePass
	case "return_statement":
		return UsageReturn
	case "assignment":
		if right := parent.ChildByFieldName("right"); right != nil && right.StartByte() == n.StartByte() {
			return UsageAssign
		}
		return UsageReference
	case "list_splat", "dictionary_splat":
		return UsageSpread
	case "attribute":
		if gp := parent.Parent(); gp != nil && gp.Type() == "call" {
			if fn := gp.ChildByFieldName("function"); fn != nil && fn.StartByte() == parent.StartByte() {
				return UsageCall
			}
		}
		return UsageReference
	}
	return UsageReference
}

// Language returns "python".
func (p *PythonParser) Language() string { return "python" }

// Extensions returns the extensions this parser handles.
func (p *PythonParser) Extensions() []string {
	return []string{".py", ".pyi"}
}

// lastDotSegment returns the trailing segment of a dotted module path.
func lastDotSegment(module string) string {
	if idx := strings.LastIndex(module, "."); idx >= 0 {
		return module[idx+1:]
	}
	return module
}

var _ Parser = (*PythonParser)(nil)
