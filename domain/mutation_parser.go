package domain

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strings"
)

// MutationParser extracts a single MutationCandidate from free-text
// model output. Parsing is a pure function: the same raw text always
// yields the same candidate or the same failure, and no file is touched.
type MutationParser struct {
	fencePattern        *regexp.Regexp
	modificationPattern *regexp.Regexp
	reasonPattern       *regexp.Regexp
	denylist            []*regexp.Regexp
}

// DefaultDenylist returns the built-in unsafe-operation patterns:
// process execution, file deletion, network calls, unsafe memory access,
// and tampering with the safety check itself.
func DefaultDenylist() []string {
	return []string{
		`\bexec\.Command\b`,
		`\bos/exec\b`,
		`\bsyscall\.(Exec|ForkExec|StartProcess|Kill)\b`,
		`\bos\.system\b`,
		`\bos\.(Remove|RemoveAll|Truncate)\b`,
		`\bnet\.Dial\b`,
		`\bnet/http\b`,
		`\bhttp\.(Get|Post|PostForm|NewRequest)\b`,
		`\bunsafe\.\w+`,
		`\beval\s*\(`,
		`(?i)denylist`,
	}
}

// NewMutationParser creates a parser with the given denylist patterns.
// An empty slice selects DefaultDenylist. Invalid patterns are rejected
// at construction rather than at parse time.
func NewMutationParser(denylistPatterns []string) (*MutationParser, error) {
	if len(denylistPatterns) == 0 {
		denylistPatterns = DefaultDenylist()
	}
	denylist := make([]*regexp.Regexp, 0, len(denylistPatterns))
	for _, pattern := range denylistPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denylist pattern %q: %w", pattern, err)
		}
		denylist = append(denylist, re)
	}

	return &MutationParser{
		fencePattern:        regexp.MustCompile("(?s)```(?:go(?:lang)?)?[ \t]*\n(.*?)```"),
		modificationPattern: regexp.MustCompile(`(?s)MODIFICATION:\s*(.*?)\s*(?:REASON:|CODE:|\z)`),
		reasonPattern:       regexp.MustCompile(`(?s)REASON:\s*(.*?)\s*(?:MODIFICATION:|CODE:|\z)`),
		denylist:            denylist,
	}, nil
}

// Parse extracts a candidate from rawText targeting targetFile.
//
// The pipeline is: extract a code block (fenced, or a CODE: section),
// validate it parses as Go, scan it against the denylist, then classify
// its shape. Failures are reported as ErrNoCodeFound, ErrSyntaxInvalid,
// or ErrUnsafeOperation respectively.
func (p *MutationParser) Parse(rawText, targetFile string) (*MutationCandidate, error) {
	code := p.extractCode(rawText)
	if code == "" {
		return nil, ErrNoCodeFound
	}

	file, wrapped, err := parseSnippet(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntaxInvalid, err)
	}

	for _, re := range p.denylist {
		if match := re.FindString(code); match != "" {
			return nil, fmt.Errorf("%w: %q", ErrUnsafeOperation, match)
		}
	}

	category, symbol := classify(file, wrapped)

	candidate := &MutationCandidate{
		RawText:      rawText,
		Code:         code,
		TargetFile:   targetFile,
		Category:     category,
		Symbol:       symbol,
		Safe:         true,
		Modification: p.firstMatch(p.modificationPattern, rawText),
		Reason:       p.firstMatch(p.reasonPattern, rawText),
	}
	return candidate, nil
}

func (p *MutationParser) firstMatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// extractCode returns the first fenced code block, falling back to the
// first paragraph of a CODE: section when no fences are present.
func (p *MutationParser) extractCode(rawText string) string {
	if m := p.fencePattern.FindStringSubmatch(rawText); len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}

	if idx := strings.Index(rawText, "CODE:"); idx >= 0 {
		section := rawText[idx+len("CODE:"):]
		if end := strings.Index(section, "\n\n"); end >= 0 {
			section = section[:end]
		}
		return strings.TrimSpace(section)
	}

	return ""
}

// parseSnippet validates Go syntax for snippets that may be a full file,
// a set of top-level declarations, or a sequence of statements. It
// returns the parsed file and whether the snippet had to be wrapped in
// a function body.
func parseSnippet(code string) (file *ast.File, wrapped bool, err error) {
	fset := token.NewFileSet()

	if file, err = parser.ParseFile(fset, "snippet.go", code, 0); err == nil {
		return file, false, nil
	}

	withPackage := "package snippet\n\n" + code
	if file, err = parser.ParseFile(fset, "snippet.go", withPackage, 0); err == nil {
		return file, false, nil
	}

	inFunction := "package snippet\n\nfunc _() {\n" + code + "\n}"
	if file, err = parser.ParseFile(fset, "snippet.go", inFunction, 0); err == nil {
		return file, true, nil
	}

	return nil, false, err
}

// classify inspects the snippet's AST shape. A snippet that only parsed
// inside a function body is always "other"; otherwise the first
// recognizable declaration wins, with a pure import block checked first.
func classify(file *ast.File, wrapped bool) (MutationCategory, string) {
	if wrapped {
		return CategoryOther, ""
	}

	onlyImports := len(file.Decls) > 0
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.IMPORT {
			onlyImports = false
			break
		}
	}
	if onlyImports {
		return CategoryImport, ""
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			return CategoryFunction, d.Name.Name
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok {
					return CategoryType, ts.Name.Name
				}
			}
		}
	}

	return CategoryOther, ""
}
