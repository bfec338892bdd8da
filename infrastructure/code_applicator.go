package infrastructure

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"self-evolving-ai/domain"
)

const backupMarker = ".bak-"

// FileCodeApplicator implements domain.CodeApplicator for Go source
// files on disk.
//
// Apply always copies the target to a uniquely named, hash-verified
// backup before writing anything, and leaves the target untouched when
// it fails. There is no coordination across processes; the caller must
// serialize attempts against the same file.
type FileCodeApplicator struct {
	// backupDir receives backup copies. Empty means alongside the target.
	backupDir string
	logger    *zap.Logger
}

// NewFileCodeApplicator creates an applicator writing backups to
// backupDir, or next to the target file when backupDir is empty.
func NewFileCodeApplicator(backupDir string, logger *zap.Logger) *FileCodeApplicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileCodeApplicator{backupDir: backupDir, logger: logger}
}

// Apply backs up the candidate's target file, applies the change for
// the candidate's category, and validates that the mutated source still
// parses. It returns the backup path for a later Restore.
func (a *FileCodeApplicator) Apply(ctx context.Context, candidate *domain.MutationCandidate) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if candidate == nil || !candidate.Safe {
		return "", fmt.Errorf("%w: candidate missing or not safety-checked", domain.ErrApplyFailed)
	}

	original, err := os.ReadFile(candidate.TargetFile)
	if err != nil {
		return "", fmt.Errorf("%w: read target: %v", domain.ErrBackupFailed, err)
	}

	backupPath, err := a.writeBackup(candidate.TargetFile, original)
	if err != nil {
		return "", err
	}

	mutated, err := mutateSource(string(original), candidate)
	if err != nil {
		os.Remove(backupPath)
		return "", fmt.Errorf("%w: %v", domain.ErrApplyFailed, err)
	}

	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, candidate.TargetFile, mutated, 0); err != nil {
		os.Remove(backupPath)
		return "", fmt.Errorf("%w: mutated source does not parse: %v", domain.ErrApplyFailed, err)
	}

	if err := os.WriteFile(candidate.TargetFile, []byte(mutated), 0644); err != nil {
		// Best effort to put the original bytes back before failing.
		_ = os.WriteFile(candidate.TargetFile, original, 0644)
		os.Remove(backupPath)
		return "", fmt.Errorf("%w: write target: %v", domain.ErrApplyFailed, err)
	}

	a.logger.Info("mutation applied",
		zap.String("target", candidate.TargetFile),
		zap.String("category", string(candidate.Category)),
		zap.String("backup", backupPath))
	return backupPath, nil
}

// Restore overwrites the target with the backup's bytes and verifies
// the result hash-matches the backup.
func (a *FileCodeApplicator) Restore(targetFile, backupPath string) error {
	backup, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("%w: read backup: %v", domain.ErrRestoreFailed, err)
	}

	if err := os.WriteFile(targetFile, backup, 0644); err != nil {
		return fmt.Errorf("%w: write target: %v", domain.ErrRestoreFailed, err)
	}

	restored, err := os.ReadFile(targetFile)
	if err != nil {
		return fmt.Errorf("%w: verify target: %v", domain.ErrRestoreFailed, err)
	}
	if sha256Sum(restored) != sha256Sum(backup) {
		return fmt.Errorf("%w: restored file does not match backup", domain.ErrRestoreFailed)
	}

	a.logger.Info("target restored from backup",
		zap.String("target", targetFile),
		zap.String("backup", backupPath))
	return nil
}

// LatestBackup returns the newest backup for targetFile, if any.
func (a *FileCodeApplicator) LatestBackup(targetFile string) (string, bool, error) {
	dir := a.backupDirFor(targetFile)
	prefix := filepath.Base(targetFile) + backupMarker

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read backup dir: %w", err)
	}

	var newest string
	var newestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime()
		}
	}
	return newest, newest != "", nil
}

// writeBackup copies content to a uniquely named file and verifies the
// copy by size and SHA-256 before trusting it.
func (a *FileCodeApplicator) writeBackup(targetFile string, content []byte) (string, error) {
	dir := a.backupDirFor(targetFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: create backup dir: %v", domain.ErrBackupFailed, err)
	}

	name := fmt.Sprintf("%s%s%s-%s",
		filepath.Base(targetFile),
		backupMarker,
		time.Now().UTC().Format("20060102T150405"),
		uuid.New().String()[:8])
	backupPath := filepath.Join(dir, name)

	if err := os.WriteFile(backupPath, content, 0644); err != nil {
		return "", fmt.Errorf("%w: write backup: %v", domain.ErrBackupFailed, err)
	}

	written, err := os.ReadFile(backupPath)
	if err != nil {
		os.Remove(backupPath)
		return "", fmt.Errorf("%w: verify backup: %v", domain.ErrBackupFailed, err)
	}
	if len(written) != len(content) || sha256Sum(written) != sha256Sum(content) {
		os.Remove(backupPath)
		return "", fmt.Errorf("%w: backup does not match target", domain.ErrBackupFailed)
	}

	return backupPath, nil
}

func (a *FileCodeApplicator) backupDirFor(targetFile string) string {
	if a.backupDir != "" {
		return a.backupDir
	}
	return filepath.Dir(targetFile)
}

func sha256Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// mutateSource applies the candidate to the file content by category:
// imports are inserted if absent, named functions and types replace
// their existing declaration (or append when absent), and anything else
// is appended at end of file.
func mutateSource(content string, candidate *domain.MutationCandidate) (string, error) {
	switch candidate.Category {
	case domain.CategoryImport:
		return insertImports(content, candidate.Code)
	case domain.CategoryFunction, domain.CategoryType:
		return replaceDeclaration(content, candidate)
	default:
		snippet := strings.TrimRight(candidate.Code, "\n")
		// Bare statements cannot live at top level; park them in a blank
		// function, which Go allows to be declared repeatedly.
		if _, _, _, err := parseLoose(snippet); err != nil {
			snippet = "func _() {\n" + snippet + "\n}"
		}
		return content + "\n\n" + snippet + "\n", nil
	}
}

// parseLoose parses source that may or may not carry a package clause.
// It returns the parsed file and the exact source string the returned
// AST positions refer to.
func parseLoose(code string) (*ast.File, *token.FileSet, string, error) {
	fset := token.NewFileSet()
	if file, err := parser.ParseFile(fset, "candidate.go", code, 0); err == nil {
		return file, fset, code, nil
	}
	wrapped := "package candidate\n\n" + code
	fset = token.NewFileSet()
	file, err := parser.ParseFile(fset, "candidate.go", wrapped, 0)
	if err != nil {
		return nil, nil, "", err
	}
	return file, fset, wrapped, nil
}

// insertImports adds each import from the candidate code that the
// target does not already have, directly after the package clause.
// Already-present imports make this a no-op.
func insertImports(content, code string) (string, error) {
	candidateFile, candidateFset, candidateSrc, err := parseLoose(code)
	if err != nil {
		return "", fmt.Errorf("parse candidate imports: %v", err)
	}

	fset := token.NewFileSet()
	targetFile, err := parser.ParseFile(fset, "target.go", content, 0)
	if err != nil {
		return "", fmt.Errorf("parse target: %v", err)
	}

	existing := make(map[string]bool, len(targetFile.Imports))
	for _, imp := range targetFile.Imports {
		existing[imp.Path.Value] = true
	}

	var missing []string
	for _, imp := range candidateFile.Imports {
		if existing[imp.Path.Value] {
			continue
		}
		start := candidateFset.Position(imp.Pos()).Offset
		end := candidateFset.Position(imp.End()).Offset
		missing = append(missing, "import "+candidateSrc[start:end])
	}
	if len(missing) == 0 {
		return content, nil
	}

	insertAt := fset.Position(targetFile.Name.End()).Offset
	// Advance past the rest of the package clause line.
	for insertAt < len(content) && content[insertAt] != '\n' {
		insertAt++
	}

	return content[:insertAt] + "\n\n" + strings.Join(missing, "\n") + content[insertAt:], nil
}

// replaceDeclaration swaps the named function or type declaration in
// the target with the candidate's version, appending it at end of file
// when the target has no declaration of that name. Imports carried by
// the candidate are merged in first.
func replaceDeclaration(content string, candidate *domain.MutationCandidate) (string, error) {
	candidateFile, candidateFset, candidateSrc, err := parseLoose(candidate.Code)
	if err != nil {
		return "", fmt.Errorf("parse candidate: %v", err)
	}

	declText, found := findDeclaration(candidateFile, candidateFset, candidateSrc, candidate.Category, candidate.Symbol)
	if !found {
		return "", fmt.Errorf("candidate does not declare %s %q", candidate.Category, candidate.Symbol)
	}

	if len(candidateFile.Imports) > 0 {
		content, err = insertImports(content, candidate.Code)
		if err != nil {
			return "", err
		}
	}

	fset := token.NewFileSet()
	targetFile, err := parser.ParseFile(fset, "target.go", content, 0)
	if err != nil {
		return "", fmt.Errorf("parse target: %v", err)
	}

	start, end, found := declarationRange(targetFile, fset, candidate.Category, candidate.Symbol)
	if !found {
		return content + "\n\n" + declText + "\n", nil
	}
	return content[:start] + declText + content[end:], nil
}

// findDeclaration extracts the source text of the named declaration
// from the candidate, using byte offsets for accuracy.
func findDeclaration(file *ast.File, fset *token.FileSet, src string, category domain.MutationCategory, symbol string) (string, bool) {
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if category == domain.CategoryFunction && d.Name.Name == symbol {
				start := fset.Position(d.Pos()).Offset
				end := fset.Position(d.End()).Offset
				return src[start:end], true
			}
		case *ast.GenDecl:
			if category != domain.CategoryType || d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok && ts.Name.Name == symbol {
					start := fset.Position(d.Pos()).Offset
					end := fset.Position(d.End()).Offset
					return src[start:end], true
				}
			}
		}
	}
	return "", false
}

// declarationRange locates the byte range of the named declaration in
// the target file.
func declarationRange(file *ast.File, fset *token.FileSet, category domain.MutationCategory, symbol string) (int, int, bool) {
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if category == domain.CategoryFunction && d.Name.Name == symbol {
				return fset.Position(d.Pos()).Offset, fset.Position(d.End()).Offset, true
			}
		case *ast.GenDecl:
			if category != domain.CategoryType || d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok && ts.Name.Name == symbol {
					return fset.Position(d.Pos()).Offset, fset.Position(d.End()).Offset, true
				}
			}
		}
	}
	return 0, 0, false
}
