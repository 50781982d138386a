package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kh-lang/kh/core/ast"
	"github.com/kh-lang/kh/core/types"
	"github.com/kh-lang/kh/runtime/analyzer"
	"github.com/kh-lang/kh/runtime/lexer"
	"github.com/kh-lang/kh/runtime/parser"
)

// Set is the result of a load: the finished table plus the parsed programs.
// Only the script's global scope is ever executed; other files contribute
// function definitions alone.
type Set struct {
	Table  *Table
	Files  []string // load order
	Script *ast.Program
}

// Load scans every .kh file under the search path directories, then the
// script file itself (loaded last, so its definitions win collisions),
// builds the signature table, parses all bodies against it, checks call
// sites, and runs the aliasing analysis. A lex or parse error in a search
// path file aborts loading of that file only; an error in the script itself
// is fatal for the load.
//
// cachePath, when non-empty, names a persisted signature table. If its
// digests still match the discovered file set the header scan is skipped and
// the table is seeded from the cache; otherwise every header is re-scanned
// and the cache rewritten. Cache trouble never fails a load.
func Load(searchPath []string, scriptFile string, builtins []*types.Signature, cachePath string, logger *slog.Logger) (*Set, error) {
	if logger == nil {
		logger = slog.Default()
	}

	files, err := discover(searchPath)
	if err != nil {
		return nil, err
	}
	if scriptFile != "" {
		abs := scriptFile
		if a, err := filepath.Abs(scriptFile); err == nil {
			abs = a
		}
		// Move the script to the end of the load order.
		kept := files[:0]
		for _, f := range files {
			if f != abs {
				kept = append(kept, f)
			}
		}
		files = append(kept, abs)
	}

	table := NewTable(builtins)
	table.SetLogger(logger)
	set := &Set{Table: table}

	var cached []*types.Signature
	if cachePath != "" {
		switch sigs, err := ReadSigCacheFile(cachePath, files); {
		case err == nil:
			cached = sigs
			logger.Debug("signature cache fresh", "path", cachePath, "signatures", len(sigs))
		case errors.Is(err, ErrStaleCache):
			logger.Debug("signature cache stale", "path", cachePath)
		default:
			logger.Warn("unreadable signature cache", "path", cachePath, "error", err)
		}
	}
	for _, sig := range cached {
		table.Declare(sig)
	}

	type loaded struct {
		file   string
		tokens []lexer.Token
	}
	var sources []loaded
	var scanned []*types.Signature

	// Pass one: tokenize, and scan headers unless the cache already
	// supplied them.
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			if file == scriptAbs(scriptFile) {
				return nil, fmt.Errorf("reading script: %w", err)
			}
			logger.Error("skipping unreadable file", "file", file, "error", err)
			continue
		}
		tokens, err := lexer.NewFromString(string(data)).Tokenize()
		if err != nil {
			if isScript(file, scriptFile) {
				return nil, err
			}
			logger.Error("skipping file with lexical error", "file", file, "error", err)
			continue
		}
		if cached == nil {
			sigs, err := parser.ScanSignatures(file, tokens)
			if err != nil {
				if isScript(file, scriptFile) {
					return nil, err
				}
				logger.Error("skipping file with header error", "file", file, "error", err)
				continue
			}
			for _, sig := range sigs {
				table.Declare(sig)
			}
			scanned = append(scanned, sigs...)
		}
		sources = append(sources, loaded{file: file, tokens: tokens})
		set.Files = append(set.Files, file)
	}

	if cachePath != "" && cached == nil {
		if err := WriteSigCacheFile(cachePath, set.Files, scanned); err != nil {
			logger.Warn("writing signature cache", "path", cachePath, "error", err)
		} else {
			logger.Debug("signature cache refreshed", "path", cachePath, "signatures", len(scanned))
		}
	}

	// Pass two: full parse against the complete table.
	for _, src := range sources {
		prog, err := parser.Parse(src.file, src.tokens, table)
		if err != nil {
			if isScript(src.file, scriptFile) {
				return nil, err
			}
			logger.Error("skipping file with parse error", "file", src.file, "error", err)
			continue
		}
		if err := table.Check(prog); err != nil {
			if isScript(src.file, scriptFile) {
				return nil, err
			}
			logger.Error("skipping file that failed resolution", "file", src.file, "error", err)
			continue
		}
		analyzer.Annotate(prog, table)
		for _, fn := range prog.Functions {
			table.Define(fn)
		}
		if isScript(src.file, scriptFile) {
			set.Script = prog
		}
	}

	if scriptFile != "" && set.Script == nil {
		return nil, fmt.Errorf("script %s did not load", scriptFile)
	}
	return set, nil
}

// LoadSource loads a single anonymous source text against the builtin table
// only. Used by tests and the REPL-style entry points.
func LoadSource(source string, builtins []*types.Signature, logger *slog.Logger) (*Set, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tokens, err := lexer.NewFromString(source).Tokenize()
	if err != nil {
		return nil, err
	}
	sigs, err := parser.ScanSignatures("", tokens)
	if err != nil {
		return nil, err
	}
	table := NewTable(builtins)
	table.SetLogger(logger)
	for _, sig := range sigs {
		table.Declare(sig)
	}
	prog, err := parser.Parse("", tokens, table)
	if err != nil {
		return nil, err
	}
	if err := table.Check(prog); err != nil {
		return nil, err
	}
	analyzer.Annotate(prog, table)
	for _, fn := range prog.Functions {
		table.Define(fn)
	}
	return &Set{Table: table, Script: prog}, nil
}

// discover walks the search path directories collecting .kh files in a
// stable order.
func discover(searchPath []string) ([]string, error) {
	var files []string
	for _, dir := range searchPath {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".kh") {
				if abs, err := filepath.Abs(path); err == nil {
					path = abs
				}
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning search path %s: %w", dir, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

func scriptAbs(scriptFile string) string {
	if scriptFile == "" {
		return ""
	}
	if abs, err := filepath.Abs(scriptFile); err == nil {
		return abs
	}
	return scriptFile
}

func isScript(file, scriptFile string) bool {
	return scriptFile != "" && file == scriptAbs(scriptFile)
}
