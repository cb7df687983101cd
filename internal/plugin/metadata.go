package plugin

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

// BaseClassName is the class whose subclasses are read for metadata.
const BaseClassName = "BaseComponent"

// Metadata is what can be learned about a component without running it.
// Empty fields were not found.
type Metadata struct {
	Name         string
	Description  string
	Requirements []string

	hasRequirements bool
}

// HasRequirements reports whether a requirements list was declared.
func (m Metadata) HasRequirements() bool {
	return m.hasRequirements
}

// ExtractMetadata parses src and reads the literal name, description and
// requirements of BaseComponent subclasses.
//
// A subclass is any variable assigned the result of
// BaseComponent:extend{...} (or a call through a table field named
// BaseComponent), at any depth. Fields are read from the table constructor
// and from later assignments such as Foo.name = "x". Only string literals,
// and table constructors of string literals for requirements, are
// understood. Later values replace earlier ones.
func ExtractMetadata(src []byte, chunkName string) (Metadata, error) {
	chunk, err := parse.Parse(bytes.NewReader(src), chunkName)
	if err != nil {
		return Metadata{}, &MetadataParseError{Path: chunkName, Err: err}
	}

	x := &extractor{classes: make(map[string]bool)}
	x.block(chunk)
	return x.meta, nil
}

type extractor struct {
	meta    Metadata
	classes map[string]bool
}

func (x *extractor) block(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		x.stmt(stmt)
	}
}

func (x *extractor) stmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LocalAssignStmt:
		for i, name := range s.Names {
			if i < len(s.Exprs) {
				x.assign(name, s.Exprs[i])
			}
		}
		x.exprs(s.Exprs)
	case *ast.AssignStmt:
		for i, lhs := range s.Lhs {
			if i >= len(s.Rhs) {
				break
			}
			switch target := lhs.(type) {
			case *ast.IdentExpr:
				x.assign(target.Value, s.Rhs[i])
			case *ast.AttrGetExpr:
				x.field(target, s.Rhs[i])
			}
		}
		x.exprs(s.Rhs)
	case *ast.FuncCallStmt:
		x.expr(s.Expr)
	case *ast.DoBlockStmt:
		x.block(s.Stmts)
	case *ast.WhileStmt:
		x.block(s.Stmts)
	case *ast.RepeatStmt:
		x.block(s.Stmts)
	case *ast.IfStmt:
		x.block(s.Then)
		x.block(s.Else)
	case *ast.NumberForStmt:
		x.block(s.Stmts)
	case *ast.GenericForStmt:
		x.block(s.Stmts)
	case *ast.FuncDefStmt:
		if s.Func != nil {
			x.block(s.Func.Stmts)
		}
	case *ast.ReturnStmt:
		x.exprs(s.Exprs)
	}
}

// exprs descends into function bodies nested in expressions.
func (x *extractor) exprs(exprs []ast.Expr) {
	for _, e := range exprs {
		x.expr(e)
	}
}

func (x *extractor) expr(e ast.Expr) {
	switch v := e.(type) {
	case *ast.FunctionExpr:
		x.block(v.Stmts)
	case *ast.FuncCallExpr:
		x.expr(v.Func)
		x.expr(v.Receiver)
		x.exprs(v.Args)
	case *ast.TableExpr:
		for _, f := range v.Fields {
			x.expr(f.Value)
		}
	}
}

// assign records name as a class when value is an extend call and reads
// the fields of its table argument.
func (x *extractor) assign(name string, value ast.Expr) {
	call, ok := value.(*ast.FuncCallExpr)
	if !ok || call.Method != "extend" || !isBaseClass(call.Receiver) {
		return
	}
	x.classes[name] = true
	if len(call.Args) == 0 {
		return
	}
	if table, ok := call.Args[0].(*ast.TableExpr); ok {
		for _, f := range table.Fields {
			if key, ok := f.Key.(*ast.StringExpr); ok {
				x.set(key.Value, f.Value)
			}
		}
	}
}

// field handles Foo.name = "x" for a known class Foo.
func (x *extractor) field(target *ast.AttrGetExpr, value ast.Expr) {
	obj, ok := target.Object.(*ast.IdentExpr)
	if !ok || !x.classes[obj.Value] {
		return
	}
	if key, ok := target.Key.(*ast.StringExpr); ok {
		x.set(key.Value, value)
	}
}

func (x *extractor) set(key string, value ast.Expr) {
	switch key {
	case "name":
		if s, ok := value.(*ast.StringExpr); ok {
			x.meta.Name = s.Value
		}
	case "description":
		if s, ok := value.(*ast.StringExpr); ok {
			x.meta.Description = s.Value
		}
	case "requirements":
		table, ok := value.(*ast.TableExpr)
		if !ok {
			return
		}
		reqs := []string{}
		for _, f := range table.Fields {
			if f.Key != nil {
				continue
			}
			if s, ok := f.Value.(*ast.StringExpr); ok {
				reqs = append(reqs, s.Value)
			}
		}
		x.meta.Requirements = reqs
		x.meta.hasRequirements = true
	}
}

// isBaseClass matches BaseComponent and <expr>.BaseComponent.
func isBaseClass(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.IdentExpr:
		return v.Value == BaseClassName
	case *ast.AttrGetExpr:
		key, ok := v.Key.(*ast.StringExpr)
		return ok && key.Value == BaseClassName
	}
	return false
}

// ReadRequirements returns the trimmed, non-blank, non-comment lines of a
// requirements file. A missing file yields an empty list.
func ReadRequirements(path string) ([]string, error) {
	reqs := []string{}
	if path == "" {
		return reqs, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return reqs, nil
		}
		return reqs, fmt.Errorf("read requirements: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		reqs = append(reqs, line)
	}
	if err := scanner.Err(); err != nil {
		return reqs, fmt.Errorf("read requirements %s: %w", path, err)
	}
	return reqs, nil
}

// Extract reads the metadata of entry and appends the lines of reqFile to
// its requirements. It always returns usable metadata; the error, if any,
// only describes what could not be read.
func Extract(entry, reqFile string) (Metadata, error) {
	var errs []error

	var meta Metadata
	src, err := os.ReadFile(entry)
	if err != nil {
		errs = append(errs, fmt.Errorf("read %s: %w", entry, err))
	} else {
		meta, err = ExtractMetadata(src, entry)
		if err != nil {
			errs = append(errs, err)
		}
	}

	fileReqs, err := ReadRequirements(reqFile)
	if err != nil {
		errs = append(errs, err)
	}
	if meta.Requirements == nil {
		meta.Requirements = []string{}
	}
	meta.Requirements = append(meta.Requirements, fileReqs...)
	return meta, errors.Join(errs...)
}
