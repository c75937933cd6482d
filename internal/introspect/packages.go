package introspect

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"strings"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/types/typeutil"
)

// LoadOptions controls which packages Packages reads.
type LoadOptions struct {
	Dir      string   // module directory the patterns are resolved in
	Patterns []string // package patterns; defaults to "./..."
	Tests    bool     // include _test.go files
}

// Packages is a TypeIntrospector over Go packages loaded from source.
//
// Types of the loaded packages and of their direct imports are resolvable.
// Doc comments are only known for the loaded packages, since imports are
// read from export data. Members of a non-interface type T are the method
// set of *T, including methods promoted from embedded fields, followed by
// the package functions whose first result is T or *T. Members of an
// interface are its full method set, including embedded interfaces.
//
// All state is computed by LoadPackages; lookups are read-only.
type Packages struct {
	named   map[string]*types.TypeName
	docs    map[token.Pos]string
	members map[string][]Member
	roots   []string
}

// LoadPackages loads packages and indexes their types, members and doc comments.
func LoadPackages(ctx context.Context, opts LoadOptions, logger *slog.Logger) (*Packages, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax |
			packages.NeedTypesInfo | packages.NeedImports,
		Dir:     opts.Dir,
		Context: ctx,
		Tests:   opts.Tests,
	}

	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}

	logger.Info("packages loaded", "packages_count", len(pkgs))

	// Log packages with errors but continue
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			logger.Warn("package load error", "package", pkg.PkgPath, "error", e.Msg)
		}
	}

	p := &Packages{
		named:   make(map[string]*types.TypeName),
		docs:    make(map[token.Pos]string),
		members: make(map[string][]Member),
	}

	for _, pkg := range pkgs {
		for _, f := range pkg.Syntax {
			p.indexDocs(f)
		}
	}

	var msets typeutil.MethodSetCache
	seenPkgs := make(map[string]bool)
	for _, pkg := range rootPackages(pkgs) {
		seenPkgs[pkg.Types.Path()] = true
		p.roots = append(p.roots, p.collectScope(pkg.Types, &msets)...)
	}

	// Imports are collected after all roots so a root package never loses
	// its associated functions to an export-data copy of itself.
	for _, pkg := range pkgs {
		if pkg.Types == nil {
			continue
		}
		for _, imp := range pkg.Types.Imports() {
			if seenPkgs[imp.Path()] {
				continue
			}
			seenPkgs[imp.Path()] = true
			p.collectScope(imp, &msets)
		}
	}

	logger.Info("types indexed", "types", len(p.named), "root_types", len(p.roots))
	return p, nil
}

// rootPackages keeps one package per import path, in load order. With
// tests enabled go/packages also returns "p [p.test]", which adds the
// in-package _test.go files to p; that variant replaces plain p. The
// generated test mains are dropped.
func rootPackages(pkgs []*packages.Package) []*packages.Package {
	var out []*packages.Package
	index := make(map[string]int)
	for _, pkg := range pkgs {
		if pkg.Types == nil || isTestMain(pkg) {
			continue
		}
		path := pkg.Types.Path()
		i, ok := index[path]
		if !ok {
			index[path] = len(out)
			out = append(out, pkg)
			continue
		}
		if isTestVariant(pkg) && !isTestVariant(out[i]) {
			out[i] = pkg
		}
	}
	return out
}

func isTestVariant(pkg *packages.Package) bool {
	return pkg.ID != pkg.PkgPath
}

func isTestMain(pkg *packages.Package) bool {
	return pkg.Name == "main" && strings.HasSuffix(pkg.PkgPath, ".test")
}

// RootTypes returns the identifiers of the named types declared in the
// loaded packages, in package then name order.
func (p *Packages) RootTypes() []string {
	out := make([]string, len(p.roots))
	copy(out, p.roots)
	return out
}

// LookupType implements TypeIntrospector.
func (p *Packages) LookupType(id string) (TypeInfo, error) {
	tn, ok := p.named[id]
	if !ok {
		return TypeInfo{}, fmt.Errorf("%w: %s", ErrTypeNotFound, id)
	}
	return TypeInfo{ID: id, Doc: p.docs[tn.Pos()]}, nil
}

// Members implements TypeIntrospector.
func (p *Packages) Members(id string, vis Visibility) ([]Member, error) {
	vis, err := vis.Normalize()
	if err != nil {
		return nil, err
	}
	if _, ok := p.named[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, id)
	}
	all, ok := p.members[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotReflectable, id)
	}

	var out []Member
	for _, m := range all {
		if vis.Matches(m.Modifiers) {
			out = append(out, m)
		}
	}
	return out, nil
}

// collectScope indexes the named types of pkg and returns their identifiers.
func (p *Packages) collectScope(pkg *types.Package, msets *typeutil.MethodSetCache) []string {
	scope := pkg.Scope()
	assoc := associatedFuncs(pkg)

	var ids []string
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || tn.IsAlias() {
			continue
		}
		named, ok := tn.Type().(*types.Named)
		if !ok {
			continue
		}

		id := objectID(tn)
		p.named[id] = tn
		p.members[id] = p.buildMembers(named, id, assoc[tn], msets)
		ids = append(ids, id)
	}
	return ids
}

func (p *Packages) buildMembers(named *types.Named, id string, funcs []*types.Func, msets *typeutil.MethodSetCache) []Member {
	var out []Member
	if iface, ok := named.Underlying().(*types.Interface); ok {
		for i := 0; i < iface.NumMethods(); i++ {
			out = append(out, p.member(iface.Method(i), id, Abstract))
		}
	} else {
		mset := msets.MethodSet(types.NewPointer(named))
		for i := 0; i < mset.Len(); i++ {
			fn, ok := mset.At(i).Obj().(*types.Func)
			if !ok {
				continue
			}
			out = append(out, p.member(fn, id, 0))
		}
	}
	for _, fn := range funcs {
		out = append(out, p.member(fn, id, Static))
	}
	return out
}

func (p *Packages) member(fn *types.Func, self string, kind Visibility) Member {
	mods := kind
	if fn.Exported() {
		mods |= Public
	} else {
		mods |= Private
	}

	owner := self
	if kind != Static {
		if o := receiverID(fn); o != "" {
			owner = o
		}
	}
	return Member{Name: fn.Name(), Owner: owner, Doc: p.docs[fn.Pos()], Modifiers: mods}
}

// indexDocs records the doc comment of every type, function, method and
// interface method in f, keyed by the position of the declared name.
func (p *Packages) indexDocs(f *ast.File) {
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Doc != nil {
				p.docs[d.Name.Pos()] = d.Doc.Text()
			}
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				doc := ts.Doc
				// A lone "type X ..." carries its comment on the GenDecl.
				if doc == nil && !d.Lparen.IsValid() {
					doc = d.Doc
				}
				if doc != nil {
					p.docs[ts.Name.Pos()] = doc.Text()
				}
				if it, ok := ts.Type.(*ast.InterfaceType); ok {
					p.indexInterfaceDocs(it)
				}
			}
		}
	}
}

func (p *Packages) indexInterfaceDocs(it *ast.InterfaceType) {
	for _, field := range it.Methods.List {
		doc := field.Doc
		if doc == nil {
			doc = field.Comment
		}
		if doc == nil {
			continue
		}
		for _, name := range field.Names {
			p.docs[name.Pos()] = doc.Text()
		}
	}
}

// associatedFuncs groups the package-level functions of pkg by the type
// they construct, following go/doc: the first result must be T or *T for
// a type T declared in pkg.
func associatedFuncs(pkg *types.Package) map[*types.TypeName][]*types.Func {
	out := make(map[*types.TypeName][]*types.Func)
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		fn, ok := scope.Lookup(name).(*types.Func)
		if !ok {
			continue
		}
		sig, ok := fn.Type().(*types.Signature)
		if !ok || sig.Results().Len() == 0 {
			continue
		}
		t := sig.Results().At(0).Type()
		if ptr, ok := t.(*types.Pointer); ok {
			t = ptr.Elem()
		}
		named, ok := t.(*types.Named)
		if !ok || named.Obj().Pkg() != pkg {
			continue
		}
		out[named.Obj()] = append(out[named.Obj()], fn)
	}
	return out
}

// receiverID returns the identifier of the type that declares method fn.
func receiverID(fn *types.Func) string {
	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Recv() == nil {
		return ""
	}
	t := sig.Recv().Type()
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	named, ok := t.(*types.Named)
	if !ok {
		return ""
	}
	return objectID(named.Obj())
}

func objectID(obj types.Object) string {
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return TypeID(obj.Pkg().Path(), obj.Name())
}
