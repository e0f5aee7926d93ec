// Package manifest writes a Go source index of a generated declaration tree,
// so Go tooling can embed or serve the declarations without walking the
// directory.
package manifest

import (
	"bytes"
	"go/token"
	"path/filepath"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/spf13/afero"

	"godotdts/internal/errors"
	"godotdts/internal/logger"
	"godotdts/internal/metadata"
)

const declarationExtension = ".d.ts"

type Options struct {
	// Path is the Go file to write.
	Path string
	// Package defaults to the base name of the directory holding Path.
	Package string
}

// Build returns the manifest source for the files of one version directory.
// Classes without a file of their own are left out.
func Build(pkg string, snap *metadata.Snapshot, dir string, files []string) ([]byte, error) {
	if !token.IsIdentifier(pkg) {
		return nil, errors.Newf("manifest package name %q is not a Go identifier", pkg)
	}

	emitted := make(map[string]bool, len(files))
	for _, name := range files {
		emitted[name] = true
	}

	file := jen.NewFile(pkg)
	file.HeaderComment("Code generated by godotdts. DO NOT EDIT.")

	file.Comment("EngineVersion is the engine build the declarations describe.")
	file.Const().Id("EngineVersion").Op("=").Lit(snap.Version.String())
	file.Comment("Dir is the declaration directory, relative to the output root.")
	file.Const().Id("Dir").Op("=").Lit(filepath.ToSlash(dir))
	file.Line()

	file.Comment("Class describes one emitted declaration file.")
	file.Type().Id("Class").Struct(
		jen.Id("Name").String(),
		jen.Id("Parent").String(),
		jen.Id("Builtin").Bool(),
		jen.Id("File").String(),
	)

	file.Comment("Classes lists every class with a declaration file, by name.")
	file.Var().Id("Classes").Op("=").Index().Id("Class").ValuesFunc(func(g *jen.Group) {
		for _, c := range snap.Classes {
			name := c.Name + declarationExtension
			if !emitted[name] {
				continue
			}
			g.Values(jen.Dict{
				jen.Id("Name"):    jen.Lit(c.Name),
				jen.Id("Parent"):  jen.Lit(c.Parent),
				jen.Id("Builtin"): jen.Lit(c.Kind == metadata.KindBuiltin),
				jen.Id("File"):    jen.Lit(name),
			})
		}
	})

	file.Comment("Files lists every file of the declaration directory.")
	file.Var().Id("Files").Op("=").Index().String().ValuesFunc(func(g *jen.Group) {
		for _, name := range files {
			g.Lit(name)
		}
	})

	if len(snap.Singletons) > 0 {
		file.Comment("Singletons maps engine singleton names to their class.")
		file.Var().Id("Singletons").Op("=").Map(jen.String()).String().Values(jen.DictFunc(func(d jen.Dict) {
			for _, s := range snap.Singletons {
				d[jen.Lit(s.Name)] = jen.Lit(s.Type)
			}
		}))
	}

	var buf bytes.Buffer
	if err := file.Render(&buf); err != nil {
		return nil, errors.Wrap(err, "render manifest")
	}
	return buf.Bytes(), nil
}

// Write builds the manifest and writes it when its content changed. It
// reports whether the file was written.
func Write(fs afero.Fs, opts Options, snap *metadata.Snapshot, dir string, files []string) (bool, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = strings.ReplaceAll(filepath.Base(filepath.Dir(opts.Path)), "-", "_")
	}

	content, err := Build(pkg, snap, dir, files)
	if err != nil {
		return false, err
	}

	if existing, err := afero.ReadFile(fs, opts.Path); err == nil && bytes.Equal(existing, content) {
		logger.Debugw("Manifest unchanged", "path", opts.Path)
		return false, nil
	}
	if err := fs.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return false, errors.Wrapf(err, "create manifest directory for %s", opts.Path)
	}
	if err := afero.WriteFile(fs, opts.Path, content, 0o644); err != nil {
		return false, errors.Wrapf(err, "write manifest %s", opts.Path)
	}

	logger.Infow("Wrote Go manifest", "path", opts.Path, "package", pkg, "files", len(files))
	return true, nil
}
