// Package generation assembles rendered declarations into files and writes
// the version directory.
//
// A run has two phases. Every file is first rendered into memory
// concurrently; any error aborts the run before the filesystem is touched.
// The files are then written concurrently, each through a temporary file
// renamed into place, skipping files whose content did not change.
package generation

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"godotdts/internal"
	"godotdts/internal/errors"
	"godotdts/internal/logger"
	"godotdts/internal/metadata"
	"godotdts/internal/render"
	"godotdts/internal/typemap"
)

const (
	Extension = ".d.ts"
	IndexName = "index"

	fileMode os.FileMode = 0o644
)

type Options struct {
	OutputDir string
	// VersionDir replaces the directory name derived from the engine version.
	VersionDir string
	// Workers bounds render and write concurrency. Zero means GOMAXPROCS.
	Workers int
	// Clean removes declaration files the run did not produce.
	Clean bool

	Render render.Options
	Types  typemap.Options
}

// File is one rendered output file, relative to the version directory.
type File struct {
	Name     string
	Content  []byte
	Warnings []string
}

type Result struct {
	Dir string
	// Files names every file of the version directory, sorted.
	Files     []string
	Written   []string
	Unchanged []string
	Removed   []string
	Warnings  []string
}

type Generator struct {
	fs   afero.Fs
	opts Options
}

func NewGenerator(fs afero.Fs, opts Options) *Generator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Generator{fs: fs, opts: opts}
}

// Dir is the version directory the snapshot is written to.
func (generator *Generator) Dir(snap *metadata.Snapshot) string {
	name := generator.opts.VersionDir
	if name == "" {
		name = snap.Version.Dir()
	}
	return filepath.Join(generator.opts.OutputDir, name)
}

// Generate renders snap and writes it to the version directory.
func (generator *Generator) Generate(ctx context.Context, snap *metadata.Snapshot) (*Result, error) {
	files, err := generator.Render(ctx, snap)
	if err != nil {
		return nil, err
	}

	result := &Result{Dir: generator.Dir(snap)}
	for _, f := range files {
		result.Files = append(result.Files, f.Name)
		result.Warnings = append(result.Warnings, f.Warnings...)
	}
	for _, w := range result.Warnings {
		logger.Warnw("Deprecated symbol", "detail", w)
	}

	if err := generator.fs.MkdirAll(result.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output directory %s", result.Dir)
	}
	if err := generator.write(ctx, result, files); err != nil {
		return nil, err
	}
	if generator.opts.Clean {
		if err := generator.clean(result, files); err != nil {
			return nil, err
		}
	}

	logger.Infow("Generated declarations",
		"dir", result.Dir,
		"files", len(files),
		"written", len(result.Written),
		"unchanged", len(result.Unchanged),
		"removed", len(result.Removed),
		"warnings", len(result.Warnings))
	return result, nil
}

// Render produces every file of the snapshot in memory, sorted by name.
func (generator *Generator) Render(ctx context.Context, snap *metadata.Snapshot) ([]File, error) {
	index := metadata.NewIndex(snap, typemap.Excluded)
	if _, clash := index.Class(render.GlobalScopeName); clash {
		return nil, errors.NewMetadataError(render.GlobalScopeName, render.GlobalScopeName, "class name reserved for the global scope file")
	}
	renderer := render.New(typemap.New(index, generator.opts.Types), index, generator.opts.Render)

	var classes []*metadata.ClassDescriptor
	for i := range snap.Classes {
		if !typemap.Excluded(snap.Classes[i].Name) {
			classes = append(classes, &snap.Classes[i])
		}
	}

	// One slot per class plus the global scope file; the barrel comes last.
	files := make([]File, len(classes)+1, len(classes)+2)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(generator.opts.Workers)
	for i, class := range classes {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			decl, err := renderer.Class(class)
			if err != nil {
				return err
			}
			files[i] = assemble(decl)
			return nil
		})
	}
	eg.Go(func() error {
		decl, err := renderer.GlobalScope(snap)
		if err != nil {
			return err
		}
		files[len(classes)] = assemble(decl)
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	prelude, err := renderer.Prelude(snap)
	if err != nil {
		return nil, err
	}
	files = append(files, barrel(snap, prelude, index.Names()))

	sortFiles(files)
	logger.Debugw("Rendered declarations", "files", len(files), "workers", generator.opts.Workers)
	return files, nil
}

// header opens every class file. Only the barrel names the engine version,
// so an unchanged class renders to the same bytes across engine releases.
const header = "// Code generated by godotdts. DO NOT EDIT.\n"

func barrelHeader(snap *metadata.Snapshot) string {
	return "// Code generated by godotdts from " + snap.Version.String() + ". DO NOT EDIT.\n"
}

// assemble prepends the header and the import statement. The parent is a
// value import so that it can be extended; everything else is type-only,
// which keeps cyclic references between files harmless.
func assemble(decl *render.Declaration) File {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteByte('\n')
	if line := importLine(decl); line != "" {
		sb.WriteString(line)
		sb.WriteString("\n\n")
	}
	sb.WriteString(decl.Text)
	return File{
		Name:     decl.Name + Extension,
		Content:  []byte(sb.String()),
		Warnings: decl.Warnings,
	}
}

func importLine(decl *render.Declaration) string {
	var names []string
	if decl.Parent != "" {
		names = append(names, decl.Parent)
	}
	for _, ref := range decl.Refs {
		if ref == decl.Name || ref == decl.Parent {
			continue
		}
		names = append(names, "type "+ref)
	}
	if len(names) == 0 {
		return ""
	}
	return "import { " + strings.Join(names, ", ") + " } from \"./" + IndexName + "\";"
}

func barrel(snap *metadata.Snapshot, prelude string, classes []string) File {
	var sb strings.Builder
	sb.WriteString(barrelHeader(snap))
	sb.WriteByte('\n')
	sb.WriteString(prelude)
	sb.WriteByte('\n')
	for _, name := range classes {
		sb.WriteString("export { " + name + " } from \"./" + name + "\";\n")
	}
	sb.WriteString("export * from \"./" + render.GlobalScopeName + "\";\n")
	return File{Name: IndexName + Extension, Content: []byte(sb.String())}
}

func sortFiles(files []File) {
	byName := make(map[string]File, len(files))
	for _, f := range files {
		byName[f.Name] = f
	}
	for i, name := range internal.SortedKeys(byName) {
		files[i] = byName[name]
	}
}

type writeStatus int

const (
	statusWritten writeStatus = iota
	statusUnchanged
)

func (generator *Generator) write(ctx context.Context, result *Result, files []File) error {
	status := make([]writeStatus, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(generator.opts.Workers)
	for i, f := range files {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			path := filepath.Join(result.Dir, f.Name)
			if existing, err := afero.ReadFile(generator.fs, path); err == nil && bytes.Equal(existing, f.Content) {
				status[i] = statusUnchanged
				return nil
			}
			if err := writeFileAtomic(generator.fs, path, f.Content); err != nil {
				return err
			}
			status[i] = statusWritten
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, f := range files {
		if status[i] == statusUnchanged {
			result.Unchanged = append(result.Unchanged, f.Name)
		} else {
			result.Written = append(result.Written, f.Name)
		}
	}
	return nil
}

func writeFileAtomic(fs afero.Fs, path string, content []byte) error {
	dir, name := filepath.Split(path)
	tmp, err := afero.TempFile(fs, dir, "."+name+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temporary file for %s", path)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		fs.Remove(tmp.Name())
		return errors.Wrapf(err, "write %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmp.Name())
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	// TempFile creates 0600 files.
	if err := fs.Chmod(tmp.Name(), fileMode); err != nil {
		fs.Remove(tmp.Name())
		return errors.Wrapf(err, "chmod %s", tmp.Name())
	}
	if err := fs.Rename(tmp.Name(), path); err != nil {
		fs.Remove(tmp.Name())
		return errors.Wrapf(err, "rename into %s", path)
	}
	return nil
}

// clean removes stale declaration files and temporary files left behind by
// an interrupted run.
func (generator *Generator) clean(result *Result, files []File) error {
	stale, err := staleFiles(generator.fs, result.Dir, files)
	if err != nil {
		return err
	}
	for _, name := range stale {
		if err := generator.fs.Remove(filepath.Join(result.Dir, name)); err != nil {
			return errors.Wrapf(err, "remove stale file %s", name)
		}
		result.Removed = append(result.Removed, name)
	}
	return nil
}

func staleFiles(fs afero.Fs, dir string, files []File) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read output directory %s", dir)
	}
	expected := make(map[string]bool, len(files))
	for _, f := range files {
		expected[f.Name] = true
	}

	var stale []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || expected[name] {
			continue
		}
		leftover := strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp")
		if strings.HasSuffix(name, Extension) || leftover {
			stale = append(stale, name)
		}
	}
	return stale, nil
}

// Diff lists how a version directory differs from a set of rendered files.
type Diff struct {
	Changed []string
	Missing []string
	Stale   []string
}

func (d *Diff) Empty() bool {
	return len(d.Changed) == 0 && len(d.Missing) == 0 && len(d.Stale) == 0
}

// Compare reports the files in dir that differ from files without writing
// anything. A missing directory reports every file as missing.
func Compare(fs afero.Fs, dir string, files []File) (*Diff, error) {
	diff := &Diff{}
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "stat output directory %s", dir)
	}
	if !exists {
		for _, f := range files {
			diff.Missing = append(diff.Missing, f.Name)
		}
		return diff, nil
	}

	for _, f := range files {
		existing, err := afero.ReadFile(fs, filepath.Join(dir, f.Name))
		switch {
		case err != nil && os.IsNotExist(err):
			diff.Missing = append(diff.Missing, f.Name)
		case err != nil:
			return nil, errors.Wrapf(err, "read %s", f.Name)
		case !bytes.Equal(existing, f.Content):
			diff.Changed = append(diff.Changed, f.Name)
		}
	}

	diff.Stale, err = staleFiles(fs, dir, files)
	if err != nil {
		return nil, err
	}
	return diff, nil
}
