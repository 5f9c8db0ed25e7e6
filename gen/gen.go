package gen

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config holds configuration for a generator run
type Config struct {
	// Dir is the package directory. Empty means the working directory.
	Dir string

	// DryRun renders without writing files.
	DryRun bool
}

// OutputPath returns the generated file name for a source file.
func OutputPath(source string) string {
	return strings.TrimSuffix(source, ".go") + OutputSuffix
}

// Generate parses dir and renders one output per annotated file, plus
// FuncsFile when the package has //som:func functions.
func Generate(ctx context.Context, dir string) ([]Output, error) {
	pkg, err := Parse(ctx, dir)
	if err != nil {
		return nil, err
	}

	outs := make([]Output, len(pkg.Files))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range pkg.Files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := render(OutputPath(f.Path), fileData{
				Package: pkg.Name,
				Assets:  f.Assets,
				Modules: f.Modules,
			})
			outs[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(pkg.Funcs) > 0 {
		out, err := render(filepath.Join(dir, FuncsFile), fileData{
			Package: pkg.Name,
			Funcs:   pkg.Funcs,
		})
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// Run generates and writes the outputs for cfg.Dir.
func Run(ctx context.Context, cfg *Config) ([]Output, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}

	outs, err := Generate(ctx, dir)
	if err != nil {
		return nil, err
	}
	if cfg.DryRun {
		return outs, nil
	}

	var werr error
	for _, out := range outs {
		if err := os.WriteFile(out.Path, out.Source, 0o644); err != nil {
			werr = multierr.Append(werr, err)
			continue
		}
		Logger().Info("generated", zap.String("file", out.Path))
	}
	return outs, werr
}
