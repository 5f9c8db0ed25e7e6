// Command somgen writes the SOM glue for annotated types in a package.
//
//	//go:generate go run github.com/wippyai/script-bridge/cmd/somgen -dir .
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/gen"
)

func main() {
	var (
		dir     = flag.String("dir", ".", "Package directory to scan")
		dryRun  = flag.Bool("n", false, "Print generated files instead of writing them")
		verbose = flag.Bool("v", false, "Log each generated file")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: somgen [-dir pkg] [-n] [-v]")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() > 0 {
		flag.Usage()
		os.Exit(1)
	}

	if *verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
		gen.SetLogger(log.Named("somgen"))
	}

	if err := run(*dir, *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dir string, dryRun bool) error {
	outs, err := gen.Run(context.Background(), &gen.Config{Dir: dir, DryRun: dryRun})
	if err != nil {
		return err
	}
	if len(outs) == 0 {
		fmt.Fprintf(os.Stderr, "somgen: no annotated types in %s\n", dir)
		return nil
	}
	if dryRun {
		for _, out := range outs {
			fmt.Printf("// --- %s ---\n%s\n", out.Path, out.Source)
		}
	}
	return nil
}
