// Command somrun exercises the demo assets against the reference engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	var (
		funcName    = flag.String("call", "", "Function or Person method to call (e.g. native.sum, Person.format)")
		args        = flag.String("args", "", "Arguments, ';'-separated per parameter; functions take a literal list")
		list        = flag.Bool("list", false, "List callables and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Log bridge activity to stderr")
	)
	flag.Parse()

	log := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer l.Sync()
		log = l
	}

	if *interactive || (*funcName == "" && !*list && term.IsTerminal(int(os.Stdout.Fd()))) {
		if err := runInteractive(log); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(log, *funcName, *args, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(log *zap.Logger, funcName, argStr string, listOnly bool) error {
	ctx := context.Background()

	s, err := newSession(ctx, log)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	if listOnly || funcName == "" {
		fmt.Printf("Callables:\n")
		for _, t := range s.targets {
			fmt.Printf("  %s\n", formatTarget(t))
		}
		fmt.Printf("\nGlobal Person: %s\n", s.arthur.Format())
		if funcName == "" && !listOnly {
			fmt.Printf("\nUse -call to call one of them.\n")
		}
		return nil
	}

	t, ok := s.find(funcName)
	if !ok {
		return fmt.Errorf("unknown callable %q (try -list)", funcName)
	}
	var inputs []string
	if argStr != "" {
		inputs = strings.Split(argStr, ";")
	}

	fmt.Printf("Calling %s(%s)...\n", t.name, strings.Join(inputs, "; "))
	result, err := s.call(ctx, t, inputs)
	if err != nil {
		return fmt.Errorf("call %s: %w", t.name, err)
	}
	fmt.Printf("Result: %s\n", result)
	return nil
}

func formatTarget(t target) string {
	params := make([]string, len(t.params))
	for i, p := range t.params {
		params[i] = p.name + ": " + p.typeStr
	}
	result := ""
	if t.result != "" {
		result = " -> " + t.result
	}
	return t.name + "(" + strings.Join(params, ", ") + ")" + result
}
