package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wasmlink/ffigen/abi"
	"github.com/wasmlink/ffigen/host"
	"github.com/wasmlink/ffigen/lower"
	"github.com/wasmlink/ffigen/multivalue"
)

func main() {
	var (
		ifacePath   = flag.String("iface", "", "Path to interface description (JSON)")
		targetName  = flag.String("target", abi.NativeTarget().String(), "ABI target: native32, native64, wasm32")
		list        = flag.Bool("list", false, "List lowered imports and exit")
		rewritePath = flag.String("multivalue", "", "Rewrite the given wasm module for multi-value returns")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *ifacePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: ffigen -iface <interface.json> [-target wasm32] -list")
		fmt.Fprintln(os.Stderr, "       ffigen -iface <interface.json> -target wasm32 -multivalue <module.wasm>")
		fmt.Fprintln(os.Stderr, "       ffigen -iface <interface.json> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
		multivalue.SetLogger(log.Named("multivalue"))
		host.SetLogger(log.Named("host"))
	}

	target, err := parseTarget(*targetName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*ifacePath, target); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*ifacePath, target, *list, *rewritePath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseTarget(name string) (abi.Target, error) {
	switch name {
	case "native32":
		return abi.Native32, nil
	case "native64":
		return abi.Native64, nil
	case "wasm32":
		return abi.Wasm32, nil
	}
	return 0, fmt.Errorf("unknown target %q", name)
}

func run(ifacePath string, target abi.Target, listOnly bool, rewritePath string) error {
	iface, err := loadInterface(ifacePath)
	if err != nil {
		return fmt.Errorf("load interface: %w", err)
	}

	imports, err := lower.Imports(iface, target)
	if err != nil {
		return fmt.Errorf("lower: %w", err)
	}

	fmt.Printf("Interface: %s\n", ifacePath)
	fmt.Printf("Target: %s\n", target)
	fmt.Printf("Objects: %d\n", len(iface.Objects))
	fmt.Printf("Imports: %d\n", len(imports))

	fmt.Printf("\nLowered imports:\n")
	for _, imp := range imports {
		fmt.Printf("  %s%s  [%d instrs]\n", imp.Symbol, slotSignature(imp), len(imp.Instrs))
	}
	if listOnly {
		return nil
	}

	if rewritePath != "" {
		rw := &multivalue.Rewriter{}
		if err := rw.Run(context.Background(), rewritePath, imports); err != nil {
			return fmt.Errorf("multivalue rewrite: %w", err)
		}
		fmt.Printf("\nRewrote %s\n", rewritePath)
		return nil
	}

	fmt.Printf("\nInstruction sequences:\n")
	for _, imp := range imports {
		fmt.Printf("\n%s:\n", imp.Symbol)
		for _, line := range instrLines(imp.Instrs, "  ") {
			fmt.Println(line)
		}
	}
	return nil
}
