// jitc is the sample driver SPEC_FULL.md §2 describes: a small textual
// assembler (assemble.go) wired to a cobra CLI, the same command-tree
// shape as the retrieval pack's only third-party CLI stack
// (oisee-z80-optimizer's cmd/z80opt) — root command, one subcommand per
// verb, flags bound with Flags().*Var, RunE returning the error cobra
// reports. It replaces the teacher's hand-rolled flag-based main.go with
// the pack's own idiom for a multi-verb command-line tool.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"github.com/spf13/cobra"

	jit "jit"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jitc",
		Short: "jitc — build, run, and disassemble functions from a textual IR assembly",
	}

	var cacheLimit int64
	var pageSize int64

	newContext := func() *jit.Context {
		ctx := jit.NewContext()
		if pageSize > 0 {
			ctx.SetOption(jit.OptionCachePageSize, pageSize)
		}
		if cacheLimit > 0 {
			ctx.SetOption(jit.OptionCacheLimit, cacheLimit)
		}
		return ctx
	}

	assembleAndCompile := func(path string) (map[string]*jit.Function, *jit.Context, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()

		ctx := newContext()
		ctx.BuildStart()
		funcs, err := Assemble(ctx, f)
		if err != nil {
			ctx.BuildEnd()
			return nil, nil, err
		}
		for name, fn := range funcs {
			if err := fn.Compile(); err != nil {
				ctx.BuildEnd()
				return nil, nil, fmt.Errorf("compiling %s: %w", name, err)
			}
		}
		ctx.BuildEnd()
		return funcs, ctx, nil
	}

	buildCmd := &cobra.Command{
		Use:   "build [file.jasm]",
		Short: "Assemble and compile every function in a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			funcs, _, err := assembleAndCompile(args[0])
			if err != nil {
				return err
			}
			for name, fn := range funcs {
				fmt.Printf("%s: entry=0x%x size=%d bytes\n", name, fn.EntryPoint(), fn.CodeSize())
			}
			return nil
		},
	}
	buildCmd.Flags().Int64Var(&cacheLimit, "cache-limit", 0, "page budget for the code cache (0 = unbounded)")
	buildCmd.Flags().Int64Var(&pageSize, "page-size", 0, "code cache page size in bytes (0 = OS page size)")

	runCmd := &cobra.Command{
		Use:   "run [file.jasm] [function] [args...]",
		Short: "Assemble, compile, and apply one function with integer arguments",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			funcs, _, err := assembleAndCompile(args[0])
			if err != nil {
				return err
			}
			fn, ok := funcs[args[1]]
			if !ok {
				return fmt.Errorf("no function named %q in %s", args[1], args[0])
			}
			argVals := make([]int64, 0, len(args)-2)
			for _, a := range args[2:] {
				n, err := strconv.ParseInt(a, 10, 64)
				if err != nil {
					return fmt.Errorf("argument %q: %w", a, err)
				}
				argVals = append(argVals, n)
			}
			result, err := fn.Apply(argVals)
			if err != nil {
				return err
			}
			fmt.Println(result)
			return nil
		},
	}
	runCmd.Flags().Int64Var(&cacheLimit, "cache-limit", 0, "page budget for the code cache (0 = unbounded)")
	runCmd.Flags().Int64Var(&pageSize, "page-size", 0, "code cache page size in bytes (0 = OS page size)")

	disasmCmd := &cobra.Command{
		Use:   "disasm [file.jasm] [function]",
		Short: "Dump the compiled native bytes of one function as hex",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			funcs, _, err := assembleAndCompile(args[0])
			if err != nil {
				return err
			}
			fn, ok := funcs[args[1]]
			if !ok {
				return fmt.Errorf("no function named %q in %s", args[1], args[0])
			}
			size := fn.CodeSize()
			bytes := unsafe.Slice((*byte)(unsafe.Pointer(fn.EntryPoint())), size)
			var sb strings.Builder
			for i, b := range bytes {
				if i > 0 && i%16 == 0 {
					sb.WriteByte('\n')
				} else if i > 0 {
					sb.WriteByte(' ')
				}
				fmt.Fprintf(&sb, "%02x", b)
			}
			fmt.Println(sb.String())
			return nil
		},
	}

	rootCmd.AddCommand(buildCmd, runCmd, disasmCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
