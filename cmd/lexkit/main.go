// Package main is the lexkit command line tool: lex files with a named
// grammar and print token streams, fold levels, or colorized source.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"

	"github.com/dshills/lexkit/internal/fold"
	"github.com/dshills/lexkit/internal/lexer"
	"github.com/dshills/lexkit/internal/registry"
	"github.com/dshills/lexkit/internal/style"
	"github.com/dshills/lexkit/internal/token"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	grammarName string
	configPath  string
	searchPath  string
	mode        string
	themeName   string
	themeFile   string
	showVersion bool
	files       []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()
	if opts.showVersion {
		fmt.Printf("lexkit %s (%s)\n", version, commit)
		return 0
	}
	if len(opts.files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no input files")
		flag.Usage()
		return 2
	}

	cfg, err := registry.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.searchPath != "" {
		cfg.SearchPath = registry.SplitSearchPath(opts.searchPath)
	}

	reg := registry.Default(
		registry.WithSearchPath(cfg.SearchPath...),
		registry.WithLuaConfig(cfg.Lua),
	)
	g, err := reg.Load(opts.grammarName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading grammar %q: %v\n", opts.grammarName, err)
		return 1
	}

	theme, err := pickTheme(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	for _, path := range opts.files {
		input, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		session := lexer.NewSession(g,
			lexer.WithResolver(reg),
			lexer.WithMaxDepth(cfg.MaxDepth),
			lexer.WithTabWidth(cfg.TabWidth),
		)
		res := session.LexAll(input)
		if len(opts.files) > 1 {
			fmt.Printf("== %s\n", path)
		}
		switch opts.mode {
		case "pairs":
			fmt.Println(res.Stream.String())
		case "tokens":
			printTokens(input, res.Stream)
		case "folds":
			printFolds(res.Folds, res.Indents)
		case "color":
			printColor(input, res.Stream, theme)
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown mode %q\n", opts.mode)
			return 2
		}
	}
	return 0
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.grammarName, "grammar", "plain", "grammar name to lex with")
	flag.StringVar(&opts.configPath, "config", "lexkit.toml", "configuration file")
	flag.StringVar(&opts.searchPath, "path", "", "grammar search path (overrides config)")
	flag.StringVar(&opts.mode, "mode", "tokens", "output mode: pairs, tokens, folds, color")
	flag.StringVar(&opts.themeName, "theme", "", "built-in theme name for color mode")
	flag.StringVar(&opts.themeFile, "theme-file", "", "YAML theme file for color mode")
	flag.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	flag.Parse()
	opts.files = flag.Args()
	return opts
}

func pickTheme(opts options) (*style.Theme, error) {
	if opts.themeFile != "" {
		return style.LoadFile(opts.themeFile)
	}
	themes := style.NewRegistry()
	if opts.themeName != "" {
		if !themes.SetCurrent(opts.themeName) {
			return nil, fmt.Errorf("unknown theme %q", opts.themeName)
		}
	}
	return themes.Current(), nil
}

func printTokens(input []byte, stream token.Stream) {
	for i := range stream {
		fmt.Printf("%4d-%-4d %-12s %q\n",
			stream.Start(i), stream[i].End, stream[i].Class, stream.Text(input, i))
	}
}

func printFolds(levels []fold.Level, indents []int) {
	for i, lv := range levels {
		flags := ""
		if lv.Header {
			flags += "H"
		}
		if lv.Blank {
			flags += "B"
		}
		fmt.Printf("%4d level=%d indent=%d %s\n", i, lv.Level-fold.LevelBase, indents[i], flags)
	}
}

// printColor writes the input with each token wrapped in the terminal
// color its style string names. Only the fore:#rrggbb component is
// honored; everything else in a style string is host-editor territory.
func printColor(input []byte, stream token.Stream, theme *style.Theme) {
	resolver := style.NewResolver(theme, nil)
	for i := range stream {
		text := stream.Text(input, i)
		r, g, b, ok := foreColor(resolver.Resolve(stream[i].Class))
		if !ok {
			fmt.Print(text)
			continue
		}
		color.RGB(r, g, b).Print(text)
	}
}

// foreColor extracts the fore:#rrggbb component of a style string.
func foreColor(s string) (r, g, b int, ok bool) {
	const key = "fore:#"
	for i := 0; i+len(key)+6 <= len(s); i++ {
		if s[i:i+len(key)] != key {
			continue
		}
		hex := s[i+len(key) : i+len(key)+6]
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, 0, 0, false
		}
		return int(v >> 16), int(v >> 8 & 0xff), int(v & 0xff), true
	}
	return 0, 0, 0, false
}
