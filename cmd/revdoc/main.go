// Command revdoc inspects incremental-update documents.
//
//	revdoc [flags] info <file>
//	revdoc [flags] revisions <file>
//	revdoc [flags] list <file>
//	revdoc [flags] get <file> <num> [gen]
//	revdoc [flags] clone <file> <target>
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"

	"github.com/jpl-au/revdoc"
	"github.com/jpl-au/revdoc/object"
)

var (
	revision = flag.IntP("revision", "r", -1, "revision to inspect (default newest)")
	format   = flag.StringP("format", "f", "text", "output format for get: text, json or yaml")
	history  = flag.Bool("history", false, "clone keeps the revision chain instead of consolidating")
	verbose  = flag.BoolP("verbose", "v", false, "log debug output")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "revdoc: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: revdoc [flags] info|revisions|list|get|clone <file> [args]\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		return errors.New("missing command or file")
	}

	ll := &slog.LevelVar{}
	ll.Set(slog.LevelWarn)
	if *verbose {
		ll.Set(slog.LevelDebug)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))

	cmd, path := args[0], args[1]
	if _, err := os.Stat(path); err != nil {
		return err // Open would create it
	}
	doc, err := revdoc.Open(path, revdoc.Config{Logger: logger})
	if err != nil {
		return err
	}
	defer doc.Close()

	if *revision >= 0 {
		if err := doc.ChangeRevision(*revision); err != nil {
			return err
		}
	}

	switch cmd {
	case "info":
		fmt.Printf("revisions:  %d\n", doc.Revisions())
		fmt.Printf("active:     %d\n", doc.Active())
		fmt.Printf("objects:    %d\n", doc.Count())
		fmt.Printf("linearized: %t\n", doc.IsLinearized())
	case "revisions":
		for _, r := range doc.History() {
			fmt.Printf("%d\t%d\t%d\t%d\t%s\n", r.Index, r.Offset, r.End, r.Objects, r.Timestamp.Format("2006-01-02T15:04:05"))
		}
	case "list":
		for _, id := range doc.IDs() {
			fmt.Println(id)
		}
	case "get":
		return get(doc, args[2:])
	case "clone":
		if len(args) != 3 {
			return errors.New("clone: missing target")
		}
		return doc.Clone(args[2], &revdoc.CloneOptions{KeepHistory: *history})
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func get(doc *revdoc.Document, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("get: want <num> [gen]")
	}
	num, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("get: object number: %w", err)
	}
	id, ok := doc.Lookup(uint32(num))
	if len(args) == 2 {
		gen, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			return fmt.Errorf("get: generation: %w", err)
		}
		id, ok = object.ID{Num: uint32(num), Gen: uint16(gen)}, true
	}
	if !ok {
		return fmt.Errorf("get: %d: %w", num, revdoc.ErrNotFound)
	}

	obj, err := doc.Get(id)
	if err != nil {
		return err
	}
	out, err := render(obj, *format)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
