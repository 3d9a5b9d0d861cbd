// Command dwgdump inspects drawing files.
//
// Usage:
//
//	dwgdump info FILE
//	dwgdump sections [-out DIR] [-compress none|zstd|s2|lz4|ac18] FILE
//	dwgdump objects [-depth N] [-handle H] FILE
//	dwgdump dxf [-binary] [-out FILE] FILE
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/arloliu/dwgkit"
	"github.com/arloliu/dwgkit/compress"
	"github.com/arloliu/dwgkit/container"
	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/record"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "dwgdump: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: dwgdump <info|sections|objects|dxf> [flags] FILE")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return fmt.Errorf("missing command")
	}

	cmd, args := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "log diagnostics to stderr")
	strict := fs.Bool("strict", false, "fail on checksum mismatches in mandatory sections")

	var handler func(*container.File) error
	switch cmd {
	case "info":
		handler = func(f *container.File) error { return info(f, stdout) }
	case "sections":
		out := fs.String("out", ".", "directory for the section streams")
		algo := fs.String("compress", "none", "compression of the exported streams: none, zstd, s2, lz4, ac18")
		handler = func(f *container.File) error { return sections(f, *out, *algo, stdout) }
	case "objects":
		depth := fs.Int("depth", 2, "maximum nesting depth of the record dump")
		handle := fs.String("handle", "", "dump only the record with this hex handle")
		handler = func(f *container.File) error { return objects(ctx, f, *depth, *handle, stdout) }
	case "dxf":
		binary := fs.Bool("binary", false, "write binary DXF")
		out := fs.String("out", "", "output file; standard output when empty")
		handler = func(f *container.File) error { return toDXF(ctx, f, *binary, *out, stdout) }
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		usage(stderr)
		return fmt.Errorf("%s: expected one file", cmd)
	}

	logger := slog.New(slog.DiscardHandler)
	if *verbose {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	f, err := container.Open(fs.Arg(0),
		container.WithLogger(logger),
		container.WithStrictChecksums(*strict),
		container.WithKeepUnknown(true),
	)
	if err != nil {
		return err
	}
	defer f.Close()

	return handler(f)
}

func info(f *container.File, w io.Writer) error {
	i := f.Info()
	fmt.Fprintf(w, "version:      %s (%s)\n", i.Version, i.Version.Tag())
	fmt.Fprintf(w, "maintenance:  %d\n", i.Maintenance)
	fmt.Fprintf(w, "code page:    %d\n", i.CodePage)
	fmt.Fprintf(w, "security:     0x%X\n", i.SecurityType)
	fmt.Fprintf(w, "writable:     %t\n", i.Version.Writable())
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-22s %10s %6s %6s %s\n", "SECTION", "SIZE", "PAGES", "STORED", "COMPRESSED")
	for _, name := range f.Sections() {
		d, ok := f.Descriptor(name)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%-22s %10d %6d %6d %t\n", name, d.Size, len(d.Pages), d.StoredPages(), d.Compressed())
	}
	printDiagnostics(w, f.Diagnostics())

	return nil
}

func sections(f *container.File, dir, algo string, w io.Writer) error {
	ct, ok := format.ParseCompressionType(algo)
	if !ok {
		return fmt.Errorf("unknown compression %q", algo)
	}
	codec, err := compress.CreateCodec(ct, "section export")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	ext := ""
	if ct != format.CompressionNone {
		ext = "." + strings.ToLower(ct.String())
	}
	for _, name := range f.Sections() {
		data, err := f.Section(name)
		if err != nil {
			fmt.Fprintf(w, "%-22s skipped: %v\n", name, err)
			continue
		}
		packed, stats, err := compress.Measure(codec, ct, data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		path := filepath.Join(dir, strings.ReplaceAll(name, ":", "_")+".bin"+ext)
		if err := os.WriteFile(path, packed, 0o644); err != nil {
			return err
		}

		fmt.Fprintf(w, "%-22s %10d -> %10d (%5.1f%% saved) %s\n",
			name, stats.OriginalSize, stats.CompressedSize, stats.SpaceSavings(), path)
	}

	return nil
}

func objects(ctx context.Context, f *container.File, depth int, handle string, w io.Writer) error {
	doc, err := f.Document(ctx)
	if err != nil {
		return err
	}

	cs := spew.ConfigState{
		Indent:                  "  ",
		MaxDepth:                depth,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
	}

	if handle != "" {
		h, err := strconv.ParseUint(strings.TrimPrefix(handle, "0x"), 16, 64)
		if err != nil {
			return fmt.Errorf("handle %q: %w", handle, err)
		}
		rec, ok := doc.Record(h)
		if !ok {
			return fmt.Errorf("no record with handle 0x%X", h)
		}
		cs.Fdump(w, rec)

		return nil
	}

	for h, rec := range doc.All() {
		fmt.Fprintf(w, "--- 0x%X %s\n", h, recordName(rec))
		cs.Fdump(w, rec)
	}
	printDiagnostics(w, doc.Diagnostics())

	return nil
}

func recordName(rec record.Record) string {
	if u, ok := rec.(*record.Unknown); ok && u.ClassName != "" {
		return u.ClassName
	}

	return rec.Type().String()
}

func toDXF(ctx context.Context, f *container.File, binary bool, out string, stdout io.Writer) (err error) {
	doc, err := f.Document(ctx)
	if err != nil {
		return err
	}

	dst := stdout
	if out != "" {
		var file *os.File
		if file, err = os.Create(out); err != nil {
			return err
		}
		defer func() {
			if cerr := file.Close(); err == nil {
				err = cerr
			}
		}()
		dst = file
	}

	return dwgkit.WriteDXF(dst, doc, binary)
}

func printDiagnostics(w io.Writer, ds []diag.Diagnostic) {
	if len(ds) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%d diagnostics:\n", len(ds))
	for _, d := range ds {
		fmt.Fprintf(w, "  %s\n", d)
	}
}
