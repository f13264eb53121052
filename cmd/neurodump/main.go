// neurodump prints the field tree of an encoded buffer without knowing its
// schema. Input may be compressed with gzip, zstd or lz4; the algorithm is
// detected from the magic bytes unless --compression names one.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/oy3o/neuro"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type config struct {
	bundle      bool
	records     bool
	compression string
	limit       int64
	maxBytes    int
	verbose     bool
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var cfg config
	flagSet := pflag.NewFlagSet("neurodump", pflag.ContinueOnError)
	flagSet.BoolVar(&cfg.bundle, "bundle", false, "dump the input as a bundle of named items")
	flagSet.BoolVar(&cfg.records, "records", false, "dump the input as a stream of length-prefixed records")
	flagSet.StringVar(&cfg.compression, "compression", "auto", "input compression: auto, none, gzip, zstd or lz4")
	flagSet.Int64Var(&cfg.limit, "limit", neuro.DefaultDecompressLimit, "maximum decompressed size in bytes")
	flagSet.IntVar(&cfg.maxBytes, "max-bytes", 32, "bytes of each length payload to show")
	flagSet.BoolVarP(&cfg.verbose, "verbose", "v", false, "log decoding steps to stderr")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: neurodump [flags] [file|-]\n\n%s", flagSet.FlagUsages())
	}

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if cfg.bundle && cfg.records {
		return fmt.Errorf("--bundle and --records are mutually exclusive")
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	neuro.SetLogger(logger)

	var src io.Reader = stdin
	name := "-"
	if rest := flagSet.Args(); len(rest) > 1 {
		return fmt.Errorf("unexpected argument: %s", rest[1])
	} else if len(rest) == 1 && rest[0] != "-" {
		name = rest[0]
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	data, err := load(src, cfg, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.Debug("loaded input", "file", name, "size", len(data))

	opts := neuro.DumpOptions{Bundle: cfg.bundle, MaxBytes: cfg.maxBytes}
	if !cfg.records {
		return neuro.Dump(stdout, data, opts)
	}
	return dumpRecords(stdout, data, opts)
}

// load reads the input and undoes its compression.
func load(src io.Reader, cfg config, logger *slog.Logger) ([]byte, error) {
	if cfg.compression == "auto" {
		rc, c, err := neuro.NewDecompressReader(src, cfg.limit)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		logger.Debug("detected compression", "compression", c)
		return io.ReadAll(rc)
	}
	c, err := neuro.ParseCompression(cfg.compression)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return neuro.Decompress(raw, c, cfg.limit)
}

// dumpRecords dumps each record of a stream written by neuro.Encoder.
func dumpRecords(stdout io.Writer, data []byte, opts neuro.DumpOptions) error {
	sr, err := neuro.NewStreamReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	var buf []byte
	for i := 0; ; i++ {
		buf = sr.ReadLength(buf, neuro.MaxRecordSize)
		if sr.IsEOF() {
			return nil
		}
		if err := sr.Err(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		fmt.Fprintf(stdout, "record %d size=%d\n", i, len(buf))
		if err := neuro.Dump(stdout, buf, opts); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
}
