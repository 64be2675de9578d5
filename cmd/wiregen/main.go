// Command wiregen generates Go record types from .proto files.
//
// It reads a TOML configuration (wiregen.toml by default) that lists the
// import paths to search and one or more targets:
//
//	import_paths = ["proto"]
//
//	[[target]]
//	name = "api"
//	files = ["acme/billing/v1/billing.proto"]
//	out = "gen"
//	import_root = "example.com/acme/gen"
//	exclude = ["acme.billing.v1.Internal"]
//
//	[[target.extern]]
//	path = "google.protobuf.Timestamp"
//	target = "example.com/acme/clock.Instant"
//
// Targets are independent and are generated concurrently.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bufbuild/protocompile"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/jhump/protoschema/wiregen"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "wiregen: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	flags := flag.NewFlagSet("wiregen", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "wiregen.toml", "path to the TOML configuration")
	only := flags.String("target", "", "generate only the named target")
	verbose := flags.Bool("v", false, "log skipped types and written files")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", flags.Args())
	}

	logger := initLogger(stderr, *verbose)
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	targets := cfg.Targets
	if *only != "" {
		targets = nil
		for _, t := range cfg.Targets {
			if t.Name == *only {
				targets = append(targets, t)
			}
		}
		if len(targets) == 0 {
			return fmt.Errorf("no target named %q in %s", *only, *configPath)
		}
	}
	return generateAll(ctx, cfg.ImportPaths, targets, logger)
}

func initLogger(w io.Writer, verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", "wiregen").Logger()
}

// generateAll generates every target. Targets share no state, so they run
// in parallel; the first failure cancels the rest.
func generateAll(ctx context.Context, importPaths []string, targets []Target, logger zerolog.Logger) error {
	grp, ctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		t := t
		grp.Go(func() error {
			if err := generateTarget(ctx, importPaths, t, logger.With().Str("target", t.Name).Logger()); err != nil {
				return fmt.Errorf("target %s: %w", t.Name, err)
			}
			return nil
		})
	}
	return grp.Wait()
}

func generateTarget(ctx context.Context, importPaths []string, t Target, logger zerolog.Logger) error {
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			ImportPaths: importPaths,
		}),
		SourceInfoMode: protocompile.SourceInfoStandard,
	}
	files, err := compiler.Compile(ctx, t.Files...)
	if err != nil {
		return err
	}
	fds := make([]protoreflect.FileDescriptor, len(files))
	for i, f := range files {
		fds[i] = f
	}

	g := &wiregen.Generator{
		ImportRoot:        t.ImportRoot,
		ExternTypes:       t.Extern,
		NoWellKnownTypes:  t.NoWellKnownTypes,
		Filter:            t.filter(),
		KeepOneofWrappers: t.KeepOneofWrappers,
		StrictFormatting:  t.StrictFormatting,
		Logger:            &logger,
	}
	if err := g.GenerateToFileSystem(fds, t.Out); err != nil {
		return err
	}
	logger.Info().Int("files", len(fds)).Str("out", t.Out).Msg("generated")
	return nil
}
