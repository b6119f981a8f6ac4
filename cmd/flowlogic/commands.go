package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flowgraph/flowlogic/internal/adapters/repository"
	"github.com/flowgraph/flowlogic/internal/app/dto"
	"github.com/flowgraph/flowlogic/internal/app/services"
	"github.com/flowgraph/flowlogic/internal/app/usecases"
	"github.com/flowgraph/flowlogic/internal/config"
	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/internal/core/schema"
	"github.com/flowgraph/flowlogic/pkg/flowlogic"
)

// cli holds state shared by the subcommands of one invocation.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg    *config.Config
	logger *slog.Logger

	envFile   string
	logLevel  string
	logFormat string
	strict    bool
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "flowlogic",
		Short:         "Generate runtime logic bundles from visual flow graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.envFile, "env-file", "", "load FLOWLOGIC_* settings from this .env file")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&c.logFormat, "log-format", "", "log format (json, text)")
	flags.BoolVar(&c.strict, "strict", false, "reject snapshots with unsupported node types")

	root.AddCommand(c.resolveCmd(), c.compileCmd(), c.versionCmd())
	return root
}

// setup loads configuration; flags that were set override environment values.
func (c *cli) setup(cmd *cobra.Command) error {
	var files []string
	if c.envFile != "" {
		files = append(files, c.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = c.logFormat
	}
	if flags.Changed("strict") {
		cfg.Strict = c.strict
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// CLI logs go to stderr so stdout stays machine readable.
	c.cfg = cfg
	c.logger = cfg.Logger(c.stderr).With("service", "flowlogic", "version", flowlogic.Version)
	return nil
}

func (c *cli) resolveCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the flow wiring of a snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := c.readSnapshot(file)
			if err != nil {
				return err
			}
			gen := usecases.NewGenerator(
				usecases.WithLogger(c.logger),
				usecases.WithValidationConfig(c.cfg.ValidationConfig()),
			)
			resp, err := gen.Resolve(cmd.Context(), &dto.WiringRequest{Snapshot: snap})
			if err != nil {
				return err
			}
			return c.printJSON(resp)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "snapshot file (.yaml, .yml or .json); - reads YAML from stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (c *cli) compileCmd() *cobra.Command {
	var (
		file    string
		ctxName string
		outDir  string
		persist bool
	)
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile the flows of one runtime context into a logic bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := c.readSnapshot(file)
			if err != nil {
				return err
			}

			opts := []usecases.Option{
				usecases.WithLogger(c.logger),
				usecases.WithValidationConfig(c.cfg.ValidationConfig()),
			}
			if persist {
				store, err := c.openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer store.Close()
				opts = append(opts, usecases.WithStore(services.NewArtifactService(store.Saver, c.logger, nil)))
			}

			gen := usecases.NewGenerator(opts...)
			resp, err := gen.Generate(cmd.Context(), &dto.GenerateRequest{
				Snapshot: snap,
				Context:  flow.Context(ctxName),
				Persist:  persist,
			})
			if err != nil {
				return err
			}

			if outDir == "" {
				return c.printJSON(resp)
			}
			if err := writeBundle(outDir, resp); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "wrote %d files to %s (digest %s)\n", len(resp.Files), outDir, resp.Digest)
			if resp.ArtifactID != "" {
				fmt.Fprintf(c.stdout, "artifact %s\n", resp.ArtifactID)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&file, "file", "f", "", "snapshot file (.yaml, .yml or .json); - reads YAML from stdin")
	flags.StringVarP(&ctxName, "context", "c", string(flow.ContextFrontend), "runtime context (frontend, backend)")
	flags.StringVarP(&outDir, "out", "o", "", "write the bundle below this directory instead of printing JSON")
	flags.BoolVar(&persist, "persist", false, "store the bundle in the configured artifact store")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(c.stdout, "flowlogic %s (commit: %s, built: %s)\n", flowlogic.Version, Commit, BuildTime)
			return err
		},
	}
}

func (c *cli) openStore(ctx context.Context) (*repository.Store, error) {
	if c.cfg.Store == config.StoreNone {
		return nil, fmt.Errorf("--persist needs an artifact store; set FLOWLOGIC_STORE")
	}
	return repository.Open(ctx, c.cfg)
}

func (c *cli) readSnapshot(path string) (*schema.Snapshot, error) {
	if path == "-" {
		return schema.Decode(c.stdin, schema.FormatYAML)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return schema.Decode(f, schema.FormatFromPath(path))
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeBundle writes every bundle file below dir, creating directories.
func writeBundle(dir string, resp *dto.GenerateResponse) error {
	for _, f := range resp.Files {
		target := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
	}
	return nil
}
