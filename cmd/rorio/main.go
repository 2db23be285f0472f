// Package main provides the rorio binary entry point.
// rorio converts the Research Organization Registry dump into an ontology
// (OWL, OBO, OBO Graph JSON, OFN) and a name grounding index.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	// Register publish backends via init()
	_ "github.com/c360studio/rorio/storage/gcs"
	_ "github.com/c360studio/rorio/storage/local"
	_ "github.com/c360studio/rorio/storage/s3"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "rorio"

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flags are shared by the build and publish commands.
type flags struct {
	configPath string
	outputDir  string
	logLevel   string
	logFormat  string
	refresh    bool
}

func rootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Build the Research Organization Registry ontology",
		Long: `rorio downloads the Research Organization Registry dump and converts it
into an ontology of organizations and cities.

Outputs (in output.dir):
- <basename>.owl   RDF/XML
- <basename>.obo   OBO flat file
- <basename>.json  OBO Graph JSON
- <basename>.ofn   OWL functional syntax
- a gzip TSV name index for grounding tools

Every output is read back and compared before the set replaces the
previous one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, f)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "Config file path (YAML)")
	pf.StringVarP(&f.outputDir, "output", "o", "", "Output directory (overrides output.dir)")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&f.logFormat, "log-format", "", "Log format (text, json)")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "Ignore a cached dump and download again")

	cmd.AddCommand(publishCmd(f))
	cmd.AddCommand(configCmd(f))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func publishCmd(f *flags) *cobra.Command {
	var (
		release   string
		backend   string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the output set to the configured storage backend",
		Long: `Uploads every file of the output directory under
<prefix>/<release>/<file> and <prefix>/latest/<file>.

The release defaults to the version recorded in the ontology header.
An existing release is not replaced unless --overwrite is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, f, release, backend, overwrite)
		},
	}

	cmd.Flags().StringVar(&release, "release", "", "Release name (default: ontology version)")
	cmd.Flags().StringVar(&backend, "backend", "", "Storage backend (local, s3, gcs)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an already published release")
	return cmd
}

func configCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, f)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the user config file with defaults if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd)
		},
	})
	return cmd
}
