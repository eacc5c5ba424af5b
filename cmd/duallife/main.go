package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/frederic-klein/duallife/internal/config"
	"github.com/frederic-klein/duallife/internal/crosscheck"
	"github.com/frederic-klein/duallife/internal/differ"
	"github.com/frederic-klein/duallife/internal/fetcher"
	"github.com/frederic-klein/duallife/internal/index"
	"github.com/frederic-klein/duallife/internal/reconcile"
	"github.com/frederic-klein/duallife/internal/registry"
	"github.com/frederic-klein/duallife/internal/report"
)

var (
	allModules   bool
	cacheDir     string
	registryPath string
	coreRoot     string
	mirror       string
	fetchCmd     string
	outputPath   string
	diffMode     bool
	diffOpts     string
	reverseDiff  bool
	verbose      bool
	forceIndex   bool
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := newRootCmd(cfg)
	rootCmd.SetArgs(defaultToCompare(rootCmd, os.Args[1:]))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "duallife",
		Short: "Reconciles dual-life modules between the core tree and the package archive",
		Long: "duallife compares the files of a module's published distribution against " +
			"their copies in the core source tree, and crosschecks the registry's " +
			"recorded distribution versions against the live package index.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&allModules, "all", false, "Operate on every dual-life module in the registry")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cachedir", cfg.CacheDir, "Persistent cache directory (must exist)")
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", cfg.Registry, "Module registry file")
	rootCmd.PersistentFlags().StringVar(&coreRoot, "coreroot", cfg.CoreRoot, "Core source tree root")
	rootCmd.PersistentFlags().StringVar(&mirror, "mirror", cfg.Mirror, "Package archive mirror URL")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "Write report to a file instead of stdout")

	compareCmd := &cobra.Command{
		Use:   "compare [module...]",
		Short: "Compare distribution archives against the core tree",
		RunE:  runCompare,
	}
	compareCmd.Flags().BoolVar(&diffMode, "diff", false, "Report literal line diffs instead of classification lines")
	compareCmd.Flags().StringVar(&diffOpts, "diffopts", differ.DefaultOptions, "Options forwarded to the line-diff capability")
	compareCmd.Flags().BoolVar(&reverseDiff, "reverse", false, "Swap diff direction (core tree vs archive)")
	compareCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include Unchanged/Excluded/Ignored lines")
	compareCmd.Flags().StringVar(&fetchCmd, "fetch-cmd", cfg.FetchCmd, "External download command instead of the built-in HTTP client")

	crosscheckCmd := &cobra.Command{
		Use:   "crosscheck [module...]",
		Short: "Check recorded distribution versions against the package index",
		RunE:  runCrosscheck,
	}
	crosscheckCmd.Flags().BoolVar(&forceIndex, "force", false, "Re-download the package index even if cached")

	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(crosscheckCmd)

	return rootCmd
}

// defaultToCompare makes compare the default mode: an argument list that
// does not name a subcommand is handed to compare, so `duallife Foo::Bar`
// and `duallife --all` behave like `duallife compare ...`. Help and
// completion requests pass through untouched.
func defaultToCompare(root *cobra.Command, args []string) []string {
	for _, a := range args {
		if a == "-h" || a == "--help" || a == "help" || a == "completion" {
			return args
		}
	}
	if cmd, _, err := root.Find(args); err == nil && cmd != root {
		return args
	}
	return append([]string{"compare"}, args...)
}

func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// moduleList resolves --all or the explicit argument list; exactly one of
// the two must be given.
func moduleList(reg registry.Registry, args []string) ([]string, error) {
	if allModules && len(args) > 0 {
		return nil, fmt.Errorf("--all and an explicit module list are mutually exclusive")
	}
	if allModules {
		return reg.DualLife(), nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no modules given (use --all or list modules)")
	}
	return args, nil
}

// openOutput returns the report destination and a close function.
func openOutput() (io.Writer, func() error, error) {
	if outputPath == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

func openWorkspace() (*fetcher.Workspace, error) {
	if cacheDir != "" {
		return fetcher.NewCacheWorkspace(cacheDir)
	}
	return fetcher.NewTempWorkspace()
}

func runCompare(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	reg, err := registry.Load(registryPath, coreRoot)
	if err != nil {
		return err
	}
	modules, err := moduleList(reg, args)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	fetchOpts := []fetcher.Option{fetcher.WithLogger(logger)}
	if fetchCmd != "" {
		fetchOpts = append(fetchOpts, fetcher.WithTransport(fetcher.NewCommandTransport(fetchCmd)))
	}
	f := fetcher.New(mirror, ws, fetchOpts...)

	rep := report.New(out, verbose, diffMode)
	opts := []reconcile.Option{
		reconcile.WithCoreRoot(coreRoot),
		reconcile.WithLogger(logger),
	}
	if diffMode {
		opts = append(opts, reconcile.WithDiffer(differ.ForOptions(diffOpts)), reconcile.WithReverse(reverseDiff))
	}

	return reconcile.New(reg, f, rep, opts...).Run(modules)
}

func runCrosscheck(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	reg, err := registry.Load(registryPath, coreRoot)
	if err != nil {
		return err
	}
	modules, err := moduleList(reg, args)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	rep := report.New(out, false, false)
	idx := index.New(mirror, ws.ArchiveDir(), index.WithWarnFunc(rep.Warningf))

	logger.Info("loading package index", "mirror", mirror, "force", forceIndex)
	if err := idx.Load(forceIndex); err != nil {
		return err
	}

	return crosscheck.New(reg, idx, rep, logger).Run(modules)
}
