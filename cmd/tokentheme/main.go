package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jsvensson/tokentheme/internal/config"
	"github.com/jsvensson/tokentheme/internal/engine"
	"github.com/jsvensson/tokentheme/internal/format"
	"github.com/jsvensson/tokentheme/internal/parser"
	"github.com/jsvensson/tokentheme/internal/preview"
	"github.com/jsvensson/tokentheme/internal/scope"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var (
	flagManifest  string
	flagVerbose   int
	flagWatch     bool
	flagKeepGoing bool
	flagCheck     bool
	version       = "dev" // Injected at build time via ldflags
)

var rootCmd = &cobra.Command{
	Use:     "tokentheme",
	Short:   "Compile nested textmate scope documents into an editor color theme",
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		commonlog.Configure(flagVerbose, nil)
	},
	SilenceUsage: true,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the theme described by the manifest",
	Args:  cobra.NoArgs,
	RunE:  runBuild,
}

var compileCmd = &cobra.Command{
	Use:   "compile <document>",
	Short: "Print the rules compiled from one scope document as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

var previewCmd = &cobra.Command{
	Use:   "preview [document]",
	Short: "Render compiled rules in their own colors",
	Long:  "Render the rules of one scope document, or of the whole theme when no document is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPreview,
}

var fmtCmd = &cobra.Command{
	Use:   "fmt [files...]",
	Short: "Format manifests and scope documents",
	Long:  "Format one or more HCL, YAML or JSON files in-place. Prints the name of each file that was modified.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFmt,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagManifest, "manifest", "m", config.DefaultPath, "path to the theme manifest")
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "log more (repeatable)")
	buildCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "rebuild whenever the manifest or a source changes")
	buildCmd.Flags().BoolVarP(&flagKeepGoing, "keep-going", "k", false, "skip documents that fail instead of aborting")
	fmtCmd.Flags().BoolVarP(&flagCheck, "check", "c", false, "check if files are formatted (do not write changes)")
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(fmtCmd)
	rootCmd.AddCommand(versionCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	e := engine.New(afero.NewOsFs())
	e.KeepGoing = flagKeepGoing

	if !flagWatch {
		out, err := e.Run(flagManifest)
		if out != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e.Notify = func(out string, err error) {
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		if out != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
		}
	}
	return e.Watch(ctx, flagManifest)
}

// compileDocument compiles one document against the manifest palette. A
// missing manifest leaves palette references unresolved.
func compileDocument(fs afero.Fs, path string) ([]scope.Rule, error) {
	opts := parser.Options{AllowUnresolved: true}
	if ok, _ := afero.Exists(fs, flagManifest); ok {
		m, err := engine.New(fs).LoadManifest(flagManifest)
		if err != nil {
			return nil, err
		}
		opts = parser.Options{Palette: m.Palette}
	}

	doc, err := parser.Load(fs, path, opts)
	if err != nil {
		return nil, err
	}
	return doc.Rules()
}

func runCompile(cmd *cobra.Command, args []string) error {
	rules, err := compileDocument(afero.NewOsFs(), args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rules)
}

func runPreview(cmd *cobra.Command, args []string) error {
	fs := afero.NewOsFs()

	var rules []scope.Rule
	if len(args) == 1 {
		r, err := compileDocument(fs, args[0])
		if err != nil {
			return err
		}
		rules = r
	} else {
		th, err := engine.New(fs).Build(flagManifest)
		if err != nil {
			return err
		}
		rules = th.TokenColors
	}

	return preview.Render(cmd.OutOrStdout(), rules)
}

func runFmt(cmd *cobra.Command, args []string) error {
	hasErrors := false
	needsFormatting := false

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error reading %s: %v\n", path, err)
			hasErrors = true
			continue
		}

		content := string(data)
		formatted, err := format.Format(filepath.Base(path), content)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error formatting %s: %v\n", path, err)
			hasErrors = true
			continue
		}

		if formatted == content {
			continue
		}

		fmt.Fprintln(cmd.OutOrStdout(), path)
		needsFormatting = true

		if !flagCheck {
			if err := os.WriteFile(path, []byte(formatted), 0o644); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error writing %s: %v\n", path, err)
				hasErrors = true
			}
		}
	}

	if hasErrors || (flagCheck && needsFormatting) {
		os.Exit(1)
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
