package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/saltvcs/salt/internal/config"
	"github.com/saltvcs/salt/internal/gitfacade"
	"github.com/saltvcs/salt/internal/orchestrator"
	"github.com/saltvcs/salt/internal/salterr"
	"github.com/saltvcs/salt/internal/syncstatus"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	quiet   bool
	verbose bool
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(exitCodeFor(err))
}

var rootCmd = &cobra.Command{
	Use:   "salt",
	Short: "A branch-aware alternative to Git submodules",
	Long: `Salt flattens each dependency's files directly into the parent tree while
tracking its origin in a hidden clone under .salt/repos, so edits made in
place can be pushed back without the submodule's separate checkout ever
being visible to the rest of the repository.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty salt.conf in the current directory",
	RunE:  runInit,
}

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Register a new submodule and clone it",
	RunE:  runAdd,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [name]",
	Short: "Materialize the hidden clone and flat copy for a submodule, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runResolve,
}

var syncCmd = &cobra.Command{
	Use:   "sync [name]",
	Short: "Bring a submodule to the branch its mapping resolves to",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSync,
}

var pullCmd = &cobra.Command{
	Use:   "pull [name]",
	Short: "Fast-forward a submodule's hidden clone on its current branch",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPull,
}

var pushCmd = &cobra.Command{
	Use:   "push [name]",
	Short: "Publish parent-tree edits back to a submodule's hidden clone",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPush,
}

var statusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Report the sync state of a submodule, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Unregister a submodule",
	RunE:  runRemove,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("salt %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

// add flags
var (
	addBranch     string
	addName       string
	addShallow    bool
	addNoShallow  bool
)

// resolve/sync flags
var (
	resolveForce bool
	syncForce    bool
	syncCI       bool
	pullCI       bool
)

// push flags
var (
	pushForce    bool
	pushAutoSync bool
	pushCI       bool
)

// remove flags
var (
	removeDeleteFiles bool
	removeForce       bool
)

// status flags
var statusJSON bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "include ahead/behind counts and modified-file tallies")

	addCmd.Flags().StringVarP(&addBranch, "branch", "b", "main", "branch to clone")
	addCmd.Flags().StringVarP(&addName, "name", "n", "", "submodule name (derived from the URL if omitted)")
	addCmd.Flags().BoolVar(&addShallow, "shallow", true, "clone with --depth 1")
	addCmd.Flags().BoolVar(&addNoShallow, "no-shallow", false, "clone full history")

	resolveCmd.Flags().BoolVarP(&resolveForce, "force", "f", false, "re-materialize even if the flat copy has local edits")

	syncCmd.Flags().BoolVar(&syncCI, "ci", false, "fail fast on the first error instead of accumulating")
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "sync over uncommitted local edits")

	pullCmd.Flags().BoolVar(&pullCI, "ci", false, "fail fast on the first error instead of accumulating")
	pullCmd.Flags().Bool("parallel", false, "accepted for compatibility; has no effect")

	pushCmd.Flags().BoolVarP(&pushForce, "force", "f", false, "push even if the source branch no longer matches the mapping")
	pushCmd.Flags().BoolVar(&pushAutoSync, "auto-sync", false, "sync to the mapped branch first instead of skipping on mismatch")
	pushCmd.Flags().BoolVar(&pushCI, "ci", false, "fail fast on the first error instead of accumulating")

	removeCmd.Flags().BoolVar(&removeDeleteFiles, "delete-files", false, "also delete the flat copy on disk")
	removeCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "delete files even if they have uncommitted changes")

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "emit a JSON document instead of a table")

	rootCmd.AddCommand(initCmd, addCmd, resolveCmd, syncCmd, pullCmd, pushCmd, statusCmd, removeCmd, versionCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	repoRoot, err := os.Getwd()
	if err != nil {
		return err
	}
	if config.Exists(repoRoot) {
		return salterr.New(salterr.SubmoduleAlreadyExists, "salt.conf already exists")
	}
	if err := config.Save(repoRoot, &config.Config{}); err != nil {
		return err
	}
	logInfo("created salt.conf")
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return salterr.New(salterr.MissingArgument, "add requires a repository URL")
	}

	ctx, cancel := setupSignalHandler()
	defer cancel()

	e, err := newEngine()
	if err != nil {
		return err
	}

	res, err := e.Add(ctx, orchestrator.AddOptions{
		URL:       args[0],
		Name:      addName,
		Branch:    addBranch,
		Shallow:   addShallow,
		NoShallow: addNoShallow,
	})
	if err != nil {
		return err
	}

	logInfo(fmt.Sprintf("added %s at %s (branch %s)", res.Submodule.Name, res.Submodule.Path, res.Submodule.DefaultBranch))
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	e, err := newEngine()
	if err != nil {
		return err
	}

	results, err := e.Resolve(ctx, orchestrator.ResolveOptions{Name: nameArg(args), Force: resolveForce}, false)
	for _, r := range results {
		reportResult(r.Name, string(r.Outcome), r.Err, r.Skipped)
		if r.NestedDependency {
			logWarn(fmt.Sprintf("%s: nested salt.conf detected; run `salt resolve` inside it separately", r.Name))
		}
	}
	return err
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	e, err := newEngine()
	if err != nil {
		return err
	}

	results, err := e.Sync(ctx, orchestrator.SyncOptions{Name: nameArg(args), Force: syncForce, CI: syncCI})
	for _, r := range results {
		reportResult(r.Name, "SYNCED "+r.TargetBranch, r.Err, r.Skipped)
	}
	return err
}

func runPull(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	e, err := newEngine()
	if err != nil {
		return err
	}

	results, err := e.Pull(ctx, orchestrator.PullOptions{Name: nameArg(args), CI: pullCI})
	for _, r := range results {
		reportResult(r.Name, "PULLED", r.Err, r.Skipped)
	}
	return err
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	e, err := newEngine()
	if err != nil {
		return err
	}

	results, err := e.Push(ctx, orchestrator.PushOptions{
		Name:     nameArg(args),
		Force:    pushForce,
		AutoSync: pushAutoSync,
		CI:       pushCI,
	})
	for _, r := range results {
		reportResult(r.Name, "PUSHED", r.Err, r.Skipped)
	}
	return err
}

func runRemove(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return salterr.New(salterr.MissingArgument, "remove requires a submodule name")
	}

	ctx, cancel := setupSignalHandler()
	defer cancel()

	e, err := newEngine()
	if err != nil {
		return err
	}

	if err := e.Remove(ctx, orchestrator.RemoveOptions{
		Name:        args[0],
		DeleteFiles: removeDeleteFiles,
		Force:       removeForce,
	}); err != nil {
		return err
	}
	logInfo(fmt.Sprintf("removed %s", args[0]))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	e, err := newEngine()
	if err != nil {
		return err
	}

	report, err := e.Status(ctx, orchestrator.StatusOptions{Name: nameArg(args), Verbose: verbose})
	if err != nil {
		return err
	}

	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	renderStatusTable(cmd, report)
	return nil
}

func renderStatusTable(cmd *cobra.Command, report *orchestrator.StatusReport) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	header := table.Row{"NAME", "STATUS", "CURRENT", "EXPECTED"}
	if verbose {
		header = append(header, "MODIFIED", "AHEAD", "BEHIND")
	}
	t.AppendHeader(header)

	for _, s := range report.Submodules {
		row := table.Row{s.Name, colorizeStatus(s.Status), s.CurrentBranch, s.ExpectedBranch}
		if verbose {
			row = append(row, s.ModifiedFiles, s.Ahead, s.Behind)
		}
		t.AppendRow(row)
		if suggestion := suggestionFor(s.Status); suggestion != "" {
			t.AppendRow(table.Row{"", suggestion})
		}
	}
	t.Render()
}

func colorizeStatus(s syncstatus.Status) string {
	if !colorEnabled() {
		return string(s)
	}
	switch s {
	case syncstatus.Synced:
		return color.GreenString(string(s))
	case syncstatus.Dirty, syncstatus.Behind, syncstatus.Ahead:
		return color.YellowString(string(s))
	case syncstatus.Diverged, syncstatus.Stale:
		return color.RedString(string(s))
	default:
		return string(s)
	}
}

func suggestionFor(s syncstatus.Status) string {
	switch s {
	case syncstatus.Dirty:
		return "run `salt push` to publish local edits"
	case syncstatus.Behind:
		return "run `salt pull` to fast-forward"
	case syncstatus.Ahead:
		return "run `salt push` to publish the hidden clone's commits"
	case syncstatus.Diverged:
		return "run `salt pull` then `salt push` to reconcile"
	case syncstatus.Stale:
		return "run `salt sync` to move to the mapped branch"
	default:
		return ""
	}
}

func colorEnabled() bool {
	return !quiet && color.NoColor == false
}

// newEngine builds an Engine rooted at the current directory. It does not
// itself require salt.conf to exist: `add` creates it on first use, while
// every other pipeline's loadConfig call surfaces ConfigNotFound itself.
func newEngine() (*orchestrator.Engine, error) {
	repoRoot, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return orchestrator.NewEngine(repoRoot, gitfacade.NewShellClient(), setupLogger()), nil
}

func nameArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func reportResult(name, successLabel string, err error, skipped salterr.Kind) {
	switch {
	case err != nil:
		logError(fmt.Sprintf("%s: %v", name, err))
	case skipped != "":
		logWarn(fmt.Sprintf("%s: skipped (%s)", name, skipped))
	default:
		logInfo(fmt.Sprintf("%s: %s", name, successLabel))
	}
}

func logInfo(msg string) {
	if !quiet {
		fmt.Println(msg)
	}
}

func logWarn(msg string) {
	if !quiet {
		fmt.Fprintln(os.Stderr, msg)
	}
}

func logError(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if quiet {
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level, AddSource: verbose}))
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}

// exitCodeFor maps an error's salterr.Kind to spec.md §6's three non-zero
// exit codes. Errors with no Kind (cobra argument parsing, I/O) are
// treated as generic failures.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	switch salterr.KindOf(err) {
	case salterr.ConfigNotFound, salterr.ConfigParseError, salterr.SubmoduleNotFound,
		salterr.SubmoduleAlreadyExists, salterr.PathAlreadyExists, salterr.MissingArgument:
		return 2
	case salterr.CloneFailed, salterr.CheckoutFailed, salterr.PullFailed, salterr.PushFailed,
		salterr.GitCommandFailed, salterr.Timeout, salterr.MergeConflict, salterr.SourceRepoNotFound:
		return 3
	default:
		return 1
	}
}
