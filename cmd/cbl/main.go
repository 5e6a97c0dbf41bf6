// cbl tracks codebehind bindings across a .NET solution.
//
// It scans a solution root for source and markup files, indexes the classes
// they declare, and maintains a live parent/child binding map: which class a
// markup or designer file binds to, and which files hold the parts of that
// class. The watch command keeps the map current as files change on disk.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/cbl/internal/classindex"
	"github.com/standardbeagle/cbl/internal/codebehind"
	"github.com/standardbeagle/cbl/internal/config"
	"github.com/standardbeagle/cbl/internal/debug"
	"github.com/standardbeagle/cbl/internal/project"
	"github.com/standardbeagle/cbl/internal/providers"
	"github.com/standardbeagle/cbl/internal/version"
	"github.com/standardbeagle/cbl/internal/watch"
	"github.com/standardbeagle/cbl/pkg/pathutil"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:                   "cbl",
		Usage:                  "Track codebehind bindings across a .NET solution",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Solution root directory (overrides the configured root)",
			},
			&cli.StringSliceFlag{
				Name:    "include",
				Aliases: []string{"i"},
				Usage:   "Include pattern (replaces configured includes, can be repeated)",
			},
			&cli.StringSliceFlag{
				Name:    "exclude",
				Aliases: []string{"e"},
				Usage:   "Exclude pattern (added to configured excludes, can be repeated)",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Log internal events to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				os.Setenv("DEBUG", "1")
				debug.SetDebugOutput(os.Stderr)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:    "scan",
				Aliases: []string{"s"},
				Usage:   "Scan the solution once and print its codebehind bindings",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
				},
				Action: scanCommand,
			},
			{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Watch the solution and stream binding changes until interrupted",
				Action:  watchCommand,
			},
			{
				Name:      "query",
				Aliases:   []string{"q"},
				Usage:     "Show the codebehind binding for specific files",
				ArgsUsage: "<file> [<file>...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
				},
				Action: queryCommand,
			},
			{
				Name:   "stats",
				Usage:  "Print workspace, index and binding statistics after a scan",
				Action: statsCommand,
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration",
				Action: configCommand,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return queryCommand(c)
			}
			return cli.ShowAppHelp(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfigWithOverrides loads configuration for the selected root and
// applies command-line flag overrides on top.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	rootFlag := c.String("root")

	cfg, err := config.LoadWithRoot(".cbl.kdl", rootFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.Include = includes
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludes...)
	}
	if rootFlag != "" {
		absRoot, err := filepath.Abs(rootFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", rootFlag, err)
		}
		cfg.Project.Root = absRoot
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func scanOptions(cfg *config.Config) project.ScanOptions {
	opts := project.DefaultScanOptions()
	if len(cfg.Scan.Extensions) > 0 {
		opts.Extensions = cfg.Scan.Extensions
	}
	opts.Include = cfg.Include
	opts.Exclude = cfg.Exclude
	opts.MaxFileSize = cfg.Scan.MaxFileSize
	opts.Gitignore = cfg.Scan.RespectGitignore
	return opts
}

// engine bundles the wired model for one solution: the workspace, the class
// index and the binding tracker. The index attaches to the workspace before
// the tracker starts, so class tables already reflect an event by the time
// bindings reconcile against them.
type engine struct {
	cfg     *config.Config
	ws      *project.Workspace
	scanner *project.Scanner
	index   *classindex.Index
	tracker *codebehind.Tracker
}

func newEngine(cfg *config.Config) (*engine, error) {
	ws := project.NewWorkspace()
	sc := project.NewScanner(ws, scanOptions(cfg))

	ix := classindex.NewIndex()
	ix.SetMaxFileSize(cfg.Scan.MaxFileSize)
	ws.AttachFileListener(ix)
	ws.AttachSolutionListener(ix)

	tracker := codebehind.NewTracker(codebehind.Host{
		Classes:   ix,
		Files:     ws,
		Solutions: ws,
		Indexes:   ix,
	})
	tracker.Start()

	for _, p := range enabledProviders(cfg, ix) {
		if err := tracker.RegisterProvider(p); err != nil {
			return nil, err
		}
	}

	return &engine{cfg: cfg, ws: ws, scanner: sc, index: ix, tracker: tracker}, nil
}

// enabledProviders builds the resolver chain in priority order. Designer
// siblings answer first, XAML siblings next, the partial-class fallback last.
func enabledProviders(cfg *config.Config, ix *classindex.Index) []codebehind.Provider {
	var chain []codebehind.Provider
	if cfg.Providers.Designer {
		chain = append(chain, providers.NewDesignerSibling(ix))
	}
	if cfg.Providers.Xaml {
		chain = append(chain, providers.NewXamlSibling(ix))
	}
	if cfg.Providers.Partial {
		chain = append(chain, providers.NewPartialClass(ix))
	}
	return chain
}

// open scans the configured root and opens the resulting solution, which
// populates the class index and the binding map through workspace events.
func (e *engine) open() error {
	start := time.Now()
	sol, err := e.scanner.Scan(e.cfg.Project.Root)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", e.cfg.Project.Root, err)
	}
	e.ws.OpenSolution(sol)
	debug.LogScan("opened %s in %v\n", sol.Name(), time.Since(start))
	return nil
}

// openEngine is the common front half of the one-shot commands: load config,
// wire the engine, scan and open the solution.
func openEngine(c *cli.Context) (*engine, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, err
	}
	eng, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	if err := eng.open(); err != nil {
		return nil, err
	}
	return eng, nil
}

func scanCommand(c *cli.Context) error {
	eng, err := openEngine(c)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printBindingsJSON(os.Stdout, eng)
	}
	printBindings(os.Stdout, eng)
	return nil
}

func watchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	if !cfg.Watch.Enabled {
		return errors.New("watching is disabled by configuration (watch { enabled false })")
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	if err := eng.open(); err != nil {
		return err
	}

	printer := &changePrinter{tracker: eng.tracker, root: cfg.Project.Root, out: os.Stdout}
	eng.tracker.AttachSubscriber(printer)

	watcher, err := watch.NewWatcher(eng.scanner, eng.ws, time.Duration(cfg.Watch.DebounceMs)*time.Millisecond)
	if err != nil {
		return err
	}
	if err := watcher.Start(cfg.Project.Root); err != nil {
		return err
	}
	debug.LogWatch("build %s watching %s\n", version.BuildID(), cfg.Project.Root)

	fmt.Printf("Watching %s (%d bindings). Press Ctrl-C to stop.\n",
		cfg.Project.Root, len(eng.tracker.Bindings()))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	debug.LogWatch("received signal %v, shutting down\n", sig)

	if err := watcher.Stop(); err != nil {
		return err
	}
	eng.tracker.Stop()
	return nil
}

// changePrinter streams binding changes to the terminal as they happen.
// It runs on the tracker's dispatch goroutine, where querying the tracker
// back is safe.
type changePrinter struct {
	tracker *codebehind.Tracker
	root    string
	out     io.Writer
}

func (p *changePrinter) BindingsChanged(change codebehind.Change) {
	stamp := time.Now().Format("15:04:05")
	for _, parent := range change.Parents {
		rel := pathutil.ToRelative(parent.Path(), p.root)
		if handle, ok := p.tracker.ChildClass(parent); ok {
			fmt.Fprintf(p.out, "%s bind   %s -> %s\n", stamp, rel, handle.Name)
		} else {
			fmt.Fprintf(p.out, "%s unbind %s\n", stamp, rel)
		}
	}
	for _, child := range change.Children {
		fmt.Fprintf(p.out, "%s parts  %s\n", stamp, pathutil.ToRelative(child.Path(), p.root))
	}
}
