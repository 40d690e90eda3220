package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xmhha/dirmon/pkg/backend"
	"github.com/0xmhha/dirmon/pkg/config"
	"github.com/0xmhha/dirmon/pkg/dirmon"
	"github.com/0xmhha/dirmon/pkg/display"
	"github.com/0xmhha/dirmon/pkg/logger"
	"github.com/0xmhha/dirmon/pkg/scheduler"
	"github.com/0xmhha/dirmon/pkg/watchset"
)

// errNoDirectories is returned when watch has nothing to watch.
var errNoDirectories = errors.New("no directories to watch: pass them as arguments, use -set, or set watch_dirs in the config file")

// watchCommand prints directory changes as they happen.
type watchCommand struct {
	dirs       []string
	setName    string
	format     string
	count      int
	sync       bool
	configPath string

	out    io.Writer // events; os.Stdout when nil
	errOut io.Writer // status lines; os.Stderr when nil
}

// parseWatchFlags builds a watchCommand from command-line arguments.
func parseWatchFlags(configPath string, args []string) (*watchCommand, error) {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	setName := fs.String("set", "", "also watch the directories of this watch set")
	format := fs.String("format", "", "output format (auto, table, simple, json)")
	count := fs.Int("count", 0, "stop after N events (0 = until interrupted)")
	sync := fs.Bool("sync", false, "wait for events on the main goroutine")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *count < 0 {
		return nil, fmt.Errorf("invalid -count %d: must be >= 0", *count)
	}
	if *format != "" {
		if _, err := display.ParseFormat(*format); err != nil {
			return nil, err
		}
	}

	return &watchCommand{
		dirs:       fs.Args(),
		setName:    *setName,
		format:     *format,
		count:      *count,
		sync:       *sync,
		configPath: configPath,
	}, nil
}

// Execute runs the watch command until interrupted or -count is reached.
func (c *watchCommand) Execute() error {
	cfg, log, closeLog, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.run(ctx, cfg, log)
}

// run watches until ctx ends, the event count is reached or the monitor
// fails. Ending ctx is not an error.
func (c *watchCommand) run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	dirs, err := c.resolveDirs(cfg, log)
	if err != nil {
		return err
	}

	opener, err := backend.ByName(cfg.Monitor.Backend)
	if err != nil {
		return err
	}

	formatter, err := c.formatter(cfg)
	if err != nil {
		return err
	}

	loop := scheduler.NewLoop(log)
	svc, err := dirmon.NewService(loop, dirmon.Config{
		Backend:    opener,
		QueueLimit: cfg.Monitor.QueueLimit,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create monitor service: %w", err)
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			log.Error("failed to close monitor service", "error", closeErr)
		}
	}()

	mon, err := dirmon.NewDirMonitor(svc)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	for _, dir := range dirs {
		if err := mon.AddDirectory(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	fmt.Fprintf(c.stderr(), "Watching %d directories with %s backend - press Ctrl+C to stop\n",
		len(dirs), backendName(cfg.Monitor.Backend))

	if c.sync {
		return c.runSync(ctx, mon, formatter)
	}
	return c.runAsync(ctx, loop, mon, formatter, log)
}

// runAsync drives the monitor from the scheduler loop: every completion
// prints its event and issues the next wait.
func (c *watchCommand) runAsync(ctx context.Context, loop *scheduler.Loop, mon *dirmon.DirMonitor, formatter display.Formatter, log logger.Logger) error {
	var (
		seq    int
		runErr error
		next   dirmon.Handler
	)

	next = func(err error, ev dirmon.Event) {
		if err != nil {
			if !errors.Is(err, dirmon.ErrOperationAborted) {
				runErr = err
			}
			loop.ShutdownAsync()
			return
		}

		seq++
		if err := formatter.FormatEvent(c.stdout(), display.Record{Time: time.Now(), Seq: seq, Event: ev}); err != nil {
			runErr = fmt.Errorf("failed to write event: %w", err)
			loop.ShutdownAsync()
			return
		}
		if c.count > 0 && seq >= c.count {
			loop.ShutdownAsync()
			return
		}
		if err := mon.AsyncMonitor(next); err != nil {
			runErr = err
			loop.ShutdownAsync()
		}
	}

	if err := mon.AsyncMonitor(next); err != nil {
		return err
	}

	// Destroying the monitor aborts the pending wait, whose completion then
	// stops the loop.
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			log.Debug("watch interrupted")
			if err := mon.Close(); err != nil && !errors.Is(err, dirmon.ErrUnknownMonitor) {
				log.Warn("failed to close monitor", "error", err)
			}
		case <-stopped:
		}
	}()

	if err := loop.Run(context.Background()); err != nil {
		return err
	}
	return runErr
}

// runSync waits for events on the calling goroutine.
func (c *watchCommand) runSync(ctx context.Context, mon *dirmon.DirMonitor, formatter display.Formatter) error {
	for seq := 1; c.count == 0 || seq <= c.count; seq++ {
		ev, err := mon.Monitor(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := formatter.FormatEvent(c.stdout(), display.Record{Time: time.Now(), Seq: seq, Event: ev}); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	return nil
}

// resolveDirs collects the directories to watch: arguments and the watch set
// first, the config file's watch_dirs when both are empty.
func (c *watchCommand) resolveDirs(cfg *config.Config, log logger.Logger) ([]string, error) {
	dirs := append([]string(nil), c.dirs...)

	if c.setName != "" {
		store, err := watchset.Open(watchset.Config{DBPath: cfg.Storage.DBPath}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open watch sets: %w", err)
		}
		set, err := store.Get(c.setName)
		if closeErr := store.Close(); closeErr != nil {
			log.Error("failed to close watch sets", "error", closeErr)
		}
		if err != nil {
			return nil, fmt.Errorf("watch set %q: %w", c.setName, err)
		}
		dirs = append(dirs, set.Directories...)
	}

	if len(dirs) == 0 {
		dirs = append(dirs, cfg.WatchDirs...)
	}
	if len(dirs) == 0 {
		return nil, errNoDirectories
	}

	for i, dir := range dirs {
		dirs[i] = watchset.ExpandHome(dir)
	}
	return dirs, nil
}

// formatter builds the event formatter from the flag and the config.
func (c *watchCommand) formatter(cfg *config.Config) (display.Formatter, error) {
	name := c.format
	if name == "" {
		name = cfg.Display.Format
	}
	format, err := display.ParseFormat(name)
	if err != nil {
		return nil, err
	}

	dc := display.Config{
		Format:       format,
		ColorEnabled: cfg.Display.ColorEnabled,
	}
	f, _ := c.stdout().(*os.File)
	return display.New(display.Detect(dc, f)), nil
}

func (c *watchCommand) stdout() io.Writer {
	if c.out != nil {
		return c.out
	}
	return os.Stdout
}

func (c *watchCommand) stderr() io.Writer {
	if c.errOut != nil {
		return c.errOut
	}
	return os.Stderr
}

// backendName reports the backend actually used for a configured name.
func backendName(name string) string {
	if name == "" || name == backend.NameAuto {
		return backend.DefaultName()
	}
	return name
}
