package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/0xmhha/dirmon/pkg/config"
	"github.com/0xmhha/dirmon/pkg/display"
	"github.com/0xmhha/dirmon/pkg/logger"
	"github.com/0xmhha/dirmon/pkg/watchset"
)

// setCommand handles watch set subcommands.
type setCommand struct {
	configPath string
	out        io.Writer // os.Stdout when nil
}

// Execute runs the set command with given arguments.
func (c *setCommand) Execute(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "add":
		return c.runAdd(subargs)
	case "remove":
		return c.runRemove(subargs)
	case "list":
		return c.runList(subargs)
	case "show":
		return c.runShow(subargs)
	case "delete":
		return c.runDelete(subargs)
	case "help":
		return c.showHelp()
	default:
		return fmt.Errorf("unknown set subcommand: %s", subcommand)
	}
}

// runAdd adds directories to a set, creating the set if needed.
func (c *setCommand) runAdd(args []string) error {
	fs := flag.NewFlagSet("set add", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errors.New("usage: dirmon set add <name> <dir>...")
	}

	name, dirs := fs.Arg(0), fs.Args()[1:]
	for _, dir := range dirs {
		info, err := os.Stat(watchset.ExpandHome(dir))
		if err != nil {
			return fmt.Errorf("cannot add %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("cannot add %s: not a directory", dir)
		}
	}

	return c.withStore(func(store watchset.Store) error {
		set, err := store.AddDirectories(name, dirs...)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout(), "Watch set %s now has %d directories\n", set.Name, len(set.Directories))
		return nil
	})
}

// runRemove removes directories from a set.
func (c *setCommand) runRemove(args []string) error {
	fs := flag.NewFlagSet("set remove", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errors.New("usage: dirmon set remove <name> <dir>...")
	}

	return c.withStore(func(store watchset.Store) error {
		set, err := store.RemoveDirectories(fs.Arg(0), fs.Args()[1:]...)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout(), "Watch set %s now has %d directories\n", set.Name, len(set.Directories))
		return nil
	})
}

// runList prints every set.
func (c *setCommand) runList(args []string) error {
	fs := flag.NewFlagSet("set list", flag.ContinueOnError)
	format := fs.String("format", "", "output format (auto, table, simple, json)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	formatter, err := c.formatter(*format)
	if err != nil {
		return err
	}

	return c.withStore(func(store watchset.Store) error {
		sets, err := store.List()
		if err != nil {
			return err
		}
		return formatter.FormatSets(c.stdout(), sets)
	})
}

// runShow prints one set.
func (c *setCommand) runShow(args []string) error {
	fs := flag.NewFlagSet("set show", flag.ContinueOnError)
	format := fs.String("format", "", "output format (auto, table, simple, json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: dirmon set show [-format f] <name>")
	}

	formatter, err := c.formatter(*format)
	if err != nil {
		return err
	}

	return c.withStore(func(store watchset.Store) error {
		set, err := store.Get(fs.Arg(0))
		if err != nil {
			return err
		}
		return formatter.FormatSet(c.stdout(), set)
	})
}

// runDelete removes a set.
func (c *setCommand) runDelete(args []string) error {
	fs := flag.NewFlagSet("set delete", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: dirmon set delete <name>")
	}

	return c.withStore(func(store watchset.Store) error {
		if err := store.Delete(fs.Arg(0)); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout(), "Watch set %s deleted\n", fs.Arg(0))
		return nil
	})
}

// withStore opens the watch set database for the duration of fn.
func (c *setCommand) withStore(fn func(watchset.Store) error) error {
	cfg, log, closeLog, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := watchset.Open(watchset.Config{DBPath: cfg.Storage.DBPath}, log)
	if err != nil {
		return fmt.Errorf("failed to open watch sets: %w", err)
	}
	defer closeStore(store, log)

	return fn(store)
}

func closeStore(store watchset.Store, log logger.Logger) {
	if err := store.Close(); err != nil {
		log.Error("failed to close watch sets", "error", err)
	}
}

// formatter builds a set formatter. The config file's display format applies
// when the flag is empty.
func (c *setCommand) formatter(name string) (display.Formatter, error) {
	cfg, err := config.NewLoader(c.configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if name == "" {
		name = cfg.Display.Format
	}

	format, err := display.ParseFormat(name)
	if err != nil {
		return nil, err
	}

	f, _ := c.stdout().(*os.File)
	return display.New(display.Detect(display.Config{
		Format:       format,
		ColorEnabled: cfg.Display.ColorEnabled,
	}, f)), nil
}

func (c *setCommand) stdout() io.Writer {
	if c.out != nil {
		return c.out
	}
	return os.Stdout
}

// showHelp displays help for set commands.
func (c *setCommand) showHelp() error {
	help := `Watch set management commands

Usage:
  dirmon set <subcommand> [flags]

Subcommands:
  add <name> <dir>...      Add directories to a set (creates it if needed)
  remove <name> <dir>...   Remove directories from a set
  list [-format f]         List all sets
  show [-format f] <name>  Show the directories of one set
  delete <name>            Delete a set

Examples:
  dirmon set add spool /srv/incoming /srv/outgoing
  dirmon set list -format json
  dirmon watch -set spool
`
	fmt.Fprint(c.stdout(), help)
	return nil
}
