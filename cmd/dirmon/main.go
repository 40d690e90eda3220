// Package main provides the dirmon CLI application.
//
// dirmon watches directories and prints a line for every change inside them.
// Directories can be given on the command line, taken from the configuration
// file, or remembered as named watch sets.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/0xmhha/dirmon/pkg/config"
	"github.com/0xmhha/dirmon/pkg/logger"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run() error {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "show version information")

	flag.Parse()

	if *showVersion {
		fmt.Printf("dirmon %s\n", version)
		return nil
	}

	args := flag.Args()
	if len(args) == 0 {
		return showUsage()
	}

	command := args[0]

	switch command {
	case "watch":
		return runWatchCommand(*configPath, args[1:])
	case "set":
		return runSetCommand(*configPath, args[1:])
	case "config":
		return runConfigCommand(*configPath, args[1:])
	case "help":
		return showUsage()
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runWatchCommand runs the watch command.
func runWatchCommand(configPath string, args []string) error {
	cmd, err := parseWatchFlags(configPath, args)
	if err != nil {
		return err
	}
	return cmd.Execute()
}

// runSetCommand runs the set command.
func runSetCommand(configPath string, args []string) error {
	cmd := &setCommand{
		configPath: configPath,
	}
	return cmd.Execute(args)
}

// runConfigCommand runs the config command.
func runConfigCommand(configPath string, args []string) error {
	cmd := &configCommand{
		configPath: configPath,
	}
	return cmd.Execute(args)
}

// loadConfig loads configuration and opens the logger it describes. The
// returned func closes the log output.
func loadConfig(configPath string) (*config.Config, logger.Logger, func(), error) {
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, out, err := logger.Open(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	closeLog := func() {
		if err := out.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log output: %v\n", err)
		}
	}
	return cfg, log, closeLog, nil
}

// showUsage displays usage information.
func showUsage() error {
	usage := `dirmon - directory change monitor

Usage:
  dirmon [flags] <command> [command flags]

Commands:
  watch       Print changes in directories as they happen
  set         Named watch sets (add, remove, list, show, delete)
  config      Configuration management (show, path, init)
  help        Show this help message

Global Flags:
  -config     Path to configuration file
  -version    Show version information

Watch Command Flags:
  -set        Also watch the directories of a named watch set
  -format     Output format (auto, table, simple, json)
  -count      Stop after N events (default: 0, run until interrupted)
  -sync       Wait for events on the main goroutine instead of the scheduler

Examples:
  # Watch two directories
  dirmon watch /srv/incoming /srv/outgoing

  # Stop after the first change, print it as JSON
  dirmon watch -count 1 -format json /srv/incoming

  # Remember directories and watch them by name
  dirmon set add spool /srv/incoming /srv/outgoing
  dirmon watch -set spool

  # Watch the directories listed in the config file
  dirmon watch

Version: %s
`

	fmt.Printf(usage, version)
	return nil
}
