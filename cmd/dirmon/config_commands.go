package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/0xmhha/dirmon/pkg/config"
	"gopkg.in/yaml.v3"
)

// configCommand handles configuration management subcommands.
type configCommand struct {
	configPath string
	out        io.Writer // os.Stdout when nil
	in         io.Reader // os.Stdin when nil
}

// Execute runs the config command with given arguments.
func (c *configCommand) Execute(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "show":
		return c.runShow(subargs)
	case "path":
		return c.runPath()
	case "init":
		return c.runInit(subargs)
	case "help":
		return c.showHelp()
	default:
		return fmt.Errorf("unknown config subcommand: %s", subcommand)
	}
}

// runShow displays the effective configuration.
func (c *configCommand) runShow(args []string) error {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	format := fs.String("format", "yaml", "output format (yaml, json)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	loader := config.NewLoader(c.configPath)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch *format {
	case "json":
		return c.showJSON(cfg)
	case "yaml":
		return c.showYAML(cfg, loader.Source())
	default:
		return fmt.Errorf("unknown format %q: must be yaml or json", *format)
	}
}

// showYAML displays configuration in YAML format.
func (c *configCommand) showYAML(cfg *config.Config, source string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	w := c.stdout()
	fmt.Fprintln(w, "# Current Configuration")
	fmt.Fprintln(w, "# Source:", describeSource(source))
	fmt.Fprintln(w)
	_, err = w.Write(data)
	return err
}

// showJSON displays configuration in JSON format.
func (c *configCommand) showJSON(cfg *config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Fprintln(c.stdout(), string(data))
	return nil
}

// runPath shows the configuration file search paths.
func (c *configCommand) runPath() error {
	w := c.stdout()
	fmt.Fprintln(w, "Configuration file search paths (in order of precedence):")
	fmt.Fprintln(w)

	for i, p := range config.SearchPaths() {
		exists := "not found"
		if _, err := os.Stat(p); err == nil {
			exists = "found"
		}
		fmt.Fprintf(w, "  %d. %s [%s]\n", i+1, p, exists)
	}

	loader := config.NewLoader(c.configPath)
	if _, err := loader.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Active configuration:", describeSource(loader.Source()))
	return nil
}

// runInit writes the default configuration to a file.
func (c *configCommand) runInit(args []string) error {
	fs := flag.NewFlagSet("config init", flag.ContinueOnError)
	force := fs.Bool("force", false, "overwrite without asking")
	output := fs.String("output", "", "output path for config file (default: ~/.config/dirmon/config.yaml)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = config.DefaultConfigPath()
	}

	w := c.stdout()
	if _, err := os.Stat(outputPath); err == nil && !*force {
		fmt.Fprintf(w, "Configuration file already exists at: %s\n", outputPath)
		fmt.Fprint(w, "Overwrite? [y/N]: ")

		response, err := bufio.NewReader(c.stdin()).ReadString('\n')
		if err != nil && response == "" {
			fmt.Fprintln(w, "\nInit cancelled.")
			return nil
		}
		response = strings.ToLower(strings.TrimSpace(response))

		if response != "y" && response != "yes" {
			fmt.Fprintln(w, "Init cancelled.")
			return nil
		}
	}

	if err := config.Save(config.Default(), outputPath); err != nil {
		return err
	}

	fmt.Fprintf(w, "Default configuration written to: %s\n", outputPath)
	return nil
}

func (c *configCommand) stdout() io.Writer {
	if c.out != nil {
		return c.out
	}
	return os.Stdout
}

func (c *configCommand) stdin() io.Reader {
	if c.in != nil {
		return c.in
	}
	return os.Stdin
}

func describeSource(source string) string {
	if source == "" {
		return "defaults (no config file found)"
	}
	return source
}

// showHelp displays help for config command.
func (c *configCommand) showHelp() error {
	help := `Config - Configuration management

Usage:
  dirmon config <subcommand> [flags]

Subcommands:
  show      Display current configuration
  path      Show configuration file paths
  init      Write the default configuration

Show Flags:
  -format   Output format (yaml, json) (default: yaml)

Init Flags:
  -force    Overwrite an existing file without asking
  -output   Output path for config file

Environment:
  DIRMON_WATCH_DIRS    Comma-separated directories to watch
  DIRMON_BACKEND       Notification backend (auto, fsnotify, inotify)
  DIRMON_QUEUE_LIMIT   Per-monitor event queue limit
  DIRMON_DB            Watch set database path
  DIRMON_LOG_LEVEL     Log level (debug, info, warn, error)
`
	fmt.Fprint(c.stdout(), help)
	return nil
}
