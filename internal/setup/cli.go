package setup

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/neurosim-server/internal/config"
)

// CLI provides the command-line interface for setup operations.
type CLI struct {
	config *config.LiteConfig
	reader *bufio.Reader
}

// NewCLI creates a setup CLI around the effective lite configuration.
func NewCLI(cfg *config.LiteConfig) *CLI {
	if cfg == nil {
		cfg = config.LoadLiteConfig()
	}
	return &CLI{
		config: cfg,
		reader: bufio.NewReader(os.Stdin),
	}
}

// Run executes the setup command based on the provided arguments.
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "init":
		return c.initDataDir(args[1:])
	case "status":
		return c.showStatus()
	case "validate":
		return c.validate()
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		return c.showHelp()
	}
}

// showHelp displays usage information.
func (c *CLI) showHelp() error {
	help := `
Neurotransmitter Simulation Server Setup

Usage:
  server-lite setup <command> [options]

Commands:
  init            Create the data directory and SQLite databases
  status          Show the current installation status
  validate        Validate the environment configuration

Examples:
  # Initialize the default data directory
  server-lite setup init

  # Initialize a custom data directory
  NEUROSIM_DATA_DIR=/srv/neurosim server-lite setup init

  # Check installation status
  server-lite setup status

  # Validate environment overrides
  server-lite setup validate
`
	fmt.Println(help)
	return nil
}

// initDataDir creates the data directory tree and databases.
func (c *CLI) initDataDir(args []string) error {
	autoConfirm := false
	for _, arg := range args {
		if arg == "--auto" || arg == "-y" {
			autoConfirm = true
		}
	}

	fmt.Println("Data Directory Initialization")
	fmt.Println("=============================")
	fmt.Printf("Data directory: %s\n", c.config.DataDir)
	fmt.Printf("Sequence DB:    %s\n", c.config.SequenceDBPath())
	fmt.Printf("Event DB:       %s\n", c.config.EventDBPath())
	fmt.Println()

	if !autoConfirm {
		fmt.Print("Proceed with initialization? [Y/n]: ")
		response, _ := c.reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "" && response != "y" && response != "yes" {
			fmt.Println("Initialization cancelled.")
			return nil
		}
	}

	if err := InitDataDir(c.config); err != nil {
		return fmt.Errorf("failed to initialize data directory: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Data directory initialized!")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Start the server: server-lite")
	fmt.Println("  2. Generate a series: POST /api/v1/sequences")
	fmt.Println()

	return nil
}

// showStatus displays the current installation status.
func (c *CLI) showStatus() error {
	status := GetStatus(c.config)

	fmt.Println("Neurotransmitter Simulation Server Status")
	fmt.Println("=========================================")
	fmt.Println()

	fmt.Println("Data Directory:")
	fmt.Printf("  Path: %s\n", status.DataDir)
	if status.DataDirExists {
		fmt.Println("  Status: ✓ Exists")
	} else {
		fmt.Println("  Status: - Will be created on first run")
	}
	fmt.Println()

	fmt.Println("Databases:")
	if status.SequenceDBSize > 0 {
		fmt.Printf("  Sequences: ✓ %s (%d bytes)\n", status.SequenceDB, status.SequenceDBSize)
	} else {
		fmt.Printf("  Sequences: - Not created yet (%s)\n", status.SequenceDB)
	}
	if status.EventDBSize > 0 {
		fmt.Printf("  Events:    ✓ %s (%d bytes)\n", status.EventDB, status.EventDBSize)
	} else {
		fmt.Printf("  Events:    - Not created yet (%s)\n", status.EventDB)
	}
	fmt.Println()

	fmt.Println("Server:")
	fmt.Printf("  Listen address: %s:%d\n", c.config.HTTPHost, c.config.HTTPPort)
	fmt.Printf("  Log level:      %s\n", c.config.LogLevel)
	fmt.Println()

	if len(status.EnvOverrides) > 0 {
		fmt.Println("Environment overrides:")
		for _, override := range status.EnvOverrides {
			fmt.Printf("  %s\n", override)
		}
		fmt.Println()
	}

	if len(status.Issues) > 0 {
		fmt.Println("Notes:")
		for _, issue := range status.Issues {
			fmt.Printf("  ⚠ %s\n", issue)
		}
		fmt.Println()
	}

	return nil
}

// validate checks the current configuration.
func (c *CLI) validate() error {
	fmt.Println("Validating configuration...")
	fmt.Println()

	valid, issues := Validate(c.config)

	if valid && len(issues) == 0 {
		fmt.Println("✓ Configuration is valid!")
		return nil
	}

	if valid {
		fmt.Println("✓ Configuration is valid, with notes:")
	} else {
		fmt.Println("✗ Configuration has issues:")
	}
	for _, issue := range issues {
		fmt.Printf("  - %s\n", issue)
	}

	return nil
}
