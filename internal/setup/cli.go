package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// CLI provides command-line interface for setup operations.
type CLI struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewCLI creates a new setup CLI reading answers from in and printing to out.
func NewCLI(in io.Reader, out io.Writer) *CLI {
	return &CLI{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run executes the setup command based on the provided arguments.
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		c.showHelp()
		return nil
	}

	switch args[0] {
	case "client", "claude-desktop":
		return c.configure(args[1:])
	case "status":
		return c.showStatus(args[1:])
	case "help", "--help", "-h":
		c.showHelp()
		return nil
	default:
		fmt.Fprintf(c.out, "Unknown command: %s\n\n", args[0])
		c.showHelp()
		return fmt.Errorf("unknown setup command %q", args[0])
	}
}

func (c *CLI) showHelp() {
	fmt.Fprint(c.out, `
ASCVD Risk MCP Server Setup

Usage:
  mcp-server-lite setup <command> [options]

Commands:
  client   Register the server with the desktop MCP client
           --binary, -b <path>   server binary (default: this executable)
           --data-dir, -d <dir>  data directory passed to the server
           --config, -c <file>   client config file (default: platform location)
           --auto, -y            do not ask for confirmation
  status   Show current setup status
`)
}

func parseOptions(args []string) Options {
	var opts Options
	for i := 0; i < len(args); i++ {
		next := func() string {
			if i+1 < len(args) {
				i++
				return args[i]
			}
			return ""
		}
		switch args[i] {
		case "--binary", "-b":
			opts.BinaryPath = next()
		case "--data-dir", "-d":
			opts.DataDir = next()
		case "--config", "-c":
			opts.ConfigPath = next()
		case "--auto", "-y":
			opts.AutoConfirm = true
		}
	}
	return opts
}

func (c *CLI) configure(args []string) error {
	opts := parseOptions(args)

	if opts.BinaryPath == "" {
		if execPath, err := os.Executable(); err == nil {
			opts.BinaryPath = execPath
		}
	}
	configPath, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return err
	}
	opts.ConfigPath = configPath

	fmt.Fprintf(c.out, "Config file: %s\n", opts.ConfigPath)
	fmt.Fprintf(c.out, "Server binary: %s\n", opts.BinaryPath)
	if opts.DataDir != "" {
		fmt.Fprintf(c.out, "Data directory: %s\n", opts.DataDir)
	}

	if !opts.AutoConfirm {
		fmt.Fprint(c.out, "Proceed with configuration? [Y/n]: ")
		response, _ := c.reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "" && response != "y" && response != "yes" {
			fmt.Fprintln(c.out, "Configuration cancelled.")
			return nil
		}
	}

	if err := Configure(opts); err != nil {
		return fmt.Errorf("failed to configure client: %w", err)
	}

	fmt.Fprintln(c.out, "Client configured. Restart it to load the ASCVD risk tools.")
	return nil
}

func (c *CLI) showStatus(args []string) error {
	opts := parseOptions(args)

	status, err := GetStatus(opts.ConfigPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Config path: %s\n", status.ConfigPath)
	if !status.Configured {
		fmt.Fprintln(c.out, "Server: not configured")
		return nil
	}

	fmt.Fprintf(c.out, "Server: %s", status.ServerPath)
	if !status.BinaryExists {
		fmt.Fprint(c.out, " (binary not found)")
	}
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "Data directory: %s\n", status.DataDir)
	if status.HistoryDB {
		fmt.Fprintln(c.out, "History database: present")
	} else {
		fmt.Fprintln(c.out, "History database: created on first run")
	}
	return nil
}
