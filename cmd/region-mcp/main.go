package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/region-tools-mcp/internal/config"
	"github.com/ironsheep/region-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func printHelp() {
	fmt.Println("region-tools-mcp - MCP server for region detection and clustering")
	fmt.Println()
	fmt.Println("Usage: region-tools-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <path>       Load settings from a YAML file")
	fmt.Println("  --write-config <path> Write the default settings to a YAML file and exit")
	fmt.Println("  --version, -v         Print version information")
	fmt.Println("  --help, -h            Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %s=<path>     Settings file, if --config is not given\n", config.EnvConfigPath)
	fmt.Printf("  %s=debug   Enable debug logging\n", config.EnvLogLevel)
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

func main() {
	configPath := os.Getenv(config.EnvConfigPath)

	args := os.Args[1:]
	for len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Printf("region-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		case "--config", "--write-config":
			if len(args) < 2 {
				fmt.Fprintf(os.Stderr, "%s requires a path\n", args[0])
				os.Exit(2)
			}
			if args[0] == "--write-config" {
				if err := config.CreateDefaultConfigFile(args[1]); err != nil {
					fmt.Fprintf(os.Stderr, "%v\n", err)
					os.Exit(1)
				}
				return
			}
			configPath = args[1]
			args = args[1:]
		default:
			fmt.Fprintf(os.Stderr, "unknown option %s, see --help\n", args[0])
			os.Exit(2)
		}
		args = args[1:]
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if cfg.Debug() {
		log.Printf("Region MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		if configPath != "" {
			log.Printf("Using config %s", configPath)
		}
	}

	srv := server.New(cfg)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
