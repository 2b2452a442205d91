// -----------------------------------------------------------------------
// Scriptor - Document OCR to markdown conversion
// -----------------------------------------------------------------------

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriptor/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	config *common.Config
	logger arbor.ILogger
)

func main() {
	// Crash protection: write a crash report before exiting on panic
	common.InstallCrashHandler("")
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 1<<16)
			n := runtime.Stack(buf, false)
			crashPath := common.WriteCrashFile(r, string(buf[:n]))
			fmt.Fprintf(os.Stderr, "FATAL: %v\ncrash report: %s\n", r, crashPath)
			os.Exit(2)
		}
	}()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "convert":
		runConvert(args)
	case "validate-key":
		runValidateKey(args)
	case "version", "-version", "-v", "--version":
		fmt.Printf("Scriptor version %s\n", common.LoadVersionFromFile())
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Scriptor - document OCR to markdown conversion

Usage:
  scriptor convert [flags] <document>   Convert a document to markdown
  scriptor validate-key [flags]         Check the configured API key
  scriptor version                      Print version information

Convert flags:
  -config, -c <path>   Configuration file (repeatable, later files override)
  -key <key>           Recognition API key (overrides config)
  -output, -o <dir>    Output directory (overrides config)
  -model <name>        Recognition model (overrides config)
  -title <text>        Document title for the markdown front matter
  -author <text>       Document author for the markdown front matter
  -subject <text>      Document subject for the markdown front matter

Configuration is loaded from defaults, then scriptor.toml, then SCRIPTOR_*
environment variables, then command-line flags.`)
}

// loadConfig resolves configuration with the standard priority order:
// defaults -> config files -> environment. Missing explicit files are an
// error; a missing auto-discovered scriptor.toml is not.
func loadConfig(files configPaths) *common.Config {
	if len(files) == 0 {
		if _, err := os.Stat("scriptor.toml"); err == nil {
			files = append(files, "scriptor.toml")
		}
	}

	cfg, err := common.LoadFromFiles(files...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}
	return cfg
}
