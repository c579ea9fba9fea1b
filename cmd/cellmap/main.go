// Command-line interface to CellMap schema checking of Zarr and N5 trees.
// Provides validation, inspection, and attribute updates for stored groups.

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/janelia-cellmap/cellmap-schemas/annotation"
	"github.com/janelia-cellmap/cellmap-schemas/cellmap"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Path to a TOML configuration file.
	configFile = flag.String("config", "", "")

	// Fail on non-conforming members instead of skipping them if true.
	strictParse = flag.Bool("strict", false, "")
)

const helpMessage = `
cellmap is a command-line interface for validating chunked multiscale image
metadata against the CellMap schemas

Usage: cellmap [options] <command>

      -config     =string   Path to TOML configuration file.
      -strict     (flag)    Fail on non-conforming group members instead of skipping them.
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Commands:

	about
	help
	check   <url> <schema name>
	inspect <url>
	update  <url> <node json file>

A url names a Zarr or N5 tree plus a path within it, with the store root
marked by a ".zarr" or ".n5" suffix, e.g.

	/groups/cellmap/data/jrc_hela-2.n5/em/fibsem-uint16
	gs://bucket/jrc_hela-2.zarr/em/fibsem-uint8

Schema names:

	multiscale.cosem.Group
	multiscale.neuroglancer.Group
	annotation.CropGroup
`

var usage = func() {
	fmt.Printf(helpMessage)
}

// tomlConfig is the top-level structure of the -config file.
type tomlConfig struct {
	Log cellmap.LogConfig `toml:"log"`
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	if *runVerbose {
		cellmap.Verbose = true
		cellmap.SetLogMode(cellmap.DebugMode)
	}
	if *configFile != "" {
		var tc tomlConfig
		if _, err := toml.DecodeFile(*configFile, &tc); err != nil {
			fmt.Fprintf(os.Stderr, "can't read config file %q: %v\n", *configFile, err)
			os.Exit(1)
		}
		tc.Log.SetLogger()
	}

	if err := DoCommand(flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// DoCommand serves as a switchboard for commands.
func DoCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("blank command")
	}
	switch args[0] {
	case "about":
		fmt.Printf("cellmap schema tools, crop metadata version %s\n", annotation.Version)
		return nil
	case "check":
		if len(args) != 3 {
			return fmt.Errorf("check requires a url and a schema name")
		}
		return DoCheck(args[1], args[2])
	case "inspect":
		if len(args) != 2 {
			return fmt.Errorf("inspect requires a url")
		}
		return DoInspect(args[1])
	case "update":
		if len(args) != 3 {
			return fmt.Errorf("update requires a url and a node json file")
		}
		return DoUpdate(args[1], args[2])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
