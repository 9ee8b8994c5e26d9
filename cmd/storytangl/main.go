package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"flag"

	"github.com/derekmerck/storytangl/pkg/api"
	"github.com/derekmerck/storytangl/pkg/expr"
	"github.com/derekmerck/storytangl/pkg/storage"
	"github.com/derekmerck/storytangl/pkg/tangerr"
	"github.com/derekmerck/storytangl/pkg/telemetry"
	"github.com/derekmerck/storytangl/pkg/vm"
	"github.com/derekmerck/storytangl/pkg/world"
)

const version = "0.1.0"

var (
	dbPath    = flag.String("db", "storytangl.db", "Path to the bbolt persistence file")
	worldDir  = flag.String("world", "", "Path to a world bundle directory (starts a new story)")
	graphID   = flag.String("graph", "", "Existing graph id to resume (mutually exclusive with -world)")
	choiceID  = flag.String("choice", "", "Edge uid to choose this step (omitted resumes the current cursor)")
	verbose   = flag.Bool("verbose", false, "Enable debug-level logging")
	versionF  = flag.Bool("version", false, "Print version and exit")
	help      = flag.Bool("help", false, "Show help message")
)

func main() {
	flag.Parse()

	if *versionF {
		fmt.Printf("storytangl version %s\n", version)
		os.Exit(0)
	}
	if *help {
		printHelp()
		os.Exit(0)
	}
	if *worldDir == "" && *graphID == "" {
		fmt.Fprintln(os.Stderr, "Error: one of -world or -graph is required")
		printUsage()
		os.Exit(64)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run() error {
	ctx := context.Background()

	repo, err := storage.OpenBoltRepository(*dbPath)
	if err != nil {
		return tangerr.Wrap(tangerr.CacheMiss, "opening persistence", err)
	}
	defer repo.Close()

	engine := vm.NewEngine()
	engine.Expr = expr.NewEvaluator()
	engine.GlobalsLabel = world.GlobalsLabel
	if *verbose {
		logger := telemetry.New(os.Stderr, "debug")
		engine.Log = &logger
	}

	server := api.NewServer(engine, repo, api.CompileWorldBundle)

	var status *api.StatusResult
	if *worldDir != "" {
		result, err := server.Execute(ctx, "", "create_story", map[string]any{"world_id": *worldDir})
		if err != nil {
			return err
		}
		status = result.(*api.StatusResult)
		fmt.Printf("Created story %s\n", status.GraphID)
	} else {
		result, err := server.Execute(ctx, *graphID, "load_story", nil)
		if err != nil {
			return err
		}
		status = result.(*api.StatusResult)
		fmt.Printf("Resumed story %s\n", status.GraphID)
	}

	args := map[string]any{}
	if *choiceID != "" {
		args["choice_id"] = *choiceID
	}
	result, err := server.Execute(ctx, status.GraphID, "step_story", args)
	if err != nil {
		return err
	}
	step := result.(*api.StepResult)

	for _, frag := range step.Journal {
		printFragment(string(frag.Variant), frag.Content, frag.Speaker)
	}

	fmt.Printf("\ngraph %s now at version %d\n", status.GraphID, step.Version)
	return nil
}

func printFragment(variant, content, speaker string) {
	if speaker != "" {
		fmt.Printf("%s: %s\n", speaker, content)
		return
	}
	fmt.Println(content)
}

// exitCode maps a tangerr.Kind to the §6 CLI exit code convention: 64
// usage, 65 data error, 69 unavailable, 70 internal.
func exitCode(err error) int {
	var terr *tangerr.Error
	if !errors.As(err, &terr) {
		return 70
	}
	switch terr.Kind {
	case tangerr.UnknownOperation:
		return 64
	case tangerr.CacheMiss:
		return 69
	case tangerr.NotFound, tangerr.Ambiguous, tangerr.DanglingEndpoint:
		return 65
	default:
		return 70
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "\nUsage: storytangl -world <dir> | -graph <id> [options]")
	fmt.Fprintln(os.Stderr, "\nRun 'storytangl -help' for detailed help")
}

func printHelp() {
	fmt.Printf("storytangl version %s\n\n", version)
	fmt.Println("Drives a story graph one tick at a time against a bbolt-backed repository.")
	fmt.Println("\nUsage:")
	fmt.Println("  storytangl -world <dir> [options]")
	fmt.Println("  storytangl -graph <id> [options]")
	fmt.Println("\nFlags:")
	fmt.Println("  -db string")
	fmt.Println("        Path to the bbolt persistence file (default: storytangl.db)")
	fmt.Println("  -world string")
	fmt.Println("        Path to a world bundle directory (starts a new story)")
	fmt.Println("  -graph string")
	fmt.Println("        Existing graph id to resume")
	fmt.Println("  -choice string")
	fmt.Println("        Edge uid to choose this step")
	fmt.Println("  -verbose")
	fmt.Println("        Enable debug-level logging")
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println("  -help")
	fmt.Println("        Show this help message")
}
