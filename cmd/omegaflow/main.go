package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/pocketomega/omega-workflow/internal/config"
	"github.com/pocketomega/omega-workflow/internal/definition"
	"github.com/pocketomega/omega-workflow/internal/llm"
	"github.com/pocketomega/omega-workflow/internal/mcp"
	"github.com/pocketomega/omega-workflow/internal/workflow"
)

const usage = `omegaflow: build, check and run LLM workflows

Usage:
  omegaflow validate [-mcp mcp.json] <workflow.yaml|payload.json>
  omegaflow render   <workflow.yaml|payload.json>
  omegaflow run      [-env .env] <workflow.yaml|payload.json>
`

var (
	okMark   = color.New(color.FgGreen, color.Bold).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
	errMark  = color.New(color.FgRed, color.Bold).SprintFunc()
)

func main() {
	log.SetFlags(log.Ltime)
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "validate":
		err = cmdValidate(ctx, args)
	case "render":
		err = cmdRender(args)
	case "run":
		err = cmdRun(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errMark("✗"), err)
		os.Exit(1)
	}
}

// loadWorkflow reads a YAML definition or a wire payload, chosen by file
// extension, and validates it.
func loadWorkflow(path string) (*workflow.Workflow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		def, err := definition.Load(path)
		if err != nil {
			return nil, err
		}
		return def.Build()
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		w, err := workflow.ParseJSON(data)
		if err != nil {
			return nil, err
		}
		if err := w.Validate(); err != nil {
			return nil, err
		}
		return w, nil
	}
}

func singleArg(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected exactly one workflow file", fs.Name())
	}
	return fs.Arg(0), nil
}

func printWarnings(warnings []workflow.Warning) {
	for _, w := range warnings {
		fmt.Printf("%s %s\n", warnMark("!"), w.Msg)
	}
}

func cmdValidate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	mcpPath := fs.String("mcp", os.Getenv("OMEGA_MCP_CONFIG"), "mcp.json used to check node tools")
	defaultModel := fs.String("model", llm.DefaultModel, "model assumed for nodes that set none")
	path, err := singleArg(fs, args)
	if err != nil {
		return err
	}

	w, err := loadWorkflow(path)
	if err != nil {
		return err
	}
	printWarnings(w.Warnings())
	printWarnings(llm.CheckModels(w, *defaultModel))

	if *mcpPath != "" {
		if err := checkTools(ctx, *mcpPath, w); err != nil {
			return err
		}
	}
	fmt.Printf("%s %s: %s\n", okMark("✓"), path, w.Summary())
	return nil
}

func checkTools(ctx context.Context, path string, w *workflow.Workflow) error {
	configs, err := mcp.LoadConfig(path)
	if err != nil {
		return err
	}
	discoverCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	catalog := mcp.NewCatalog()
	n, errs := catalog.Discover(discoverCtx, configs)
	for _, e := range errs {
		fmt.Printf("%s mcp: %v\n", warnMark("!"), e)
	}
	fmt.Printf("%s mcp: %d server(s), %d tool identifier(s)\n", okMark("✓"), n, len(catalog.Names()))
	return catalog.CheckWorkflow(w)
}

func cmdRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	path, err := singleArg(fs, args)
	if err != nil {
		return err
	}
	w, err := loadWorkflow(path)
	if err != nil {
		return err
	}
	data, err := w.ToJSONIndent()
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	envPath := fs.String("env", "", "explicit .env file")
	path, err := singleArg(fs, args)
	if err != nil {
		return err
	}

	if *envPath != "" {
		config.LoadEnv(*envPath)
	} else {
		config.LoadEnv()
	}
	cfg, err := config.NewBackendConfigFromEnv()
	if err != nil {
		return err
	}

	w, err := loadWorkflow(path)
	if err != nil {
		return err
	}
	printWarnings(w.Warnings())
	printWarnings(llm.CheckModels(w, cfg.DefaultModel))

	return newRunner(cfg, os.Stdin, os.Stdout).run(ctx, w)
}
