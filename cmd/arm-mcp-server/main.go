package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/azure-connectors/arm-mcp-server/internal/armclient"
	"github.com/azure-connectors/arm-mcp-server/internal/auth"
	"github.com/azure-connectors/arm-mcp-server/internal/config"
	"github.com/azure-connectors/arm-mcp-server/internal/connectors"
	"github.com/azure-connectors/arm-mcp-server/internal/lifecycle"
	"github.com/azure-connectors/arm-mcp-server/internal/registrar"
	"github.com/azure-connectors/arm-mcp-server/internal/toolregistry"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("arm-mcp-server: loading configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("arm-mcp-server: %v", err)
	}

	client := armclient.New()
	tokens := auth.NewEnvTokenProvider()
	registry := toolregistry.New()
	cache := toolregistry.NewSchemaCache()
	tools := registrar.NewServer()

	coordinator := &lifecycle.Coordinator{
		Client:   client,
		Tokens:   tokens,
		Registry: registry,
		Cache:    cache,
		Tools:    tools,
		Context:  cfg.Context,
	}

	static := &connectors.Tools{
		Client:      client,
		Tokens:      tokens,
		Context:     cfg.Context,
		Registry:    registry,
		Coordinator: coordinator,
	}
	if err := static.RegisterAll(tools); err != nil {
		log.Fatalf("arm-mcp-server: registering static tools: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tally, err := coordinator.StartupScan(ctx)
	if err != nil {
		log.Fatalf("arm-mcp-server: startup scan: %v", err)
	}
	log.Printf("arm-mcp-server: startup scan complete: %s", tally)

	if cfg.Repl {
		runRepl(ctx, tools)
		return
	}

	transport := registrar.NewStdioTransport(tools, os.Stdin, os.Stdout)
	if err := transport.Run(ctx); err != nil {
		log.Fatalf("arm-mcp-server: transport terminated: %v", err)
	}
}

// runRepl drives a local debug shell over the same registrar.Server the
// stdio transport would use, for exercising list_dynamic_tools and
// refresh_tools without a real tool-protocol client attached.
func runRepl(ctx context.Context, tools *registrar.Server) {
	rl, err := readline.New("arm-mcp> ")
	if err != nil {
		log.Fatalf("arm-mcp-server: starting repl: %v", err)
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stderr(), "commands: list, call <tool> <json-args>, quit")
	for {
		line, err := rl.Readline()
		if err != nil {
			return
		}
		handleReplLine(ctx, tools, line, rl)
	}
}

func handleReplLine(ctx context.Context, tools *registrar.Server, line string, rl *readline.Instance) {
	switch {
	case line == "quit" || line == "exit":
		os.Exit(0)
	case line == "list":
		for _, name := range tools.ToolNames() {
			desc, _, _ := tools.Describe(name)
			fmt.Fprintf(rl.Stderr(), "%s\t%s\n", name, desc)
		}
	case len(line) > 5 && line[:5] == "call ":
		replCall(ctx, tools, line[5:], rl)
	case line != "":
		fmt.Fprintln(rl.Stderr(), "unknown command")
	}
}

func replCall(ctx context.Context, tools *registrar.Server, rest string, rl *readline.Instance) {
	name, argsJSON := splitToolCall(rest)
	params, err := decodeCallArgs(argsJSON)
	if err != nil {
		fmt.Fprintf(rl.Stderr(), "invalid args: %v\n", err)
		return
	}
	result, err := tools.Invoke(ctx, name, params)
	if err != nil {
		fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
		return
	}
	fmt.Fprintln(rl.Stderr(), result.Text)
}
