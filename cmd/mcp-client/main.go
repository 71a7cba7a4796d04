package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: mcp-client <server-command> [<args>]")
		fmt.Fprintln(os.Stderr, "Example: mcp-client ./netmon-mcp -config netmon.yaml")
		os.Exit(2)
	}

	ctx := context.Background()

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stderr = os.Stderr
	transport := &mcp.CommandTransport{Command: cmd}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "netmon-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer session.Close()

	fmt.Println("Connected to netmon MCP server!")
	fmt.Println("Available commands:")
	fmt.Println("  /tools                        - List available tools")
	fmt.Println("  /probe                        - Read the server's own metrics")
	fmt.Println("  /alerts [severity] [limit]    - List recent alerts")
	fmt.Println("  /interfaces <hostid> [hours]  - Interface status of a host")
	fmt.Println("  /health [country]             - City health scores")
	fmt.Println("  /graph <cypher>               - Execute a read-only Cypher query")
	fmt.Println("  /exit                         - Exit the client")
	fmt.Println("  <question>                    - Ask a question about the network")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		parts := strings.Fields(input)

		switch {
		case input == "/exit":
			fmt.Println("Goodbye!")
			return

		case input == "/tools":
			listTools(ctx, session)

		case input == "/probe":
			callTool(ctx, session, "get_probe_metrics", map[string]any{})

		case parts[0] == "/alerts":
			args := map[string]any{}
			if len(parts) > 1 {
				args["severity"] = parts[1]
			}
			if len(parts) > 2 {
				if n, err := strconv.Atoi(parts[2]); err == nil {
					args["limit"] = n
				}
			}
			callTool(ctx, session, "get_recent_alerts", args)

		case parts[0] == "/interfaces":
			if len(parts) < 2 {
				fmt.Println("usage: /interfaces <hostid> [hours]")
				continue
			}
			args := map[string]any{"hostid": parts[1]}
			if len(parts) > 2 {
				if n, err := strconv.Atoi(parts[2]); err == nil {
					args["hours"] = n
				}
			}
			callTool(ctx, session, "get_host_interfaces", args)

		case parts[0] == "/health":
			args := map[string]any{}
			if len(parts) > 1 {
				args["country"] = strings.Join(parts[1:], " ")
			}
			callTool(ctx, session, "get_location_health", args)

		case strings.HasPrefix(input, "/graph "):
			callTool(ctx, session, "query_graph", map[string]any{
				"cypher": strings.TrimPrefix(input, "/graph "),
			})

		default:
			callTool(ctx, session, "ask_netmon", map[string]any{
				"question": input,
			})
		}
	}

	if err := scanner.Err(); err != nil {
		log.Printf("Scanner error: %v", err)
	}
}

func listTools(ctx context.Context, session *mcp.ClientSession) {
	fmt.Println("Available Tools:")
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			log.Printf("Error listing tools: %v", err)
			return
		}
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}
	fmt.Println()
}

func callTool(ctx context.Context, session *mcp.ClientSession, toolName string, args map[string]any) {
	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		log.Printf("Error calling tool: %v", err)
		return
	}

	printResult(result)
}

func printResult(result *mcp.CallToolResult) {
	if result.IsError {
		fmt.Printf("Error: ")
	} else {
		fmt.Printf("Result: ")
	}

	for _, content := range result.Content {
		switch v := content.(type) {
		case *mcp.TextContent:
			fmt.Println(v.Text)
		default:
			jsonData, err := json.MarshalIndent(content, "", "  ")
			if err != nil {
				fmt.Printf("%+v\n", content)
			} else {
				fmt.Println(string(jsonData))
			}
		}
	}
	fmt.Println()
}
