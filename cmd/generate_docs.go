package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetview/internal/broker"
	"github.com/teemow/meetview/internal/config"
	"github.com/teemow/meetview/internal/connection"
	"github.com/teemow/meetview/internal/identity"
	"github.com/teemow/meetview/internal/server"
	"github.com/teemow/meetview/internal/tools/meeting_tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(cmd, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// listTools registers the tools on a throwaway server. No credentials are
// needed since no tool is called.
func listTools() ([]mcp.Tool, error) {
	sessions, err := identity.NewSessions("", 0)
	if err != nil {
		return nil, err
	}
	cfg := &config.Config{PublicBaseURL: "http://localhost:3000"}

	serverContext, err := server.NewServerContext(context.Background(), server.Dependencies{
		Config:   cfg,
		Broker:   broker.NewClient(broker.Config{BaseURL: cfg.Broker.BaseURL}),
		Store:    connection.NewMemoryStore(0),
		Sessions: sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("meetview", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := meeting_tools.RegisterMeetingTools(mcpSrv, serverContext); err != nil {
		return nil, fmt.Errorf("failed to register meeting tools: %w", err)
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}
	return tools, nil
}

func runGenerateDocs(cmd *cobra.Command, outputFile string) error {
	tools, err := listTools()
	if err != nil {
		return err
	}

	markdown := generateToolsMarkdown(tools)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), markdown)
	return nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document lists the tools served by meetview at `/mcp`.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	sb.WriteString("## Authentication\n\n")
	sb.WriteString("Every tool acts for the signed-in user. Send the session token issued by ")
	sb.WriteString("`/api/auth/callback/google` as `Authorization: Bearer <token>`; ")
	sb.WriteString("without it tools fail with `UNAUTHORIZED`. MCP clients that support OAuth ")
	sb.WriteString("discover the authorization server at `/.well-known/oauth-protected-resource` ")
	sb.WriteString("and sign in with Google instead.\n\n")

	sorted := make([]mcp.Tool, len(tools))
	copy(sorted, tools)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	sb.WriteString("## Tools\n\n")
	for _, tool := range sorted {
		sb.WriteString(generateToolMarkdown(tool))
		sb.WriteString("\n")
	}

	return sb.String()
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			propMap, ok := tool.InputSchema.Properties[name].(map[string]interface{})
			if !ok {
				continue
			}

			requiredStr := "optional"
			if contains(tool.InputSchema.Required, name) {
				requiredStr = "required"
			}

			sb.WriteString(fmt.Sprintf("- `%s` (%s): ", name, requiredStr))
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", getPropertyType(propMap)))
			}
			if values, ok := propMap["enum"].([]string); ok && len(values) > 0 {
				sb.WriteString(fmt.Sprintf(" (one of: %s)", strings.Join(values, ", ")))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No arguments.\n\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
