package mcptool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer returns an MCP server with every tool registered.
func NewServer(version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "tablegen", Version: version}, nil)
	mcp.AddTool(server, MetadataRecoverTable, RecoverTable)
	mcp.AddTool(server, MetadataInferSchema, InferSchema)
	mcp.AddTool(server, MetadataNormalizeTable, NormalizeTable)
	return server
}

// ServeStdio runs the server over stdin/stdout until ctx ends or the client
// disconnects.
func ServeStdio(ctx context.Context, version string) error {
	return NewServer(version).Run(ctx, &mcp.StdioTransport{})
}
