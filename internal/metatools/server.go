package metatools

import (
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/brokerd/internal/audit"
	"github.com/giantswarm/brokerd/internal/execengine"
	"github.com/giantswarm/brokerd/internal/registry"
	"github.com/giantswarm/brokerd/internal/skillstore"
)

// Handlers wires the four meta-tools to their collaborators. It holds no
// state of its own beyond these references.
type Handlers struct {
	reg     *registry.Registry
	engine  *execengine.Engine
	skills  *skillstore.Store
	auditor audit.Store
}

// New constructs the meta-tool handlers. auditor may be nil, in which case
// manage's history sub-operation reports NotFound rather than panicking.
func New(reg *registry.Registry, engine *execengine.Engine, skills *skillstore.Store, auditor audit.Store) *Handlers {
	return &Handlers{reg: reg, engine: engine, skills: skills, auditor: auditor}
}

// Tools returns the broker's complete, fixed four-tool client surface for
// registration against an MCP server, mirroring the aggregator's own
// server.ServerTool{Tool, Handler} construction.
func (h *Handlers) Tools() []mcpserver.ServerTool {
	return []mcpserver.ServerTool{
		{Tool: searchTool(), Handler: h.handleSearch},
		{Tool: schemaTool(), Handler: h.handleSchema},
		{Tool: execTool(), Handler: h.handleExec},
		{Tool: manageTool(), Handler: h.handleManage},
	}
}
