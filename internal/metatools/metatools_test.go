package metatools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/brokerd/internal/audit"
	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/giantswarm/brokerd/internal/execengine"
	"github.com/giantswarm/brokerd/internal/registry"
	"github.com/giantswarm/brokerd/internal/skillstore"
)

func callReq(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: struct {
			Name      string    `json:"name"`
			Arguments any       `json:"arguments,omitempty"`
			Meta      *mcp.Meta `json:"_meta,omitempty"`
		}{Arguments: args},
	}
}

func decodeText(t *testing.T, res *mcp.CallToolResult, out interface{}) {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(tc.Text), out))
}

func toolDescriptor() brokerapi.Descriptor {
	return brokerapi.Descriptor{
		Kind:        brokerapi.KindTool,
		Name:        "read_file",
		FQN:         "filesystem/read_file",
		CallableID:  "tool:srv:filesystem::read_file::sd:abc123",
		InputSchema: brokerapi.Schema{Type: "object", Properties: map[string]interface{}{"path": map[string]interface{}{"type": "string"}}, Required: []string{"path"}},
		RiskTier:    brokerapi.RiskReadOnly,
		Source:      brokerapi.SourceLocator{PeerAlias: "filesystem", PeerLocalName: "read_file"},
	}
}

func newTestHandlers(t *testing.T) (*Handlers, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	skills, err := skillstore.New(reg, t.TempDir())
	require.NoError(t, err)
	engine := execengine.New(reg, nil, nil, skills, nil)
	return New(reg, engine, skills, nil), reg
}

func TestSearchFindsRegisteredTool(t *testing.T) {
	h, reg := newTestHandlers(t)
	require.NoError(t, reg.Upsert(toolDescriptor()))

	res, err := h.handleSearch(context.Background(), callReq(map[string]interface{}{"q": "read_file"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var resp registry.Response
	decodeText(t, res, &resp)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "filesystem/read_file", resp.Results[0].FQN)
}

func TestSearchRejectsUnknownField(t *testing.T) {
	h, _ := newTestHandlers(t)
	res, err := h.handleSearch(context.Background(), callReq(map[string]interface{}{"bogus": "x"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSchemaReturnsInputSchemaByDefault(t *testing.T) {
	h, reg := newTestHandlers(t)
	desc := toolDescriptor()
	require.NoError(t, reg.Upsert(desc))

	res, err := h.handleSchema(context.Background(), callReq(map[string]interface{}{"callable_id": desc.CallableID}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var resp schemaResponse
	decodeText(t, res, &resp)
	assert.Equal(t, desc.CallableID, resp.CallableID)
	assert.Nil(t, resp.Signature)
}

func TestSchemaUnknownIdReturnsNotFoundEnvelope(t *testing.T) {
	h, _ := newTestHandlers(t)
	res, err := h.handleSchema(context.Background(), callReq(map[string]interface{}{"callable_id": "tool:srv:x::y::sd:z"}))
	require.NoError(t, err)
	require.True(t, res.IsError)

	var env errorEnvelope
	decodeText(t, res, &env)
	assert.Equal(t, string(brokerapi.ErrNotFound), env.Kind)
}

func TestSchemaWithPointerNarrowsResponse(t *testing.T) {
	h, reg := newTestHandlers(t)
	desc := toolDescriptor()
	require.NoError(t, reg.Upsert(desc))

	res, err := h.handleSchema(context.Background(), callReq(map[string]interface{}{
		"callable_id": desc.CallableID,
		"pointer":     "/callable_id",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	var narrowed string
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &narrowed))
	assert.Equal(t, desc.CallableID, narrowed)
}

func TestExecDryRunShortCircuits(t *testing.T) {
	h, reg := newTestHandlers(t)
	desc := toolDescriptor()
	require.NoError(t, reg.Upsert(desc))

	res, err := h.handleExec(context.Background(), callReq(map[string]interface{}{
		"callable_id": desc.CallableID,
		"arguments":   map[string]interface{}{"path": "./README.md"},
		"dry_run":     true,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var result execengine.Result
	decodeText(t, res, &result)
	assert.True(t, result.DryRun)
	assert.Equal(t, "ok", result.Status)
}

func TestExecMissingCallableIDIsInvalidArguments(t *testing.T) {
	h, _ := newTestHandlers(t)
	res, err := h.handleExec(context.Background(), callReq(map[string]interface{}{}))
	require.NoError(t, err)
	require.True(t, res.IsError)

	var env errorEnvelope
	decodeText(t, res, &env)
	assert.Equal(t, string(brokerapi.ErrInvalidArguments), env.Kind)
}

func TestManageCreateThenGetThenDelete(t *testing.T) {
	h, _ := newTestHandlers(t)

	createRes, err := h.handleManage(context.Background(), callReq(map[string]interface{}{
		"operation":   "create",
		"name":        "greet",
		"version":     "1.0.0",
		"description": "say hi",
		"skill_md":    "---\nname: greet\ndescription: say hi\n---\n# Greet\n",
	}))
	require.NoError(t, err)
	require.False(t, createRes.IsError)

	var created manageResponse
	decodeText(t, createRes, &created)
	require.NotNil(t, created.Descriptor)
	assert.Equal(t, "greet", created.Descriptor.Name)

	getRes, err := h.handleManage(context.Background(), callReq(map[string]interface{}{
		"operation": "get",
		"name":      "greet",
	}))
	require.NoError(t, err)
	require.False(t, getRes.IsError)
	var got manageResponse
	decodeText(t, getRes, &got)
	assert.Contains(t, got.SkillMD, "say hi")

	deleteRes, err := h.handleManage(context.Background(), callReq(map[string]interface{}{
		"operation": "delete",
		"name":      "greet",
	}))
	require.NoError(t, err)
	require.False(t, deleteRes.IsError)

	secondDelete, err := h.handleManage(context.Background(), callReq(map[string]interface{}{
		"operation": "delete",
		"name":      "greet",
	}))
	require.NoError(t, err)
	require.True(t, secondDelete.IsError)
	var env errorEnvelope
	decodeText(t, secondDelete, &env)
	assert.Equal(t, string(brokerapi.ErrNotFound), env.Kind)
}

func TestManageUpdateRequiresEditOp(t *testing.T) {
	h, _ := newTestHandlers(t)
	res, err := h.handleManage(context.Background(), callReq(map[string]interface{}{
		"operation": "update",
		"name":      "greet",
	}))
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestManageUnknownOperationIsInvalidArguments(t *testing.T) {
	h, _ := newTestHandlers(t)
	res, err := h.handleManage(context.Background(), callReq(map[string]interface{}{
		"operation": "wipe",
		"name":      "greet",
	}))
	require.NoError(t, err)
	require.True(t, res.IsError)

	var env errorEnvelope
	decodeText(t, res, &env)
	assert.Equal(t, string(brokerapi.ErrInvalidArguments), env.Kind)
}

func TestManageHistoryWithoutAuditorReportsNotFound(t *testing.T) {
	h, _ := newTestHandlers(t)
	res, err := h.handleManage(context.Background(), callReq(map[string]interface{}{
		"operation":   "history",
		"callable_id": "tool:srv:github::create-issue::sd:abc123",
	}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	var env errorEnvelope
	decodeText(t, res, &env)
	assert.Equal(t, string(brokerapi.ErrNotFound), env.Kind)
}

func TestManageHistoryReturnsRecentRecordsForCallable(t *testing.T) {
	reg := registry.New()
	skills, err := skillstore.New(reg, t.TempDir())
	require.NoError(t, err)
	auditor, err := audit.NewFileStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)

	engine := execengine.New(reg, nil, nil, skills, auditor)
	h := New(reg, engine, skills, auditor)

	callableID := "tool:srv:github::create-issue::sd:abc123"
	require.NoError(t, auditor.Put(context.Background(), brokerapi.ExecutionRecord{ID: "1", CallableID: callableID, Status: "ok"}))
	require.NoError(t, auditor.Put(context.Background(), brokerapi.ExecutionRecord{ID: "2", CallableID: callableID, Status: "error"}))
	require.NoError(t, auditor.Put(context.Background(), brokerapi.ExecutionRecord{ID: "3", CallableID: "other", Status: "ok"}))

	res, err := h.handleManage(context.Background(), callReq(map[string]interface{}{
		"operation":   "history",
		"callable_id": callableID,
		"limit":       1,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var body manageResponse
	decodeText(t, res, &body)
	require.Len(t, body.History, 1)
	assert.Equal(t, "2", body.History[0].ID)
}

func TestToolsReturnsAllFourMetaTools(t *testing.T) {
	h, _ := newTestHandlers(t)
	tools := h.Tools()
	require.Len(t, tools, 4)
	names := make([]string, len(tools))
	for i, tl := range tools {
		names[i] = tl.Tool.Name
	}
	assert.ElementsMatch(t, []string{"search", "schema", "exec", "manage"}, names)
}
