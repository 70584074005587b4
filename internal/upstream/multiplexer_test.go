package upstream

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/giantswarm/brokerd/internal/registry"
)

type fakeClient struct {
	tools      []mcp.Tool
	callResult *mcp.CallToolResult
	callErr    error
	pingErr    error
}

func (f *fakeClient) Initialize(ctx context.Context) error { return nil }
func (f *fakeClient) Close() error                         { return nil }
func (f *fakeClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return f.tools, nil
}
func (f *fakeClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	return f.callResult, f.callErr
}
func (f *fakeClient) Ping(ctx context.Context) error { return f.pingErr }

func readySessionWithClient(t *testing.T, alias string, c Client) *Session {
	t.Helper()
	s := newSession(PeerConfig{Alias: alias})
	s.transition(StateStarting, nil)
	s.setClient(c)
	s.transition(StateReady, nil)
	return s
}

func TestCallRoutesToReadyPeer(t *testing.T) {
	reg := registry.New()
	m := New(reg)

	fc := &fakeClient{callResult: &mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "ok"}}}}
	s := readySessionWithClient(t, "demo", fc)
	m.mu.Lock()
	m.sessions["demo"] = s
	m.mu.Unlock()

	desc := brokerapi.Descriptor{
		Source:         brokerapi.SourceLocator{PeerAlias: "demo", PeerLocalName: "do_thing"},
		PeerGeneration: s.currentGeneration(),
	}

	out, err := m.Call(context.Background(), desc, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestCallRejectsStaleGeneration(t *testing.T) {
	reg := registry.New()
	m := New(reg)

	fc := &fakeClient{}
	s := readySessionWithClient(t, "demo", fc)
	m.mu.Lock()
	m.sessions["demo"] = s
	m.mu.Unlock()

	desc := brokerapi.Descriptor{
		Source:         brokerapi.SourceLocator{PeerAlias: "demo", PeerLocalName: "do_thing"},
		PeerGeneration: s.currentGeneration() + 1,
	}

	_, err := m.Call(context.Background(), desc, nil)
	kind, ok := brokerapi.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, brokerapi.ErrStaleId, kind)
}

func TestCallRejectsUnknownPeer(t *testing.T) {
	reg := registry.New()
	m := New(reg)

	desc := brokerapi.Descriptor{Source: brokerapi.SourceLocator{PeerAlias: "ghost"}}
	_, err := m.Call(context.Background(), desc, nil)
	kind, ok := brokerapi.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, brokerapi.ErrPeerGone, kind)
}

func TestEnumerateUpsertsDescriptorsIntoRegistry(t *testing.T) {
	reg := registry.New()
	m := New(reg)

	fc := &fakeClient{tools: []mcp.Tool{{Name: "add", Description: "adds numbers", InputSchema: mcp.ToolInputSchema{Type: "object"}}}}
	s := readySessionWithClient(t, "demo", fc)
	m.mu.Lock()
	m.sessions["demo"] = s
	m.mu.Unlock()

	require.NoError(t, m.enumerate(context.Background(), s, s.currentGeneration()))

	snap := reg.Snapshot()
	total, tools, _ := snap.Counts()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, tools)
}
