package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/giantswarm/brokerd/internal/audit"
	"github.com/giantswarm/brokerd/internal/brokerconfig"
	"github.com/giantswarm/brokerd/internal/execengine"
	"github.com/giantswarm/brokerd/internal/metatools"
	"github.com/giantswarm/brokerd/internal/registry"
	"github.com/giantswarm/brokerd/internal/sandbox"
	"github.com/giantswarm/brokerd/internal/skillstore"
	"github.com/giantswarm/brokerd/internal/upstream"
	"github.com/giantswarm/brokerd/pkg/logging"
)

// serveDebug enables verbose logging across the broker.
var serveDebug bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the broker as an MCP server over stdio",
	Long: `serve is the broker's composition root: it loads configuration,
connects every configured upstream peer, loads local skills, and exposes
the resulting registry through the search/schema/exec/manage meta-tools
over an MCP stdio transport.

It is also what the search/schema/exec/manage CLI commands spawn as a
subprocess to issue a single call against.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "enable debug logging")
}

func runServe(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if serveDebug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stderr)

	cfg, err := loadServeConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reg := registry.New()
	reg.SetDestructivePolicy(cfg.Policy.DestructiveToolPatterns, cfg.Policy.AllowUnsafe)

	skillRoots := []string{cfg.Paths.SkillsRoot}
	skills, err := skillstore.New(reg, skillRoots...)
	if err != nil {
		return fmt.Errorf("initializing skill store: %w", err)
	}
	if err := skills.LoadAll(); err != nil {
		logging.Warn("Serve", "skill store load encountered errors: %v", err)
	}
	if err := skills.Watch(); err != nil {
		logging.Warn("Serve", "skill store watch unavailable: %v", err)
	}

	mux := upstream.New(reg)
	peers := make([]upstream.PeerConfig, 0, len(cfg.Upstreams))
	for _, u := range cfg.Upstreams {
		peers = append(peers, peerConfigFrom(u))
	}
	muxCtx, cancelMux := context.WithCancel(ctx)
	defer cancelMux()
	if len(peers) > 0 {
		go func() {
			if err := mux.Start(muxCtx, peers); err != nil && muxCtx.Err() == nil {
				logging.Error("Serve", err, "upstream multiplexer exited")
			}
		}()
	}

	container, err := sandbox.NewContainerBackend()
	if err != nil {
		logging.Warn("Serve", "container sandbox backend unavailable, isolated preset will report SandboxUnavailable: %v", err)
		container = nil
	}
	sbox := sandbox.NewManager(container)

	var auditor audit.Store
	if cfg.Persistence.Enabled {
		path := cfg.Persistence.Database
		if path == "" {
			path = cfg.Paths.DatabasePath
		}
		fileStore, err := audit.NewFileStore(path)
		if err != nil {
			return fmt.Errorf("initializing audit store: %w", err)
		}
		auditor = fileStore
	}

	engine := execengine.New(reg, mux, sbox, skills, auditor)
	handlers := metatools.New(reg, engine, skills, auditor)

	srv := mcpserver.NewMCPServer(
		"brokerd",
		GetVersion(),
		mcpserver.WithToolCapabilities(false),
	)
	srv.AddTools(handlers.Tools()...)

	return mcpserver.ServeStdio(srv)
}

func loadServeConfig() (brokerconfig.Config, error) {
	dir := serveConfigDir
	if dir == "" {
		dir = ".brokerd"
	}
	if serveGlobalDir != "" {
		return brokerconfig.LoadWithOverlay(serveGlobalDir, dir)
	}
	return brokerconfig.Load(dir)
}

func peerConfigFrom(u brokerconfig.UpstreamConfig) upstream.PeerConfig {
	pc := upstream.PeerConfig{
		Alias:            u.Alias,
		Tags:             u.Tags,
		Transport:        upstream.Transport(u.Transport),
		Command:          u.Command,
		Args:             u.Args,
		Env:              u.Env,
		URL:              u.URL,
		IdleHealthWindow: 30 * time.Second,
		InitialBackoff:   time.Second,
		MaxBackoff:       30 * time.Second,
	}
	switch u.Auth.Type {
	case "bearer":
		pc.BearerEnvVar = u.Auth.EnvVar
	case "header":
		pc.Headers = map[string]string{u.Auth.Header: os.Getenv(u.Auth.EnvVar)}
	}
	return pc
}
