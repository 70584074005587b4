// Package brokerconfig loads and validates the broker's YAML configuration
// surface (spec §6): paths, sandbox defaults, upstream peers, the global/
// project overlay, skill-repo imports, and the persistence toggle.
package brokerconfig

// Config is the top-level configuration structure.
type Config struct {
	Paths             PathsConfig        `yaml:"paths"`
	Sandbox           SandboxConfig      `yaml:"sandbox"`
	Upstreams         []UpstreamConfig   `yaml:"upstreams"`
	UseGlobal         UseGlobalConfig    `yaml:"use_global"`
	AgentSkillsRepos  []SkillsRepoConfig `yaml:"agent_skills_repos"`
	Persistence       PersistenceConfig  `yaml:"persistence"`
	Policy            PolicyConfig       `yaml:"policy"`
}

// PolicyConfig carries broker-wide safety policy that applies regardless of
// which peer or sandbox preset a callable resolves to.
type PolicyConfig struct {
	// DestructiveToolPatterns are glob patterns (matched against a tool's
	// FQN and its bare name) that force risk_tier=destructive at
	// registration time, regardless of what the peer itself declared.
	DestructiveToolPatterns []string `yaml:"destructive_tool_patterns,omitempty"`
	// AllowUnsafe disables the denylist entirely, mirroring the teacher's
	// --yolo escape hatch. Off by default.
	AllowUnsafe bool `yaml:"allow_unsafe,omitempty"`
}

// PathsConfig names every directory the broker reads from or writes to.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir"`
	SkillsRoot   string `yaml:"skills_root"`
	DatabasePath string `yaml:"database_path"`
	ConfigDir    string `yaml:"config_dir"`
	CacheDir     string `yaml:"cache_dir"`
	LogsDir      string `yaml:"logs_dir"`
}

// DockerConfig configures the container sandbox backend.
type DockerConfig struct {
	Image       string `yaml:"image"`
	MemoryLimit int64  `yaml:"memory_limit"`
	CPUQuota    int64  `yaml:"cpu_quota"`
	NetworkMode string `yaml:"network_mode"`
	AutoRemove  bool   `yaml:"auto_remove"`
}

// SandboxConfig is the default sandbox policy applied when a callable does
// not declare its own override.
type SandboxConfig struct {
	Preset         string       `yaml:"preset"`
	Backend        string       `yaml:"backend,omitempty"`
	TimeoutMS      int          `yaml:"timeout_ms,omitempty"`
	MaxMemoryBytes int64        `yaml:"max_memory_bytes,omitempty"`
	MaxCPUSeconds  int64        `yaml:"max_cpu_seconds,omitempty"`
	AllowRead      []string     `yaml:"allow_read,omitempty"`
	AllowWrite     []string     `yaml:"allow_write,omitempty"`
	AllowNetwork   bool         `yaml:"allow_network,omitempty"`
	Docker         DockerConfig `yaml:"docker,omitempty"`
}

// AuthConfig is one upstream peer's bearer/header authentication.
type AuthConfig struct {
	Type   string `yaml:"type"` // "bearer" | "header" | "none"
	EnvVar string `yaml:"env"`
	Header string `yaml:"header,omitempty"`
}

// UpstreamConfig is one configured MCP peer.
type UpstreamConfig struct {
	Alias        string            `yaml:"alias"`
	Transport    string            `yaml:"transport"` // "stdio" | "http"
	Command      string            `yaml:"command,omitempty"`
	Args         []string          `yaml:"args,omitempty"`
	URL          string            `yaml:"url,omitempty"`
	Env          map[string]string `yaml:"env,omitempty"`
	Auth         AuthConfig        `yaml:"auth,omitempty"`
	Tags         []string          `yaml:"tags,omitempty"`
	SandboxConfig string           `yaml:"sandbox_config,omitempty"`
}

// UseGlobalConfig controls the global+project overlay in LoadWithOverlay:
// when enabled, the global config's upstreams and agent_skills_repos are
// placed ahead of the project's own; every other field comes from the
// project config.
type UseGlobalConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SkillsRepoConfig imports skills from an external repository.
type SkillsRepoConfig struct {
	Repo   string   `yaml:"repo"`
	Skills []string `yaml:"skills,omitempty"`
	GitRef string   `yaml:"git_ref,omitempty"`
}

// PersistenceConfig toggles the audit/registry persistence layer.
type PersistenceConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Database       string `yaml:"database,omitempty"`
	PruneAfterDays int    `yaml:"prune_after_days,omitempty"`
}
