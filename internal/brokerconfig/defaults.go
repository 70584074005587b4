package brokerconfig

// Default returns a Config with every field populated to its documented
// default, mirroring spec §4.5's preset table and §6's persistence
// defaults. Callers overlay a loaded config.yaml on top of this.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			DataDir:      "~/.brokerd/data",
			SkillsRoot:   "~/.brokerd/skills",
			DatabasePath: "~/.brokerd/data/audit.jsonl",
			ConfigDir:    "~/.brokerd",
			CacheDir:     "~/.brokerd/cache",
			LogsDir:      "~/.brokerd/logs",
		},
		Sandbox: SandboxConfig{
			Preset: "standard",
		},
		UseGlobal: UseGlobalConfig{Enabled: true},
		Persistence: PersistenceConfig{
			Enabled:        true,
			PruneAfterDays: 30,
		},
	}
}
