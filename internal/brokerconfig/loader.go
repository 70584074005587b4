package brokerconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/brokerd/pkg/logging"
)

const configFileName = "config.yaml"

// Load reads config.yaml from dir, starting from Default() so any field
// the file omits keeps its documented default. A missing file is not an
// error: the broker runs on defaults alone.
func Load(dir string) (Config, error) {
	cfg := Default()
	path := filepath.Join(dir, configFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "no config.yaml found at %s, using defaults", path)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if errs := Validate(cfg); errs.HasErrors() {
		return Config{}, errs
	}

	logging.Info("ConfigLoader", "loaded configuration from %s", path)
	return cfg, nil
}

// LoadWithOverlay loads a global config directory and a project config
// directory, applying use_global overlay semantics (spec §6): when the
// project config enables use_global, the global config is loaded first
// and the project's upstreams are appended to it rather than replacing
// it. Project-level scalar fields (paths, sandbox, persistence) win.
func LoadWithOverlay(globalDir, projectDir string) (Config, error) {
	project, err := Load(projectDir)
	if err != nil {
		return Config{}, err
	}
	if !project.UseGlobal.Enabled || globalDir == "" {
		return project, nil
	}

	global, err := Load(globalDir)
	if err != nil {
		return Config{}, fmt.Errorf("load global config: %w", err)
	}

	merged := project
	merged.Upstreams = append(append([]UpstreamConfig(nil), global.Upstreams...), project.Upstreams...)
	merged.AgentSkillsRepos = append(append([]SkillsRepoConfig(nil), global.AgentSkillsRepos...), project.AgentSkillsRepos...)

	if errs := Validate(merged); errs.HasErrors() {
		return Config{}, errs
	}
	return merged, nil
}
