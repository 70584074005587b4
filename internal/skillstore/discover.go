package skillstore

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/giantswarm/brokerd/pkg/logging"
)

// legacyOverride is the skill.json shape whose fields take precedence
// over SKILL.md's front-matter when both are present (spec §4.3).
type legacyOverride struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Version       string   `json:"version"`
	License       string   `json:"license"`
	Compatibility string   `json:"compatibility"`
	AllowedTools  []string `json:"allowed-tools"`
	Tags          []string `json:"tags"`
}

func applyLegacyOverride(fm frontMatter, ov legacyOverride) frontMatter {
	if ov.Name != "" {
		fm.Name = ov.Name
	}
	if ov.Description != "" {
		fm.Description = ov.Description
	}
	if ov.Version != "" {
		fm.Version = ov.Version
	}
	if ov.License != "" {
		fm.License = ov.License
	}
	if ov.Compatibility != "" {
		fm.Compatibility = ov.Compatibility
	}
	if len(ov.AllowedTools) > 0 {
		fm.AllowedTools = ov.AllowedTools
	}
	if len(ov.Tags) > 0 {
		fm.Tags = ov.Tags
	}
	return fm
}

// loadSkillDir parses one skill directory into a descriptor plus its raw
// SKILL.md body. A directory without SKILL.md yields the os.ReadFile
// error (discoverAll only calls it where SKILL.md exists); a SKILL.md that
// fails to parse or validate is returned as an error, which discoverAll
// logs before moving on to sibling directories.
func loadSkillDir(dir string) (brokerapi.Descriptor, string, error) {
	mdPath := filepath.Join(dir, "SKILL.md")
	raw, err := os.ReadFile(mdPath)
	if err != nil {
		return brokerapi.Descriptor{}, "", err
	}

	fm, body, err := parseFrontMatter(raw)
	if err != nil {
		return brokerapi.Descriptor{}, "", err
	}

	legacyPath := filepath.Join(dir, "skill.json")
	if legacyRaw, err := os.ReadFile(legacyPath); err == nil {
		var ov legacyOverride
		if jsonErr := json.Unmarshal(legacyRaw, &ov); jsonErr != nil {
			return brokerapi.Descriptor{}, "", jsonErr
		}
		fm = applyLegacyOverride(fm, ov)
	}

	if errs := validateFrontMatter(fm); errs.HasErrors() {
		return brokerapi.Descriptor{}, "", errs
	}

	entrypoints, err := discoverEntrypoints(dir)
	if err != nil {
		return brokerapi.Descriptor{}, "", err
	}

	return toDescriptor(dir, fm, entrypoints), body, nil
}

// discoverAll walks root recursively; a directory is a skill iff it
// directly contains SKILL.md (nested skill directories inside a skill's
// own scripts/ or asset tree are not traversed into as separate skills).
func discoverAll(root string) ([]brokerapi.Descriptor, error) {
	var out []brokerapi.Descriptor

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path == root {
			return nil
		}

		if _, statErr := os.Stat(filepath.Join(path, "SKILL.md")); statErr == nil {
			desc, _, loadErr := loadSkillDir(path)
			if loadErr != nil {
				logging.Warn("SkillStore", "skipping invalid skill at %s: %v", path, loadErr)
				return filepath.SkipDir
			}
			out = append(out, desc)
			return filepath.SkipDir
		}

		if _, statErr := os.Stat(filepath.Join(path, "skill.json")); statErr == nil {
			logging.Warn("SkillStore", "skipping %s: skill.json present without SKILL.md", path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
