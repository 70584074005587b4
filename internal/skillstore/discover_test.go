package skillstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, dir, md string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(md), 0o644))
}

func TestLoadSkillDirAppliesLegacyOverride(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "---\nname: original\ndescription: original desc\nversion: \"1.0.0\"\n---\nbody\n")

	ov := legacyOverride{Name: "overridden", Description: "overridden desc"}
	raw, err := json.Marshal(ov)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skill.json"), raw, 0o644))

	desc, _, err := loadSkillDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "overridden", desc.Name)
	assert.Equal(t, "overridden desc", desc.Description)
	assert.Equal(t, "1.0.0", desc.Version)
}

func TestLoadSkillDirRejectsInvalidFrontMatter(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "---\ndescription: missing name\n---\nbody\n")

	_, _, err := loadSkillDir(dir)
	require.Error(t, err)
}

func TestDiscoverAllFindsTopLevelSkillsOnly(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, filepath.Join(root, "alpha"), "---\nname: alpha\ndescription: a\n---\nbody\n")
	writeSkill(t, filepath.Join(root, "beta"), "---\nname: beta\ndescription: b\n---\nbody\n")

	nestedScripts := filepath.Join(root, "alpha", "scripts")
	require.NoError(t, os.MkdirAll(nestedScripts, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nestedScripts, "run.sh"), []byte("#!/bin/sh\n"), 0o755))

	descs, err := discoverAll(root)
	require.NoError(t, err)
	require.Len(t, descs, 2)

	names := map[string]bool{}
	for _, d := range descs {
		names[d.Name] = true
	}
	assert.True(t, names["alpha"])
	assert.True(t, names["beta"])
}

func TestDiscoverAllSkipsInvalidSkillDirectories(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, filepath.Join(root, "good"), "---\nname: good\ndescription: ok\n---\nbody\n")
	writeSkill(t, filepath.Join(root, "bad"), "---\ndescription: missing name\n---\nbody\n")

	descs, err := discoverAll(root)
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "good", descs[0].Name)
}
