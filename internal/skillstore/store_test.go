package skillstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/giantswarm/brokerd/internal/registry"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	reg := registry.New()
	s, err := New(reg, root)
	require.NoError(t, err)
	return s
}

func TestCreateThenGetRoundTrips(t *testing.T) {
	s := newTestStore(t)

	desc, err := s.Create(CreateRequest{
		Name:        "greet",
		Description: "say hi",
		BundledFiles: map[string]string{
			"scripts/run.py": "#!/usr/bin/env python3\nprint('hi')\n",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, brokerapi.KindSkill, desc.Kind)
	assert.Len(t, desc.BundledEntrypoints, 1)

	got, body, err := s.Get("greet")
	require.NoError(t, err)
	assert.Equal(t, "greet", got.Name)
	assert.Contains(t, body, "say hi")
}

func TestCreateDuplicateNameConflicts(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(CreateRequest{Name: "dup", Description: "first"})
	require.NoError(t, err)

	_, err = s.Create(CreateRequest{Name: "dup", Description: "second"})
	kind, ok := brokerapi.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, brokerapi.ErrConflict, kind)
}

func TestCreateRejectsPathTraversalInBundledFiles(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(CreateRequest{
		Name:        "evil",
		Description: "tries to escape",
		BundledFiles: map[string]string{
			"../../etc/passwd": "pwned",
		},
	})
	require.Error(t, err)
}

func TestDeleteIsIdempotentButNotFoundOnSecondCall(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(CreateRequest{Name: "temp", Description: "short lived"})
	require.NoError(t, err)

	require.NoError(t, s.Delete("temp"))

	err = s.Delete("temp")
	kind, ok := brokerapi.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, brokerapi.ErrNotFound, kind)
}

func TestUpdateAppliesReplacePrependAppendInOrder(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(CreateRequest{Name: "doc", Description: "a doc skill"})
	require.NoError(t, err)

	_, err = s.Update("doc", EditOp{
		ReplaceAll: "---\nname: doc\ndescription: a doc skill\n---\nbase\n",
		Prepend:    "PRE-",
		Append:     "-POST",
	})
	require.NoError(t, err)

	_, body, err := s.Get("doc")
	require.NoError(t, err)
	assert.Equal(t, "PRE-base-POST", body)
}

func TestGetFileRejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(CreateRequest{
		Name:        "files",
		Description: "has files",
		BundledFiles: map[string]string{
			"scripts/run.sh": "#!/bin/sh\necho hi\n",
		},
	})
	require.NoError(t, err)

	data, err := s.GetFile("files", "scripts/run.sh")
	require.NoError(t, err)
	assert.Contains(t, string(data), "echo hi")

	_, err = s.GetFile("files", "../../../etc/passwd")
	require.Error(t, err)
}

func TestLoadAllDiscoversPreexistingSkillDirectories(t *testing.T) {
	root := t.TempDir()
	skillDir := filepath.Join(root, "manual")
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "SKILL.md"),
		[]byte("---\nname: manual\ndescription: hand written\n---\nbody\n"), 0o644))

	reg := registry.New()
	s, err := New(reg, root)
	require.NoError(t, err)
	require.NoError(t, s.LoadAll())

	snap := reg.Snapshot()
	_, _, skills := snap.Counts()
	assert.Equal(t, 1, skills)
}
