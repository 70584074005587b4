package skillstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/giantswarm/brokerd/internal/registry"
	"github.com/giantswarm/brokerd/pkg/ids"
	"github.com/giantswarm/brokerd/pkg/logging"
)

// Store owns one or more on-disk skill roots, keeps the Registry in sync
// with their contents, and implements the create/read/update/delete
// contract from spec §4.3.
type Store struct {
	mu      sync.RWMutex
	roots   []string
	primary string // root new skills are created under
	reg     *registry.Registry
	watcher *fsnotify.Watcher
}

// New constructs a Store over the given roots; the first root is where
// Create writes new skills (later roots are read-only overlays, e.g. a
// shared/global skills directory per spec §6 `use_global`).
func New(reg *registry.Registry, roots ...string) (*Store, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("skillstore: at least one root is required")
	}
	return &Store{roots: roots, primary: roots[0], reg: reg}, nil
}

// LoadAll discovers every skill under every root and upserts descriptors
// into the Registry. Later roots do not override earlier ones on name
// collision; the first root wins and the collision is logged.
func (s *Store) LoadAll() error {
	seen := map[string]bool{}
	for _, root := range s.roots {
		descs, err := discoverAll(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("discover skills under %s: %w", root, err)
		}
		for _, desc := range descs {
			if seen[desc.Name] {
				logging.Warn("SkillStore", "skill %q already loaded from an earlier root, skipping %s", desc.Name, desc.Source.SkillRoot)
				continue
			}
			seen[desc.Name] = true
			if err := s.reg.Upsert(desc); err != nil {
				logging.Warn("SkillStore", "failed to register skill %s: %v", desc.Name, err)
			}
		}
	}
	return nil
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	Name         string
	Version      string
	Description  string
	SkillMD      string
	Tags         []string
	BundledFiles map[string]string // relative filename -> content
}

func (s *Store) skillDir(name string) string {
	return filepath.Join(s.primary, name)
}

// Create writes a new skill directory atomically (temp directory then
// rename into place) and registers it. It fails with ErrConflict if the
// name is already taken in the primary root.
func (s *Store) Create(req CreateRequest) (brokerapi.Descriptor, error) {
	if !namePattern.MatchString(req.Name) {
		return brokerapi.Descriptor{}, brokerapi.NewError(brokerapi.ErrInvalidArguments, "name must match [a-z0-9][a-z0-9-]{0,63}").WithField("name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	finalDir := s.skillDir(req.Name)
	if _, err := os.Stat(finalDir); err == nil {
		return brokerapi.Descriptor{}, brokerapi.NewError(brokerapi.ErrConflict, "skill already exists: "+req.Name)
	}

	tmpDir, err := os.MkdirTemp(s.primary, ".tmp-skill-")
	if err != nil {
		return brokerapi.Descriptor{}, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "create staging directory")
	}
	defer os.RemoveAll(tmpDir)

	skillMD := req.SkillMD
	if skillMD == "" {
		skillMD = renderDefaultSkillMD(req)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "SKILL.md"), []byte(skillMD), 0o644); err != nil {
		return brokerapi.Descriptor{}, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "write SKILL.md")
	}

	for name, content := range req.BundledFiles {
		if err := writeBundledFile(tmpDir, name, content); err != nil {
			return brokerapi.Descriptor{}, brokerapi.Wrap(brokerapi.ErrInvalidArguments, err, "write bundled file "+name)
		}
	}

	desc, _, err := loadSkillDir(tmpDir)
	if err != nil {
		return brokerapi.Descriptor{}, brokerapi.Wrap(brokerapi.ErrInvalidArguments, err, "validate new skill")
	}

	if err := os.Rename(tmpDir, finalDir); err != nil {
		return brokerapi.Descriptor{}, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "rename staged skill into place")
	}

	desc.Source.SkillRoot = finalDir
	if err := s.reg.Upsert(desc); err != nil {
		return brokerapi.Descriptor{}, err
	}

	logging.Info("SkillStore", "created skill %s", req.Name)
	return desc, nil
}

// writeBundledFile writes content under dir/name, refusing any name that
// would escape dir via ".." segments or an absolute path.
func writeBundledFile(dir, name, content string) error {
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return fmt.Errorf("bundled file path %q escapes the skill directory", name)
	}
	full := filepath.Join(dir, cleaned)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if strings.HasSuffix(cleaned, ".sh") || strings.HasSuffix(cleaned, ".py") {
		mode = 0o755
	}
	return os.WriteFile(full, []byte(content), mode)
}

func renderDefaultSkillMD(req CreateRequest) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "name: %s\n", req.Name)
	fmt.Fprintf(&b, "description: %s\n", req.Description)
	if req.Version != "" {
		fmt.Fprintf(&b, "version: %s\n", req.Version)
	}
	if len(req.Tags) > 0 {
		fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(req.Tags, ", "))
	}
	b.WriteString("---\n")
	fmt.Fprintf(&b, "# %s\n\n%s\n", req.Name, req.Description)
	return b.String()
}

// EditOp is one content mutation applied by Update, in the fixed order
// replace_all -> prepend -> append (spec §4.3). ReplaceAll replaces the
// whole SKILL.md; Prepend and Append apply to the markdown body after the
// front-matter block.
type EditOp struct {
	ReplaceAll string
	Prepend    string
	Append     string
}

// Update applies content replacement/edit operations to an existing
// skill's SKILL.md, re-validates, and re-registers it.
func (s *Store) Update(name string, op EditOp) (brokerapi.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.skillDir(name)
	mdPath := filepath.Join(dir, "SKILL.md")
	raw, err := os.ReadFile(mdPath)
	if err != nil {
		if os.IsNotExist(err) {
			return brokerapi.Descriptor{}, brokerapi.NewError(brokerapi.ErrNotFound, "no such skill: "+name)
		}
		return brokerapi.Descriptor{}, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "read SKILL.md")
	}

	content := string(raw)
	if op.ReplaceAll != "" {
		content = op.ReplaceAll
	}
	if op.Prepend != "" || op.Append != "" {
		yamlPart, body, err := splitFrontMatter([]byte(content))
		if err != nil {
			return brokerapi.Descriptor{}, brokerapi.Wrap(brokerapi.ErrInvalidArguments, err, "parse SKILL.md for edit")
		}
		content = "---\n" + string(yamlPart) + "\n---\n" + op.Prepend + string(body) + op.Append + "\n"
	}

	tmpFile := mdPath + ".tmp"
	if err := os.WriteFile(tmpFile, []byte(content), 0o644); err != nil {
		return brokerapi.Descriptor{}, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "stage SKILL.md update")
	}

	staged, _, stagedErr := loadSkillDirFromOverlay(dir, tmpFile)
	if stagedErr != nil {
		os.Remove(tmpFile)
		return brokerapi.Descriptor{}, brokerapi.Wrap(brokerapi.ErrInvalidArguments, stagedErr, "validate updated SKILL.md")
	}

	if err := os.Rename(tmpFile, mdPath); err != nil {
		return brokerapi.Descriptor{}, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "commit SKILL.md update")
	}

	staged.Source.SkillRoot = dir
	if err := s.reg.Upsert(staged); err != nil {
		return brokerapi.Descriptor{}, err
	}
	logging.Info("SkillStore", "updated skill %s", name)
	return staged, nil
}

// loadSkillDirFromOverlay validates a candidate SKILL.md at overlayPath
// as if it already lived at dir/SKILL.md, without touching the real file.
func loadSkillDirFromOverlay(dir, overlayPath string) (brokerapi.Descriptor, string, error) {
	raw, err := os.ReadFile(overlayPath)
	if err != nil {
		return brokerapi.Descriptor{}, "", err
	}
	fm, body, err := parseFrontMatter(raw)
	if err != nil {
		return brokerapi.Descriptor{}, "", err
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

// Delete removes a skill's directory and its Registry entries. It is
// idempotent in effect but reports NotFound on an already-absent skill.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.skillDir(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return brokerapi.NewError(brokerapi.ErrNotFound, "no such skill: "+name)
	}

	if err := os.RemoveAll(dir); err != nil {
		return brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "remove skill directory")
	}

	if desc, err := s.reg.LookupByFQN(ids.SkillFQN(name)); err == nil {
		_ = s.reg.Remove(desc.CallableID)
	}

	logging.Info("SkillStore", "deleted skill %s", name)
	return nil
}

// Get returns the full parsed descriptor plus raw SKILL.md body for name.
func (s *Store) Get(name string) (brokerapi.Descriptor, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := s.skillDir(name)
	desc, body, err := loadSkillDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return brokerapi.Descriptor{}, "", brokerapi.NewError(brokerapi.ErrNotFound, "no such skill: "+name)
		}
		return brokerapi.Descriptor{}, "", brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "load skill")
	}
	return desc, body, nil
}

// GetFile returns one bundled file's raw bytes, resolved with
// traversal-protection so filename can never escape the skill directory.
func (s *Store) GetFile(name, filename string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := s.skillDir(name)
	cleaned := filepath.Clean(filename)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return nil, brokerapi.NewError(brokerapi.ErrInvalidArguments, "path escapes skill directory: "+filename)
	}
	full := filepath.Join(dir, cleaned)
	resolvedDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "resolve skill directory")
	}
	resolvedFull, err := filepath.Abs(full)
	if err != nil {
		return nil, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "resolve file path")
	}
	if !strings.HasPrefix(resolvedFull, resolvedDir+string(filepath.Separator)) {
		return nil, brokerapi.NewError(brokerapi.ErrInvalidArguments, "path escapes skill directory: "+filename)
	}

	data, err := os.ReadFile(resolvedFull)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, brokerapi.NewError(brokerapi.ErrNotFound, "no such file: "+filename)
		}
		return nil, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "read bundled file")
	}
	return data, nil
}

// Watch starts an fsnotify watch over every root and re-loads a skill's
// descriptor whenever its SKILL.md changes on disk outside the Store's
// own CRUD path (e.g. an operator hand-editing files).
func (s *Store) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start skill watcher: %w", err)
	}
	for _, root := range s.roots {
		if err := w.Add(root); err != nil {
			logging.Warn("SkillStore", "failed to watch %s: %v", root, err)
		}
	}
	s.watcher = w

	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				s.handleWatchEvent(event)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logging.Warn("SkillStore", "watch error: %v", err)
			}
		}
	}()
	return nil
}

func (s *Store) handleWatchEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, "SKILL.md") {
		return
	}
	dir := filepath.Dir(event.Name)

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		return
	}

	desc, _, err := loadSkillDir(dir)
	if err != nil {
		logging.Warn("SkillStore", "hot-reload of %s failed: %v", dir, err)
		return
	}
	if err := s.reg.Upsert(desc); err != nil {
		logging.Warn("SkillStore", "hot-reload upsert of %s failed: %v", dir, err)
		return
	}
	logging.Info("SkillStore", "hot-reloaded skill %s", desc.Name)
}

// Close stops the filesystem watcher, if running.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
