package skillstore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/giantswarm/brokerd/internal/brokerapi"
)

var interpreterByExt = map[string]struct {
	interpreter string
	kind        brokerapi.EntrypointKind
}{
	".py":   {"python3", brokerapi.EntrypointPython},
	".sh":   {"bash", brokerapi.EntrypointBash},
	".js":   {"node", brokerapi.EntrypointNode},
	".wasm": {"", brokerapi.EntrypointWasm},
}

// discoverEntrypoints walks a skill's scripts/ directory (if present) and
// returns one Entrypoint per recognized, readable file. Interpreter
// scripts that are not executable are skipped per spec §4.3 rather than
// registered and later failing at exec time.
func discoverEntrypoints(skillDir string) ([]brokerapi.Entrypoint, error) {
	scriptsDir := filepath.Join(skillDir, "scripts")
	entries, err := os.ReadDir(scriptsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []brokerapi.Entrypoint
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		meta, ok := interpreterByExt[ext]
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if meta.interpreter != "" && info.Mode()&0o111 == 0 {
			continue
		}

		out = append(out, brokerapi.Entrypoint{
			Filename:    filepath.Join("scripts", entry.Name()),
			Interpreter: meta.interpreter,
			Kind:        meta.kind,
		})
	}
	return out, nil
}
