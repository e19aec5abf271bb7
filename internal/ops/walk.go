package ops

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a2-ai/dvs/internal/metadata"
)

// TrackedPaths walks the workspace root looking for *.dvs and *.dvs.toml
// sidecars, honouring the backend's ignore rules on the sidecar's own path,
// and returns the corresponding data-file repo-relative paths, deduplicated
// and sorted (spec §4.7: "the set of all tracked files (located by walking
// the workspace for *.dvs and *.dvs.toml while honouring ignore rules)").
func TrackedPaths(ws *Workspace) ([]string, error) {
	root := ws.Backend.Root()
	seen := make(map[string]struct{})

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		name := info.Name()
		var dataName string
		switch {
		case strings.HasSuffix(name, metadata.TOMLSuffix):
			dataName = strings.TrimSuffix(name, metadata.TOMLSuffix)
		case strings.HasSuffix(name, metadata.JSONSuffix):
			dataName = strings.TrimSuffix(name, metadata.JSONSuffix)
		default:
			return nil
		}

		dataPath := filepath.Join(filepath.Dir(path), dataName)
		rel, err := ws.Backend.Normalize(dataPath)
		if err != nil {
			return nil
		}

		sidecarRel, err := ws.Backend.Normalize(path)
		if err != nil {
			return nil
		}
		ignored, err := ws.Backend.IsIgnored(sidecarRel)
		if err == nil && ignored {
			return nil
		}
		seen[rel] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(seen))
	for rel := range seen {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}
