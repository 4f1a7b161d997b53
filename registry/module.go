// Package registry implements the Module Registry and Executor Resolver
// (spec.md §4.B, §4.C): discovery of modules from a directory, hot
// enable/disable, and a cached (module_id, node_type_id) -> constructor
// lookup that invalidates whenever a module's enabled state changes.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/flowrunner/flowrunner/graph"
	"gopkg.in/yaml.v3"
)

// Metadata is one module's persisted record: the containing directory
// name equals the module id (spec.md §6). Tagged for both
// module.json and module.yaml so discoverDir can read either format.
type Metadata struct {
	ID          string    `json:"-" yaml:"-"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Enabled     bool      `json:"enabled" yaml:"enabled"`
	Order       int       `json:"order" yaml:"order"`
	Config      graph.Map `json:"config" yaml:"config"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty" yaml:"updated_at,omitempty"`
}

const (
	metadataFileName     = "module.json"
	metadataFileNameYAML = "module.yaml"
)

// defaultOrder is assigned to modules whose metadata omits "order",
// matching spec.md §4.B's "order (int, default large)". An explicit
// "order": 0 decodes the same as an omitted field and also gets it.
const defaultOrder = 1 << 30

// discoverDir scans dir for one sub-directory per module, each expected to
// contain a module.json (preferred) or, failing that, a module.yaml. A
// sub-directory with neither file is skipped silently; one whose file
// fails to read or parse is skipped with the failure recorded rather than
// aborting discovery of the rest (spec.md §4.B "Failure").
func discoverDir(dir string) (map[string]*Metadata, []error) {
	out := make(map[string]*Metadata)
	var errs []error

	entries, err := os.ReadDir(dir)
	if err != nil {
		return out, []error{err}
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		moduleID := entry.Name()
		meta, err, found := readModuleMetadata(dir, moduleID)
		if !found {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		meta.ID = moduleID
		if meta.Order == 0 {
			meta.Order = defaultOrder
		}
		out[moduleID] = meta
	}

	return out, errs
}

// readModuleMetadata reads and parses moduleID's metadata file, trying
// module.json first and module.yaml if no JSON file exists. found is
// false when neither file is present (not an error: spec.md §4.B treats a
// module directory without metadata as simply absent from discovery).
func readModuleMetadata(dir, moduleID string) (meta *Metadata, err error, found bool) {
	jsonPath := filepath.Join(dir, moduleID, metadataFileName)
	data, readErr := os.ReadFile(jsonPath)
	if readErr == nil {
		var m Metadata
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err, true
		}
		return &m, nil, true
	}
	if !os.IsNotExist(readErr) {
		return nil, readErr, true
	}

	yamlPath := filepath.Join(dir, moduleID, metadataFileNameYAML)
	data, readErr = os.ReadFile(yamlPath)
	if readErr == nil {
		var m Metadata
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, err, true
		}
		return &m, nil, true
	}
	if !os.IsNotExist(readErr) {
		return nil, readErr, true
	}

	return nil, nil, false
}

// writeMetadata persists meta atomically via a temp-file-and-rename,
// grounded on SPEC_FULL.md §2.3's configuration convention.
func writeMetadata(dir string, meta *Metadata) error {
	path := filepath.Join(dir, meta.ID, metadataFileName)
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func sortByOrder(mods []*Metadata) {
	sort.SliceStable(mods, func(i, j int) bool {
		return mods[i].Order < mods[j].Order
	})
}
