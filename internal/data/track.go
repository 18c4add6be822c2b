package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// TrackDef defines one table-driven rail type: which block templates count
// as its rail, and its detection priority (higher runs first).
type TrackDef struct {
	Name     string   `yaml:"name"`
	Priority int      `yaml:"priority"`
	Blocks   []string `yaml:"blocks"`
}

type trackFile struct {
	Tracks         []TrackDef `yaml:"tracks"`
	SignScanHeight int        `yaml:"sign_scan_height"`
}

// TrackTable holds all built-in rail type definitions, ordered by priority.
type TrackTable struct {
	defs []TrackDef

	// SignScanHeight is how many blocks above a rail are scanned for signs.
	SignScanHeight int
}

// LoadTrackTable reads rail type definitions from a YAML file.
func LoadTrackTable(path string) (*TrackTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read track table %s: %w", path, err)
	}
	var f trackFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse track table %s: %w", path, err)
	}
	for i, def := range f.Tracks {
		if def.Name == "" {
			return nil, fmt.Errorf("track table %s: entry %d has no name", path, i)
		}
		if len(def.Blocks) == 0 {
			return nil, fmt.Errorf("track table %s: track %q has no blocks", path, def.Name)
		}
	}
	sort.SliceStable(f.Tracks, func(i, j int) bool {
		return f.Tracks[i].Priority > f.Tracks[j].Priority
	})
	height := f.SignScanHeight
	if height <= 0 {
		height = 2
	}
	return &TrackTable{defs: f.Tracks, SignScanHeight: height}, nil
}

// All returns the definitions in priority order.
func (t *TrackTable) All() []TrackDef {
	return t.defs
}

func (t *TrackTable) Count() int {
	return len(t.defs)
}
