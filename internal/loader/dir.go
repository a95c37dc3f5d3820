// Package loader reads entity change logs laid out as one JSON document per
// event under a per-entity directory: <root>/accounts, <root>/cards and
// <root>/savings_accounts.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dvloznov/ledger-reconciler/internal/entity"
	"github.com/dvloznov/ledger-reconciler/internal/events"
)

// DirLoader loads change logs from the local filesystem.
type DirLoader struct {
	Root string
}

// NewDirLoader creates a DirLoader rooted at root.
func NewDirLoader(root string) *DirLoader {
	return &DirLoader{Root: root}
}

// Load reads every *.json file of the kind's directory in lexical order.
// An empty directory yields no events; a missing one is an error.
func (l *DirLoader) Load(ctx context.Context, kind entity.Kind) ([]events.ChangeEvent, error) {
	dir := filepath.Join(l.Root, kind.Dir())

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("DirLoader.Load: reading %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isEventFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]events.ChangeEvent, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("DirLoader.Load: reading %s: %w", path, err)
		}
		ev, err := events.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("DirLoader.Load: %s: %w", path, err)
		}
		out = append(out, ev)
	}

	return out, nil
}

func isEventFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}
