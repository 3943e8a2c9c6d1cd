// Package catalog loads the seed product list.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type file struct {
	Items []domain.InventoryItem `yaml:"items"`
}

// Load reads the catalog at path, or the built-in storefront catalog when
// path is empty.
func Load(path string) ([]domain.InventoryItem, error) {
	raw := defaultCatalog
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
	}
	return Parse(raw)
}

func Parse(raw []byte) ([]domain.InventoryItem, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Items))
	for i, item := range f.Items {
		switch {
		case strings.TrimSpace(item.ID) == "":
			return nil, fmt.Errorf("catalog item %d: missing id", i)
		case item.Price < 0:
			return nil, fmt.Errorf("catalog item %s: negative price", item.ID)
		case item.Stock < 0:
			return nil, fmt.Errorf("catalog item %s: negative stock", item.ID)
		case item.ReorderThreshold < 0:
			return nil, fmt.Errorf("catalog item %s: negative reorder threshold", item.ID)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("catalog item %s: duplicate id", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return f.Items, nil
}
