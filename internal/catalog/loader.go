package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Dataset is a set of collections and their items, as read from fixture files.
type Dataset struct {
	Collections []*Collection
	Items       []*Item
}

// Registry holds collections indexed by ID.
type Registry struct {
	collections map[string]*Collection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		collections: make(map[string]*Collection),
	}
}

// Add registers a collection. It fails if the ID is already taken.
func (r *Registry) Add(collection *Collection) error {
	if collection == nil {
		return fmt.Errorf("cannot add nil collection")
	}

	if _, exists := r.collections[collection.ID]; exists {
		return fmt.Errorf("collection with ID %q already exists", collection.ID)
	}

	r.collections[collection.ID] = collection
	return nil
}

// Get returns the collection with the given ID, or nil.
func (r *Registry) Get(id string) *Collection {
	return r.collections[id]
}

// Has reports whether a collection is registered.
func (r *Registry) Has(id string) bool {
	_, exists := r.collections[id]
	return exists
}

// All returns every collection sorted by ID.
func (r *Registry) All() []*Collection {
	collections := make([]*Collection, 0, len(r.collections))
	for _, collection := range r.collections {
		collections = append(collections, collection)
	}
	sort.Slice(collections, func(i, j int) bool { return collections[i].ID < collections[j].ID })
	return collections
}

// Count returns the number of registered collections.
func (r *Registry) Count() int {
	return len(r.collections)
}

// LoadDir reads a fixture directory. Collections are read one per file from
// dir/collections/*.json and items as JSON arrays from dir/items/*.json. Every item
// must belong to a loaded collection.
func LoadDir(dir string) (*Dataset, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access catalog directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog path %q is not a directory", dir)
	}

	registry := NewRegistry()
	files, err := jsonFiles(filepath.Join(dir, "collections"))
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, path := range files {
		collection, err := loadCollectionFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load collection from %q: %w", path, err)
		}
		if err := registry.Add(collection); err != nil {
			return nil, fmt.Errorf("failed to add collection from %q: %w", path, err)
		}
	}

	if registry.Count() == 0 {
		return nil, fmt.Errorf("no collection files found in %q", dir)
	}

	ds := &Dataset{Collections: registry.All()}

	files, err = jsonFiles(filepath.Join(dir, "items"))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, path := range files {
		items, err := loadItemsFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load items from %q: %w", path, err)
		}
		for _, item := range items {
			if !registry.Has(item.Collection) {
				return nil, fmt.Errorf("item %q in %q references unknown collection %q", item.ID, path, item.Collection)
			}
		}
		ds.Items = append(ds.Items, items...)
	}

	return ds, nil
}

// jsonFiles lists the .json files of dir in name order.
func jsonFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read directory %q: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

func loadCollectionFile(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var collection Collection
	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if err := ValidateCollection(&collection); err != nil {
		return nil, fmt.Errorf("invalid collection: %w", err)
	}

	return &collection, nil
}

func loadItemsFile(path string) ([]*Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var items []*Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	for i, item := range items {
		if err := ValidateItem(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return items, nil
}

// ValidateCollection checks the fields a collection must carry.
func ValidateCollection(c *Collection) error {
	if c.ID == "" {
		return fmt.Errorf("collection ID is required")
	}

	if c.Description == "" {
		return fmt.Errorf("collection description is required")
	}

	if c.MinX > c.MaxX || c.MinY > c.MaxY {
		return fmt.Errorf("collection %q has an inverted spatial extent", c.ID)
	}

	if c.StartDate.IsZero() {
		return fmt.Errorf("collection %q has no start date", c.ID)
	}

	if c.EndDate != nil && c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("collection %q ends before it starts", c.ID)
	}

	return nil
}

// ValidateItem checks the fields an item must carry.
func ValidateItem(item *Item) error {
	if item == nil {
		return fmt.Errorf("item is nil")
	}

	if item.ID == "" {
		return fmt.Errorf("item ID is required")
	}

	if item.Collection == "" {
		return fmt.Errorf("item %q has no collection", item.ID)
	}

	if item.Date.IsZero() {
		return fmt.Errorf("item %q has no date", item.ID)
	}

	for i, a := range item.Assets {
		if a.Band == "" || a.Href == "" {
			return fmt.Errorf("item %q asset %d needs a band and an href", item.ID, i)
		}
	}

	return nil
}
