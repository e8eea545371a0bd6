package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const uncategorised = "menu"

// Catalog holds the menu in file order with an index by item id.
type Catalog struct {
	categories []Category
	byID       map[string]MenuItem
}

type menuFile struct {
	MenuItems  []MenuItem `json:"menuItems"`
	Categories []Category `json:"categories"`
}

// Load reads a menu file in either the flat {"menuItems": [...]} shape or the
// grouped {"categories": [...]} shape.
func Load(r io.Reader) (*Catalog, error) {
	var f menuFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("catalog: decode menu: %w: %v", ErrInvalidMenu, err)
	}

	categories := f.Categories
	if len(f.MenuItems) > 0 {
		categories = append(groupFlat(f.MenuItems), categories...)
	}
	return New(categories)
}

func LoadFile(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer file.Close()

	return Load(file)
}

// New builds a catalog from categories. Every item is stamped with the id of
// the category it sits in.
func New(categories []Category) (*Catalog, error) {
	c := &Catalog{
		categories: make([]Category, 0, len(categories)),
		byID:       make(map[string]MenuItem),
	}
	for _, cat := range categories {
		items := make([]MenuItem, 0, len(cat.Items))
		for _, item := range cat.Items {
			if item.ID == "" {
				return nil, fmt.Errorf("catalog: item %q in category %q has no id: %w", item.Name, cat.ID, ErrInvalidMenu)
			}
			if item.Price.IsNegative() {
				return nil, fmt.Errorf("catalog: item %s has negative price: %w", item.ID, ErrInvalidMenu)
			}
			if _, ok := c.byID[item.ID]; ok {
				return nil, fmt.Errorf("catalog: item %s: %w", item.ID, ErrDuplicateItem)
			}
			item.CategoryID = cat.ID
			c.byID[item.ID] = item
			items = append(items, item)
		}
		cat.Items = items
		c.categories = append(c.categories, cat)
	}
	return c, nil
}

// groupFlat keeps the flat list's order: a category appears where its first
// item does.
func groupFlat(items []MenuItem) []Category {
	var categories []Category
	index := make(map[string]int)
	for _, item := range items {
		id := item.CategoryID
		if id == "" {
			id = uncategorised
		}
		i, ok := index[id]
		if !ok {
			i = len(categories)
			index[id] = i
			categories = append(categories, Category{ID: id, Name: id})
		}
		categories[i].Items = append(categories[i].Items, item)
	}
	return categories
}

func (c *Catalog) Item(id string) (MenuItem, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// Categories returns a copy of the catalog's categories.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	for i, cat := range c.categories {
		cat.Items = append([]MenuItem(nil), cat.Items...)
		out[i] = cat
	}
	return out
}

// Visible returns the categories with hidden items removed. Categories left
// empty are dropped.
func (c *Catalog) Visible() []Category {
	var out []Category
	for _, cat := range c.categories {
		var items []MenuItem
		for _, item := range cat.Items {
			if item.Visible() {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}
		cat.Items = items
		out = append(out, cat)
	}
	return out
}

// Items returns every item in iteration order.
func (c *Catalog) Items() []MenuItem {
	out := make([]MenuItem, 0, len(c.byID))
	for _, cat := range c.categories {
		out = append(out, cat.Items...)
	}
	return out
}
