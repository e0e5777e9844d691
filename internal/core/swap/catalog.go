package swap

import (
	_ "embed"
	"fmt"
	"strings"

	"meal-engine/internal/core/food"

	"github.com/BurntSushi/toml"
)

//go:embed catalog.toml
var defaultCatalog string

// Category 替換類別：用 Keywords 找出餐點中的食材，Candidates 依序作為建議
type Category struct {
	ID         string   `toml:"id" json:"id"`
	Label      string   `toml:"label" json:"label"`
	Keywords   []string `toml:"keywords" json:"keywords"`
	Candidates []string `toml:"candidates" json:"candidates"`
}

// Matches 判斷食材名稱是否屬於此類別
func (c Category) Matches(name string) bool {
	normalized := food.Normalize(name)
	if normalized == "" {
		return false
	}
	for _, kw := range c.Keywords {
		if kw = food.Normalize(kw); kw != "" && strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// Catalog 啟動時載入後不再修改
type Catalog struct {
	Categories []Category `toml:"categories"`
	index      map[string]int
}

// DefaultCatalog 內建目錄
func DefaultCatalog() *Catalog {
	c, err := parseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded swap catalog is invalid: %v", err))
	}
	return c
}

// LoadCatalog 從 TOML 檔載入；path 為空時使用內建目錄
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	var c Catalog
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("failed to decode swap catalog %s: %w", path, err)
	}
	if err := c.build(); err != nil {
		return nil, fmt.Errorf("invalid swap catalog %s: %w", path, err)
	}
	return &c, nil
}

func parseCatalog(data string) (*Catalog, error) {
	var c Catalog
	if _, err := toml.Decode(data, &c); err != nil {
		return nil, err
	}
	if err := c.build(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) build() error {
	c.index = make(map[string]int, len(c.Categories))
	for i, cat := range c.Categories {
		id := food.Normalize(cat.ID)
		if id == "" {
			return fmt.Errorf("category %d has no id", i)
		}
		if _, dup := c.index[id]; dup {
			return fmt.Errorf("duplicate category %q", cat.ID)
		}
		c.index[id] = i
	}
	return nil
}

// Category 依 id 查詢類別（忽略大小寫與重音）
func (c *Catalog) Category(id string) (Category, bool) {
	i, ok := c.index[food.Normalize(id)]
	if !ok {
		return Category{}, false
	}
	return c.Categories[i], true
}

// IDs 所有類別 id，依目錄順序
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		ids = append(ids, cat.ID)
	}
	return ids
}
