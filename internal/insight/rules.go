package insight

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rulesFile is the on-disk shape of an external rule table:
//
//	categories:
//	  - name: market
//	    label: Market Intelligence
//	    terms: [market, competitor, trend]
type rulesFile struct {
	Categories Rules `yaml:"categories"`
}

// LoadRules reads a category rule table from a YAML file. Labels default to
// the category name when omitted.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("rules file %s defines no categories", path)
	}

	seen := make(map[string]bool, len(f.Categories))
	for i, cat := range f.Categories {
		if cat.Name == "" {
			return nil, fmt.Errorf("category %d has no name", i)
		}
		if seen[cat.Name] {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		seen[cat.Name] = true
		if len(cat.Terms) == 0 {
			return nil, fmt.Errorf("category %q has no trigger terms", cat.Name)
		}
		if cat.Label == "" {
			f.Categories[i].Label = cat.Name
		}
	}
	return f.Categories, nil
}
