// Package registry loads the managed-column configuration: column specs,
// label synonyms, and the placeholder/protection sentinels.
package registry

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

// ColumnConfig is the on-disk column configuration. Placeholders and the
// protection marker are deployment-specific and travel with the columns
// so a single file describes one destination sheet.
type ColumnConfig struct {
	Columns       []model.ColumnSpec `yaml:"columns"`
	Synonyms      map[string]string  `yaml:"synonyms"`
	Placeholders  []string           `yaml:"placeholders"`
	ProtectMarker string             `yaml:"protect_marker"`
}

// Load reads a column config file. An empty path returns the defaults.
func Load(path string) (*ColumnConfig, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read column config %s", path)
	}

	var cfg ColumnConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, eris.Wrapf(err, "registry: parse column config %s", path)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(cfg.Placeholders) == 0 {
		cfg.Placeholders = Default().Placeholders
	}
	if cfg.ProtectMarker == "" {
		cfg.ProtectMarker = Default().ProtectMarker
	}

	zap.L().Debug("registry: column config loaded",
		zap.String("path", path),
		zap.Int("columns", len(cfg.Columns)),
		zap.Int("synonyms", len(cfg.Synonyms)),
	)
	return &cfg, nil
}

func (c *ColumnConfig) validate() error {
	if len(c.Columns) == 0 {
		return eris.New("registry: column config has no columns")
	}
	seen := make(map[string]bool, len(c.Columns))
	for _, col := range c.Columns {
		if col.Name == "" {
			return eris.New("registry: column with empty name")
		}
		if seen[col.Name] {
			return eris.Errorf("registry: duplicate column %q", col.Name)
		}
		seen[col.Name] = true
		if col.Kind != model.KindBooleanFlag && col.Kind != model.KindFreeText {
			return eris.Errorf("registry: column %q has unknown kind %q", col.Name, col.Kind)
		}
	}
	return nil
}

// Registry builds the indexed ColumnRegistry from this config.
func (c *ColumnConfig) Registry() *model.ColumnRegistry {
	return model.NewColumnRegistry(c.Columns, c.Synonyms)
}

// Default returns the stock machine-shop sheet configuration. Notes
// columns maintained by analysts live to the right of these and are
// never managed.
func Default() *ColumnConfig {
	return &ColumnConfig{
		Columns: []model.ColumnSpec{
			{Name: "Industries served", Kind: model.KindFreeText},
			{Name: "Products and services offered", Kind: model.KindFreeText},
			{Name: "Square footage (facility)", Kind: model.KindFreeText},
			{Name: "Number of employees", Kind: model.KindFreeText},
			{Name: "Estimated Revenues", Kind: model.KindFreeText},
			{Name: "Years of operation", Kind: model.KindFreeText},
			{Name: "Ownership", Kind: model.KindFreeText},
			{Name: "Equipment", Kind: model.KindFreeText},
			{Name: "Medical", Kind: model.KindBooleanFlag},
			{Name: "CNC 3-axis", Kind: model.KindBooleanFlag},
			{Name: "CNC 5-axis", Kind: model.KindBooleanFlag},
			{Name: "Spares/Repairs", Kind: model.KindFreeText},
			{Name: "Family business", Kind: model.KindBooleanFlag},
		},
		Synonyms: map[string]string{
			"Family Ownership":      "Family business",
			"Family-owned":          "Family business",
			"Medical certification": "Medical",
			"CNC 3 axis":            "CNC 3-axis",
			"CNC 5 axis":            "CNC 5-axis",
			"Products and services": "Products and services offered",
			"Revenue":               "Estimated Revenues",
			"Employees":             "Number of employees",
		},
		Placeholders:  []string{"NI", "refer to site"},
		ProtectMarker: "by hand",
	}
}
