package resource

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// Asset is the display data for one car configuration.
type Asset struct {
	Image      string `yaml:"image" json:"image"`
	Sound      string `yaml:"sound" json:"sound"`
	EngineType string `yaml:"engine_type" json:"engine_type"`
}

type catalogFile struct {
	Default Asset            `yaml:"default"`
	Assets  map[string]Asset `yaml:"assets"`
}

// Catalog resolves brand_model_variant keys to assets. It is read-only after
// construction and safe for concurrent use.
type Catalog struct {
	fallback Asset
	assets   map[string]Asset
}

// Key builds the lookup key for a brand, model and variant index.
func Key(brand, model string, variant int) string {
	return brand + "_" + model + "_" + strconv.Itoa(variant)
}

// Load reads the catalog from path, or the embedded catalog when path is empty.
func Load(path string, logger *zap.Logger) (*Catalog, error) {
	data := embeddedCatalog
	source := "embedded"
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read asset catalog: %w", err)
		}
		data, source = b, path
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	logger.Info("asset catalog loaded",
		zap.String("source", source),
		zap.Int("assets", c.Len()))
	return c, nil
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse asset catalog: %w", err)
	}
	if f.Default.Image == "" {
		return nil, fmt.Errorf("parse asset catalog: missing default asset")
	}
	if f.Assets == nil {
		f.Assets = map[string]Asset{}
	}
	return &Catalog{fallback: f.Default, assets: f.Assets}, nil
}

// Lookup returns the asset for key, or the default asset when unknown.
// The second result reports whether the key was found.
func (c *Catalog) Lookup(key string) (Asset, bool) {
	if a, ok := c.assets[strings.TrimSpace(key)]; ok {
		return a, true
	}
	return c.fallback, false
}

// Default returns the fallback asset.
func (c *Catalog) Default() Asset { return c.fallback }

// Len returns the number of known keys.
func (c *Catalog) Len() int { return len(c.assets) }
