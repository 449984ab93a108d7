// Package seed loads initial inventory, recipes and settings from YAML.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/devadigapratham/printsync/api/models"
	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a seed file
//
//	materials:
//	  - key: paper
//	    name: A4 Paper 80gsm
//	    type: PAPER
//	    level: 500
//	recipes:
//	  - service_type: PRINT_BW_A4
//	    material: paper
//	    quantity: 1.0
type File struct {
	Materials []Material       `yaml:"materials"`
	Recipes   []Recipe         `yaml:"recipes"`
	Products  []models.Product `yaml:"products"`
	Settings  []models.Setting `yaml:"settings"`
}

// Material is a raw material with a local key that recipes refer to
type Material struct {
	Key   string  `yaml:"key"`
	Name  string  `yaml:"name"`
	Type  string  `yaml:"type"`
	Level float64 `yaml:"level"`
}

// Recipe references its material by seed key
type Recipe struct {
	ServiceType string  `yaml:"service_type"`
	Material    string  `yaml:"material"`
	Quantity    float64 `yaml:"quantity"`
}

// Target is where seed records are written
type Target interface {
	AddMaterial(ctx context.Context, material *models.RawMaterial) error
	AddRecipe(ctx context.Context, recipe *models.ProductionRecipe) error
	AddProduct(ctx context.Context, product *models.Product) error
	SetSetting(ctx context.Context, setting *models.Setting) error
}

// Load reads and decodes a seed file from disk
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode decodes and validates a seed document
func Decode(r io.Reader) (*File, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}

	keys := make(map[string]bool, len(file.Materials))
	for _, m := range file.Materials {
		if m.Key == "" || m.Name == "" {
			return nil, fmt.Errorf("material %q needs a key and a name", m.Name)
		}
		if !models.IsValidMaterialType(m.Type) {
			return nil, fmt.Errorf("material %s has invalid type %q", m.Key, m.Type)
		}
		keys[m.Key] = true
	}
	for _, r := range file.Recipes {
		if !keys[r.Material] {
			return nil, fmt.Errorf("recipe %s references unknown material %q", r.ServiceType, r.Material)
		}
	}
	return &file, nil
}

// Apply writes the seed records to target, materials first so recipes resolve
func (f *File) Apply(ctx context.Context, target Target) error {
	ids := make(map[string]string, len(f.Materials))
	for _, m := range f.Materials {
		material := &models.RawMaterial{
			Name:         m.Name,
			Type:         normalizeType(m.Type),
			CurrentLevel: m.Level,
		}
		if err := target.AddMaterial(ctx, material); err != nil {
			return fmt.Errorf("seed material %s: %w", m.Key, err)
		}
		ids[m.Key] = material.ID
	}

	for _, r := range f.Recipes {
		recipe := &models.ProductionRecipe{
			ServiceType:      r.ServiceType,
			RawMaterialID:    ids[r.Material],
			QuantityRequired: r.Quantity,
		}
		if err := target.AddRecipe(ctx, recipe); err != nil {
			return fmt.Errorf("seed recipe %s: %w", r.ServiceType, err)
		}
	}

	for i := range f.Products {
		if err := target.AddProduct(ctx, &f.Products[i]); err != nil {
			return fmt.Errorf("seed product %s: %w", f.Products[i].Barcode, err)
		}
	}

	for i := range f.Settings {
		if err := target.SetSetting(ctx, &f.Settings[i]); err != nil {
			return fmt.Errorf("seed setting %s: %w", f.Settings[i].Key, err)
		}
	}
	return nil
}

func normalizeType(t string) string {
	return strings.ToUpper(t)
}
