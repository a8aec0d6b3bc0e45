package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/duartefn/rotulo/internal/crosscontact"
	"github.com/duartefn/rotulo/internal/model"
	"github.com/duartefn/rotulo/internal/taxonomy"
)

// Config is the application configuration, loadable from a YAML file.
type Config struct {
	// SourceBackend selects the product source ("openfoodfacts", "sqlite").
	SourceBackend string `yaml:"source_backend"`

	// SourceBaseURL overrides the remote catalog endpoint.
	SourceBaseURL string `yaml:"source_base_url"`

	// SourceDSN is the sqlite catalog location for the sqlite backend.
	SourceDSN string `yaml:"source_dsn"`

	// SourceTimeoutSeconds bounds remote product lookups.
	SourceTimeoutSeconds int `yaml:"source_timeout_seconds"`

	// FoodCSVPath points at a FoodDB Food.csv export for dictionary
	// diagnostics; empty keeps the built-in rules only.
	FoodCSVPath string `yaml:"food_csv_path"`

	// FallbackScore is the conservative score for allergens with no facts.
	FallbackScore float64 `yaml:"fallback_score"`

	// HistoryDSN is the assessment history database; empty disables logging.
	HistoryDSN string `yaml:"history_dsn"`

	// ListenAddr is the HTTP API listen address.
	ListenAddr string `yaml:"listen_addr"`

	// CrossContact overrides the estimator hyperparameters.
	CrossContact *crosscontact.Config `yaml:"cross_contact"`

	// FacilityProfiles are default facility profiles applied to every
	// assessed product.
	FacilityProfiles []FacilityProfileConfig `yaml:"facility_profiles"`
}

// FacilityProfileConfig is the YAML shape of a facility allergen profile.
type FacilityProfileConfig struct {
	FacilityID *int64   `yaml:"facility_id"`
	Allergen   string   `yaml:"allergen_code"`
	Process    string   `yaml:"process_type"`
	Proportion *float64 `yaml:"proportion_of_products"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		SourceBackend: "openfoodfacts",
		FallbackScore: 5.0,
		HistoryDSN:    "file:rotulo_history.db",
		ListenAddr:    ":8080",
	}
}

// LoadConfig reads a YAML config file, layered over DefaultConfig. A missing
// file is not an error: the defaults are returned unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return cfg, nil
}

// FacilityProfiles converts the configured profiles to model values,
// rejecting allergen codes outside the taxonomy.
func (c *Config) facilityProfiles() ([]model.FacilityAllergenProfile, error) {
	var out []model.FacilityAllergenProfile
	for _, fp := range c.FacilityProfiles {
		code, ok := taxonomy.Resolve(fp.Allergen)
		if !ok {
			return nil, fmt.Errorf("facility profile: unknown allergen %q", fp.Allergen)
		}
		out = append(out, model.FacilityAllergenProfile{
			FacilityID:           fp.FacilityID,
			Code:                 code,
			ProcessType:          fp.Process,
			ProportionOfProducts: fp.Proportion,
		})
	}
	return out, nil
}
