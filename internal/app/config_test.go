package app_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/duartefn/rotulo/internal/app"
	"github.com/duartefn/rotulo/internal/testutil"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := app.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SourceBackend != "openfoodfacts" {
		t.Errorf("SourceBackend = %q, want openfoodfacts", cfg.SourceBackend)
	}
	if cfg.FallbackScore != 5.0 {
		t.Errorf("FallbackScore = %v, want 5.0", cfg.FallbackScore)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
}

func TestLoadConfig_ParsesYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
source_backend: sqlite
source_dsn: "file:catalog.db"
fallback_score: 12.5
listen_addr: ":9000"
cross_contact:
  mu_category: -2.0
  delta_may_contain_boost: 3.0
facility_profiles:
  - allergen_code: amendoim
    process_type: shared_line
    proportion_of_products: 0.4
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := app.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SourceBackend != "sqlite" || cfg.SourceDSN != "file:catalog.db" {
		t.Errorf("source settings not applied: %+v", cfg)
	}
	if cfg.FallbackScore != 12.5 {
		t.Errorf("FallbackScore = %v", cfg.FallbackScore)
	}
	if cfg.CrossContact == nil || cfg.CrossContact.MuCategory != -2.0 {
		t.Errorf("CrossContact override not applied: %+v", cfg.CrossContact)
	}
	if len(cfg.FacilityProfiles) != 1 || cfg.FacilityProfiles[0].Allergen != "amendoim" {
		t.Errorf("FacilityProfiles = %+v", cfg.FacilityProfiles)
	}
}

func TestLoadConfig_RejectsBadYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("source_backend: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := app.LoadConfig(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestNewApplication_WiresComponents(t *testing.T) {
	t.Parallel()
	cfg := app.DefaultConfig()
	cfg.SourceBackend = "sqlite"
	cfg.SourceDSN = "file:apptest?mode=memory&cache=shared"
	cfg.HistoryDSN = ""

	application, err := app.NewApplication(cfg, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}
	defer application.Close()

	if application.Engine == nil || application.Source == nil || application.Dictionary == nil {
		t.Errorf("components missing: %+v", application)
	}
	if application.History != nil {
		t.Error("history should be disabled when the DSN is empty")
	}
}

func TestNewApplication_RejectsUnknownFacilityAllergen(t *testing.T) {
	t.Parallel()
	cfg := app.DefaultConfig()
	cfg.SourceBackend = "sqlite"
	cfg.SourceDSN = "file:appbad?mode=memory&cache=shared"
	cfg.HistoryDSN = ""
	cfg.FacilityProfiles = []app.FacilityProfileConfig{
		{Allergen: "chocolate", Process: "shared_line"},
	}

	if _, err := app.NewApplication(cfg, &testutil.DummyLogger{}); err == nil {
		t.Error("expected an error for an unknown facility allergen")
	}
}

func TestNewApplication_RejectsUnknownBackend(t *testing.T) {
	t.Parallel()
	cfg := app.DefaultConfig()
	cfg.SourceBackend = "postgres"
	cfg.HistoryDSN = ""

	if _, err := app.NewApplication(cfg, &testutil.DummyLogger{}); err == nil {
		t.Error("expected an error for an unregistered backend")
	}
}
