package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/duartefn/rotulo/internal/logging"
	"github.com/duartefn/rotulo/internal/model"
	"github.com/duartefn/rotulo/internal/taxonomy"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

const migrationSQL = `
CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ean TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  brand TEXT,
  manufacturer_id INTEGER,
  source TEXT
);

CREATE TABLE IF NOT EXISTS product_allergen_facts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_id INTEGER NOT NULL REFERENCES products(id),
  allergen_code TEXT NOT NULL,
  presence_type TEXT NOT NULL,
  source TEXT,
  weight REAL NOT NULL DEFAULT 1.0,
  confidence REAL NOT NULL DEFAULT 1.0
);

CREATE TABLE IF NOT EXISTS facility_allergen_profile (
  facility_id INTEGER NOT NULL,
  allergen_code TEXT NOT NULL,
  process_type TEXT NOT NULL,
  proportion_of_products REAL
);

CREATE TABLE IF NOT EXISTS facility_products (
  facility_id INTEGER NOT NULL,
  product_id INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_facts_product ON product_allergen_facts(product_id);
CREATE INDEX IF NOT EXISTS idx_facility_products_product ON facility_products(product_id);
`

// SQLiteSource is a database-backed ProductSource mirroring the catalog
// schema (products, facts, facility profiles).
type SQLiteSource struct {
	db     *sql.DB
	logger logging.Logger
}

// NewSQLiteSource opens (or creates) the database at dsn and runs the schema
// migration.
func NewSQLiteSource(dsn string, logger logging.Logger) (*SQLiteSource, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	if dsn == "" {
		dsn = "file:rotulo.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// serialize access to avoid SQLITE deadlocks in concurrent writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(migrationSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migration: %w", err)
	}
	return &SQLiteSource{
		db:     db,
		logger: logger.With(logging.Field{Key: "component", Value: "sqlite_source"}),
	}, nil
}

// Close releases the database handle.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// Get loads a product with its stored facts and linked facility profiles.
func (s *SQLiteSource) Get(ctx context.Context, ean string) (*model.ProductInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ean, name, brand, manufacturer_id, source
		FROM products
		WHERE ean = ?
	`, ean)

	var (
		id             int64
		name           string
		brand          sql.NullString
		manufacturerID sql.NullInt64
		srcTag         sql.NullString
		gotEAN         string
	)
	if err := row.Scan(&id, &gotEAN, &name, &brand, &manufacturerID, &srcTag); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sqlite %s: %w", ean, ErrNotFound)
		}
		return nil, fmt.Errorf("query product %s: %w", ean, err)
	}

	facts, err := s.fetchFacts(ctx, id)
	if err != nil {
		return nil, err
	}
	facilities, err := s.fetchFacilityProfiles(ctx, id)
	if err != nil {
		return nil, err
	}

	product := &model.ProductInfo{
		EAN:        gotEAN,
		Name:       name,
		Brand:      brand.String,
		Source:     "db",
		Facts:      facts,
		Facilities: facilities,
	}
	if manufacturerID.Valid {
		mid := manufacturerID.Int64
		product.ManufacturerID = &mid
	}
	if srcTag.Valid && srcTag.String != "" {
		product.Source = srcTag.String
	}
	if len(facts) == 0 {
		product.DataNotes = append(product.DataNotes,
			"No ingredient/allergen data found in database; cannot compute risk without supplemental data")
	}
	return product, nil
}

func (s *SQLiteSource) fetchFacts(ctx context.Context, productID int64) ([]model.AllergenFact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT allergen_code, presence_type, source, weight, confidence
		FROM product_allergen_facts
		WHERE product_id = ?
		ORDER BY id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var facts []model.AllergenFact
	for rows.Next() {
		var (
			code, presence     string
			factSource         sql.NullString
			weight, confidence float64
		)
		if err := rows.Scan(&code, &presence, &factSource, &weight, &confidence); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		src := factSource.String
		if src == "" {
			src = "db:product_allergen_facts"
		}
		facts = append(facts, model.AllergenFact{
			Code:       taxonomy.Code(code),
			Presence:   model.PresenceType(presence),
			Source:     src,
			Weight:     weight,
			Confidence: confidence,
		})
	}
	return facts, rows.Err()
}

func (s *SQLiteSource) fetchFacilityProfiles(ctx context.Context, productID int64) ([]model.FacilityAllergenProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fap.facility_id, fap.allergen_code, fap.process_type, fap.proportion_of_products
		FROM facility_products fp
		JOIN facility_allergen_profile fap ON fap.facility_id = fp.facility_id
		WHERE fp.product_id = ?
		ORDER BY fap.facility_id, fap.allergen_code
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("query facility profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.FacilityAllergenProfile
	for rows.Next() {
		var (
			facilityID  int64
			code        string
			processType string
			proportion  sql.NullFloat64
		)
		if err := rows.Scan(&facilityID, &code, &processType, &proportion); err != nil {
			return nil, fmt.Errorf("scan facility profile: %w", err)
		}
		fid := facilityID
		profile := model.FacilityAllergenProfile{
			FacilityID:  &fid,
			Code:        taxonomy.Code(code),
			ProcessType: processType,
		}
		if proportion.Valid {
			p := proportion.Float64
			profile.ProportionOfProducts = &p
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// SaveProduct inserts or replaces a product row with its facts and facility
// links, mainly for seeding local catalogs and tests.
func (s *SQLiteSource) SaveProduct(ctx context.Context, product *model.ProductInfo) error {
	if product == nil {
		return fmt.Errorf("nil product")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rb := tx.Rollback(); rb != nil && rb != sql.ErrTxDone {
			s.logger.Warn("rollback failed", logging.Field{Key: "err", Value: rb})
		}
	}()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO products (ean, name, brand, manufacturer_id, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(ean) DO UPDATE SET name=excluded.name, brand=excluded.brand,
		  manufacturer_id=excluded.manufacturer_id, source=excluded.source
	`, product.EAN, product.Name, nullString(product.Brand), product.ManufacturerID, product.Source); err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	// LastInsertId is the connection's last insert, which on the update path
	// of the upsert belongs to some unrelated row. Always resolve by EAN.
	var productID int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM products WHERE ean = ?`, product.EAN).Scan(&productID); err != nil {
		return fmt.Errorf("resolve product id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_allergen_facts WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("clear facts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM facility_products WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("clear facility links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM facility_allergen_profile
		WHERE facility_id NOT IN (SELECT facility_id FROM facility_products)
	`); err != nil {
		return fmt.Errorf("clear orphaned facility profiles: %w", err)
	}
	for _, fact := range product.Facts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_allergen_facts (product_id, allergen_code, presence_type, source, weight, confidence)
			VALUES (?, ?, ?, ?, ?, ?)
		`, productID, string(fact.Code), string(fact.Presence), fact.Source, fact.Weight, fact.Confidence); err != nil {
			return fmt.Errorf("insert fact: %w", err)
		}
	}

	for _, profile := range product.Facilities {
		if profile.FacilityID == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM facility_allergen_profile WHERE facility_id = ? AND allergen_code = ?
		`, *profile.FacilityID, string(profile.Code)); err != nil {
			return fmt.Errorf("replace facility profile: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO facility_allergen_profile (facility_id, allergen_code, process_type, proportion_of_products)
			VALUES (?, ?, ?, ?)
		`, *profile.FacilityID, string(profile.Code), profile.ProcessType, profile.ProportionOfProducts); err != nil {
			return fmt.Errorf("insert facility profile: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO facility_products (facility_id, product_id)
			SELECT ?, ?
			WHERE NOT EXISTS (
			  SELECT 1 FROM facility_products WHERE facility_id = ? AND product_id = ?
			)
		`, *profile.FacilityID, productID, *profile.FacilityID, productID); err != nil {
			return fmt.Errorf("link facility: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
