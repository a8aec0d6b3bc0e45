package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/duartefn/rotulo/internal/app"
	"github.com/duartefn/rotulo/internal/logging"
	"github.com/duartefn/rotulo/internal/model"
	"github.com/duartefn/rotulo/internal/taxonomy"
)

var (
	flagAllergens     string
	flagAvoidTraces   bool
	flagAvoidFacility bool
	flagJSON          bool
	flagSourceBackend string
	flagSourceBaseURL string
	flagSourceDSN     string
	flagFoodCSV       string
	flagNoHistory     bool
)

var assessCmd = &cobra.Command{
	Use:   "assess <barcode> [barcode...]",
	Short: "Score one or more products against your allergen set",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAssess,
}

func init() {
	assessCmd.Flags().StringVarP(&flagAllergens, "allergens", "a", "", "comma-separated allergen codes or synonyms (e.g. MILK,GLUTEN,amendoim)")
	assessCmd.Flags().BoolVar(&flagAvoidTraces, "traces", true, "treat 'may contain' declarations as risky")
	assessCmd.Flags().BoolVar(&flagAvoidFacility, "facility", false, "include facility cross-contact in scoring")
	assessCmd.Flags().BoolVar(&flagJSON, "json", false, "emit JSON instead of the text dashboard")
	assessCmd.Flags().StringVar(&flagSourceBackend, "source", "", "product source backend (openfoodfacts, sqlite)")
	assessCmd.Flags().StringVar(&flagSourceBaseURL, "base-url", "", "override the remote catalog base URL")
	assessCmd.Flags().StringVar(&flagSourceDSN, "db-dsn", "", "sqlite catalog DSN for the sqlite backend")
	assessCmd.Flags().StringVar(&flagFoodCSV, "food-csv", "", "path to a FoodDB Food.csv export for ingredient context")
	assessCmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "skip writing the assessment to the history log")
	_ = assessCmd.MarkFlagRequired("allergens")
}

// buildApplication layers CLI flags over the YAML config and assembles the
// application context shared by the assess, detect and history commands.
func buildApplication() (*app.Application, error) {
	cfg, err := app.LoadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagSourceBackend != "" {
		cfg.SourceBackend = flagSourceBackend
	}
	if flagSourceBaseURL != "" {
		cfg.SourceBaseURL = flagSourceBaseURL
	}
	if flagSourceDSN != "" {
		cfg.SourceDSN = flagSourceDSN
		if flagSourceBackend == "" {
			cfg.SourceBackend = "sqlite"
		}
	}
	if flagFoodCSV != "" {
		cfg.FoodCSVPath = flagFoodCSV
	}
	if flagNoHistory {
		cfg.HistoryDSN = ""
	}

	// CLI output owns stdout, so structured logs stay off.
	return app.NewApplication(cfg, logging.Nop{})
}

func buildProfile() (*model.UserAllergyProfile, error) {
	var codes []string
	for _, raw := range strings.Split(flagAllergens, ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		code, ok := taxonomy.Resolve(token)
		if !ok {
			return nil, fmt.Errorf("unknown allergen %q (try 'rotulo allergens' for the catalog)", token)
		}
		codes = append(codes, string(code))
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("at least one allergen is required")
	}
	return &model.UserAllergyProfile{
		Codes:             codes,
		AvoidTraces:       flagAvoidTraces,
		AvoidFacilityRisk: flagAvoidFacility,
	}, nil
}

func runAssess(cmd *cobra.Command, args []string) error {
	application, err := buildApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	profile, err := buildProfile()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	results := make([]*model.RiskResult, len(args))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, barcode := range args {
		i, barcode := i, barcode
		g.Go(func() error {
			result, err := application.Engine.Assess(gctx, barcode, profile)
			if err != nil {
				return fmt.Errorf("%s: %w", barcode, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, result := range results {
		if application.History != nil {
			if _, err := application.History.Append(ctx, "cli", result.Product.Source, profile, result); err != nil {
				fmt.Fprintf(os.Stderr, "warning: history append failed: %v\n", err)
			}
		}
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	}

	for i, result := range results {
		if i > 0 {
			fmt.Println()
		}
		fmt.Println(renderTextResult(result, flagLang))
	}
	return nil
}
