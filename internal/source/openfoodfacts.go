package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/duartefn/rotulo/internal/logging"
	"github.com/duartefn/rotulo/internal/model"
	"github.com/duartefn/rotulo/internal/taxonomy"
)

// DefaultBaseURL is the OpenFoodFacts v0 product endpoint. %s is the EAN.
const DefaultBaseURL = "https://world.openfoodfacts.org/api/v0/product/%s.json"

// OpenFoodFactsClient is a thin wrapper around the OpenFoodFacts public API
// that standardizes product info for the risk engine.
type OpenFoodFactsClient struct {
	baseURL string
	client  *http.Client
	logger  logging.Logger
}

// NewOpenFoodFactsClient builds a client with a sensible default timeout.
func NewOpenFoodFactsClient(opts Options, logger logging.Logger) *OpenFoodFactsClient {
	if logger == nil {
		logger = logging.Nop{}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := 5 * time.Second
	if opts.TimeoutSeconds > 0 {
		timeout = time.Duration(opts.TimeoutSeconds) * time.Second
	}
	return &OpenFoodFactsClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With(logging.Field{Key: "component", Value: "openfoodfacts"}),
	}
}

type offEnvelope struct {
	Status  int            `json:"status"`
	Product map[string]any `json:"product"`
}

// Get fetches and normalizes one product.
func (c *OpenFoodFactsClient) Get(ctx context.Context, ean string) (*model.ProductInfo, error) {
	url := fmt.Sprintf(c.baseURL, ean)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("openfoodfacts fetch failed",
			logging.Field{Key: "ean", Value: ean},
			logging.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("fetch product %s: %w", ean, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch product %s: unexpected status %d", ean, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	var envelope offEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", ean, err)
	}
	if envelope.Status != 1 || envelope.Product == nil {
		c.logger.Info("product not found on openfoodfacts", logging.Field{Key: "ean", Value: ean})
		return nil, fmt.Errorf("openfoodfacts %s: %w", ean, ErrNotFound)
	}

	payload := envelope.Product
	facts := buildFacts(stringSlice(payload["allergens_tags"]), stringSlice(payload["ingredients_analysis_tags"]))

	name := stringField(payload, "product_name")
	if name == "" {
		name = "Unknown product"
	}
	brand := ""
	if brands := stringField(payload, "brands"); brands != "" {
		brand = strings.TrimSpace(strings.SplitN(brands, ",", 2)[0])
	}
	category := ""
	if cats := stringSlice(payload["categories_tags"]); len(cats) > 0 {
		category = cats[0]
	} else {
		category = stringField(payload, "category")
	}

	return &model.ProductInfo{
		EAN:           ean,
		Name:          name,
		Brand:         brand,
		Source:        "openfoodfacts",
		Facts:         facts,
		Category:      category,
		CategoryStats: statsMap(payload["category_stats"]),
		BrandStats:    statsMap(payload["brand_stats"]),
		TracesTags:    stringSlice(payload["traces_tags"]),
		RawPayload:    payload,
	}, nil
}

// buildFacts converts declared allergen tags and may-contain analysis tags
// into evidence. Declared allergens on the label are definitive, so they get
// full weight and confidence.
func buildFacts(allergenTags, analysisTags []string) []model.AllergenFact {
	var facts []model.AllergenFact
	for _, tag := range allergenTags {
		code, ok := tagToCode(tag)
		if !ok {
			continue
		}
		facts = append(facts, model.AllergenFact{
			Code:       code,
			Presence:   model.Contains,
			Source:     "openfoodfacts:allergens",
			Weight:     1.0,
			Confidence: 1.0,
		})
	}
	for _, tag := range analysisTags {
		if !strings.Contains(strings.ToLower(tag), "may-contain") {
			continue
		}
		code, ok := tagToCode(tag)
		if !ok {
			continue
		}
		facts = append(facts, model.AllergenFact{
			Code:       code,
			Presence:   model.MayContain,
			Source:     "openfoodfacts:ingredients_analysis",
			Weight:     0.6,
			Confidence: 0.6,
		})
	}
	return facts
}

// tagToCode resolves an OFF tag, unwrapping "lang:may-contain-x" to "lang:x"
// first so the taxonomy alias table can match it.
func tagToCode(tag string) (taxonomy.Code, bool) {
	normalized := strings.ToLower(tag)
	if lang, suffix, ok := strings.Cut(normalized, ":may-contain-"); ok {
		normalized = lang + ":" + suffix
	}
	return taxonomy.Resolve(normalized)
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		var out []string
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// statsMap parses a {"CODE": {"freq": x, "co_occurrence": y}} payload block.
func statsMap(v any) map[taxonomy.Code]model.SignalStats {
	raw, ok := v.(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[taxonomy.Code]model.SignalStats, len(raw))
	for key, entry := range raw {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		out[taxonomy.Code(strings.ToUpper(key))] = model.SignalStats{
			Freq:         floatField(obj, "freq"),
			CoOccurrence: floatField(obj, "co_occurrence"),
		}
	}
	return out
}

func floatField(obj map[string]any, key string) float64 {
	switch val := obj[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, _ := val.Float64()
		return f
	}
	return 0
}
