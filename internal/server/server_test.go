package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/duartefn/rotulo/internal/app"
	"github.com/duartefn/rotulo/internal/model"
	"github.com/duartefn/rotulo/internal/server"
	"github.com/duartefn/rotulo/internal/source"
	"github.com/duartefn/rotulo/internal/taxonomy"
	"github.com/duartefn/rotulo/internal/testutil"
)

func newTestServer(t *testing.T) (*server.Server, *httptest.Server) {
	t.Helper()
	cfg := app.DefaultConfig()
	cfg.SourceBackend = "sqlite"
	cfg.SourceDSN = fmt.Sprintf("file:srv_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	cfg.HistoryDSN = ""

	s, err := server.NewServer(server.Config{AppConfig: cfg, Logger: &testutil.DummyLogger{}})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func seedProduct(t *testing.T, s *server.Server, product *model.ProductInfo) {
	t.Helper()
	db, ok := s.App().Source.(*source.SQLiteSource)
	if !ok {
		t.Fatalf("test server should use the sqlite source, got %T", s.App().Source)
	}
	if err := db.SaveProduct(context.Background(), product); err != nil {
		t.Fatalf("SaveProduct: %v", err)
	}
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q, want *", got)
	}
}

func TestListAllergens(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/allergens?lang=pt")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out []server.AllergenInfo
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 14 {
		t.Fatalf("catalog size = %d, want 14", len(out))
	}
	var milkLabel string
	for _, info := range out {
		if info.Code == "MILK" {
			milkLabel = info.Label
		}
	}
	if !strings.Contains(milkLabel, "Leite") {
		t.Errorf("pt label not served: %q", milkLabel)
	}
}

func TestResolveEndpoint(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/resolve", server.ResolveRequest{Token: "glúten"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out server.ResolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.Resolved || out.Code != "GLUTEN" {
		t.Errorf("resolve response = %+v", out)
	}

	resp = postJSON(t, ts.URL+"/resolve", server.ResolveRequest{Token: "chocolate"})
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Resolved {
		t.Errorf("chocolate should not resolve: %+v", out)
	}

	resp = postJSON(t, ts.URL+"/resolve", server.ResolveRequest{Token: "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank token status = %d, want 400", resp.StatusCode)
	}
}

func TestRisk_Validation(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/risk", server.RiskRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty payload status = %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/risk", server.RiskRequest{Barcode: "123"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing allergens status = %d, want 400", resp.StatusCode)
	}

	raw, err := http.Post(ts.URL+"/risk", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d, want 400", raw.StatusCode)
	}
}

func TestRisk_NotFound(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/risk", server.RiskRequest{
		Barcode:       "does-not-exist",
		UserAllergens: []string{"MILK"},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRisk_Assessment(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t)
	seedProduct(t, s, &model.ProductInfo{
		EAN:    "5601",
		Name:   "Wafer Mix",
		Source: "seed",
		Facts: []model.AllergenFact{
			{Code: taxonomy.Milk, Presence: model.Contains, Source: "label", Weight: 1, Confidence: 1},
		},
	})

	resp := postJSON(t, ts.URL+"/risk", server.RiskRequest{
		Barcode:          "5601",
		UserAllergens:    []string{"milk", "egg"},
		ConsiderFacility: true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out server.RiskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.RequestID == "" {
		t.Error("missing request id")
	}
	if out.Product.EAN != "5601" || out.Product.Name != "Wafer Mix" {
		t.Errorf("product summary = %+v", out.Product)
	}
	milk, ok := out.Risk.PerAllergen["MILK"]
	if !ok || milk.Score != 100.0 {
		t.Errorf("MILK risk = %+v", out.Risk.PerAllergen)
	}
	if _, ok := out.Risk.PerAllergen["EGG"]; !ok {
		t.Error("EGG detail missing")
	}
	if out.Risk.FinalScore < milk.Score {
		t.Errorf("final score %v below worst allergen %v", out.Risk.FinalScore, milk.Score)
	}
	if len(out.CrossContact) != 2 {
		t.Errorf("cross-contact block = %+v, want entries for both codes", out.CrossContact)
	}
	if out.CrossContact["MILK"].Presence != 1.0 {
		t.Errorf("declared milk should show presence in the blend: %+v", out.CrossContact["MILK"])
	}
}

func TestRiskWS_StreamsDetailsThenSummary(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t)
	seedProduct(t, s, &model.ProductInfo{
		EAN:    "7701",
		Name:   "Cookie Box",
		Source: "seed",
		Facts: []model.AllergenFact{
			{Code: taxonomy.Gluten, Presence: model.Contains, Source: "label", Weight: 1, Confidence: 1},
		},
	})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/risk?barcode=7701&allergens=GLUTEN,MILK"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	type frame struct {
		Type   string            `json:"type"`
		Detail *model.RiskDetail `json:"detail"`
		Total  *float64          `json:"total_score"`
	}

	var frames []frame
	for i := 0; i < 3; i++ {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		frames = append(frames, f)
	}

	if frames[0].Type != "detail" || frames[0].Detail == nil || frames[0].Detail.Code != taxonomy.Gluten {
		t.Errorf("first frame should be the GLUTEN detail, got %+v", frames[0])
	}
	if frames[1].Type != "detail" || frames[1].Detail == nil || frames[1].Detail.Code != taxonomy.Milk {
		t.Errorf("second frame should be the MILK detail, got %+v", frames[1])
	}
	if frames[2].Type != "summary" || frames[2].Total == nil {
		t.Fatalf("third frame should be the summary, got %+v", frames[2])
	}
	if *frames[2].Total != 100.0 {
		t.Errorf("summary total = %v, want 100", *frames[2].Total)
	}
}
