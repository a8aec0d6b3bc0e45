package fooddict

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/duartefn/rotulo/internal/taxonomy"
)

// FoodRecord is a normalized FoodDB row kept for food-group diagnostics.
type FoodRecord struct {
	ID           string
	Name         string
	Description  string
	FoodGroup    string
	FoodSubgroup string
	FoodType     string
}

// Summary returns a compact group/subgroup label for diagnostics.
func (r FoodRecord) Summary() string {
	group := r.FoodGroup
	if group == "" {
		group = "unknown group"
	}
	subgroup := r.FoodSubgroup
	if subgroup == "" {
		subgroup = "unknown subgroup"
	}
	return group + "/" + subgroup
}

// relevantGroupKeywords gate which FoodDB rows are worth indexing; everything
// else is noise for allergen work.
var relevantGroupKeywords = []string{
	"nut", "pulse", "legume", "oilseed", "cereal", "grain", "dairy", "milk",
	"egg", "fish", "seed",
}

// NewFromCSV builds a dictionary whose record index is loaded from a FoodDB
// Food.csv export. Inference works the same as New(); the records only feed
// Lookup and Summaries.
func NewFromCSV(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open food csv: %w", err)
	}
	defer f.Close()

	d, err := loadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("load food csv %s: %w", path, err)
	}
	return d, nil
}

func loadRecords(r io.Reader) (*Dictionary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	d := &Dictionary{index: make(map[string][]int)}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rec := FoodRecord{
			ID:           field(row, "id"),
			Name:         field(row, "name"),
			Description:  field(row, "description"),
			FoodGroup:    field(row, "food_group"),
			FoodSubgroup: field(row, "food_subgroup"),
			FoodType:     field(row, "food_type"),
		}
		if !isRelevant(rec) {
			continue
		}
		d.records = append(d.records, rec)
		pos := len(d.records) - 1
		for tok := range recordTokens(rec) {
			d.index[tok] = append(d.index[tok], pos)
		}
	}
	return d, nil
}

func isRelevant(rec FoodRecord) bool {
	haystack := strings.ToLower(rec.FoodGroup + " " + rec.FoodSubgroup + " " + rec.Name)
	for _, kw := range relevantGroupKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

func recordTokens(rec FoodRecord) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, text := range []string{rec.Name, rec.FoodGroup, rec.FoodSubgroup, rec.FoodType} {
		for _, tok := range taxonomy.Tokenize(text) {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

// Lookup returns the indexed records matching one normalized token, in load
// order.
func (d *Dictionary) Lookup(token string) []FoodRecord {
	var out []FoodRecord
	for _, pos := range d.index[taxonomy.Normalize(token)] {
		out = append(out, d.records[pos])
	}
	return out
}

// Summaries returns the distinct group/subgroup summaries for records
// matching token; handy context for CLI and server diagnostics.
func (d *Dictionary) Summaries(token string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range d.Lookup(token) {
		summary := rec.Summary()
		if _, ok := seen[summary]; ok {
			continue
		}
		seen[summary] = struct{}{}
		out = append(out, summary)
	}
	return out
}

// RecordCount reports how many relevant records were indexed.
func (d *Dictionary) RecordCount() int {
	return len(d.records)
}
