package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"attribution-rag/internal/models"
)

// Normalizer maps arbitrary spreadsheet headers onto the canonical
// attribution schema and infers asset class, level and period.
type Normalizer struct {
	synonyms map[string]string
}

// NewNormalizer builds a normalizer from the built-in synonym table merged
// with config overrides (overrides win).
func NewNormalizer(extra map[string]string) *Normalizer {
	syn := make(map[string]string, len(defaultSynonyms)+len(extra))
	for k, v := range defaultSynonyms {
		syn[k] = v
	}
	for k, v := range extra {
		syn[normalizeHeader(k)] = v
	}
	return &Normalizer{synonyms: syn}
}

// defaultSynonyms keys are headers in normalized form (lower-case, words
// separated by single spaces). The table is extensible via config.
var defaultSynonyms = map[string]string{
	// bucket / grouping column
	"country":  models.ColBucket,
	"region":   models.ColBucket,
	"market":   models.ColBucket,
	"sector":   models.ColBucket,
	"industry": models.ColBucket,
	"security": models.ColBucket,
	"issuer":   models.ColBucket,
	"holding":  models.ColBucket,
	"bucket":   models.ColBucket,

	// returns (percent)
	"portfolio ror":    models.ColPortfolioROR,
	"portfolio return": models.ColPortfolioROR,
	"port ror":         models.ColPortfolioROR,
	"port return":      models.ColPortfolioROR,
	"portfolio":        models.ColPortfolioROR,
	"benchmark ror":    models.ColBenchmarkROR,
	"benchmark return": models.ColBenchmarkROR,
	"bench ror":        models.ColBenchmarkROR,
	"bmk return":       models.ColBenchmarkROR,
	"benchmark":        models.ColBenchmarkROR,
	"index return":     models.ColBenchmarkROR,
	"active ror":       models.ColActiveROR,
	"active return":    models.ColActiveROR,
	"excess return":    models.ColActiveROR,
	"relative return":  models.ColActiveROR,

	// attribution effects (percentage points)
	"allocation":         models.ColAllocationPP,
	"allocation effect":  models.ColAllocationPP,
	"country allocation": models.ColAllocationPP,
	"sector allocation":  models.ColAllocationPP,
	"asset allocation":   models.ColAllocationPP,
	"selection":          models.ColSelectionPP,
	"selection effect":   models.ColSelectionPP,
	"issue selection":    models.ColSelectionPP,
	"security selection": models.ColSelectionPP,
	"stock selection":    models.ColSelectionPP,
	"fx":                 models.ColFXPP,
	"fx selection":       models.ColFXPP,
	"fx effect":          models.ColFXPP,
	"currency":           models.ColFXPP,
	"currency effect":    models.ColFXPP,
	"currency selection": models.ColFXPP,
	"carry":              models.ColCarryPP,
	"carry effect":       models.ColCarryPP,
	"roll":               models.ColRollPP,
	"roll effect":        models.ColRollPP,
	"roll down":          models.ColRollPP,
	"rolldown":           models.ColRollPP,
	"price":              models.ColPricePP,
	"price effect":       models.ColPricePP,

	"total attribution":       models.ColTotalAttributionPP,
	"total effect":            models.ColTotalAttributionPP,
	"total management effect": models.ColTotalAttributionPP,
	"total active":            models.ColTotalAttributionPP,
}

// levelByBucketHeader maps the bucket column's first header word to an
// attribution level.
var levelByBucketHeader = map[string]models.AttributionLevel{
	"country":  models.LevelCountry,
	"region":   models.LevelCountry,
	"market":   models.LevelCountry,
	"sector":   models.LevelSector,
	"industry": models.LevelSector,
	"security": models.LevelSecurity,
	"issuer":   models.LevelSecurity,
	"holding":  models.LevelSecurity,
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeHeader lower-cases a raw header and collapses all punctuation and
// whitespace runs to single spaces, so "Country Allocation (pp)" and
// "country_allocation_pp" normalize identically.
func normalizeHeader(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = nonAlnumRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// canonicalKey resolves a raw header to a canonical column key. Unmatched
// headers are not dropped: ok=false and the normalized-but-unmapped key is
// returned so the column survives under it.
func (n *Normalizer) canonicalKey(raw string) (key string, ok bool) {
	norm := normalizeHeader(raw)
	if norm == "" {
		return "", false
	}
	if canon, found := n.synonyms[norm]; found {
		return canon, true
	}
	// retry with trailing unit tokens stripped ("carry pp", "portfolio ror %")
	trimmed := strings.TrimSuffix(strings.TrimSuffix(norm, " pp"), " bps")
	trimmed = strings.TrimSpace(trimmed)
	if canon, found := n.synonyms[trimmed]; found {
		return canon, true
	}
	return strings.ReplaceAll(norm, " ", "_"), false
}

type column struct {
	index     int
	raw       string
	key       string
	canonical bool
}

// Normalize turns raw grids into an AttributionTable. Sheets are tried in
// order; the first with a discoverable header row and at least one data row
// wins, so a header-only cover sheet does not mask a data sheet behind it.
// Partial data is not a failure: only exhausting every sheet is.
func (n *Normalizer) Normalize(grids []Grid, filename string) (*models.AttributionTable, error) {
	headerFound := false
	for _, grid := range grids {
		headerIdx, cols := n.findHeader(grid)
		if headerIdx < 0 {
			continue
		}
		headerFound = true
		table := n.buildTable(grid, headerIdx, cols, filename)
		if len(table.Rows) == 0 {
			continue
		}
		return table, nil
	}
	if headerFound {
		return nil, &models.ParseError{Reason: "no data rows after normalization"}
	}
	return nil, &models.ParseError{Reason: "no header row found in any sheet"}
}

const headerScanLimit = 10

// findHeader scans the first rows for one where at least two cells resolve
// to canonical keys, one of them the bucket column.
func (n *Normalizer) findHeader(grid Grid) (int, []column) {
	limit := len(grid.Rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	for i := 0; i < limit; i++ {
		cols := n.mapColumns(grid.Rows[i])
		matched, hasBucket := 0, false
		for _, c := range cols {
			if c.canonical {
				matched++
				if c.key == models.ColBucket {
					hasBucket = true
				}
			}
		}
		if matched >= 2 && hasBucket {
			return i, cols
		}
	}
	return -1, nil
}

// mapColumns resolves one header row. Canonical keys are unique: a repeated
// canonical match is demoted to its unmapped form so the first mapping wins.
func (n *Normalizer) mapColumns(header []string) []column {
	seen := map[string]bool{}
	cols := make([]column, 0, len(header))
	for i, raw := range header {
		key, ok := n.canonicalKey(raw)
		if key == "" {
			continue
		}
		if ok && seen[key] {
			key = strings.ReplaceAll(normalizeHeader(raw), " ", "_") + "_" + strconv.Itoa(i)
			ok = false
		}
		if ok {
			seen[key] = true
		}
		cols = append(cols, column{index: i, raw: raw, key: key, canonical: ok})
	}
	return cols
}

func (n *Normalizer) buildTable(grid Grid, headerIdx int, cols []column, filename string) *models.AttributionTable {
	table := &models.AttributionTable{}
	for _, c := range cols {
		table.Columns = append(table.Columns, c.key)
		switch c.key {
		case models.ColFXPP:
			table.HasFX = true
		case models.ColCarryPP:
			table.HasCarry = true
		case models.ColRollPP:
			table.HasRoll = true
		case models.ColPricePP:
			table.HasPrice = true
		case models.ColBucket:
			table.Level = bucketLevel(c.raw)
		}
	}

	for _, row := range grid.Rows[headerIdx+1:] {
		if r, ok := parseRow(row, cols); ok {
			table.Rows = append(table.Rows, r)
		}
	}

	n.classify(table)
	table.Period = inferPeriod(filename, grid.SheetName, grid.Rows[:headerIdx])
	log.Debug().
		Str("asset_class", string(table.AssetClass)).
		Str("level", string(table.Level)).
		Str("period", table.Period).
		Int("rows", len(table.Rows)).
		Msg("Normalized attribution table")
	return table
}

func bucketLevel(rawHeader string) models.AttributionLevel {
	for _, word := range strings.Fields(normalizeHeader(rawHeader)) {
		if lvl, ok := levelByBucketHeader[word]; ok {
			return lvl
		}
	}
	return models.LevelOther
}

// classify infers the asset class from effect-column presence. Never fails:
// an ambiguous sheet is classified Other with low confidence and a warning.
func (n *Normalizer) classify(t *models.AttributionTable) {
	hasEquityEffects := false
	for _, key := range t.Columns {
		if key == models.ColAllocationPP || key == models.ColSelectionPP {
			hasEquityEffects = true
		}
	}
	switch {
	case t.HasFX || t.HasCarry || t.HasRoll || t.HasPrice:
		t.AssetClass = models.AssetClassFixedIncome
		t.ClassConfidence = 0.9
	case hasEquityEffects:
		t.AssetClass = models.AssetClassEquity
		t.ClassConfidence = 0.8
	default:
		t.AssetClass = models.AssetClassOther
		t.ClassConfidence = 0.3
		t.Warnings = append(t.Warnings, "ambiguous schema: no recognizable effect columns, asset class defaulted to other")
	}
}

var totalLabelRe = regexp.MustCompile(`(?i)^\s*(grand\s+)?totals?\s*$`)

// parseRow coerces one data row. Unparseable cells become missing, not
// zero; a row with no bucket label and no numbers is skipped.
func parseRow(cells []string, cols []column) (models.AttributionRow, bool) {
	var r models.AttributionRow
	hasValue := false
	for _, c := range cols {
		if c.index >= len(cells) {
			continue
		}
		cell := strings.TrimSpace(cells[c.index])
		if cell == "" {
			continue
		}
		if !c.canonical {
			if r.Extra == nil {
				r.Extra = map[string]string{}
			}
			r.Extra[c.key] = cell
			continue
		}
		if c.key == models.ColBucket {
			r.Bucket = cell
			r.IsTotal = totalLabelRe.MatchString(cell)
			continue
		}
		if v, ok := parseNumber(cell); ok {
			setMetric(&r, c.key, v)
			hasValue = true
		}
	}
	if r.Bucket == "" && !hasValue {
		return r, false
	}
	// derived Active ROR: always computed when both operands are present
	if r.ActiveROR == nil && r.PortfolioROR != nil && r.BenchmarkROR != nil {
		active := *r.PortfolioROR - *r.BenchmarkROR
		r.ActiveROR = &active
	}
	return r, true
}

func setMetric(r *models.AttributionRow, key string, v float64) {
	val := v
	switch key {
	case models.ColPortfolioROR:
		r.PortfolioROR = &val
	case models.ColBenchmarkROR:
		r.BenchmarkROR = &val
	case models.ColActiveROR:
		r.ActiveROR = &val
	case models.ColAllocationPP:
		r.Allocation = &val
	case models.ColSelectionPP:
		r.Selection = &val
	case models.ColFXPP:
		r.FX = &val
	case models.ColCarryPP:
		r.Carry = &val
	case models.ColRollPP:
		r.Roll = &val
	case models.ColPricePP:
		r.Price = &val
	case models.ColTotalAttributionPP:
		r.TotalAttribution = &val
	}
}

// parseNumber strips percent signs, thousands separators and whitespace, and
// accepts accounting-style parenthesized negatives.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

var periodRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bQ[1-4]\s*'?\s*\d{2,4}\b`),
	regexp.MustCompile(`(?i)\bFY\s*'?\s*\d{2,4}\b`),
	regexp.MustCompile(`(?i)\b(jan(uary)?|feb(ruary)?|mar(ch)?|apr(il)?|may|jun(e)?|jul(y)?|aug(ust)?|sep(tember)?|oct(ober)?|nov(ember)?|dec(ember)?)\s+\d{4}\b`),
	regexp.MustCompile(`\b(19|20)\d{2}\b`),
}

// inferPeriod looks for a reporting-period label in the filename, sheet name
// and pre-header cells, in that order; the first source with a match wins.
// Within a source the more specific patterns (quarter, fiscal year, month)
// are tried before a bare year. Absent is fine.
func inferPeriod(filename, sheetName string, preHeader [][]string) string {
	candidates := []string{filename, sheetName}
	for _, row := range preHeader {
		candidates = append(candidates, row...)
	}
	for _, c := range candidates {
		for _, re := range periodRes {
			if m := re.FindString(c); m != "" {
				return strings.Join(strings.Fields(m), " ")
			}
		}
	}
	return ""
}
