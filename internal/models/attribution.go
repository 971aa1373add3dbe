package models

// AssetClass is inferred from which effect columns a sheet carries.
type AssetClass string

const (
	AssetClassEquity      AssetClass = "equity"
	AssetClassFixedIncome AssetClass = "fixed_income"
	AssetClassOther       AssetClass = "other"
)

// AttributionLevel is the granularity of the decomposition, inferred from
// the bucket column's header.
type AttributionLevel string

const (
	LevelCountry  AttributionLevel = "country"
	LevelSector   AttributionLevel = "sector"
	LevelSecurity AttributionLevel = "security"
	LevelOther    AttributionLevel = "other"
)

// Canonical column keys produced by header normalization. Returns are in
// percent, attribution effects in percentage points.
const (
	ColBucket             = "bucket"
	ColPortfolioROR       = "portfolio_ror"
	ColBenchmarkROR       = "benchmark_ror"
	ColActiveROR          = "active_ror"
	ColAllocationPP       = "allocation_pp"
	ColSelectionPP        = "selection_pp"
	ColFXPP               = "fx_pp"
	ColCarryPP            = "carry_pp"
	ColRollPP             = "roll_pp"
	ColPricePP            = "price_pp"
	ColTotalAttributionPP = "total_attribution_pp"
)

// EffectOrder is the fixed rendering order for attribution effects.
var EffectOrder = []string{ColAllocationPP, ColSelectionPP, ColFXPP, ColCarryPP, ColRollPP, ColPricePP}

// AttributionRow holds one bucket's metrics. A nil pointer means the source
// cell was absent or unparseable, never zero.
type AttributionRow struct {
	Bucket  string
	IsTotal bool

	PortfolioROR     *float64
	BenchmarkROR     *float64
	ActiveROR        *float64
	Allocation       *float64
	Selection        *float64
	FX               *float64
	Carry            *float64
	Roll             *float64
	Price            *float64
	TotalAttribution *float64

	// Extra keeps the raw cell values of columns that did not map to a
	// canonical key, keyed by the normalized header.
	Extra map[string]string
}

// Metric returns the row's value for a canonical column key, nil if missing.
func (r *AttributionRow) Metric(key string) *float64 {
	switch key {
	case ColPortfolioROR:
		return r.PortfolioROR
	case ColBenchmarkROR:
		return r.BenchmarkROR
	case ColActiveROR:
		return r.ActiveROR
	case ColAllocationPP:
		return r.Allocation
	case ColSelectionPP:
		return r.Selection
	case ColFXPP:
		return r.FX
	case ColCarryPP:
		return r.Carry
	case ColRollPP:
		return r.Roll
	case ColPricePP:
		return r.Price
	case ColTotalAttributionPP:
		return r.TotalAttribution
	}
	return nil
}

// AttributionTable is the normalized form of one uploaded spreadsheet.
// Rows keep source order; a synthetic Total row is retained and tagged.
type AttributionTable struct {
	AssetClass      AssetClass
	ClassConfidence float64 // 0..1, best-effort classification confidence
	Level           AttributionLevel
	Period          string // empty if unrecoverable

	Rows []AttributionRow

	// Effect presence is table-level, derived once from column presence.
	HasFX    bool
	HasCarry bool
	HasRoll  bool
	HasPrice bool

	// Columns lists every normalized header in source order, canonical
	// keys and unmapped keys alike.
	Columns []string

	// Warnings carries non-fatal degradations (ambiguous classification).
	Warnings []string
}

// TotalRow returns the tagged Total row, nil if the sheet had none.
func (t *AttributionTable) TotalRow() *AttributionRow {
	for i := range t.Rows {
		if t.Rows[i].IsTotal {
			return &t.Rows[i]
		}
	}
	return nil
}

// DataRows returns all non-Total rows in source order.
func (t *AttributionTable) DataRows() []AttributionRow {
	rows := make([]AttributionRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		if !r.IsTotal {
			rows = append(rows, r)
		}
	}
	return rows
}
