// Package chunker turns a normalized attribution table into the layered set
// of retrievable chunks: one per row, a totals summary, a ranking, and a
// schema description. Rendering is deterministic so identical tables always
// produce byte-identical chunk text.
package chunker

import (
	"fmt"
	"sort"
	"strings"

	"attribution-rag/internal/models"
)

// effectLabels is the fixed rendering order and naming for effects.
var effectLabels = []struct {
	key   string
	label string
}{
	{models.ColAllocationPP, "allocation"},
	{models.ColSelectionPP, "selection"},
	{models.ColFXPP, "FX"},
	{models.ColCarryPP, "carry"},
	{models.ColRollPP, "roll"},
	{models.ColPricePP, "price"},
}

// BuildChunks synthesizes all chunks for one table under a session. Order:
// row chunks in source order, then totals (if a Total row exists), ranking,
// schema.
func BuildChunks(table *models.AttributionTable, sessionID string) []models.Chunk {
	chunks := make([]models.Chunk, 0, len(table.Rows)+3)
	for i := range table.Rows {
		row := &table.Rows[i]
		chunks = append(chunks, models.Chunk{
			ID:        fmt.Sprintf("%s-row-%03d", sessionID, i+1),
			SessionID: sessionID,
			Type:      models.ChunkTypeRow,
			Text:      rowText(table, row),
			Payload:   rowPayload(table, row, models.ChunkTypeRow),
		})
	}
	if total := table.TotalRow(); total != nil {
		chunks = append(chunks, models.Chunk{
			ID:        sessionID + "-totals",
			SessionID: sessionID,
			Type:      models.ChunkTypeTotals,
			Text:      totalsText(table, total),
			Payload:   rowPayload(table, total, models.ChunkTypeTotals),
		})
	}
	chunks = append(chunks,
		models.Chunk{
			ID:        sessionID + "-ranking",
			SessionID: sessionID,
			Type:      models.ChunkTypeRanking,
			Text:      rankingText(table),
			Payload:   tablePayload(table, models.ChunkTypeRanking),
		},
		models.Chunk{
			ID:        sessionID + "-schema",
			SessionID: sessionID,
			Type:      models.ChunkTypeSchema,
			Text:      schemaText(table),
			Payload:   tablePayload(table, models.ChunkTypeSchema),
		},
	)
	return chunks
}

// signed renders an attribution value with an explicit sign, "0.0" for an
// exact zero.
func signed(v float64, decimals int) string {
	if v == 0 {
		return fmt.Sprintf("%.*f", decimals, 0.0)
	}
	return fmt.Sprintf("%+.*f", decimals, v)
}

func pct(v float64) string { return fmt.Sprintf("%.1f%%", v) }

func pp(v float64) string { return signed(v, 1) + "pp" }

func rowText(t *models.AttributionTable, r *models.AttributionRow) string {
	var b strings.Builder
	b.WriteString(r.Bucket)
	if t.Period != "" {
		b.WriteString(" (" + t.Period + ")")
	}
	b.WriteString(":")

	var parts []string
	if r.PortfolioROR != nil {
		parts = append(parts, " portfolio return "+pct(*r.PortfolioROR))
	}
	if r.BenchmarkROR != nil {
		parts = append(parts, " benchmark return "+pct(*r.BenchmarkROR))
	}
	if r.ActiveROR != nil {
		parts = append(parts, " active return "+pp(*r.ActiveROR))
	}
	b.WriteString(strings.Join(parts, ","))
	b.WriteString(".")

	var effects []string
	for _, e := range effectLabels {
		if v := r.Metric(e.key); v != nil {
			effects = append(effects, e.label+" "+pp(*v))
		}
	}
	if len(effects) > 0 {
		b.WriteString(" Effects: " + strings.Join(effects, ", "))
		if r.TotalAttribution != nil {
			b.WriteString("; total attribution " + pp(*r.TotalAttribution))
		}
		b.WriteString(".")
	} else if r.TotalAttribution != nil {
		b.WriteString(" Total attribution " + pp(*r.TotalAttribution) + ".")
	}
	return b.String()
}

func totalsText(t *models.AttributionTable, total *models.AttributionRow) string {
	var b strings.Builder
	b.WriteString("Aggregate totals")
	if t.Period != "" {
		b.WriteString(" for " + t.Period)
	}
	b.WriteString(":")
	var parts []string
	if total.PortfolioROR != nil {
		parts = append(parts, " overall portfolio return "+pct(*total.PortfolioROR))
	}
	if total.BenchmarkROR != nil {
		parts = append(parts, " overall benchmark return "+pct(*total.BenchmarkROR))
	}
	if total.ActiveROR != nil {
		parts = append(parts, " overall active return "+pp(*total.ActiveROR))
	}
	if total.TotalAttribution != nil {
		parts = append(parts, " total attribution "+pp(*total.TotalAttribution))
	}
	if len(parts) == 0 {
		return b.String() + " no aggregate metrics available."
	}
	return b.String() + strings.Join(parts, ",") + "."
}

// rankingText lists all non-Total buckets descending by total attribution.
// Buckets without a total attribution value keep source order at the end.
func rankingText(t *models.AttributionTable) string {
	type entry struct {
		bucket string
		value  *float64
		pos    int
	}
	var entries []entry
	for i, r := range t.Rows {
		if r.IsTotal {
			continue
		}
		entries = append(entries, entry{bucket: r.Bucket, value: r.TotalAttribution, pos: i})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.value != nil && b.value != nil:
			if *a.value != *b.value {
				return *a.value > *b.value
			}
			return a.pos < b.pos
		case a.value != nil:
			return true
		case b.value != nil:
			return false
		default:
			return a.pos < b.pos
		}
	})

	var b strings.Builder
	b.WriteString("Ranking by total attribution")
	if t.Period != "" {
		b.WriteString(" (" + t.Period + ")")
	}
	b.WriteString(", best to worst:")
	for i, e := range entries {
		val := "n/a"
		if e.value != nil {
			val = signed(*e.value, 2) + "pp"
		}
		b.WriteString(fmt.Sprintf(" %d. %s %s", i+1, e.bucket, val))
		if i < len(entries)-1 {
			b.WriteString(";")
		}
	}
	b.WriteString(".")
	return b.String()
}

var assetClassNames = map[models.AssetClass]string{
	models.AssetClassEquity:      "equity",
	models.AssetClassFixedIncome: "fixed income",
	models.AssetClassOther:       "unclassified",
}

func schemaText(t *models.AttributionTable) string {
	var b strings.Builder
	b.WriteString("This table contains " + assetClassNames[t.AssetClass] + " performance attribution")
	b.WriteString(" at " + string(t.Level) + " level")
	if t.Period != "" {
		b.WriteString(" for " + t.Period)
	}
	b.WriteString(". ")

	present := make([]string, 0, len(effectLabels))
	for _, e := range effectLabels {
		if hasColumn(t, e.key) {
			present = append(present, e.label)
		}
	}
	if len(present) > 0 {
		b.WriteString("Effect columns present: " + strings.Join(present, ", ") + ". ")
	} else {
		b.WriteString("No attribution effect columns present. ")
	}
	b.WriteString(fmt.Sprintf("FX effects: %s. Carry effects: %s. Roll effects: %s. Price effects: %s. ",
		yesNo(t.HasFX), yesNo(t.HasCarry), yesNo(t.HasRoll), yesNo(t.HasPrice)))
	b.WriteString(fmt.Sprintf("The table has %d data rows.", len(t.DataRows())))
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func hasColumn(t *models.AttributionTable, key string) bool {
	for _, c := range t.Columns {
		if c == key {
			return true
		}
	}
	return false
}

func rowPayload(t *models.AttributionTable, r *models.AttributionRow, typ models.ChunkType) models.Payload {
	p := tablePayload(t, typ)
	p.Bucket = r.Bucket
	p.IsTotal = r.IsTotal
	fields := map[string]float64{}
	for _, key := range append([]string{
		models.ColPortfolioROR, models.ColBenchmarkROR, models.ColActiveROR, models.ColTotalAttributionPP,
	}, models.EffectOrder...) {
		if v := r.Metric(key); v != nil {
			fields[key] = *v
		}
	}
	if len(fields) > 0 {
		p.Fields = fields
	}
	return p
}

func tablePayload(t *models.AttributionTable, typ models.ChunkType) models.Payload {
	return models.Payload{
		Type:       typ,
		AssetClass: t.AssetClass,
		Level:      t.Level,
		Period:     t.Period,
		HasFX:      t.HasFX,
		HasCarry:   t.HasCarry,
		HasRoll:    t.HasRoll,
		HasPrice:   t.HasPrice,
	}
}
