package rag

import (
	"strings"

	"attribution-rag/internal/models"
)

// queryCues is what the reranking boosts key off: the lowercased query and
// its token set.
type queryCues struct {
	text   string
	tokens map[string]bool
}

func extractCues(query string) queryCues {
	text := strings.ToLower(query)
	cues := queryCues{text: text, tokens: map[string]bool{}}
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		cues.tokens[tok] = true
	}
	return cues
}

func (c queryCues) mentions(s string) bool {
	return s != "" && strings.Contains(c.text, strings.ToLower(s))
}

func (c queryCues) hasAny(tokens ...string) bool {
	for _, t := range tokens {
		if c.tokens[t] {
			return true
		}
	}
	return false
}

// metadataBoost rewards candidates whose payload matches filters extracted
// from the query: a named bucket, or the reporting period.
func (r *Retriever) metadataBoost(p models.Payload, cues queryCues) float64 {
	boost := 0.0
	if cues.mentions(p.Bucket) {
		boost += r.weights.BucketBoost
	}
	if cues.mentions(p.Period) {
		boost += r.weights.PeriodBoost
	}
	return boost
}

// effectCue ties financial-terminology tokens to one effect field and, where
// the schema carries one, its table-level presence flag.
type effectCue struct {
	tokens []string
	field  string
	flag   func(models.Payload) bool
}

var effectCues = []effectCue{
	{tokens: []string{"fx", "currency"}, field: models.ColFXPP, flag: func(p models.Payload) bool { return p.HasFX }},
	{tokens: []string{"carry"}, field: models.ColCarryPP, flag: func(p models.Payload) bool { return p.HasCarry }},
	{tokens: []string{"roll", "rolldown"}, field: models.ColRollPP, flag: func(p models.Payload) bool { return p.HasRoll }},
	{tokens: []string{"price"}, field: models.ColPricePP, flag: func(p models.Payload) bool { return p.HasPrice }},
	{tokens: []string{"allocation"}, field: models.ColAllocationPP},
	{tokens: []string{"selection"}, field: models.ColSelectionPP},
}

// financialBoost rewards candidates carrying non-zero magnitudes for the
// effects the query names, and steers aggregate-shaped questions toward the
// ranking/totals/schema variants.
func (r *Retriever) financialBoost(p models.Payload, cues queryCues) float64 {
	boost := 0.0
	for _, cue := range effectCues {
		if !cues.hasAny(cue.tokens...) {
			continue
		}
		if v, ok := p.Fields[cue.field]; ok && v != 0 {
			boost += r.weights.EffectBoost
		} else if cue.flag != nil && cue.flag(p) {
			// the table has the effect even if this chunk's value is
			// zero or absent; still worth surfacing
			boost += r.weights.EffectBoost / 2
		}
	}
	if cues.hasAny("total", "overall", "aggregate") && p.Type == models.ChunkTypeTotals {
		boost += r.weights.TypeBoost
	}
	if cues.hasAny("rank", "ranking", "most", "least", "best", "worst", "top", "bottom", "contributor", "contributors", "detractor", "detractors") &&
		p.Type == models.ChunkTypeRanking {
		boost += r.weights.TypeBoost
	}
	if cues.hasAny("schema", "columns", "structure", "effects", "available") && p.Type == models.ChunkTypeSchema {
		boost += r.weights.TypeBoost
	}
	return boost
}
