package models

import (
	"sort"
	"strconv"
	"strings"
)

// ChunkType tags the retrievable variants synthesized from one table.
type ChunkType string

const (
	ChunkTypeRow     ChunkType = "row"
	ChunkTypeTotals  ChunkType = "totals"
	ChunkTypeRanking ChunkType = "ranking"
	ChunkTypeSchema  ChunkType = "schema"
)

// Payload carries the structured fields behind a chunk so citations can be
// reconstructed without re-parsing the rendered text.
type Payload struct {
	Type       ChunkType
	AssetClass AssetClass
	Level      AttributionLevel
	Period     string
	Bucket     string // row and totals chunks only
	IsTotal    bool

	HasFX    bool
	HasCarry bool
	HasRoll  bool
	HasPrice bool

	// Fields holds the numeric values present on the underlying row,
	// keyed by canonical column key.
	Fields map[string]float64
}

// Chunk is the immutable retrievable unit.
type Chunk struct {
	ID        string
	SessionID string
	Type      ChunkType
	Text      string
	Payload   Payload
}

// ScoredChunk is one retrieval result after reranking.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
	// Rank is the position in the initial similarity-ordered candidate
	// list, used as a deterministic tie breaker.
	Rank int
}

const fieldPrefix = "f_"

// Metadata flattens a payload into the string map shape the vector store
// persists alongside each point.
func (p Payload) Metadata() map[string]string {
	md := map[string]string{
		"type":        string(p.Type),
		"asset_class": string(p.AssetClass),
		"level":       string(p.Level),
		"period":      p.Period,
		"bucket":      p.Bucket,
		"is_total":    strconv.FormatBool(p.IsTotal),
		"has_fx":      strconv.FormatBool(p.HasFX),
		"has_carry":   strconv.FormatBool(p.HasCarry),
		"has_roll":    strconv.FormatBool(p.HasRoll),
		"has_price":   strconv.FormatBool(p.HasPrice),
	}
	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		md[fieldPrefix+k] = strconv.FormatFloat(p.Fields[k], 'f', -1, 64)
	}
	return md
}

// PayloadFromMetadata is the inverse of Payload.Metadata. Unknown keys are
// ignored; malformed numeric fields are dropped rather than zeroed.
func PayloadFromMetadata(md map[string]string) Payload {
	p := Payload{
		Type:       ChunkType(md["type"]),
		AssetClass: AssetClass(md["asset_class"]),
		Level:      AttributionLevel(md["level"]),
		Period:     md["period"],
		Bucket:     md["bucket"],
		IsTotal:    md["is_total"] == "true",
		HasFX:      md["has_fx"] == "true",
		HasCarry:   md["has_carry"] == "true",
		HasRoll:    md["has_roll"] == "true",
		HasPrice:   md["has_price"] == "true",
	}
	for k, v := range md {
		if !strings.HasPrefix(k, fieldPrefix) {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		if p.Fields == nil {
			p.Fields = map[string]float64{}
		}
		p.Fields[strings.TrimPrefix(k, fieldPrefix)] = f
	}
	return p
}
