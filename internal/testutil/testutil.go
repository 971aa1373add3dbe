// Package testutil provides deterministic fakes for the external embedding
// and generation services, so retrieval and answering tests run without
// network access.
package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
)

// FakeEmbedder maps tokens to vector dimensions by stable hash, so texts
// sharing words produce similar vectors. Identical text always yields the
// identical vector.
type FakeEmbedder struct {
	Err error
}

const fakeDim = 64

func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	v := make([]float32, fakeDim+1)
	v[fakeDim] = 1 // bias keeps the vector non-zero for empty text
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,:;!?()%")
		if tok == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(tok))
		v[h.Sum32()%fakeDim]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v, nil
}

// FakeGenerator records every prompt and returns a canned completion.
type FakeGenerator struct {
	Response string
	Err      error

	mu      sync.Mutex
	Prompts []string
}

func (g *FakeGenerator) Complete(_ context.Context, prompt string, _ float64, _ int) (string, error) {
	g.mu.Lock()
	g.Prompts = append(g.Prompts, prompt)
	g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	return g.Response, nil
}
