package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"attribution-rag/internal/models"
)

func TestGetFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	s := NewStore(models.DefaultSettings())
	got := s.Get("never-seen")
	assert.Equal(t, models.DefaultSettings(), got)
}

func TestUpdateScopesPerSession(t *testing.T) {
	t.Parallel()

	s := NewStore(models.DefaultSettings())

	custom := models.DefaultSettings()
	custom.TopK = 25
	custom.RerankingStrategy = models.RerankFinancial
	s.Update("a", custom)

	assert.Equal(t, 25, s.Get("a").TopK)
	assert.Equal(t, models.DefaultSettings().TopK, s.Get("b").TopK, "other sessions unaffected")
}

func TestGlobalScope(t *testing.T) {
	t.Parallel()

	s := NewStore(models.DefaultSettings())
	global := models.DefaultSettings()
	global.Temperature = 0.9
	s.Update("", global)

	assert.InDelta(t, 0.9, s.Get("").Temperature, 1e-9)
	assert.InDelta(t, 0.9, s.Get("unconfigured-session").Temperature, 1e-9, "sessions inherit global scope")

	custom := models.DefaultSettings()
	custom.Temperature = 0.1
	s.Update("a", custom)
	assert.InDelta(t, 0.1, s.Get("a").Temperature, 1e-9, "session scope beats global")
}

func TestResetWithoutPriorSettings(t *testing.T) {
	t.Parallel()

	s := NewStore(models.DefaultSettings())
	// must not fail for a session that never stored anything
	got := s.Reset("never-saved")
	assert.Equal(t, models.DefaultSettings(), got)
}

func TestResetDropsStoredSettings(t *testing.T) {
	t.Parallel()

	s := NewStore(models.DefaultSettings())
	custom := models.DefaultSettings()
	custom.MaxTokens = 9999
	s.Update("a", custom)

	got := s.Reset("a")
	assert.Equal(t, models.DefaultSettings(), got)
	assert.Equal(t, models.DefaultSettings().MaxTokens, s.Get("a").MaxTokens)
}

func TestForget(t *testing.T) {
	t.Parallel()

	s := NewStore(models.DefaultSettings())
	custom := models.DefaultSettings()
	custom.TopK = 3
	s.Update("a", custom)
	s.Forget("a")
	assert.Equal(t, models.DefaultSettings().TopK, s.Get("a").TopK)
}
