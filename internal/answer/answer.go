// Package answer composes retrieved context into one of two generation
// protocols: strict-grounding Q&A and structured commentary synthesis.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"attribution-rag/internal/models"
	"attribution-rag/internal/settings"
)

// Generator is the external text-generation service.
type Generator interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// Retriever is the search stage the engine reads context through.
type Retriever interface {
	Search(ctx context.Context, sessionID, query string, cfg models.Settings) ([]models.ScoredChunk, error)
}

// Response is what both modes return. Prompt is the exact text sent to the
// generation service, kept for traceability.
type Response struct {
	Response            string
	SessionID           string
	ContextUsed         int
	Prompt              string
	InsufficientContext bool
	Sources             []models.ScoredChunk
}

// RefusalText is the explicit natural-language refusal Q&A mode emits when
// retrieval yields nothing usable. A required behavior, not best-effort.
const RefusalText = "I don't have sufficient information in the uploaded documents to answer that question. Please upload the relevant attribution data or rephrase the question."

const contextSeparator = "\n---\n"

type Engine struct {
	retriever Retriever
	generator Generator
	settings  *settings.Store
}

func NewEngine(retriever Retriever, generator Generator, st *settings.Store) *Engine {
	return &Engine{retriever: retriever, generator: generator, settings: st}
}

// Question answers strictly from retrieved chunk text. No world knowledge:
// the prompt instructs the model to answer only from the provided context,
// and an empty or below-threshold retrieval short-circuits into the refusal
// response without calling the generation service at all.
func (e *Engine) Question(ctx context.Context, sessionID, question string) (*Response, error) {
	cfg := e.settings.Get(sessionID)

	var chunks []models.ScoredChunk
	if cfg.RAGEnabled {
		var err error
		chunks, err = e.retriever.Search(ctx, sessionID, question, cfg)
		if errors.Is(err, models.ErrInsufficientContext) {
			log.Info().Str("session_id", sessionID).Msg("No context above threshold, refusing")
			return &Response{
				Response:            RefusalText,
				SessionID:           sessionID,
				InsufficientContext: true,
			}, nil
		}
		if err != nil {
			return nil, err
		}
	}

	prompt := e.BuildQAPrompt(cfg, contextText(chunks), question)
	text, err := e.generator.Complete(ctx, prompt, cfg.Temperature, cfg.MaxTokens)
	if err != nil {
		return nil, err
	}
	return &Response{
		Response:    text,
		SessionID:   sessionID,
		ContextUsed: len(chunks),
		Prompt:      prompt,
		Sources:     chunks,
	}, nil
}

// Commentary generates a fixed-section narrative over the session's
// retrieved context, optionally scoped to a period.
func (e *Engine) Commentary(ctx context.Context, sessionID, period string) (*Response, error) {
	cfg := e.settings.Get(sessionID)

	query := "overall performance attribution summary ranking totals"
	if period != "" {
		query += " " + period
	}
	chunks, err := e.retriever.Search(ctx, sessionID, query, cfg)
	if errors.Is(err, models.ErrInsufficientContext) {
		return &Response{
			Response:            RefusalText,
			SessionID:           sessionID,
			InsufficientContext: true,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	prompt := e.BuildCommentaryPrompt(cfg, contextText(chunks), period)
	text, err := e.generator.Complete(ctx, prompt, cfg.Temperature, cfg.MaxTokens)
	if err != nil {
		return nil, err
	}
	return &Response{
		Response:    text,
		SessionID:   sessionID,
		ContextUsed: len(chunks),
		Prompt:      prompt,
		Sources:     chunks,
	}, nil
}

const qaTemplate = `You are a financial analysis assistant answering questions about uploaded performance attribution data.

Answer using ONLY the context below. Do not use outside knowledge. If the context does not contain the answer, reply exactly: "%s"

Keep all units as given: returns in %%, attribution effects in pp.

Context:
%s

Question: %s`

const commentaryTemplate = `You are a senior performance analyst writing professional attribution commentary.

Write a narrative with exactly these sections:
1. Executive Summary
2. Performance Overview
3. Attribution Breakdown
4. Key Takeaways

Base every quantitative claim strictly on the context below, keeping the units exactly as given: returns in %%, attribution effects in pp. Do not invent figures.%s

Context:
%s`

// BuildQAPrompt assembles the Q&A prompt. When custom prompts are enabled,
// the system/query/response-format fragments are concatenated in that fixed
// order (empty fragments skipped) ahead of the mode template.
func (e *Engine) BuildQAPrompt(cfg models.Settings, contextBlock, question string) string {
	body := fmt.Sprintf(qaTemplate, RefusalText, contextBlock, question)
	return withCustomPrompts(cfg, body)
}

func (e *Engine) BuildCommentaryPrompt(cfg models.Settings, contextBlock, period string) string {
	scope := ""
	if period != "" {
		scope = fmt.Sprintf(" Scope the commentary to the period %q.", period)
	}
	body := fmt.Sprintf(commentaryTemplate, scope, contextBlock)
	return withCustomPrompts(cfg, body)
}

func withCustomPrompts(cfg models.Settings, body string) string {
	if !cfg.UseCustomPrompts {
		return body
	}
	var parts []string
	for _, p := range []string{cfg.SystemPrompt, cfg.QueryPrompt, cfg.ResponseFormatPrompt} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return body
	}
	return strings.Join(parts, "\n\n") + "\n\n" + body
}

// contextText renders retrieved chunks as a numbered context block so the
// model can cite sources by index.
func contextText(chunks []models.ScoredChunk) string {
	if len(chunks) == 0 {
		return "(no context)"
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, c.Chunk.Text)
	}
	return strings.Join(parts, contextSeparator)
}
