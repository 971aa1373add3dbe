package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"attribution-rag/internal/answer"
	"attribution-rag/internal/config"
	"attribution-rag/internal/embedding"
	"attribution-rag/internal/engine"
	"attribution-rag/internal/helper"
	"attribution-rag/internal/llmservice"
	"attribution-rag/internal/parser"
	"attribution-rag/internal/rag"
	"attribution-rag/internal/sessions"
	"attribution-rag/internal/settings"
	"attribution-rag/internal/store"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to an attribution spreadsheet to ingest")
	sessionID := flag.String("session", "", "Session id (generated on upload when empty)")
	question := flag.String("question", "", "Question to answer against the session")
	commentary := flag.Bool("commentary", false, "Generate commentary for the session")
	period := flag.String("period", "", "Period scope for commentary")
	list := flag.Bool("list", false, "List session collections")
	deleteSession := flag.Bool("delete", false, "Delete the session given by -session")
	showSettings := flag.Bool("show-settings", false, "Print the effective settings for the session")
	resetSettings := flag.Bool("reset-settings", false, "Reset the session's settings to defaults")
	dryRun := flag.Bool("dry-run", false, "Parse and chunk only, do not embed or store")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Warn().Err(err).Msg("Config not loaded, using defaults")
		cfg = config.Default()
	}

	eng, cleanup, err := buildEngine(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building engine")
	}
	defer cleanup()

	ctx := context.Background()
	switch {
	case *filePath != "":
		ingestFile(ctx, eng, cfg, *filePath, *sessionID, *dryRun)
	case *question != "":
		askQuestion(ctx, eng, *sessionID, *question)
	case *commentary:
		generateCommentary(ctx, eng, *sessionID, *period)
	case *list:
		listSessions(ctx, eng)
	case *deleteSession:
		if *sessionID == "" {
			log.Fatal().Msg("Please provide -session with -delete")
		}
		if err := eng.DeleteSession(ctx, *sessionID); err != nil {
			log.Fatal().Err(err).Msg("Error deleting session")
		}
		log.Info().Str("session_id", *sessionID).Msg("Session deleted")
	case *showSettings:
		helper.PrettyPrint(eng.GetSettings(*sessionID))
	case *resetSettings:
		helper.PrettyPrint(eng.ResetSettings(*sessionID))
	default:
		log.Fatal().Msg("Please provide -file to ingest, -question or -commentary to query, or -list/-delete to manage sessions")
	}
}

func buildEngine(cfg *config.Config) (*engine.Engine, func(), error) {
	var (
		st      store.VectorStore
		cleanup = func() {}
	)
	switch cfg.Store.Backend {
	case "postgres":
		pg, err := store.NewPostgresStore(context.Background(), &cfg.Store.Database)
		if err != nil {
			return nil, nil, err
		}
		st = pg
		cleanup = func() { pg.Close() }
	default:
		if !cfg.Store.InMemory {
			if err := helper.CreateFolder(cfg.Store.Path); err != nil {
				return nil, nil, err
			}
		}
		ch, err := store.NewChromemStore(cfg.Store.Path, cfg.Store.InMemory)
		if err != nil {
			return nil, nil, err
		}
		st = ch
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	normalizer := parser.NewNormalizer(cfg.Schema.Synonyms)
	mgr := sessions.NewManager(st, embedder)
	settingsStore := settings.NewStore(cfg.RAG.Defaults)
	retriever := rag.NewRetriever(st, embedder, cfg.RAG.Weights)
	answerer := answer.NewEngine(retriever, llmservice.NewClient(&cfg.LLM), settingsStore)
	return engine.New(normalizer, mgr, answerer, settingsStore), cleanup, nil
}

func ingestFile(ctx context.Context, eng *engine.Engine, cfg *config.Config, filePath, sessionID string, dryRun bool) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading file")
	}

	if dryRun {
		grids, err := parser.ReadTable(data, filepath.Base(filePath))
		if err != nil {
			log.Fatal().Err(err).Msg("Error reading spreadsheet")
		}
		table, err := parser.NewNormalizer(cfg.Schema.Synonyms).Normalize(grids, filepath.Base(filePath))
		if err != nil {
			log.Fatal().Err(err).Msg("Error normalizing spreadsheet")
		}
		helper.PrettyPrint(table)
		return
	}

	result, err := eng.Upload(ctx, data, filepath.Base(filePath), sessionID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error uploading spreadsheet")
	}
	helper.PrettyPrint(result)
}

func askQuestion(ctx context.Context, eng *engine.Engine, sessionID, question string) {
	if sessionID == "" {
		log.Fatal().Msg("Please provide -session with -question")
	}
	resp, err := eng.Question(ctx, sessionID, question)
	if err != nil {
		log.Fatal().Err(err).Msg("Error answering question")
	}

	log.Info().Int("context_used", resp.ContextUsed).Bool("insufficient_context", resp.InsufficientContext).Msg("Question answered")
	fmt.Printf("%s\n\n", resp.Response)
}

func generateCommentary(ctx context.Context, eng *engine.Engine, sessionID, period string) {
	if sessionID == "" {
		log.Fatal().Msg("Please provide -session with -commentary")
	}
	resp, err := eng.Commentary(ctx, sessionID, period)
	if err != nil {
		log.Fatal().Err(err).Msg("Error generating commentary")
	}

	log.Info().Int("context_used", resp.ContextUsed).Msg("Commentary generated")
	fmt.Printf("%s\n\n", resp.Response)
}

func listSessions(ctx context.Context, eng *engine.Engine) {
	sessionList, err := eng.ListSessions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing sessions")
	}
	if len(sessionList) == 0 {
		log.Info().Msg("No sessions found")
		return
	}
	helper.PrettyPrint(sessionList)
}
