package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	llmx "github.com/scribadev/scriba/agent/llm"
	"github.com/scribadev/scriba/agent/orchestrator"
	specialistx "github.com/scribadev/scriba/agent/specialist"
	toolx "github.com/scribadev/scriba/agent/tool"
	"github.com/scribadev/scriba/assembler"
	configx "github.com/scribadev/scriba/pkg/config"
	_ "github.com/scribadev/scriba/pkg/logger/autoload"
	openrouterx "github.com/scribadev/scriba/pkg/openrouter"
	"github.com/scribadev/scriba/store"
)

type AppConfig struct {
	PostgresDSN   string `envconfig:"POSTGRES_DSN" required:"true"`
	OwnerID       string `envconfig:"OWNER_ID" default:"local-user"`
	ToolCallLimit int    `envconfig:"TOOL_CALL_LIMIT" default:"4"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("SCRIBA")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	memoryCfg := configx.MustNew[store.UpstashMemoryConfig]("UPSTASH_REDIS")

	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	openRouterClient := openrouterx.NewClient(*openRouterCfg)
	if openRouterClient == nil {
		log.Fatal().Msg("init openrouter client")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(appCfg.PostgresDSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres unreachable")
	}

	conversations := store.NewPGConversationStore(db)
	templates := store.NewPGTemplateStore(db)
	artifacts := store.NewPGArtifactStore(db)

	memory, err := store.NewUpstashMemoryStore(*memoryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init memory store")
	}

	models, err := specialistx.NewRegistry(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init model registry")
	}

	asm := assembler.New()
	gateway := toolx.NewGateway(artifacts, templates, asm)

	o, err := orchestrator.New(conversations, templates, artifacts, models, gateway, memory, asm, orchestrator.Config{
		ToolCallLimit: appCfg.ToolCallLimit,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init orchestrator")
	}

	if err := runChat(ctx, o, appCfg.OwnerID); err != nil {
		log.Fatal().Err(err).Msg("chat loop failed")
	}
}

func runChat(ctx context.Context, o *orchestrator.Orchestrator, ownerID string) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

	var conversationID string
	fmt.Println("scriba ready. Type a message, or /quit to exit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/quit" || text == "/exit" {
			return nil
		}

		if conversationID == "" {
			id, err := o.StartConversation(ctx, ownerID, text)
			if err != nil {
				return fmt.Errorf("start conversation: %w", err)
			}
			conversationID = id
		}

		reply, artifactID, err := o.HandleTurn(ctx, ownerID, conversationID, text)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			fmt.Println("Sorry, that turn failed. Try again.")
			continue
		}

		fmt.Println(reply)
		if artifactID != "" {
			fmt.Printf("(generated document, artifact id %s)\n", artifactID)
		}
	}
}
