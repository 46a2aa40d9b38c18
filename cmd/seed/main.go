package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"funnel-billing/internal/config"
	"funnel-billing/internal/domain"
	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/repository"
	pg "funnel-billing/internal/infra/db/postgres"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Seeds a referrer with an affiliate link, a verified buyer and a workspace so webhook
// payloads can be replayed against a local database.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	accounts := pg.NewAccountRepo(pool)

	referrer, err := ensureAccount(ctx, accounts, "referrer@example.test", "referrer", true)
	if err != nil {
		log.Fatalf("referrer: %v", err)
	}
	buyer, err := ensureAccount(ctx, accounts, "buyer@example.test", "buyer", true)
	if err != nil {
		log.Fatalf("buyer: %v", err)
	}

	linkID := "link-demo"
	if err := exec(ctx, pool, `INSERT INTO affiliate_links (id, owner_id, code) VALUES ($1, $2, 'DEMO') ON CONFLICT (id) DO NOTHING`, linkID, referrer.ID); err != nil {
		log.Fatalf("affiliate link: %v", err)
	}
	wsID := "ws-demo"
	if err := exec(ctx, pool, `INSERT INTO workspaces (id, owner_id, name) VALUES ($1, $2, 'Demo workspace') ON CONFLICT (id) DO NOTHING`, wsID, buyer.ID); err != nil {
		log.Fatalf("workspace: %v", err)
	}

	fmt.Printf("referrer  %s (%s)\n", referrer.ID, referrer.Email)
	fmt.Printf("buyer     %s (%s)\n", buyer.ID, buyer.Email)
	fmt.Printf("link      %s\n", linkID)
	fmt.Printf("workspace %s\n", wsID)
}

func ensureAccount(ctx context.Context, repo repository.AccountRepository, email, username string, verified bool) (*model.Account, error) {
	a, err := repo.FindByEmail(ctx, repository.NoTX, email)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	a, err = model.NewAccount(email, username, username)
	if err != nil {
		return nil, err
	}
	a.Verified = verified
	if err := repo.Create(ctx, repository.NoTX, a); err != nil {
		return nil, err
	}
	return a, nil
}

func exec(ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) error {
	_, err := pool.Exec(ctx, sql, args...)
	return err
}
