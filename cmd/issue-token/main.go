package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/garyjia/expense-reimbursement/internal/config"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/identity"
)

// Mints a bearer token for local development and smoke tests.
// Production deployments get identities from the upstream identity provider.

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	userID := flag.String("user", "", "user id carried in the sub claim")
	email := flag.String("email", "", "email claim")
	name := flag.String("name", "", "display name claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *userID == "" || *email == "" {
		log.Fatal("both -user and -email are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	provider := identity.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	token, err := provider.IssueToken(&entity.Identity{
		ID:    *userID,
		Email: entity.NormalizeEmail(*email),
		Name:  *name,
	}, *ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Println(token)
}
