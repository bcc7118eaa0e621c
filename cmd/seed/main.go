package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"copytrade-subscription/internal/config"
	"copytrade-subscription/internal/domain"
	"copytrade-subscription/internal/domain/model"
	pg "copytrade-subscription/internal/infra/db/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema ready")

	userRepo := pg.NewUserRepo(pool)
	strategyRepo := pg.NewStrategyRepo(pool)

	seedUsers := []struct {
		Email string
		Role  model.Role
	}{
		{"admin@copytrade.local", model.RoleAdmin},
		{"demo@copytrade.local", model.RoleUser},
	}
	for _, su := range seedUsers {
		if existing, err := userRepo.FindByEmail(ctx, nil, su.Email); err == nil {
			fmt.Printf("user %s already present (id=%s)\n", su.Email, existing.ID)
			continue
		} else if err != domain.ErrNotFound {
			log.Fatalf("lookup user %s: %v", su.Email, err)
		}
		u, err := model.NewUser("", su.Email, su.Role)
		if err != nil {
			log.Fatalf("new user %s: %v", su.Email, err)
		}
		if err := userRepo.Save(ctx, nil, u); err != nil {
			log.Fatalf("save user %s: %v", su.Email, err)
		}
		fmt.Printf("seeded user: %s (%s, id=%s)\n", u.Email, u.Role, u.ID)
	}

	seedStrategies := []struct {
		ID   string
		Name string
	}{
		{"gold-scalper", "Gold Scalper"},
		{"index-swing", "Index Swing"},
		{"fx-momentum", "FX Momentum"},
	}
	for _, ss := range seedStrategies {
		s, err := model.NewStrategy(ss.ID, ss.Name)
		if err != nil {
			log.Fatalf("new strategy %s: %v", ss.ID, err)
		}
		if err := strategyRepo.Save(ctx, nil, s); err != nil {
			log.Fatalf("save strategy %s: %v", ss.ID, err)
		}
		fmt.Printf("seeded strategy: %s (%s)\n", s.Name, s.ID)
	}

	fmt.Println("seeding complete")
}
