// seckill-init é a reinicialização administrativa do fast path: para cada
// recurso, contador = initial_stock e registro de claims limpo.
//
// Destrutivo com tráfego ativo (reseta estoque consumido e apaga claim
// markers). Rode apenas antes do tráfego começar ou em janela de
// manutenção declarada. Por isso é um binário separado, nunca uma rota do
// serviço público.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/QctheGithuber/seckillweb/seckill/application"
	"github.com/QctheGithuber/seckillweb/seckill/domain"
	"github.com/QctheGithuber/seckillweb/seckill/infra"

	"github.com/redis/go-redis/v9"
)

func main() {
	resourceID := flag.Int64("resource", 0, "reinicializa só este recurso (0 = todos)")
	restoreDurable := flag.Bool("restore-durable", false, "também devolve resources.stock para initial_stock")
	flag.Parse()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     getenvDefault("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getenvIntDefault("REDIS_DB", 0),
	})
	defer func() { _ = rdb.Close() }()

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	_, err := rdb.Ping(pingCtx).Result()
	cancel()
	if err != nil {
		log.Fatalf("redis ping error: %v", err)
	}

	db, err := infra.OpenPostgres(databaseURL)
	if err != nil {
		log.Fatalf("postgres error: %v", err)
	}
	defer func() { _ = db.Close() }()

	strategy := domain.ClaimStrategy(getenvDefault("CLAIM_STRATEGY", string(domain.StrategyPermanentSet)))
	if !strategy.Valid() {
		log.Fatal("CLAIM_STRATEGY must be \"set\" or \"flag\"")
	}

	admission := infra.NewAdmissionStore(rdb, infra.WithStrategy(strategy))
	reconciler := application.NewReconciler(admission, infra.NewPostgresLedger(db), *restoreDurable)

	ctx := context.Background()
	if *resourceID > 0 {
		if err := reconciler.Reinitialize(ctx, *resourceID); err != nil {
			log.Fatalf("reinitialize resource %d: %v", *resourceID, err)
		}
		log.Printf("resource %d reinitialized", *resourceID)
		return
	}

	n, err := reconciler.ReinitializeAll(ctx)
	if err != nil {
		log.Fatalf("reinitialize (after %d resources): %v", n, err)
	}
	log.Printf("%d resources reinitialized", n)
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
