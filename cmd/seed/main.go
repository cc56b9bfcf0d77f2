// Command seed loads the demo members and garages into the configured store.
package main

import (
	"context"
	"flag"
	"log"

	"garagebook/internal/bootstrap"
	"garagebook/internal/config"
	"garagebook/internal/seed"
)

func main() {
	fixtures := flag.Bool("fixtures", true, "Load the built-in demo members and garages")
	users := flag.Int("users", 0, "Number of generated members to add")
	vehicles := flag.Int("vehicles", 2, "Vehicles per generated member")
	fakerSeed := flag.Int64("seed", 1, "Seed for generated data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.StoreBackend == config.StoreMemory {
		log.Fatalf("STORE_BACKEND is memory; nothing would survive this process")
	}
	// Seeding is this command's whole job; do not also seed during init.
	cfg.SeedMockData = false

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	log.Printf("Target: fixtures=%v, %d generated members with %d vehicles each", *fixtures, *users, *vehicles)

	res, err := seed.Seed(ctx, rt.Repos, seed.Options{
		SkipFixtures:        !*fixtures,
		FakeUsers:           *users,
		FakeVehiclesPerUser: *vehicles,
		FakerSeed:           *fakerSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Done: %d members, %d vehicles written, %d already present", res.Users, res.Vehicles, res.Skipped)
}
