// Command main runs the database seeder for lufeed.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"lufeed/internal/cache"
	"lufeed/internal/config"
	"lufeed/internal/database"
	"lufeed/internal/seed"
)

func main() {
	preset := flag.String("preset", "campus", "Built-in preset ("+strings.Join(seed.BuiltinPresets(), ", ")+") or path to a YAML preset")
	numUsers := flag.Int("users", 0, "Override the preset's number of users")
	numPosts := flag.Int("posts", 0, "Override the preset's number of posts")
	randomSeed := flag.Int64("rand", 0, "Random seed for reproducible data (0 = random)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")

	p, err := seed.LoadPreset(*preset)
	if err != nil {
		log.Fatalf("Failed to load preset: %v", err)
	}
	if *numUsers > 0 {
		p.Users = *numUsers
	}
	if *numPosts > 0 {
		p.Posts = *numPosts
	}
	if *randomSeed != 0 {
		p.Seed = *randomSeed
	}
	log.Printf("Target: preset=%s users=%d posts=%d shares=%d clean=%v", p.Name, p.Users, p.Posts, p.Shares, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Writes invalidate cached feed lists when Redis is around.
	cache.InitRedis(cfg.RedisURL)
	defer cache.Close()

	ctx := context.Background()
	s := seed.NewSeeder(db)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx, p)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done: %d users, %d posts, %d comments, %d likes, %d shares", sum.Users, sum.Posts, sum.Comments, sum.Likes, sum.Shares)
	log.Printf("All seeded users have the password: %s", seed.DemoPassword)
}
