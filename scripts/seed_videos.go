package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

type seedVideo struct {
	youtubeID string
	title     string
	category  string
	reward    int64
	duration  int
}

var videos = []seedVideo{
	{"dQw4w9WgXcQ", "Getting Started with OWATCH", "onboarding", 100, 212},
	{"jNQXAC9IVRw", "How Token Claims Work", "education", 150, 19},
	{"9bZkp7q19f0", "Staking Pools Explained", "education", 150, 252},
	{"kJQP7kiw5Fk", "Community Showcase: Week 1", "community", 80, 281},
	{"OPf0YbXqDm0", "Community Showcase: Week 2", "community", 80, 270},
	{"fJ9rUzIMcZQ", "Wallet Security Basics", "education", 200, 367},
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		envOr("DB_NAME", "owatch"),
		envOr("DB_SSLMODE", "disable"),
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	fmt.Println("✅ Connected to database")

	inserted := 0
	for _, v := range videos {
		thumbnail := fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", v.youtubeID)

		result, err := db.Exec(`
			INSERT INTO reward_videos (youtube_id, title, thumbnail_url, reward_points_amount, required_duration_seconds, category, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (youtube_id) DO NOTHING
		`, v.youtubeID, v.title, thumbnail, v.reward, v.duration, v.category)
		if err != nil {
			log.Printf("⚠️  Warning inserting %s: %v", v.youtubeID, err)
			continue
		}

		rows, _ := result.RowsAffected()
		if rows > 0 {
			inserted++
			fmt.Printf("🎬 Seeded video: %s\n", v.title)
		}
	}

	fmt.Printf("✅ Done, %d new videos seeded\n", inserted)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
