// Scans session actor hashes for participant containers that no longer
// parse and offers to delete them. A corrupt container is skipped by the
// engine at read time; this removes it permanently.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
)

type participantData struct {
	ID    string          `json:"id"`
	State json.RawMessage `json:"state"`
}

type corruptField struct {
	key   string
	field string
}

func main() {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal("Failed to parse Redis URL:", err)
	}

	client := redis.NewClient(opt)
	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	fmt.Println("Connected to Redis:", redisURL)
	fmt.Println("Scanning for corrupted participant containers...")

	iter := client.Scan(ctx, 0, "combat:rbc:*:actors", 0).Iterator()

	var corrupted []corruptField
	var checkedCount int

	for iter.Next(ctx) {
		key := iter.Val()

		fields, err := client.HGetAll(ctx, key).Result()
		if err != nil {
			fmt.Printf("Error reading %s: %v\n", key, err)
			continue
		}

		for field, raw := range fields {
			checkedCount++

			var p participantData
			if err := json.Unmarshal([]byte(raw), &p); err != nil {
				fmt.Printf("✗ Corrupted JSON in %s field %s\n", key, field)
				corrupted = append(corrupted, corruptField{key: key, field: field})
				continue
			}
			// A container whose id does not match its hash field was
			// written by a buggy client.
			if p.ID != field {
				fmt.Printf("✗ Mismatched id in %s: field %s holds container %q\n", key, field, p.ID)
				corrupted = append(corrupted, corruptField{key: key, field: field})
			}
		}
	}

	if err := iter.Err(); err != nil {
		log.Fatal("Error during scan:", err)
	}

	fmt.Printf("\nChecked %d containers, found %d corrupted entries\n", checkedCount, len(corrupted))

	if len(corrupted) == 0 {
		fmt.Println("No corrupted data found!")
		return
	}

	fmt.Println("\nCorrupted containers:")
	for _, c := range corrupted {
		fmt.Printf("  - %s / %s\n", c.key, c.field)
	}

	fmt.Print("\nDo you want to DELETE these corrupted entries? (yes/no): ")
	var response string
	fmt.Scanln(&response)

	if response == "yes" {
		for _, c := range corrupted {
			if err := client.HDel(ctx, c.key, c.field).Err(); err != nil {
				fmt.Printf("Failed to delete %s / %s: %v\n", c.key, c.field, err)
			} else {
				fmt.Printf("Deleted %s / %s\n", c.key, c.field)
			}
		}
		fmt.Println("\nCleanup complete!")
	} else {
		fmt.Println("Aborted - no changes made")
	}
}
