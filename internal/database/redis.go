package database

import (
	"context"
	"log"

	"github.com/go-redis/redis/v8"
)

// Redis holds the connection used for the revoked-token blacklist.
var Redis *redis.Client

// ConnectRedis initializes the Redis connection.
func ConnectRedis(url string) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}

	Redis = redis.NewClient(opts)
	if err := Redis.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	log.Println("Redis connection established.")
}
