package database

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"chat-service/config"
)

// RedisConnect opens one client per configured logical database. DB 0 holds
// disconnect-action registrations; DB 1 backs the socket.io adapter.
func RedisConnect() map[int]*redis.Client {
	clients := make(map[int]*redis.Client)
	for _, db := range strings.Split(config.Config("REDIS_DB"), ",") {
		dbNumber, _ := strconv.Atoi(db)

		options := &redis.Options{
			Addr: fmt.Sprintf(
				"%s:%s",
				config.Config("REDIS_HOST"),
				config.Config("REDIS_PORT"),
			),
			Password: config.Config("REDIS_PASSWORD"),
			DB:       dbNumber,
		}

		clients[dbNumber] = redis.NewClient(options)
	}

	log.Printf("connections opened to Redis")
	return clients
}
