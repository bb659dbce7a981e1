package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"chat-service/config"
	"chat-service/model"
)

// PostgresConnect opens the document-tree database and migrates the nodes
// table. The handle is passed down explicitly; nothing reads it ambiently.
func PostgresConnect() *gorm.DB {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		config.Config("POSTGRES_HOST"),
		config.Config("POSTGRES_PORT"),
		config.Config("POSTGRES_USER"),
		config.Config("POSTGRES_PASSWORD"),
		config.Config("POSTGRES_DB"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		panic("failed to connect postgres")
	}

	log.Printf("connection opened to Postgres")
	db.AutoMigrate(&model.Node{})
	log.Printf("Postgres database migrated")
	return db
}
