package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/legalconnect/legalconnect-server/cmd/api"
	"github.com/legalconnect/legalconnect-server/cmd/models"
	"github.com/legalconnect/legalconnect-server/db"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations()
			return
		case "clear-db":
			runDatabaseClear()
			return
		default:
			log.Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	startServer()
}

func runMigrations() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database for migrations")

	if err := performMigrations(DB); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB) error {
	migrations := []struct {
		model interface{}
		name  string
	}{
		{&models.User{}, "User"},
		{&models.Lawyer{}, "Lawyer"},
		{&models.Review{}, "Review"},
		{&models.PasswordResetToken{}, "PasswordResetToken"},
		{&models.Topic{}, "Topic"},
		{&models.Reply{}, "Reply"},
		{&models.TopicVote{}, "TopicVote"},
		{&models.ReplyVote{}, "ReplyVote"},
		{&models.TopicReport{}, "TopicReport"},
		{&models.SavedTopic{}, "SavedTopic"},
		{&models.Consultation{}, "Consultation"},
		{&models.RescheduleRequest{}, "RescheduleRequest"},
		{&models.Transaction{}, "Transaction"},
		{&models.Resource{}, "Resource"},
		{&models.Device{}, "Device"},
		{&models.NotificationHistory{}, "NotificationHistory"},
	}

	log.Println("Starting database migrations...")
	for _, m := range migrations {
		log.Printf("Migrating %s table...", m.name)
		if err := DB.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", m.name, err)
		}
	}

	directories := []string{
		"uploads/images",
		"uploads/resources",
	}
	for _, dir := range directories {
		if err := createDirectoryIfNotExist(dir); err != nil {
			log.Fatalf("Error creating directory %s: %v", dir, err)
		}
		log.Printf("Directory %s created/verified", dir)
	}

	log.Println("All migrations and directory setup completed successfully")
	return nil
}

func createDirectoryIfNotExist(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("could not create directory %s: %w", path, err)
		}
	}
	return nil
}

func startServer() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Server running on port %s", port)

	<-quit
	log.Println("Shutting down server...")
}

func clearDatabase(DB *gorm.DB, tables []interface{}) error {
	if len(tables) == 0 {
		// Dependents first so foreign keys don't block the drops.
		tables = []interface{}{
			&models.ReplyVote{},
			&models.TopicVote{},
			&models.TopicReport{},
			&models.SavedTopic{},
			&models.Reply{},
			&models.Topic{},
			&models.RescheduleRequest{},
			&models.Consultation{},
			&models.Transaction{},
			&models.Review{},
			&models.Resource{},
			&models.Device{},
			&models.NotificationHistory{},
			&models.PasswordResetToken{},
			&models.Lawyer{},
			&models.User{},
		}
	}

	log.Println("Dropping tables...")
	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			log.Printf("Warning dropping table %T: %v", table, err)
		} else {
			log.Printf("Table %T dropped", table)
		}
	}

	return nil
}

func runDatabaseClear() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()

	log.Println("Preparing to clear database...")

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		log.Println("Database clearing cancelled.")
		return
	}

	var tableNames string
	fmt.Print("Enter table names to clear (comma separated) or leave blank to clear all: ")
	fmt.Scanln(&tableNames)

	var tables []interface{}
	if tableNames != "" {
		for _, table := range strings.Split(tableNames, ",") {
			switch strings.TrimSpace(table) {
			case "User":
				tables = append(tables, &models.User{})
			case "Lawyer":
				tables = append(tables, &models.Lawyer{})
			case "Review":
				tables = append(tables, &models.Review{})
			case "Topic":
				tables = append(tables, &models.Topic{})
			case "Reply":
				tables = append(tables, &models.Reply{})
			case "TopicVote":
				tables = append(tables, &models.TopicVote{})
			case "ReplyVote":
				tables = append(tables, &models.ReplyVote{})
			case "TopicReport":
				tables = append(tables, &models.TopicReport{})
			case "SavedTopic":
				tables = append(tables, &models.SavedTopic{})
			case "Consultation":
				tables = append(tables, &models.Consultation{})
			case "RescheduleRequest":
				tables = append(tables, &models.RescheduleRequest{})
			case "Transaction":
				tables = append(tables, &models.Transaction{})
			case "Resource":
				tables = append(tables, &models.Resource{})
			case "Device":
				tables = append(tables, &models.Device{})
			case "NotificationHistory":
				tables = append(tables, &models.NotificationHistory{})
			case "PasswordResetToken":
				tables = append(tables, &models.PasswordResetToken{})
			default:
				log.Printf("Unknown table: %s", table)
			}
		}
	}

	if err := clearDatabase(DB, tables); err != nil {
		log.Fatalf("Error clearing database: %v", err)
	}

	log.Println("Database cleared successfully")
}
