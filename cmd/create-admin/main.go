package main

import (
	"fmt"
	"os"

	"newsletter/backend/internal/auth"
	"newsletter/backend/internal/config"
	sqlstore "newsletter/backend/internal/storage/sql"
)

// main 在数据库中创建管理员账户。
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: create-admin <username> <password>")
		os.Exit(1)
	}

	username := os.Args[1]
	password := os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		fmt.Println("Database is not configured (set NEWSLETTER_DATABASE_TYPE and NEWSLETTER_DATABASE_DSN)")
		os.Exit(1)
	}

	store, err := sqlstore.NewStore(
		cfg.Database.Type,
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	authService := auth.NewService(store, store, nil)
	admin, err := authService.CreateAdmin(username, password)
	if err != nil {
		fmt.Printf("Failed to create admin: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Admin created: %s (id=%s)\n", admin.Username, admin.ID)
}
