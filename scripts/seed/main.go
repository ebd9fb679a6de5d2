// Seed registers a demo user and gives it a spread of todos in every status.
// Run from project root: go run ./scripts/seed
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"todolist/internal/apperrors"
	"todolist/internal/config"
	"todolist/internal/database"
	"todolist/internal/models"
	"todolist/internal/repository"
	"todolist/internal/service"
)

func main() {
	config.LoadEnvFile(".env")

	username := flag.String("user", "demo", "username to create")
	password := flag.String("password", "demo-password", "password for the user")
	total := flag.Int("n", 20, "number of todos")
	flag.Parse()

	ctx := context.Background()
	cfg := config.Get()
	db := database.InitDB(ctx)
	if db == nil {
		fmt.Fprintln(os.Stderr, "DATABASE_URL not set or DB connection failed")
		os.Exit(1)
	}
	if err := database.MigrateOrCreateSchema(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Schema failed:", err)
		os.Exit(1)
	}

	users := repository.NewPostgresUserStore(db)
	auth := service.NewAuthService(users, service.NewBcryptHasher(cfg.BcryptCost))
	todos := service.NewTodoService(repository.NewPostgresTodoStore(db))

	user, err := auth.Register(ctx, *username, *password)
	if errors.Is(err, apperrors.ErrUsernameTaken) {
		user, err = auth.Login(ctx, *username, *password)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "User failed:", err)
		os.Exit(1)
	}

	start := time.Now()
	for i := 1; i <= *total; i++ {
		status := models.AllStatuses[i%len(models.AllStatuses)]
		_, err := todos.Create(ctx, service.CreateInput{
			Name:    fmt.Sprintf("Todo %d", i),
			OwnerID: user.ID,
			Status:  string(status),
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "\nInsert failed:", err)
			os.Exit(1)
		}
		fmt.Printf("\rInserted %d / %d", i, *total)
	}

	fmt.Printf("\nDone: %d todos for %s (%s) in %v\n", *total, user.Username, user.ID, time.Since(start))
}
