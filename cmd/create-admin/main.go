package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/examportal/backend/internal/config"
	"github.com/examportal/backend/internal/database"
	"github.com/examportal/backend/internal/logger"
	"github.com/examportal/backend/internal/model"
	"github.com/examportal/backend/internal/repository"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	adminRepo := repository.NewAdminRepository(pool)

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Admin User ===")

	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		fmt.Println("Error: a valid email is required")
		return
	}

	fmt.Print("Enter Password (hidden): ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	password := strings.TrimSpace(string(passwordBytes))
	if len(password) < 6 {
		fmt.Println("Error: password must be at least 6 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		fmt.Printf("Error hashing password: %v\n", err)
		return
	}

	admin := &model.Admin{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := adminRepo.Create(ctx, admin); err != nil {
		if err == repository.ErrDuplicateAdminEmail {
			fmt.Println("Error: an admin with this email already exists")
			return
		}
		fmt.Printf("Error creating admin: %v\n", err)
		return
	}

	fmt.Printf("Admin created: %s <%s> (id %s)\n", admin.Name, admin.Email, admin.ID)
}
