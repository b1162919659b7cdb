package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/examportal/backend/internal/config"
	"github.com/examportal/backend/internal/database"
	"github.com/examportal/backend/internal/logger"
	"github.com/examportal/backend/internal/repository"
	"github.com/examportal/backend/internal/service"
)

func main() {
	var (
		orgIDStr string
		csvPath  string
	)
	flag.StringVar(&orgIDStr, "org", "", "Organization UUID to import into")
	flag.StringVar(&csvPath, "file", "", "Path to the roster CSV")
	flag.Parse()

	if orgIDStr == "" || csvPath == "" {
		fmt.Println("Usage: import-students -org <org-uuid> -file <roster.csv>")
		os.Exit(1)
	}

	orgID, err := uuid.Parse(orgIDStr)
	if err != nil {
		fmt.Printf("Invalid organization UUID: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	studentRepo := repository.NewStudentRepository(pool)
	orgRepo := repository.NewOrganizationRepository(pool)
	studentService := service.NewStudentService(studentRepo, orgRepo, log)

	file, err := os.Open(csvPath)
	if err != nil {
		fmt.Printf("Cannot open %s: %v\n", csvPath, err)
		os.Exit(1)
	}
	defer file.Close()

	report, err := studentService.ImportCSV(ctx, orgID, file)
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Imported %d students, skipped %d\n", report.Imported, report.Skipped)
	for _, e := range report.Errors {
		fmt.Printf("  %s\n", e)
	}
}
