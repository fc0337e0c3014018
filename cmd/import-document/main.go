package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"doc_builder_app_go/config"
	"doc_builder_app_go/db"
	"doc_builder_app_go/models"
	"doc_builder_app_go/services"

	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: import-document <document.json> [more.json...]")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database
	var err error
	if cfg.TursoDatabaseURL != "" {
		err = db.InitializeRemote(cfg.TursoDatabaseURL, cfg.TursoAuthToken, cfg.Environment)
	} else {
		err = db.Initialize(cfg.DBPath, cfg.Environment)
	}
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(&models.Document{}, &models.LineItem{}, &models.DocumentExport{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	imported, err := importFiles(db.DB, os.Args[1:], os.Stdout)
	log.Printf("Imported %d of %d documents", imported, len(os.Args)-1)
	if err != nil {
		log.Fatal(err)
	}
}

// importFiles stores each document file and prints "<id> <file>" per success.
// It keeps going after a bad file and returns the first error.
func importFiles(dbConn *gorm.DB, paths []string, out io.Writer) (int, error) {
	var firstErr error
	imported := 0
	for i, path := range paths {
		doc, err := importFile(dbConn, path)
		if err != nil {
			log.Printf("[%d/%d] Failed to import %s: %v", i+1, len(paths), path, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", path, err)
			}
			continue
		}
		imported++
		fmt.Fprintf(out, "%s %s\n", doc.ID, path)
	}
	return imported, firstErr
}

func importFile(dbConn *gorm.DB, path string) (*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid document JSON: %w", err)
	}

	// Imported documents always get fresh ids
	doc.ID = ""
	for i := range doc.Items {
		doc.Items[i].ID = ""
	}
	if err := services.CreateDocument(dbConn, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
