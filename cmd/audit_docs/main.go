// Command audit_docs scans every stored canvas document, runs the storage
// gate and the deep structural checks against each one, and prints a report.
// With -images it also resolves every stored image source through the HTTP
// loader. Read-only: nothing is repaired or rewritten.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"canvas-backend/internal/model"
	"canvas-backend/internal/service"
)

func main() {
	checkImages := flag.Bool("images", false, "resolve stored image sources through the loader")
	imageTimeout := flag.Duration("image-timeout", 15*time.Second, "per-image load timeout")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️ No .env file found, using environment variables")
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_SSLMODE"),
		os.Getenv("DB_TIMEZONE"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	fmt.Println("✅ Connected to database")
	fmt.Println()

	var loader *service.HTTPImageLoader
	if *checkImages {
		loader = service.NewHTTPImageLoader(*imageTimeout, 32<<20)
	}

	type row struct {
		ID         int64
		Name       string
		CanvasData *string
	}

	var rows []row
	if err := db.Table("projects").Select("id, name, canvas_data").Order("id").Scan(&rows).Error; err != nil {
		log.Fatal("Failed to list projects:", err)
	}

	fmt.Printf("📊 Auditing %d project documents\n", len(rows))
	fmt.Println()

	var empty, corrupt, structural, clean, brokenImages int
	for _, r := range rows {
		if r.CanvasData == nil || *r.CanvasData == "" {
			empty++
			fmt.Printf("  ⚠️ project %d (%s): no document stored (default will be served)\n", r.ID, r.Name)
			continue
		}

		raw := []byte(*r.CanvasData)
		if !model.ValidateDocument(raw) {
			corrupt++
			fmt.Printf("  ❌ project %d (%s): fails storage gate (default will be served)\n", r.ID, r.Name)
			continue
		}

		var doc model.CanvasDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			corrupt++
			fmt.Printf("  ❌ project %d (%s): passes gate but does not decode: %v\n", r.ID, r.Name, err)
			continue
		}

		if errs := model.ValidateInvariants(&doc); len(errs) > 0 {
			structural++
			fmt.Printf("  ⚠️ project %d (%s): %d structural issue(s) (still served as-is):\n", r.ID, r.Name, len(errs))
			for _, e := range errs {
				fmt.Printf("      - %v\n", e)
			}
			continue
		}

		if loader != nil {
			broken := auditImages(loader, &doc, r.ID, r.Name, *imageTimeout)
			if broken > 0 {
				brokenImages += broken
				continue
			}
		}

		clean++
	}

	fmt.Println()
	fmt.Printf("📋 Summary: %d clean, %d empty, %d corrupt, %d with structural issues",
		clean, empty, corrupt, structural)
	if *checkImages {
		fmt.Printf(", %d unresolvable images", brokenImages)
	}
	fmt.Println()
}

func auditImages(loader *service.HTTPImageLoader, doc *model.CanvasDocument, projectID int64, name string, timeout time.Duration) int {
	broken := 0
	for _, el := range doc.Elements {
		if el.Image == nil || el.Image.Src == "" {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		_, err := model.Rehydrate(ctx, el, loader)
		cancel()

		if err != nil {
			broken++
			fmt.Printf("  🖼️ project %d (%s): element %s image unresolvable: %v\n", projectID, name, el.ID, err)
		}
	}
	return broken
}
