package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/whatthedob/whatthedob-backend/config"
	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	"github.com/whatthedob/whatthedob-backend/internal/app/repository"
	"github.com/whatthedob/whatthedob-backend/internal/app/service"
	"github.com/whatthedob/whatthedob-backend/internal/db"
	"github.com/whatthedob/whatthedob-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

// Columns: date | campus_id | meal | category | item | tags
const (
	colDate = iota
	colCampus
	colMeal
	colCategory
	colItem
	colTags
	minColumns = colItem + 1
)

const snapshotBatchSize = 200

// dateLayouts are the spellings spreadsheet tools produce for a menu date.
var dateLayouts = []string{model.DateLayout, "1/2/06", "01/02/2006", "1/2/2006", "2006-01-02", "01-02-06"}

type importSummary struct {
	Rows      int
	Skipped   int
	Snapshots int
	Items     int
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path> [--yes]")
	}

	filePath := os.Args[1]
	assumeYes := len(os.Args) > 2 && os.Args[2] == "--yes"

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.Config{Level: "warn", Format: "console"})

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	snapshots, summary, err := readSnapshotsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total rows: %d\n", summary.Rows)
	fmt.Printf("  Skipped rows: %d\n", summary.Skipped)
	fmt.Printf("  Menus: %d\n", summary.Snapshots)
	fmt.Printf("  Menu items: %d\n", summary.Items)

	if len(snapshots) == 0 {
		fmt.Println("Nothing to import.")
		return
	}

	if !assumeYes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	refs := repository.NewReferenceRepository(db.GetDB())
	menuService := service.NewMenuService(
		repository.NewMenuRepository(db.GetDB(), refs),
		repository.NewMenuQueryRepository(db.GetDB()),
		nil,
		cfg.Cache.FilterTTL,
	)

	fmt.Printf("Starting import with batch size: %d\n", snapshotBatchSize)
	imported, err := importSnapshots(context.Background(), menuService, snapshots, snapshotBatchSize)
	if err != nil {
		log.Fatalf("Import stopped after %d menus: %v", imported, err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total menus imported: %d\n", imported)
}

func importSnapshots(ctx context.Context, menuService service.MenuService, snapshots []model.MenuSnapshot, batchSize int) (int, error) {
	imported := 0
	for start := 0; start < len(snapshots); start += batchSize {
		end := start + batchSize
		if end > len(snapshots) {
			end = len(snapshots)
		}
		if _, err := menuService.Ingest(ctx, snapshots[start:end]); err != nil {
			return imported, err
		}
		imported = end
		fmt.Printf("Imported %d/%d menus...\n", imported, len(snapshots))
	}
	return imported, nil
}

func readSnapshotsFromXLSX(filePath string) ([]model.MenuSnapshot, importSummary, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, importSummary{}, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, importSummary{}, fmt.Errorf("no sheets found in XLSX file")
	}

	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, importSummary{}, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, importSummary{}, fmt.Errorf("no data found in XLSX file")
	}

	snapshots, summary := groupRows(rows[1:])
	return snapshots, summary, nil
}

// groupRows turns item rows into one snapshot per (date, campus, meal),
// keeping first-seen order for menus and row order for items.
func groupRows(rows [][]string) ([]model.MenuSnapshot, importSummary) {
	summary := importSummary{Rows: len(rows)}

	type menuKey struct {
		date     string
		campusID uint
		meal     string
	}
	index := make(map[menuKey]int)
	var snapshots []model.MenuSnapshot

	for _, row := range rows {
		if len(row) < minColumns {
			summary.Skipped++
			continue
		}

		date, ok := normalizeDate(row[colDate])
		if !ok {
			summary.Skipped++
			continue
		}
		campusID, err := strconv.ParseUint(strings.TrimSpace(row[colCampus]), 10, 32)
		if err != nil || campusID == 0 {
			summary.Skipped++
			continue
		}
		meal := strings.TrimSpace(row[colMeal])
		item := strings.TrimSpace(row[colItem])
		if meal == "" || item == "" {
			summary.Skipped++
			continue
		}

		var tags []string
		if len(row) > colTags {
			for _, tag := range strings.Split(row[colTags], ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					tags = append(tags, tag)
				}
			}
		}

		key := menuKey{date: date, campusID: uint(campusID), meal: model.NormalizeKey(meal)}
		i, exists := index[key]
		if !exists {
			i = len(snapshots)
			index[key] = i
			snapshots = append(snapshots, model.MenuSnapshot{
				Date:     date,
				CampusID: uint(campusID),
				MealName: meal,
			})
		}
		snapshots[i].Items = append(snapshots[i].Items, model.SnapshotItem{
			Value:    item,
			Tags:     tags,
			Category: strings.TrimSpace(row[colCategory]),
		})
		summary.Items++
	}

	summary.Snapshots = len(snapshots)
	return snapshots, summary
}

func normalizeDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(model.DateLayout), true
		}
	}
	return "", false
}
