package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/sirupsen/logrus"

	"license-classifier/internal/ai"
	"license-classifier/internal/api"
	"license-classifier/internal/classify"
	"license-classifier/internal/store"
)

func main() {
	var (
		inputPath  = flag.String("input", "", "CSV file with license names in the first column")
		dbPath     = flag.String("db", filepath.FromSlash("data/licenses.db"), "Path to SQLite database")
		outputPath = flag.String("output", "", "Optional path to write the JSON results")
		workers    = flag.Int("workers", 0, "Concurrent model calls (0 = auto)")
		model      = flag.String("model", "", "Groq model override (env GROQ_MODEL)")
	)
	flag.Parse()

	if *inputPath == "" {
		logrus.Fatal("-input is required")
	}

	f, err := os.Open(*inputPath)
	if err != nil {
		logrus.Fatalf("open input: %v", err)
	}
	names, err := api.ParseLicenseCSV(f)
	f.Close()
	if err != nil {
		logrus.Fatalf("parse csv: %v", err)
	}

	client, err := ai.NewClient(ai.Config{
		APIKey:  os.Getenv("GROQ_API_KEY"),
		Model:   firstNonEmpty(*model, os.Getenv("GROQ_MODEL")),
		BaseURL: os.Getenv("GROQ_BASE_URL"),
	})
	if err != nil {
		logrus.Fatalf("ai client: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
		logrus.Fatalf("create db directory: %v", err)
	}
	db, err := store.Open(*dbPath, true)
	if err != nil {
		logrus.Fatalf("open database: %v", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator := classify.NewOrchestrator(client, *workers)
	orchestrator.OnResult = func(_ int, outcome classify.Outcome) {
		logrus.WithFields(logrus.Fields{
			"license":  outcome.LicenseName,
			"category": outcome.Category,
			"degraded": outcome.Degraded,
		}).Info("classified")
	}

	outcomes, err := orchestrator.ClassifyBatch(ctx, names)
	if err != nil {
		logrus.Fatalf("classify batch: %v", err)
	}

	for i := range outcomes {
		row := store.Classification{
			LicenseName: outcomes[i].LicenseName,
			Category:    outcomes[i].Category,
			Explanation: outcomes[i].Explanation,
			Degraded:    outcomes[i].Degraded,
		}
		if err := db.SaveClassification(&row); err != nil {
			logrus.Fatalf("save classification %s: %v", row.LicenseName, err)
		}
	}

	if *outputPath != "" {
		payload, err := json.MarshalIndent(outcomes, "", "  ")
		if err != nil {
			logrus.Fatalf("marshal results: %v", err)
		}
		if err := os.WriteFile(*outputPath, payload, 0o644); err != nil {
			logrus.Fatalf("write output: %v", err)
		}
	}

	printSummary(outcomes)
}

func printSummary(outcomes []classify.Outcome) {
	counts := make(map[string]int)
	degraded := 0
	for _, outcome := range outcomes {
		counts[outcome.Category]++
		if outcome.Degraded {
			degraded++
		}
	}

	categories := make([]string, 0, len(counts))
	for category := range counts {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	fmt.Printf("classified %d licenses (%d degraded)\n", len(outcomes), degraded)
	for _, category := range categories {
		fmt.Printf("  %-14s %d\n", category, counts[category])
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
