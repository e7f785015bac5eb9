package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "licenses.db"), true)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})
	return db
}

func TestSaveAndGetClassification(t *testing.T) {
	db := openTestDB(t)

	row := &Classification{
		LicenseName: "Microsoft Office 365",
		Category:    "Productivity",
		Explanation: "Office suite for documents and spreadsheets",
	}
	if err := db.SaveClassification(row); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.GetClassification("Microsoft Office 365")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Category != "Productivity" || got.Explanation != row.Explanation {
		t.Fatalf("unexpected row %+v", got)
	}
}

func TestSaveClassificationUpsert(t *testing.T) {
	db := openTestDB(t)

	first := &Classification{LicenseName: "Slack", Category: "Development", Explanation: "fallback", Degraded: true}
	if err := db.SaveClassification(first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := &Classification{LicenseName: "Slack", Category: "Communication", Explanation: "Team chat and messaging"}
	if err := db.SaveClassification(second); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetClassification("Slack")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Category != "Communication" || got.Degraded {
		t.Fatalf("upsert did not replace row: %+v", got)
	}

	total, err := db.CountClassifications()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 row got %d", total)
	}
}

func TestGetClassificationNotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetClassification("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestDeleteClassification(t *testing.T) {
	db := openTestDB(t)

	row := &Classification{LicenseName: "Figma", Category: "Design", Explanation: "Interface design tool"}
	if err := db.SaveClassification(row); err != nil {
		t.Fatalf("save: %v", err)
	}

	deleted, err := db.DeleteClassification("Figma")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.LicenseName != "Figma" {
		t.Fatalf("unexpected deleted row %+v", deleted)
	}
	if _, err := db.GetClassification("Figma"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete got %v", err)
	}
	if _, err := db.DeleteClassification("Figma"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete got %v", err)
	}
}

func TestStatsQueries(t *testing.T) {
	db := openTestDB(t)

	rows := []Classification{
		{LicenseName: "Zoom", Category: "Communication", Explanation: "Video conferencing"},
		{LicenseName: "Slack", Category: "Communication", Explanation: "Team chat"},
		{LicenseName: "QuickBooks", Category: "Finance", Explanation: "Accounting software"},
	}
	for i := range rows {
		if err := db.SaveClassification(&rows[i]); err != nil {
			t.Fatalf("save %s: %v", rows[i].LicenseName, err)
		}
	}

	total, err := db.CountClassifications()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 got %d", total)
	}

	counts, err := db.CategoryCounts()
	if err != nil {
		t.Fatalf("category counts: %v", err)
	}
	if counts["Communication"] != 2 || counts["Finance"] != 1 {
		t.Fatalf("unexpected distribution %v", counts)
	}

	names, err := db.LicenseNames()
	if err != nil {
		t.Fatalf("license names: %v", err)
	}
	want := []string{"QuickBooks", "Slack", "Zoom"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names got %d", len(want), len(names))
	}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("expected %s at %d got %s", name, i, names[i])
		}
	}
}
