package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// stubClassifier scripts completions and failures per license name.
type stubClassifier struct {
	responses map[string]string
	errs      map[string]error
}

func (s *stubClassifier) Enabled() bool { return true }

func (s *stubClassifier) Classify(_ context.Context, _, userPrompt string) (string, error) {
	name := licenseFromPrompt(userPrompt)
	if err, ok := s.errs[name]; ok {
		return "", err
	}
	if raw, ok := s.responses[name]; ok {
		return raw, nil
	}
	return "", fmt.Errorf("unscripted license %q", name)
}

func licenseFromPrompt(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "Software License: ") {
			return strings.TrimPrefix(line, "Software License: ")
		}
	}
	return ""
}

func TestClassifyOne(t *testing.T) {
	client := &stubClassifier{
		responses: map[string]string{
			"Microsoft Office 365": "Category: Productivity\nExplanation: Office suite for documents and spreadsheets",
		},
	}
	orch := NewOrchestrator(client, 1)

	outcome, err := orch.ClassifyOne(context.Background(), "Microsoft Office 365")
	if err != nil {
		t.Fatalf("classify one: %v", err)
	}
	if outcome.Category != "Productivity" {
		t.Fatalf("expected Productivity got %s", outcome.Category)
	}
	if outcome.Explanation != "Office suite for documents and spreadsheets" {
		t.Fatalf("unexpected explanation %q", outcome.Explanation)
	}
	if outcome.Degraded {
		t.Fatal("successful classification marked degraded")
	}
}

func TestClassifyOneTruncatesLongExplanation(t *testing.T) {
	long := strings.Repeat("z", 200)
	client := &stubClassifier{
		responses: map[string]string{
			"Figma": "Category: Design\nExplanation: " + long,
		},
	}
	orch := NewOrchestrator(client, 1)

	outcome, err := orch.ClassifyOne(context.Background(), "Figma")
	if err != nil {
		t.Fatalf("classify one: %v", err)
	}
	if got := len([]rune(outcome.Explanation)); got != MaxExplanationLength {
		t.Fatalf("expected %d chars got %d", MaxExplanationLength, got)
	}
	if !strings.HasSuffix(outcome.Explanation, "...") {
		t.Fatal("truncated explanation does not end with ellipsis")
	}
	if outcome.Explanation[:147] != long[:147] {
		t.Fatal("retained prefix does not match model output")
	}
}

func TestClassifyOneModelFailure(t *testing.T) {
	client := &stubClassifier{
		errs: map[string]error{"Slack": errors.New("connection refused")},
	}
	orch := NewOrchestrator(client, 1)

	outcome, err := orch.ClassifyOne(context.Background(), "Slack")
	if err != nil {
		t.Fatalf("model failure must not surface as error: %v", err)
	}
	if !outcome.Degraded {
		t.Fatal("expected degraded outcome")
	}
	if outcome.Category != DefaultCategory {
		t.Fatalf("expected %s got %s", DefaultCategory, outcome.Category)
	}
	if len([]rune(outcome.Explanation)) > MaxExplanationLength {
		t.Fatalf("fallback explanation exceeds limit: %d", len([]rune(outcome.Explanation)))
	}
	if outcome.FailureReason == "" {
		t.Fatal("expected failure reason on degraded outcome")
	}
}

func TestClassifyOneUnknownCategory(t *testing.T) {
	client := &stubClassifier{
		responses: map[string]string{
			"Notion": "Category: Misc\nExplanation: Something uncategorizable",
		},
	}
	orch := NewOrchestrator(client, 1)

	outcome, err := orch.ClassifyOne(context.Background(), "Notion")
	if err != nil {
		t.Fatalf("interpretation failure must not surface as error: %v", err)
	}
	if !outcome.Degraded || outcome.Category != DefaultCategory {
		t.Fatalf("expected degraded %s outcome, got %+v", DefaultCategory, outcome)
	}
}

func TestClassifyOneEmptyName(t *testing.T) {
	orch := NewOrchestrator(&stubClassifier{}, 1)
	if _, err := orch.ClassifyOne(context.Background(), "   "); !errors.Is(err, ErrEmptyLicense) {
		t.Fatalf("expected ErrEmptyLicense got %v", err)
	}
}

func TestClassifyBatchOrderAndIsolation(t *testing.T) {
	names := []string{"Zoom", "Broken A", "QuickBooks", "Broken B", "HubSpot"}
	client := &stubClassifier{
		responses: map[string]string{
			"Zoom":       "Category: Communication\nExplanation: Video conferencing and meetings",
			"QuickBooks": "Category: Finance\nExplanation: Accounting software for small businesses",
			"HubSpot":    "Category: Marketing\nExplanation: Inbound marketing and CRM platform",
		},
		errs: map[string]error{
			"Broken A": errors.New("timeout"),
			"Broken B": errors.New("rate limited"),
		},
	}
	orch := NewOrchestrator(client, 3)

	outcomes, err := orch.ClassifyBatch(context.Background(), names)
	if err != nil {
		t.Fatalf("classify batch: %v", err)
	}
	if len(outcomes) != len(names) {
		t.Fatalf("expected %d outcomes got %d", len(names), len(outcomes))
	}
	for i, outcome := range outcomes {
		if outcome.LicenseName != names[i] {
			t.Fatalf("output order broken at %d: expected %q got %q", i, names[i], outcome.LicenseName)
		}
	}

	wantCategories := []string{"Communication", DefaultCategory, "Finance", DefaultCategory, "Marketing"}
	for i, want := range wantCategories {
		if outcomes[i].Category != want {
			t.Fatalf("item %d: expected %s got %s", i, want, outcomes[i].Category)
		}
	}
	if !outcomes[1].Degraded || !outcomes[3].Degraded {
		t.Fatal("failed items must be degraded")
	}
	if outcomes[0].Degraded || outcomes[2].Degraded || outcomes[4].Degraded {
		t.Fatal("successful items must not be degraded")
	}
}

func TestClassifyBatchEmpty(t *testing.T) {
	orch := NewOrchestrator(&stubClassifier{}, 1)
	if _, err := orch.ClassifyBatch(context.Background(), nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch got %v", err)
	}
}

func TestClassifyBatchOnResult(t *testing.T) {
	names := []string{"Zoom", "Figma"}
	client := &stubClassifier{
		responses: map[string]string{
			"Zoom":  "Category: Communication\nExplanation: Video conferencing and meetings",
			"Figma": "Category: Design\nExplanation: Collaborative interface design tool",
		},
	}
	orch := NewOrchestrator(client, 2)

	var mu sync.Mutex
	seen := make(map[int]string)
	orch.OnResult = func(index int, outcome Outcome) {
		mu.Lock()
		seen[index] = outcome.LicenseName
		mu.Unlock()
	}

	if _, err := orch.ClassifyBatch(context.Background(), names); err != nil {
		t.Fatalf("classify batch: %v", err)
	}
	if len(seen) != len(names) {
		t.Fatalf("expected %d callbacks got %d", len(names), len(seen))
	}
	for i, name := range names {
		if seen[i] != name {
			t.Fatalf("callback index %d: expected %q got %q", i, name, seen[i])
		}
	}
}

func TestClassifyBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := NewOrchestrator(&stubClassifier{}, 1)
	if _, err := orch.ClassifyBatch(ctx, []string{"Zoom"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled got %v", err)
	}
}
