package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/sells-group/bizclone/internal/model"
)

func sampleRecord() *model.AnalysisRecord {
	return &model.AnalysisRecord{
		ID:  "a-1",
		URL: "https://acme.example",
		Analysis: &model.StructuredAnalysis{
			Overview: model.Overview{
				ValueProposition: "Widgets as a service",
				TargetAudience:   "Small manufacturers",
				Monetization:     "Monthly subscription",
			},
		},
		Stages: map[int]model.StageData{
			2: {
				Stage:       2,
				Status:      model.StageStatusCompleted,
				Content:     map[string]any{"positioning": "premium widgets"},
				GeneratedAt: time.Now(),
			},
		},
	}
}

func TestAnalysisPrompt(t *testing.T) {
	page := &model.PageContext{
		Title:       "Acme — Widgets as a Service",
		Description: "Industrial widgets on subscription",
	}
	p := AnalysisPrompt("https://acme.example", page)

	for _, want := range []string{
		"https://acme.example",
		"Acme — Widgets as a Service",
		`"value_proposition"`,
		`"confidence"`,
		`"sources"`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("analysis prompt missing %q", want)
		}
	}
}

func TestAnalysisPrompt_NilPage(t *testing.T) {
	p := AnalysisPrompt("https://acme.example", nil)
	if strings.Contains(p, "First-party page data") {
		t.Error("nil page context should not produce a page data section")
	}
	if !strings.Contains(p, "https://acme.example") {
		t.Error("prompt must still name the target URL")
	}
}

func TestStagePrompt_IncludesPriorContext(t *testing.T) {
	rec := sampleRecord()
	p := StagePrompt(3, rec)

	if !strings.Contains(p, "build plan") {
		t.Error("stage 3 prompt must name the build plan")
	}
	if !strings.Contains(p, "Widgets as a service") {
		t.Error("stage prompt must include the initial analysis")
	}
	if !strings.Contains(p, "premium widgets") {
		t.Error("stage prompt must include completed earlier stages")
	}
	for _, key := range []string{`"mvp_features"`, `"estimated_cost"`, `"feasibility_score"`} {
		if !strings.Contains(p, key) {
			t.Errorf("stage 3 prompt missing key %s", key)
		}
	}
}

func TestStagePrompt_ExcludesLaterStages(t *testing.T) {
	rec := sampleRecord()
	rec.Stages[4] = model.StageData{
		Stage:   4,
		Status:  model.StageStatusCompleted,
		Content: map[string]any{"monthly_budget": "$2,000/month"},
	}

	p := StagePrompt(3, rec)
	if strings.Contains(p, "$2,000/month") {
		t.Error("stage 3 prompt must not include stage 4 content")
	}
}

func TestImprovementPrompt(t *testing.T) {
	rec := sampleRecord()
	p := ImprovementPrompt(rec)

	for _, want := range []string{`"suggestions"`, `"priorities"`, `"quick_wins"`, "premium widgets"} {
		if !strings.Contains(p, want) {
			t.Errorf("improvement prompt missing %q", want)
		}
	}
}

func TestStageName(t *testing.T) {
	if got := StageName(2); got != "market deep dive" {
		t.Errorf("unexpected stage 2 name %q", got)
	}
	if got := StageName(1); got != "" {
		t.Errorf("stage 1 has no generation phase, got %q", got)
	}
}
