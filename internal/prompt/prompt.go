// Package prompt builds the system and user prompts for each phase of a
// business-cloning analysis. The required JSON keys in each template mirror
// the shape descriptors in internal/schema.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/bizclone/internal/model"
)

// SystemPrompt is the shared system instruction for all generation calls.
const SystemPrompt = `You are an expert business analyst specializing in reverse-engineering online businesses. You produce structured, actionable intelligence for someone planning to build a comparable business.

Rules:
- Return valid JSON for every response, with exactly the keys requested
- Ground every claim in the provided business context; do not invent facts about the specific business
- Be specific: name the business, its market, and concrete numbers wherever possible
- Estimates must include a number and a unit (e.g., "$15,000", "6 weeks"), never vague phrases
- For lists, return JSON arrays of strings unless the requested format says otherwise
- Never emit placeholder text such as "[insert X here]", "TBD", or "lorem ipsum"`

// stageNames gives each generated stage a human-readable label.
var stageNames = map[int]string{
	2: "market deep dive",
	3: "build plan",
	4: "customer acquisition plan",
	5: "monetization plan",
	6: "scale plan",
}

// StageName returns the label for a generated stage, or "" when the stage
// has no generation phase.
func StageName(stage int) string {
	return stageNames[stage]
}

// AnalysisPrompt builds the user prompt for the initial analysis of url.
// Page context is best effort; a nil page still produces a usable prompt.
func AnalysisPrompt(url string, page *model.PageContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Analyze the business at %s for someone who wants to build a comparable business.

`, url)

	if page != nil {
		sb.WriteString("--- First-party page data ---\n")
		if page.Title != "" {
			fmt.Fprintf(&sb, "Title: %s\n", page.Title)
		}
		if page.Description != "" {
			fmt.Fprintf(&sb, "Description: %s\n", page.Description)
		}
		if page.PrimaryHeading != "" {
			fmt.Fprintf(&sb, "Primary heading: %s\n", page.PrimaryHeading)
		}
		if page.TextExcerpt != "" {
			fmt.Fprintf(&sb, "Page excerpt:\n%s\n", page.TextExcerpt)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`Respond with ONLY valid JSON in this format:
{
  "overview": {
    "value_proposition": "<what the business offers and to whom>",
    "target_audience": "<who pays for it>",
    "monetization": "<how it makes money>"
  },
  "market": {
    "competitors": [{"name": "<named competitor>", "positioning": "<how they position>"}],
    "swot": {
      "strengths": [...],
      "weaknesses": [...],
      "opportunities": [...],
      "threats": [...]
    }
  },
  "technical": {
    "stack": ["<detected or likely technology>", ...],
    "confidence": <0.0 to 1.0, how confident you are in the stack detection>
  },
  "data": {
    "metrics": [{"name": "<metric>", "value": "<value if known>", "source": "<where observed>"}]
  },
  "synthesis": {
    "summary": "<2-3 sentence synthesis>",
    "key_insights": [...],
    "next_actions": ["<concrete action starting with a verb>", ...]
  },
  "sources": [{"url": "<absolute URL>", "title": "<page title>"}]
}`)
	return sb.String()
}

// stageTemplates holds the per-stage response format blocks.
var stageTemplates = map[int]string{
	2: `{
  "target_market": {
    "segments": ["<addressable segment>", ...],
    "pain_points": ["<specific pain point>", ...]
  },
  "competitors": [{"name": "<competitor>", "positioning": "<how they position>"}],
  "differentiation": ["<concrete differentiator starting with a verb>", ...],
  "positioning": "<one-sentence positioning statement>",
  "market_size": "<estimate with a number and currency, e.g. \"$2.5B\">"
}`,
	3: `{
  "mvp_features": ["<feature>", ...],
  "tech_stack": ["<technology>", ...],
  "milestones": [{"name": "<milestone>", "estimated_time": "<duration with a number, e.g. \"3 weeks\">"}],
  "estimated_cost": "<total cost with a number and currency, e.g. \"$15,000\">",
  "estimated_time": "<total duration with a number, e.g. \"4 months\">",
  "feasibility_score": <1 to 10>
}`,
	4: `{
  "channels": [{"name": "<channel>", "rationale": "<why it fits this business>"}],
  "content_strategy": ["<content initiative starting with a verb>", ...],
  "launch_tactics": ["<launch tactic starting with a verb>", ...],
  "monthly_budget": "<budget with a number and currency, e.g. \"$2,000/month\">"
}`,
	5: `{
  "revenue_streams": ["<stream>", ...],
  "pricing_model": "<pricing model with concrete price points>",
  "unit_economics": {
    "cac": "<customer acquisition cost with a number and currency>",
    "ltv": "<lifetime value with a number and currency>"
  },
  "year_one_revenue": "<estimate with a number and currency>",
  "success_probability": <0.0 to 1.0>
}`,
	6: `{
  "growth_levers": ["<lever starting with a verb>", ...],
  "hiring_plan": [{"role": "<role>", "timing": "<when, with a number, e.g. \"month 6\">"}],
  "risks": ["<risk>", ...],
  "mitigations": ["<mitigation starting with a verb>", ...],
  "twelve_month_goals": ["<measurable goal>", ...]
}`,
}

// StagePrompt builds the user prompt for generating stage n of rec. The
// initial analysis and any previously completed stages are included as
// context so later stages build on earlier ones.
func StagePrompt(stage int, rec *model.AnalysisRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Produce the %s (stage %d of 6) for cloning the business at %s.

`, stageNames[stage], stage, rec.URL)

	writeAnalysisContext(&sb, rec)
	writeCompletedStages(&sb, rec, stage)

	fmt.Fprintf(&sb, "Respond with ONLY valid JSON in this format:\n%s", stageTemplates[stage])
	return sb.String()
}

// ImprovementPrompt builds the user prompt for the improvement pass over a
// record, which may run at any point after the initial analysis.
func ImprovementPrompt(rec *model.AnalysisRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Review the cloning analysis of %s below and suggest improvements to the plan.

`, rec.URL)

	writeAnalysisContext(&sb, rec)
	writeCompletedStages(&sb, rec, model.LastStage+1)

	sb.WriteString(`Respond with ONLY valid JSON in this format:
{
  "suggestions": ["<improvement starting with a verb>", ...],
  "priorities": ["<highest-impact item first>", ...],
  "quick_wins": ["<achievable within a week>", ...]
}`)
	return sb.String()
}

func writeAnalysisContext(sb *strings.Builder, rec *model.AnalysisRecord) {
	if rec.Analysis == nil {
		return
	}
	sb.WriteString("--- Initial analysis ---\n")
	if data, err := json.MarshalIndent(rec.Analysis, "", "  "); err == nil {
		sb.Write(data)
	}
	sb.WriteString("\n\n")
}

// writeCompletedStages appends completed stage content below the given
// stage, in order, so the prompt stays deterministic.
func writeCompletedStages(sb *strings.Builder, rec *model.AnalysisRecord, below int) {
	for n := model.FirstGeneratedStage; n < below && n <= model.LastStage; n++ {
		sd, ok := rec.Stages[n]
		if !ok || sd.Status != model.StageStatusCompleted {
			continue
		}
		fmt.Fprintf(sb, "--- Stage %d (%s) ---\n", n, stageNames[n])
		if data, err := json.MarshalIndent(sd.Content, "", "  "); err == nil {
			sb.Write(data)
		}
		sb.WriteString("\n\n")
	}
}
