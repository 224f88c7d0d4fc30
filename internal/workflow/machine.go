// Package workflow enforces the six-stage progression of a cloning
// analysis. Stage 1 is synthesized from the initial analysis; stages 2-6
// are generated in order unless the caller explicitly regenerates.
package workflow

import (
	"time"

	"github.com/sells-group/bizclone/internal/fault"
	"github.com/sells-group/bizclone/internal/model"
)

// CheckProgression rejects a stage request before any provider call is
// made. A regenerate request bypasses the ordering check only.
func CheckProgression(rec *model.AnalysisRecord, stage int, regenerate bool) error {
	if stage < model.FirstGeneratedStage || stage > model.LastStage {
		return fault.Newf(fault.KindValidation,
			"stage %d out of range: stages %d-%d are generated on demand",
			stage, model.FirstGeneratedStage, model.LastStage)
	}

	// No stage work is accepted before the initial analysis exists.
	if rec.Analysis == nil {
		return fault.New(fault.KindValidation,
			"analysis record has no structured analysis; run the initial analysis first")
	}

	if regenerate {
		return nil
	}

	if prev := stage - 1; !rec.StageCompleted(prev) {
		return fault.Newf(fault.KindProgressionViolation,
			"stage %d requires stage %d to be completed first", stage, prev).
			WithDiagnostic("requested_stage", stage).
			WithDiagnostic("blocking_stage", prev)
	}
	return nil
}

// Complete produces the persisted StageData for a successful generation.
// Failed generations never produce a record: the analysis keeps its prior
// state and no in_progress entry is ever persisted as a terminal outcome.
func Complete(stage int, content map[string]any, now time.Time) model.StageData {
	return model.StageData{
		Stage:       stage,
		Status:      model.StageStatusCompleted,
		Content:     content,
		GeneratedAt: now,
	}
}

// NextStage returns the stage the caller should request next, or 0 after
// the final stage.
func NextStage(stage int) int {
	if stage >= model.LastStage {
		return 0
	}
	return stage + 1
}

// Progress summarizes per-stage status for presentation. Stage 1 reports
// completed whenever the initial analysis exists; ungenerated stages
// report pending.
func Progress(rec *model.AnalysisRecord) map[int]model.StageStatus {
	out := make(map[int]model.StageStatus, model.LastStage)
	if rec.Analysis != nil {
		out[1] = model.StageStatusCompleted
	} else {
		out[1] = model.StageStatusPending
	}
	for n := model.FirstGeneratedStage; n <= model.LastStage; n++ {
		if sd, ok := rec.Stages[n]; ok {
			out[n] = sd.Status
		} else {
			out[n] = model.StageStatusPending
		}
	}
	return out
}
