// Package schema validates semi-structured provider output against
// declarative shape descriptors. One registry entry per content kind keeps
// stage requirements out of request-handling code; a single generic
// validator walks whichever descriptor applies.
package schema

// Kind identifies which shape a piece of content must satisfy.
type Kind string

const (
	KindAnalysis    Kind = "analysis"
	KindStage2      Kind = "stage2"
	KindStage3      Kind = "stage3"
	KindStage4      Kind = "stage4"
	KindStage5      Kind = "stage5"
	KindStage6      Kind = "stage6"
	KindImprovement Kind = "improvement"
)

// KindForStage maps a workflow stage number to its content kind.
// Returns "" for stages that are never generated (including stage 1).
func KindForStage(stage int) Kind {
	switch stage {
	case 2:
		return KindStage2
	case 3:
		return KindStage3
	case 4:
		return KindStage4
	case 5:
		return KindStage5
	case 6:
		return KindStage6
	default:
		return ""
	}
}

// FieldType describes the expected JSON type of a field.
type FieldType int

const (
	TypeString FieldType = iota
	TypeNumber
	TypeList
	TypeObject
)

// EstimateUnit tags estimate-bearing string fields for realism scoring.
type EstimateUnit string

const (
	EstimateNone     EstimateUnit = ""
	EstimateMoney    EstimateUnit = "money"
	EstimateDuration EstimateUnit = "duration"
)

// Field is one required field in a shape. All listed fields must be present
// and non-null; lists and strings must additionally be non-empty.
type Field struct {
	Name      string
	Type      FieldType
	Subfields []Field // required members of an object field
	Elem      []Field // required members of each element in a list of objects

	// Min/Max bound numeric fields. Out-of-range values are hard errors.
	Min, Max *float64

	// URL marks string fields that must parse as absolute URLs.
	URL bool

	// Estimate marks fields scored by the estimate-realism quality check.
	Estimate EstimateUnit

	// Optional fields are validated when present but their absence is only
	// a warning, not an error.
	Optional bool
}

// Shape is the required-field descriptor for one content kind.
type Shape struct {
	Name   string
	Fields []Field
}

func bounds(lo, hi float64) (*float64, *float64) {
	return &lo, &hi
}

// analysisShape is the enhanced initial-analysis shape: adds confidence
// scoring and source citations over the legacy shape.
var analysisShape = Shape{
	Name: "analysis",
	Fields: []Field{
		{Name: "overview", Type: TypeObject, Subfields: []Field{
			{Name: "value_proposition", Type: TypeString},
			{Name: "target_audience", Type: TypeString},
			{Name: "monetization", Type: TypeString},
		}},
		{Name: "market", Type: TypeObject, Subfields: []Field{
			{Name: "competitors", Type: TypeList},
			{Name: "swot", Type: TypeObject, Subfields: []Field{
				{Name: "strengths", Type: TypeList},
				{Name: "weaknesses", Type: TypeList},
				{Name: "opportunities", Type: TypeList},
				{Name: "threats", Type: TypeList},
			}},
		}},
		{Name: "technical", Type: TypeObject, Subfields: []Field{
			{Name: "stack", Type: TypeList},
			{
				Name: "confidence",
				Type: TypeNumber,
				Min:  f64(0), Max: f64(1),
			},
		}},
		{Name: "data", Type: TypeObject, Subfields: []Field{
			{Name: "metrics", Type: TypeList},
		}},
		{Name: "synthesis", Type: TypeObject, Subfields: []Field{
			{Name: "summary", Type: TypeString},
			{Name: "key_insights", Type: TypeList},
			{Name: "next_actions", Type: TypeList},
		}},
		{Name: "sources", Type: TypeList, Elem: []Field{
			{Name: "url", Type: TypeString, URL: true},
		}},
	},
}

// legacyAnalysisShape is the compatibility fallback: no confidence score,
// no source citations.
var legacyAnalysisShape = Shape{
	Name: "analysis_legacy",
	Fields: []Field{
		{Name: "overview", Type: TypeObject, Subfields: []Field{
			{Name: "value_proposition", Type: TypeString},
			{Name: "target_audience", Type: TypeString},
			{Name: "monetization", Type: TypeString},
		}},
		{Name: "market", Type: TypeObject, Subfields: []Field{
			{Name: "competitors", Type: TypeList},
			{Name: "swot", Type: TypeObject, Subfields: []Field{
				{Name: "strengths", Type: TypeList},
				{Name: "weaknesses", Type: TypeList},
				{Name: "opportunities", Type: TypeList},
				{Name: "threats", Type: TypeList},
			}},
		}},
		{Name: "technical", Type: TypeObject, Subfields: []Field{
			{Name: "stack", Type: TypeList},
		}},
		{Name: "synthesis", Type: TypeObject, Subfields: []Field{
			{Name: "summary", Type: TypeString},
			{Name: "key_insights", Type: TypeList},
			{Name: "next_actions", Type: TypeList},
		}},
	},
}

var stageShapes = map[Kind]Shape{
	KindStage2: {
		Name: "market_deep_dive",
		Fields: []Field{
			{Name: "target_market", Type: TypeObject, Subfields: []Field{
				{Name: "segments", Type: TypeList},
				{Name: "pain_points", Type: TypeList},
			}},
			{Name: "competitors", Type: TypeList, Elem: []Field{
				{Name: "name", Type: TypeString},
			}},
			{Name: "differentiation", Type: TypeList},
			{Name: "positioning", Type: TypeString},
			{Name: "market_size", Type: TypeString, Optional: true, Estimate: EstimateMoney},
		},
	},
	KindStage3: {
		Name: "build_plan",
		Fields: []Field{
			{Name: "mvp_features", Type: TypeList},
			{Name: "tech_stack", Type: TypeList},
			{Name: "milestones", Type: TypeList, Elem: []Field{
				{Name: "name", Type: TypeString},
				{Name: "estimated_time", Type: TypeString, Estimate: EstimateDuration},
			}},
			{Name: "estimated_cost", Type: TypeString, Estimate: EstimateMoney},
			{Name: "estimated_time", Type: TypeString, Estimate: EstimateDuration},
			{
				Name: "feasibility_score",
				Type: TypeNumber,
				Min:  f64(1), Max: f64(10),
			},
		},
	},
	KindStage4: {
		Name: "acquisition_plan",
		Fields: []Field{
			{Name: "channels", Type: TypeList, Elem: []Field{
				{Name: "name", Type: TypeString},
			}},
			{Name: "content_strategy", Type: TypeList},
			{Name: "launch_tactics", Type: TypeList},
			{Name: "monthly_budget", Type: TypeString, Estimate: EstimateMoney},
		},
	},
	KindStage5: {
		Name: "monetization_plan",
		Fields: []Field{
			{Name: "revenue_streams", Type: TypeList},
			{Name: "pricing_model", Type: TypeString},
			{Name: "unit_economics", Type: TypeObject, Subfields: []Field{
				{Name: "cac", Type: TypeString, Estimate: EstimateMoney},
				{Name: "ltv", Type: TypeString, Estimate: EstimateMoney},
			}},
			{Name: "year_one_revenue", Type: TypeString, Estimate: EstimateMoney},
			{
				Name: "success_probability",
				Type: TypeNumber,
				Min:  f64(0), Max: f64(1),
			},
		},
	},
	KindStage6: {
		Name: "scale_plan",
		Fields: []Field{
			{Name: "growth_levers", Type: TypeList},
			{Name: "hiring_plan", Type: TypeList, Elem: []Field{
				{Name: "role", Type: TypeString},
				{Name: "timing", Type: TypeString, Estimate: EstimateDuration},
			}},
			{Name: "risks", Type: TypeList},
			{Name: "mitigations", Type: TypeList},
			{Name: "twelve_month_goals", Type: TypeList},
		},
	},
	KindImprovement: {
		Name: "improvement",
		Fields: []Field{
			{Name: "suggestions", Type: TypeList},
			{Name: "priorities", Type: TypeList},
			{Name: "quick_wins", Type: TypeList},
		},
	},
}

// ShapeFor returns the primary descriptor for a kind, or false when the
// kind is unknown.
func ShapeFor(kind Kind) (Shape, bool) {
	if kind == KindAnalysis {
		return analysisShape, true
	}
	s, ok := stageShapes[kind]
	return s, ok
}

// LegacyShapeFor returns the compatibility fallback for a kind, if any.
// Only the initial analysis has one.
func LegacyShapeFor(kind Kind) (Shape, bool) {
	if kind == KindAnalysis {
		return legacyAnalysisShape, true
	}
	return Shape{}, false
}

// EstimateFields returns the estimate-tagged fields of a shape as dotted
// paths, used by the estimate-realism quality check. List-element fields
// use the path "list.elem".
func EstimateFields(shape Shape) []EstimatePath {
	var out []EstimatePath
	var walk func(prefix string, fields []Field)
	walk = func(prefix string, fields []Field) {
		for _, f := range fields {
			path := f.Name
			if prefix != "" {
				path = prefix + "." + f.Name
			}
			if f.Estimate != EstimateNone || f.Min != nil || f.Max != nil {
				out = append(out, EstimatePath{
					Path: path,
					Unit: f.Estimate,
					Min:  f.Min,
					Max:  f.Max,
				})
			}
			walk(path, f.Subfields)
			for _, e := range f.Elem {
				elemPath := path + "[]"
				if e.Estimate != EstimateNone || e.Min != nil || e.Max != nil {
					out = append(out, EstimatePath{
						Path: elemPath + "." + e.Name,
						Unit: e.Estimate,
						Min:  e.Min,
						Max:  e.Max,
					})
				}
			}
		}
	}
	walk("", shape.Fields)
	return out
}

// EstimatePath locates one estimate-bearing field inside a shape.
type EstimatePath struct {
	Path string
	Unit EstimateUnit
	Min  *float64
	Max  *float64
}

func f64(v float64) *float64 { return &v }
