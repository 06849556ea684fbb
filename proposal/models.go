// Package proposal defines the structured records produced by each stage
// of the research-proposal pipeline, the schema validation applied to
// extracted model output, and the final proposal assembly.
package proposal

import (
	"math"
	"time"
)

// Timeline represents the total duration available for the research.
type Timeline struct {
	Value int    `json:"value" validate:"gt=0"`
	Unit  string `json:"unit" validate:"required"` // e.g. "months", "weeks"
}

// UserProfile is the structured profile produced by the intake interview.
// It is external input to the workflow; the engine never modifies it.
type UserProfile struct {
	AcademicProgram   string   `json:"academic_program" yaml:"academic_program" validate:"required"`
	FieldOfStudy      string   `json:"field_of_study" yaml:"field_of_study" validate:"required"`
	ResearchArea      string   `json:"research_area" yaml:"research_area" validate:"required"`
	WeeklyHours       int      `json:"weekly_hours" yaml:"weekly_hours" validate:"gt=0"`
	TotalTimeline     Timeline `json:"total_timeline" yaml:"total_timeline" validate:"required"`
	ExistingSkills    []string `json:"existing_skills,omitempty" yaml:"existing_skills,omitempty"`
	MissingSkills     []string `json:"missing_skills,omitempty" yaml:"missing_skills,omitempty"`
	Constraints       []string `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	AdditionalContext string   `json:"additional_context,omitempty" yaml:"additional_context,omitempty"`
}

// LiteratureEntry is a single literature pointer surfaced during problem
// formulation. Relevance scoring happens upstream; entries arrive ranked.
type LiteratureEntry struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	RelevanceNote string `json:"relevance_note,omitempty"`
	Source        string `json:"source,omitempty"`
}

// ProblemDefinition is the output of the problem-formulation stage.
type ProblemDefinition struct {
	ProblemStatement       string            `json:"problem_statement" validate:"required"`
	MainResearchQuestion   string            `json:"main_research_question" validate:"required"`
	SecondaryQuestions     []string          `json:"secondary_questions,omitempty"`
	KeyVariables           []string          `json:"key_variables,omitempty"`
	PreliminaryLiterature  []LiteratureEntry `json:"preliminary_literature,omitempty"`
}

// ResearchObjectives is the output of the objectives stage.
type ResearchObjectives struct {
	GeneralObjective   string         `json:"general_objective" validate:"required"`
	SpecificObjectives []string       `json:"specific_objectives" validate:"min=1"`
	FeasibilityNotes   map[string]any `json:"feasibility_notes,omitempty"`
	AlignmentCheck     map[string]any `json:"alignment_check,omitempty"`
}

// MethodologyRecommendation is the output of the methodology stage.
type MethodologyRecommendation struct {
	RecommendedMethodology   string           `json:"recommended_methodology" validate:"required"`
	MethodologyType          string           `json:"methodology_type" validate:"required"`
	Justification            string           `json:"justification,omitempty"`
	RequiredSkills           []string         `json:"required_skills,omitempty"`
	TimelineFit              map[string]any   `json:"timeline_fit,omitempty"`
	AlternativeMethodologies []map[string]any `json:"alternative_methodologies,omitempty"`
}

// DataCollectionPlan is the output of the data-collection stage.
type DataCollectionPlan struct {
	CollectionTechniques []string         `json:"collection_techniques" validate:"min=1"`
	RecommendedTools     []map[string]any `json:"recommended_tools,omitempty"`
	DataSources          []string         `json:"data_sources,omitempty"`
	EstimatedSampleSize  string           `json:"estimated_sample_size,omitempty"`
	TimelineBreakdown    map[string]any   `json:"timeline_breakdown" validate:"required"`
	ResourceRequirements []string         `json:"resource_requirements,omitempty"`
}

// IssueSeverityCritical marks an issue that blocks validation outright.
const IssueSeverityCritical = "critical"

// Issue is a single problem found during quality validation.
type Issue struct {
	Component   string `json:"component,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description,omitempty"`
}

// QualityValidation is the output of the quality-control stage.
type QualityValidation struct {
	ValidationPassed    bool     `json:"validation_passed"`
	CoherenceScore      float64  `json:"coherence_score" validate:"gte=0,lte=1"`
	FeasibilityScore    float64  `json:"feasibility_score" validate:"gte=0,lte=1"`
	OverallQualityScore int      `json:"overall_quality_score"`
	IssuesIdentified    []Issue  `json:"issues_identified,omitempty"`
	Recommendations     []string `json:"recommendations,omitempty"`
	RequiresRefinement  bool     `json:"requires_refinement"`
	RefinementTargets   []string `json:"refinement_targets,omitempty"`
}

// minPassingScore is the floor both component scores must clear for a
// proposal to pass validation.
const minPassingScore = 0.65

// HasCriticalIssue reports whether any identified issue is critical.
func (q *QualityValidation) HasCriticalIssue() bool {
	for _, issue := range q.IssuesIdentified {
		if issue.Severity == IssueSeverityCritical {
			return true
		}
	}
	return false
}

// Normalize recomputes the derived fields from the component scores and
// enforces the pass invariant. The model-reported overall score is always
// replaced; a "passed" verdict that violates the invariant (a component
// score below the floor, or a critical issue) is downgraded to a failed
// verdict with refinement requested.
func (q *QualityValidation) Normalize() {
	q.OverallQualityScore = OverallScore(q.CoherenceScore, q.FeasibilityScore)

	if q.ValidationPassed {
		if q.CoherenceScore < minPassingScore ||
			q.FeasibilityScore < minPassingScore ||
			q.HasCriticalIssue() {
			q.ValidationPassed = false
			q.RequiresRefinement = true
		}
	}
}

// OverallScore combines coherence and feasibility into a 0-100 integer:
// round(((coherence+feasibility)/2)*100).
func OverallScore(coherence, feasibility float64) int {
	return int(math.Round((coherence + feasibility) / 2 * 100))
}

// Proposal is the assembled final document: the profile plus every stage
// record, stamped with a generation time.
type Proposal struct {
	UserProfile        *UserProfile               `json:"user_profile"`
	ProblemDefinition  *ProblemDefinition         `json:"problem_definition"`
	ResearchObjectives *ResearchObjectives        `json:"research_objectives"`
	Methodology        *MethodologyRecommendation `json:"methodology"`
	DataCollectionPlan *DataCollectionPlan        `json:"data_collection_plan"`
	QualityValidation  *QualityValidation         `json:"quality_validation"`
	GeneratedAt        time.Time                  `json:"generated_at"`
}
