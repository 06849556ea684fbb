package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360studio/aida/proposal"
)

// Prompt builders assemble each stage's input from the user profile and
// prior stage records. Inputs are embedded as JSON so agents receive exact
// structured context rather than paraphrase.

func asJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// buildProblemFormulationPrompt builds the problem-formulation input. On a
// refinement pass, the quality reviewer's recommendations and the prior
// definition are included so the agent revises rather than restarts.
func buildProblemFormulationPrompt(profile *proposal.UserProfile, feedback string, prior *proposal.ProblemDefinition) string {
	var b strings.Builder

	b.WriteString("Formulate a research problem for the following student profile.\n\n")
	b.WriteString("Student profile:\n")
	b.WriteString(asJSON(profile))
	b.WriteString("\n")

	if feedback != "" {
		b.WriteString("\nA quality review of the previous attempt raised these points:\n")
		b.WriteString(feedback)
		b.WriteString("\n")
		if prior != nil {
			b.WriteString("\nPrevious problem definition to revise:\n")
			b.WriteString(asJSON(prior))
			b.WriteString("\n")
		}
	}

	b.WriteString("\nRespond with a single JSON object containing: ")
	b.WriteString(`"problem_statement", "main_research_question", "secondary_questions", "key_variables".`)
	return b.String()
}

func buildObjectivesPrompt(profile *proposal.UserProfile, problem *proposal.ProblemDefinition) string {
	var b strings.Builder

	b.WriteString("Define research objectives for this problem.\n\n")
	b.WriteString("Student profile:\n")
	b.WriteString(asJSON(profile))
	b.WriteString("\n\nProblem definition:\n")
	b.WriteString(asJSON(problem))
	b.WriteString("\n\nRespond with a single JSON object containing: ")
	b.WriteString(`"general_objective", "specific_objectives", "feasibility_notes", "alignment_check".`)
	return b.String()
}

func buildMethodologyPrompt(profile *proposal.UserProfile, problem *proposal.ProblemDefinition, objectives *proposal.ResearchObjectives) string {
	var b strings.Builder

	b.WriteString("Recommend a research methodology.\n\n")
	b.WriteString("Student profile:\n")
	b.WriteString(asJSON(profile))
	b.WriteString("\n\nProblem definition:\n")
	b.WriteString(asJSON(problem))
	b.WriteString("\n\nResearch objectives:\n")
	b.WriteString(asJSON(objectives))
	b.WriteString("\n\nRespond with a single JSON object containing: ")
	b.WriteString(`"recommended_methodology", "methodology_type", "justification", "required_skills", "alternative_methodologies".`)
	return b.String()
}

func buildDataCollectionPrompt(profile *proposal.UserProfile, objectives *proposal.ResearchObjectives, methodology *proposal.MethodologyRecommendation) string {
	var b strings.Builder

	b.WriteString("Plan data collection for this research.\n\n")
	b.WriteString("Student profile:\n")
	b.WriteString(asJSON(profile))
	b.WriteString("\n\nResearch objectives:\n")
	b.WriteString(asJSON(objectives))
	b.WriteString("\n\nMethodology:\n")
	b.WriteString(asJSON(methodology))
	b.WriteString("\n\nRespond with a single JSON object containing: ")
	b.WriteString(`"collection_techniques", "recommended_tools", "data_sources", "estimated_sample_size", "timeline_breakdown", "resource_requirements".`)
	return b.String()
}

func buildQualityControlPrompt(profile *proposal.UserProfile, problem *proposal.ProblemDefinition, objectives *proposal.ResearchObjectives, methodology *proposal.MethodologyRecommendation, plan *proposal.DataCollectionPlan) string {
	var b strings.Builder

	b.WriteString("Validate the coherence and feasibility of this research proposal.\n\n")
	b.WriteString("Student profile:\n")
	b.WriteString(asJSON(profile))
	b.WriteString("\n\nProblem definition:\n")
	b.WriteString(asJSON(problem))
	b.WriteString("\n\nResearch objectives:\n")
	b.WriteString(asJSON(objectives))
	b.WriteString("\n\nMethodology:\n")
	b.WriteString(asJSON(methodology))
	b.WriteString("\n\nData collection plan:\n")
	b.WriteString(asJSON(plan))
	b.WriteString("\n\nScore coherence and feasibility in [0,1]. ")
	b.WriteString("Respond with a single JSON object containing: ")
	b.WriteString(`"validation_passed", "coherence_score", "feasibility_score", "overall_quality_score", "issues_identified", "recommendations", "requires_refinement", "refinement_targets".`)
	return b.String()
}
