// Package model provides capability-based model selection for workflow
// stages. Instead of hardcoding model names, stages specify capabilities
// (formulation, validation, drafting) and the registry resolves them to
// available endpoints with fallback chains.
package model

// Capability represents a semantic capability for model selection.
// Instead of specifying "gemini-flash", stages specify "formulation" or
// "validation".
type Capability string

const (
	// CapabilityFormulation is for problem analysis and research-question
	// framing.
	CapabilityFormulation Capability = "formulation"

	// CapabilityDrafting is for structured writing: objectives, plans,
	// recommendations.
	CapabilityDrafting Capability = "drafting"

	// CapabilityReasoning is for methodology selection and trade-off
	// analysis.
	CapabilityReasoning Capability = "reasoning"

	// CapabilityValidation is for quality review and scoring.
	CapabilityValidation Capability = "validation"

	// CapabilityFast is for quick responses, simple tasks.
	CapabilityFast Capability = "fast"
)

// StageCapabilities maps proposal stages to their default capability.
// Used when an agent definition carries no explicit capability.
var StageCapabilities = map[string]Capability{
	"problem_formulation": CapabilityFormulation,
	"objectives":          CapabilityDrafting,
	"methodology":         CapabilityReasoning,
	"data_collection":     CapabilityDrafting,
	"quality_control":     CapabilityValidation,
}

// CapabilityForStage returns the default capability for a stage.
// Returns CapabilityDrafting as fallback for unknown stages.
func CapabilityForStage(stage string) Capability {
	if c, ok := StageCapabilities[stage]; ok {
		return c
	}
	return CapabilityDrafting
}

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityFormulation, CapabilityDrafting, CapabilityReasoning,
		CapabilityValidation, CapabilityFast:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for
// invalid values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}
