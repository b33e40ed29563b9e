package generator

import "github.com/fyrsmithlabs/roadmapd/internal/roadmap"

// defaultPhaseDrafts is the static zero-to-one roadmap used when the model
// is unavailable.
func defaultPhaseDrafts() []phaseDraft {
	return []phaseDraft{
		{
			Title:       "Vision",
			Goal:        "Define what you are building and for whom",
			Description: "Sharpen the project idea into a concrete, testable vision statement.",
		},
		{
			Title:       "Environment Setup",
			Goal:        "Get your tools and workspace ready",
			Description: "Install and configure everything needed to start building.",
		},
		{
			Title:       "Core Loop",
			Goal:        "Build the smallest thing that works end to end",
			Description: "Implement the essential experience before anything optional.",
		},
		{
			Title:       "Expansion",
			Goal:        "Grow the core into a complete product",
			Description: "Layer supporting features onto the working core loop.",
		},
		{
			Title:       "Launch",
			Goal:        "Ship it and tell people",
			Description: "Prepare, release, and announce the first public version.",
		},
	}
}

// defaultSubstepDrafts returns generic substeps scoped to a phase.
func defaultSubstepDrafts(phase roadmap.Phase) []substepDraft {
	return []substepDraft{
		{
			Title:            "Clarify the outcome for " + phase.Title,
			Description:      "Write down what finished looks like for this phase: " + phase.Goal + ".",
			EstimatedMinutes: 20,
		},
		{
			Title:            "Do the core work",
			Description:      "Work through the main task of this phase in one focused session.",
			EstimatedMinutes: 60,
		},
		{
			Title:            "Review and wrap up",
			Description:      "Check the result against the phase goal and note anything to carry forward.",
			EstimatedMinutes: 15,
		},
	}
}
