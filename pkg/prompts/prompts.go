// Package prompts renders the system and user prompts for artifact
// generation from an assembled context bundle.
package prompts

import (
	"fmt"
	"strings"

	"github.com/specfoundry/specfoundry/pkg/assembler"
	"github.com/specfoundry/specfoundry/pkg/storage"
)

// typeGuidance holds the per-type authoring instructions.
var typeGuidance = map[string]string{
	"vision":                      "Write a product vision document: the problem, the audience, the differentiators, and what success looks like.",
	"functional-requirements":     "Write the functional requirements: numbered, testable statements of what the system must do, grounded in the vision.",
	"non-functional-requirements": "Write the non-functional requirements: performance, security, reliability, and operability constraints, each measurable.",
	"use-cases":                   "Write one focused use case: actors, preconditions, main flow, alternate flows, and postconditions.",
	"c4-context":                  "Produce a C4 context diagram in Mermaid describing the system, its users, and external dependencies.",
	"c4-container":                "Produce a C4 container diagram in Mermaid decomposing the system into deployable containers and their interactions.",
	"c4-component":                "Produce a C4 component diagram in Mermaid for one container, showing its internal components and their responsibilities.",
}

// Generator renders prompts for generation calls.
type Generator struct{}

// NewGenerator creates a prompt generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// SystemPrompt renders the role and output-format instructions for an
// artifact type. Tag instructions are always included; providers using
// the structured tool strategy additionally advertise their tools, and
// models follow whichever channel the request offers.
func (g *Generator) SystemPrompt(artifactType storage.ArtifactType) string {
	var sb strings.Builder

	sb.WriteString("You are a software architecture assistant producing lifecycle documents for a development project.\n\n")
	sb.WriteString("## Task\n\n")
	if guidance, ok := typeGuidance[artifactType.Slug]; ok {
		sb.WriteString(guidance)
		sb.WriteString("\n")
	} else {
		fmt.Fprintf(&sb, "Write the %s document for the project.\n", artifactType.Name)
	}

	sb.WriteString("\n## Output Format\n\n")
	fmt.Fprintf(&sb, "Write the document in %s.\n", artifactType.Syntax)
	fmt.Fprintf(&sb, "Wrap the complete document body between %s and %s markers.\n",
		artifactType.Format.StartTag, artifactType.Format.EndTag)
	if artifactType.Format.CommentaryStartTag != "" {
		fmt.Fprintf(&sb, "Any remarks about your choices go between %s and %s, outside the document body.\n",
			artifactType.Format.CommentaryStartTag, artifactType.Format.CommentaryEndTag)
	}
	sb.WriteString("If you have been given tools for emitting content and commentary, call them instead of writing markers.\n")

	return sb.String()
}

// UserPrompt renders the dependency context and the user's instruction
// into the request message.
func (g *Generator) UserPrompt(bundle *assembler.ContextBundle) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Project: %s\n", bundle.ProjectName)

	appendSection(&sb, "Vision Document", bundle.Vision)
	appendSection(&sb, "Functional Requirements", bundle.FunctionalRequirements)
	appendSection(&sb, "Non-Functional Requirements", bundle.NonFunctionalRequirements)
	appendList(&sb, "Use Cases", "Use Case", bundle.UseCases)
	appendSection(&sb, "C4 Context", bundle.C4Context)
	appendSection(&sb, "C4 Container", bundle.C4Container)
	appendList(&sb, "C4 Components", "Component", bundle.C4Components)

	if bundle.IsUpdate {
		fmt.Fprintf(&sb, "\n## Current Document: %s\n\n%s\n", bundle.CurrentName, bundle.CurrentContent)
		sb.WriteString("\nRevise the current document according to the instruction below. Emit the complete replacement document, not a diff.\n")
	}

	if bundle.UserMessage != "" {
		fmt.Fprintf(&sb, "\n## Instruction\n\n%s\n", bundle.UserMessage)
	} else if !bundle.IsUpdate {
		fmt.Fprintf(&sb, "\n## Instruction\n\nProduce the %s for this project from the context above.\n", bundle.TypeName)
	}

	return sb.String()
}

func appendSection(sb *strings.Builder, title, content string) {
	if content == "" {
		return
	}
	fmt.Fprintf(sb, "\n## %s\n\n%s\n", title, content)
}

func appendList(sb *strings.Builder, title, itemLabel string, contents []string) {
	if len(contents) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n## %s\n", title)
	for i, content := range contents {
		fmt.Fprintf(sb, "\n### %s %d\n\n%s\n", itemLabel, i+1, content)
	}
}
