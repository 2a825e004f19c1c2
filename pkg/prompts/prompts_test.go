package prompts

import (
	"strings"
	"testing"

	"github.com/specfoundry/specfoundry/pkg/assembler"
	"github.com/specfoundry/specfoundry/pkg/parser"
	"github.com/specfoundry/specfoundry/pkg/storage"
)

func visionType() storage.ArtifactType {
	return storage.ArtifactType{
		Name:   storage.TypeVision,
		Slug:   "vision",
		Syntax: "markdown",
		Format: parser.TagFormat{
			StartTag:           "[VISION]",
			EndTag:             "[/VISION]",
			CommentaryStartTag: "[COMMENTARY]",
			CommentaryEndTag:   "[/COMMENTARY]",
		},
	}
}

func TestSystemPromptCarriesTagInstructions(t *testing.T) {
	g := NewGenerator()
	prompt := g.SystemPrompt(visionType())

	for _, want := range []string{"[VISION]", "[/VISION]", "[COMMENTARY]", "markdown"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestUserPromptIncludesOnlyPresentSections(t *testing.T) {
	g := NewGenerator()
	prompt := g.UserPrompt(&assembler.ContextBundle{
		ProjectName: "Demo",
		TypeName:    storage.TypeC4Context,
		Vision:      "the vision",
		UseCases:    []string{"uc one", "uc two"},
	})

	for _, want := range []string{"Project: Demo", "## Vision Document", "the vision", "### Use Case 2", "uc two"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "## C4 Container") {
		t.Fatal("empty sections must be omitted")
	}
}

func TestUserPromptUpdateIncludesCurrentDocument(t *testing.T) {
	g := NewGenerator()
	prompt := g.UserPrompt(&assembler.ContextBundle{
		ProjectName:    "Demo",
		TypeName:       storage.TypeVision,
		IsUpdate:       true,
		CurrentName:    "Vision",
		CurrentContent: "draft one",
		UserMessage:    "shorter please",
	})

	for _, want := range []string{"## Current Document: Vision", "draft one", "complete replacement document", "shorter please"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("update prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestUserPromptKickoffDefaultInstruction(t *testing.T) {
	g := NewGenerator()
	prompt := g.UserPrompt(&assembler.ContextBundle{
		ProjectName: "Demo",
		TypeName:    storage.TypeVision,
	})
	if !strings.Contains(prompt, "Produce the Vision Document") {
		t.Fatalf("kickoff prompt missing default instruction:\n%s", prompt)
	}
}
