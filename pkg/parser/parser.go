// Package parser normalizes raw model output into an artifact-content /
// commentary pair. Two strategies feed the same result shape: free text
// wrapped in per-type delimiter tags, and structured tool calls carrying
// the content as arguments.
package parser

import (
	"encoding/json"
	"strings"

	"github.com/specfoundry/specfoundry/pkg/errors"
)

// TagFormat describes the textual delimiters an artifact type uses in
// free-text model output.
type TagFormat struct {
	StartTag           string `json:"start_tag"`
	EndTag             string `json:"end_tag"`
	CommentaryStartTag string `json:"commentary_start_tag,omitempty"`
	CommentaryEndTag   string `json:"commentary_end_tag,omitempty"`
}

// ParsedResponse is the normalized parse result.
type ParsedResponse struct {
	RawResponse     string `json:"raw_response"`
	ArtifactContent string `json:"artifact_content"`
	Commentary      string `json:"commentary"`
}

// Tool operation names the structured strategy recognizes.
const (
	ToolEmitArtifactContent = "emit_artifact_content"
	ToolEmitCommentary      = "emit_commentary"
)

// ToolInvocation is one structured call emitted by the model.
type ToolInvocation struct {
	Name      string
	Arguments string // JSON string, usually {"content": "..."}
}

// HasValidArtifactContent reports whether raw contains a usable
// (start, end) tag pair. The start tag must occur strictly before the
// end tag; reversed or partial pairs count as absent content, not as
// malformed input.
func HasValidArtifactContent(raw string, format TagFormat) bool {
	if format.StartTag == "" || format.EndTag == "" {
		return false
	}
	start := strings.Index(raw, format.StartTag)
	if start < 0 {
		return false
	}
	end := strings.LastIndex(raw, format.EndTag)
	if end < 0 {
		return false
	}
	return start+len(format.StartTag) <= end
}

// ExtractContentAndCommentary applies the tag-delimited strategy.
//
// The artifact span runs from the first start tag to the last end tag;
// markers of any intermediate pairs are kept verbatim inside the
// extracted content. That span selection is long-standing observed
// behavior and callers depend on it, so it is not "fixed" here.
//
// Commentary comes from the configured commentary tag pair when present,
// otherwise from the text outside the artifact span (trimmed segments
// joined with a blank line). When no valid artifact span exists the
// whole raw text becomes commentary and the content is empty; deciding
// whether that is an error is ValidateAndFormatResponse's job.
func ExtractContentAndCommentary(raw string, format TagFormat) ParsedResponse {
	result := ParsedResponse{RawResponse: raw}

	if !HasValidArtifactContent(raw, format) {
		result.Commentary = strings.TrimSpace(raw)
		return result
	}

	start := strings.Index(raw, format.StartTag)
	end := strings.LastIndex(raw, format.EndTag)
	result.ArtifactContent = raw[start+len(format.StartTag) : end]

	before := raw[:start]
	after := raw[end+len(format.EndTag):]

	if commentary, ok := extractCommentarySpan(before+after, format); ok {
		result.Commentary = commentary
		return result
	}

	var parts []string
	for _, segment := range []string{before, after} {
		segment = stripCommentaryTags(segment, format)
		if trimmed := strings.TrimSpace(segment); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	result.Commentary = strings.Join(parts, "\n\n")
	return result
}

// extractCommentarySpan pulls the configured commentary pair out of text,
// if both tags are configured and present in order.
func extractCommentarySpan(text string, format TagFormat) (string, bool) {
	if format.CommentaryStartTag == "" || format.CommentaryEndTag == "" {
		return "", false
	}
	start := strings.Index(text, format.CommentaryStartTag)
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(text, format.CommentaryEndTag)
	if end < 0 || start+len(format.CommentaryStartTag) > end {
		return "", false
	}
	return strings.TrimSpace(text[start+len(format.CommentaryStartTag) : end]), true
}

// stripCommentaryTags removes bare commentary markers so fallback
// commentary does not re-embed them.
func stripCommentaryTags(text string, format TagFormat) string {
	if format.CommentaryStartTag != "" {
		text = strings.ReplaceAll(text, format.CommentaryStartTag, "")
	}
	if format.CommentaryEndTag != "" {
		text = strings.ReplaceAll(text, format.CommentaryEndTag, "")
	}
	return text
}

// toolArgument is the single-string-argument payload both emit
// operations carry.
type toolArgument struct {
	Content string `json:"content"`
}

// ExtractFromToolCalls applies the structured tool-call strategy. Free
// text segments the model produced alongside its calls arrive in
// textSegments and are concatenated as additional commentary.
func ExtractFromToolCalls(raw string, calls []ToolInvocation, textSegments []string) ParsedResponse {
	result := ParsedResponse{RawResponse: raw}

	var commentaryParts []string
	for _, call := range calls {
		content := decodeToolArgument(call.Arguments)
		switch call.Name {
		case ToolEmitArtifactContent:
			result.ArtifactContent = content
		case ToolEmitCommentary:
			if content != "" {
				commentaryParts = append(commentaryParts, content)
			}
		}
	}

	for _, segment := range textSegments {
		if trimmed := strings.TrimSpace(segment); trimmed != "" {
			commentaryParts = append(commentaryParts, trimmed)
		}
	}

	result.Commentary = strings.Join(commentaryParts, "\n\n")
	return result
}

// decodeToolArgument decodes {"content": "..."}. Models occasionally
// emit the bare string instead of the wrapper object; accept both.
func decodeToolArgument(arguments string) string {
	arguments = strings.TrimSpace(arguments)
	if arguments == "" {
		return ""
	}

	var arg toolArgument
	if err := json.Unmarshal([]byte(arguments), &arg); err == nil && arg.Content != "" {
		return arg.Content
	}

	var bare string
	if err := json.Unmarshal([]byte(arguments), &bare); err == nil {
		return bare
	}

	return arguments
}

// ValidateAndFormatResponse enforces the minimum content rule. An update
// must always produce replacement content, so an empty artifact span on
// an update call fails with EMPTY_ARTIFACT_CONTENT. Kickoff calls pass
// through unchanged with empty-string defaults.
func ValidateAndFormatResponse(parsed ParsedResponse, isUpdate bool) (ParsedResponse, error) {
	if isUpdate && strings.TrimSpace(parsed.ArtifactContent) == "" {
		return ParsedResponse{}, errors.New(errors.ErrCodeEmptyArtifactContent,
			"update produced no artifact content")
	}
	return parsed, nil
}
