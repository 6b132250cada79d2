// Package indexer builds the canonical projection text for an episode and
// keeps the content store, vector index, and lexical index consistent
// with each other (spec §4.2).
package indexer

import (
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/epimem/internal/episode"
)

// ProjectionText builds the deterministic embedding/lexical input for e:
// raw_prompt, summary, task_type, domain_tags, files_modified basenames,
// tools_invoked, and the concatenated error messages, in that canonical
// order, whitespace-normalized and lowercased (spec §4.2). The same
// function runs at index time and over the query text has none of this
// rewriting applied — the query is embedded verbatim, per spec.
func ProjectionText(e *episode.Episode) string {
	var parts []string

	if e.Intent.RawPrompt != "" {
		parts = append(parts, e.Intent.RawPrompt)
	}
	if e.Intent.Summary != "" {
		parts = append(parts, e.Intent.Summary)
	}
	if e.Intent.TaskType != "" {
		parts = append(parts, string(e.Intent.TaskType))
	}
	parts = append(parts, e.Intent.DomainTags...)

	for _, path := range e.Context.FilesModified {
		parts = append(parts, filepath.Base(path))
	}
	parts = append(parts, e.Context.ToolsInvoked...)

	for _, ev := range e.Context.Errors {
		if ev.Message != "" {
			parts = append(parts, ev.Message)
		}
	}

	return normalize(strings.Join(parts, " "))
}

// normalize lowercases and collapses whitespace, the canonical form
// spec §4.2 requires of the projection text.
func normalize(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, " ")
}
