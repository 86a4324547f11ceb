// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memory implements the merge policy over an account's memory buckets.
//
// # Description
//
// Every account carries three buckets:
//
//   - user memories: free text the user writes and owns
//   - AI memories: "- " bullet lines learned from journal entries
//   - forgotten memories: sentences the user removed and that must not be
//     re-learned
//
// The functions here are the only code that mutates the AI and forgotten
// buckets. They are pure: they take the current values and return new ones,
// so the storage layer can apply them inside a single read-modify-write
// transaction.
//
// # Deduplication
//
// Containment is a plain substring check. Near-miss phrasings ("User runs" vs
// "User went running") are both kept.
//
// # Forgetting
//
// MergeNewFacts does not consult the forgotten list. Keeping forgotten facts
// out is delegated to the oracle prompt, which lists them as forbidden.
// FilterForgotten is the optional hard filter applied before merging when
// strict forgetting is configured.
package memory

import (
	"slices"
	"strings"
)

// BulletPrefix starts every AI memory line.
const BulletPrefix = "- "

// Buckets is the mutable memory state of one account.
type Buckets struct {
	AIMemories        string
	ForgottenMemories []string
}

// MergeNewFacts appends each candidate as a "- " line unless it already
// appears as a substring of the memories built so far, including lines
// appended earlier in the same call.
//
// # Inputs
//
//   - current: the account's AI memories.
//   - forgotten: accepted for contract symmetry; not consulted.
//   - candidates: sentences returned by analysis, in order. Blank entries
//     are skipped.
//
// # Outputs
//
//   - string: the updated AI memories, whitespace-trimmed.
//   - []string: the candidates that were actually appended.
func MergeNewFacts(current string, forgotten []string, candidates []string) (string, []string) {
	_ = forgotten

	updated := current
	var added []string
	for _, c := range candidates {
		s := strings.TrimSpace(c)
		if s == "" {
			continue
		}
		if strings.Contains(updated, s) {
			continue
		}
		updated += "\n" + BulletPrefix + s
		added = append(added, s)
	}
	if len(added) == 0 {
		return current, nil
	}
	return strings.TrimSpace(updated), added
}

// FilterForgotten drops candidates present in the forgotten list.
func FilterForgotten(candidates []string, forgotten []string) []string {
	if len(forgotten) == 0 {
		return candidates
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if slices.Contains(forgotten, strings.TrimSpace(c)) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Forget removes every AI memory line containing sentence and records the
// sentence in the forgotten list. A blank sentence is a no-op.
func (b Buckets) Forget(sentence string) Buckets {
	if strings.TrimSpace(sentence) == "" {
		return b
	}

	lines := strings.Split(b.AIMemories, "\n")
	kept := lines[:0:0]
	for _, line := range lines {
		if strings.Contains(line, sentence) {
			continue
		}
		kept = append(kept, line)
	}

	forgotten := slices.Clone(b.ForgottenMemories)
	if !slices.Contains(forgotten, sentence) {
		forgotten = append(forgotten, sentence)
	}
	return Buckets{
		AIMemories:        strings.Join(kept, "\n"),
		ForgottenMemories: forgotten,
	}
}

// Reinstate appends sentence as a new bullet line and removes it from the
// forgotten list. A blank sentence is a no-op.
func (b Buckets) Reinstate(sentence string) Buckets {
	if strings.TrimSpace(sentence) == "" {
		return b
	}

	ai := strings.TrimSpace(b.AIMemories + "\n" + BulletPrefix + sentence)

	forgotten := slices.DeleteFunc(slices.Clone(b.ForgottenMemories), func(s string) bool {
		return s == sentence
	})
	if forgotten == nil {
		forgotten = []string{}
	}
	return Buckets{
		AIMemories:        ai,
		ForgottenMemories: forgotten,
	}
}

// Clear empties the AI memories and the forgotten list.
func (b Buckets) Clear() Buckets {
	return Buckets{AIMemories: "", ForgottenMemories: []string{}}
}

// Lines returns the non-empty AI memory lines with the bullet prefix removed.
func (b Buckets) Lines() []string {
	var out []string
	for _, line := range strings.Split(b.AIMemories, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, strings.TrimSpace(BulletPrefix))
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
