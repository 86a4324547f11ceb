// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

import (
	"fmt"
	"strings"
)

const greetingTemplate = `Write one short, warm sentence that welcomes the user to their journal dashboard.
Use the memories below. If they include the user's name, address the user by it.
If the memories are empty or still the placeholder "My name is...", greet a new user in a general way.
Keep it under 15 words. Reply with the sentence only.

Memories:
---
%s
---`

const analysisTemplate = `You are a journaling companion reading today's entry alongside what you already know about the writer.

Match the writer's tone and worldview before you write anything.

1. Write a warm, empathetic reply to the entry. Acknowledge the hard parts and celebrate the good ones. Do not ask questions. Let the length follow the entry: short entries get short replies.
2. List the significant, concrete facts from the entry that appear neither in the memories nor in the forgotten list. Phrase each as one short declarative sentence.

--- CORE MEMORIES (written by the user; treat as ground truth) ---
%s
--- LEARNED MEMORIES (facts you have picked up before) ---
%s
--- FORGOTTEN (never learn these again) ---
%s
--- TODAY'S ENTRY ---
%s
--- OUTPUT ---
Reply with a single JSON object and nothing else:
{"response": "<your reply>", "new_memory_sentences": ["<fact>", ...]}`

const searchTemplate = `You help a person search their own journal.

Query: %q

Entries:
---
%s
---

Work out what the query is really after (people, feelings, events or topics) and find every entry that speaks to it.
Reply with a single JSON object and nothing else:
{"relevant_dates": ["YYYY-MM-DD", ...]}
Use an empty array when nothing matches.`

func greetingPrompt(userMemories string) string {
	return fmt.Sprintf(greetingTemplate, userMemories)
}

func analysisPrompt(content, userMemories, aiMemories string, forgotten []string) string {
	return fmt.Sprintf(analysisTemplate, userMemories, aiMemories, bulletList(forgotten), content)
}

func searchPrompt(query, corpus string) string {
	return fmt.Sprintf(searchTemplate, query, corpus)
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}
