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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AleutianAI/journai/services/journal/datatypes"
	"github.com/go-openapi/strfmt"
)

// analysisPayload is the JSON shape the analysis prompt asks for.
type analysisPayload struct {
	Response           string   `json:"response" validate:"required"`
	NewMemorySentences []string `json:"new_memory_sentences" validate:"max=100"`
}

// searchPayload is the JSON shape the search prompt asks for.
type searchPayload struct {
	RelevantDates []string `json:"relevant_dates"`
}

var greetingCleaner = strings.NewReplacer("*", "", `"`, "")

var fenceCleaner = strings.NewReplacer("```json", "", "```", "")

func parseGreeting(raw string) (string, error) {
	greeting := strings.TrimSpace(greetingCleaner.Replace(strings.TrimSpace(raw)))
	if greeting == "" {
		return "", fmt.Errorf("%w: empty greeting", ErrOracleMalformedOutput)
	}
	return greeting, nil
}

func parseAnalysis(raw string) (Analysis, error) {
	var payload analysisPayload
	if err := decodeObject(raw, &payload); err != nil {
		return Analysis{}, err
	}
	payload.Response = strings.TrimSpace(payload.Response)
	if err := datatypes.Validator().Struct(payload); err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrOracleMalformedOutput, err)
	}

	facts := make([]string, 0, len(payload.NewMemorySentences))
	for _, s := range payload.NewMemorySentences {
		if s = strings.TrimSpace(s); s != "" {
			facts = append(facts, s)
		}
	}
	return Analysis{Response: payload.Response, Facts: facts}, nil
}

func parseSearch(raw string) ([]strfmt.Date, error) {
	var payload searchPayload
	if err := decodeObject(raw, &payload); err != nil {
		return nil, err
	}
	dates := make([]strfmt.Date, 0, len(payload.RelevantDates))
	for _, s := range payload.RelevantDates {
		d, err := datatypes.ParseDate(s)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// decodeObject strips markdown fences and any prose around the outermost
// JSON object, then decodes it into v.
func decodeObject(raw string, v any) error {
	text := strings.TrimSpace(fenceCleaner.Replace(strings.TrimSpace(raw)))
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return fmt.Errorf("%w: no JSON object in reply", ErrOracleMalformedOutput)
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrOracleMalformedOutput, err)
	}
	return nil
}
