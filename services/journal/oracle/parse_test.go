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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "bare", raw: `{"response":"a"}`, want: "a"},
		{name: "json fence", raw: "```json\n{\"response\":\"b\"}\n```", want: "b"},
		{name: "plain fence", raw: "```\n{\"response\":\"c\"}\n```", want: "c"},
		{name: "prose around", raw: "Sure! {\"response\":\"d\"} Thanks.", want: "d"},
		{name: "no object", raw: "hello", wantErr: true},
		{name: "reversed braces", raw: "} {", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload analysisPayload
			err := decodeObject(tt.raw, &payload)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrOracleMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, payload.Response)
		})
	}
}

func TestBulletList(t *testing.T) {
	assert.Equal(t, "(none)", bulletList(nil))
	assert.Equal(t, "- a\n- b", bulletList([]string{"a", "b"}))
}

func TestParseSearch_MissingKey(t *testing.T) {
	dates, err := parseSearch(`{"something_else": 1}`)
	require.NoError(t, err)
	assert.Empty(t, dates)
}
