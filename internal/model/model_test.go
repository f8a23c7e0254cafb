package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected ID
	}{
		{name: "number", input: `{"id": 6372321}`, expected: "6372321"},
		{name: "string", input: `{"id": "fbe805e8-866b-11e6-96bf-000f53315a41"}`, expected: "fbe805e8-866b-11e6-96bf-000f53315a41"},
		{name: "null", input: `{"id": null}`, expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var s Snapshot
			require.NoError(t, json.Unmarshal([]byte(tc.input), &s))
			assert.Equal(t, tc.expected, s.ID)
		})
	}
}

func TestIDRejectsObjects(t *testing.T) {
	var s Snapshot
	assert.Error(t, json.Unmarshal([]byte(`{"id": {"x": 1}}`), &s))
}

func TestNextPage(t *testing.T) {
	var withNext SnapshotsResponse
	require.NoError(t, json.Unmarshal([]byte(`{"snapshots": [], "links": {"pages": {"next": "https://api.example.com/v2/x?page=2"}}}`), &withNext))
	assert.Equal(t, "https://api.example.com/v2/x?page=2", withNext.Links.NextPage())

	var noPages SnapshotsResponse
	require.NoError(t, json.Unmarshal([]byte(`{"snapshots": [], "links": {}}`), &noPages))
	assert.Equal(t, "", noPages.Links.NextPage())

	var noLinks SnapshotsResponse
	require.NoError(t, json.Unmarshal([]byte(`{"snapshots": []}`), &noLinks))
	assert.Equal(t, "", noLinks.Links.NextPage())
}
