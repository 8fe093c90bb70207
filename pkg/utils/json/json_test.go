package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	type payload struct {
		Name  string   `json:"name"`
		Score float64  `json:"score"`
		Tags  []string `json:"tags,omitempty"`
	}
	in := payload{Name: "chunk", Score: 0.87, Tags: []string{"dense", "lexical"}}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestUnmarshalRejectsInvalidJSON(t *testing.T) {
	var out map[string]interface{}
	assert.Error(t, Unmarshal([]byte(`{"broken":`), &out))
}
