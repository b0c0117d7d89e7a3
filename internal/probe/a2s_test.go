package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/a2s/pkg/a2s"
)

func TestSourceSample(t *testing.T) {
	players := &[]a2s.Player{
		{Name: "Alice"},
		{Name: ""},
		{Name: "Bob"},
	}

	sample := sourceSample(players)

	require.Len(t, sample, 2)
	assert.Equal(t, Player{ID: "Alice", Name: "Alice"}, sample[0])
	assert.Equal(t, Player{ID: "Bob", Name: "Bob"}, sample[1])
}

func TestSourceSampleNilResponse(t *testing.T) {
	assert.Nil(t, sourceSample(nil))
	assert.Nil(t, sourceSample(&[]a2s.Player{}))
}
