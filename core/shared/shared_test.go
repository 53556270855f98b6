package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToTitle(t *testing.T) {
	assert.Equal(t, "Demo", ToTitle("demo"))
	assert.Equal(t, "Émile", ToTitle("émile"))
	assert.Equal(t, "", ToTitle(""))
	assert.Equal(t, "X", ToTitle("X"))
}
