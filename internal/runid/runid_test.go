package runid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CongducPham/lorasimmac/internal/runid"
)

func TestNewProducesDistinctNonEmptyIDs(t *testing.T) {
	a := runid.New()
	b := runid.New()

	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
}
