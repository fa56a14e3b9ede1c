package gwvar

import (
	"expvar"
	"testing"

	"github.com/bmizerany/assert"
)

func TestBool(t *testing.T) {
	b := NewBool("gwvar_test.Bool")
	assert.Equal(t, false, b.Value())
	b.Set(true)
	assert.Equal(t, true, b.Value())
	assert.Equal(t, "1", expvar.Get("gwvar_test.Bool").String())
	b.Set(false)
	assert.Equal(t, false, b.Value())
}
