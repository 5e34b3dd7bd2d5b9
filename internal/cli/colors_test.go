package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStyle(t *testing.T) {
	disableColor = false
	assert.Equal(t, Green+"ok"+Reset, Style("ok", Green))

	disableColor = true
	t.Cleanup(func() { disableColor = checkNoColor() })
	assert.Equal(t, "ok", Style("ok", Green))
}

func TestOutput(t *testing.T) {
	disableColor = true
	t.Cleanup(func() { disableColor = checkNoColor() })

	var buf bytes.Buffer
	Success(&buf, "seeded %d models", 3)
	Warn(&buf, "redis disabled")
	Field(&buf, "Mean", "12ms")

	out := buf.String()
	assert.Contains(t, out, "✔ seeded 3 models\n")
	assert.Contains(t, out, "⚠ redis disabled\n")
	assert.Contains(t, out, "Mean:")
	assert.Contains(t, out, "12ms")
	assert.Len(t, Rule(), 50)
}
