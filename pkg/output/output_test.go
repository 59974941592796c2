package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (stdout, stderr *bytes.Buffer) {
	t.Helper()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr, prevNoColor := Stdout, Stderr, color.NoColor
	Stdout, Stderr, color.NoColor = stdout, stderr, true
	t.Cleanup(func() {
		Stdout, Stderr, color.NoColor = prevOut, prevErr, prevNoColor
	})
	return stdout, stderr
}

func TestMessages(t *testing.T) {
	stdout, stderr := capture(t)

	Success("sent %d events", 3)
	Info("relay at %s", "http://localhost:8080")
	Warn("skipped %d", 1)
	Error("failed: %s", "boom")

	assert.Equal(t, "✓ sent 3 events\nrelay at http://localhost:8080\n⚠ skipped 1\n", stdout.String())
	assert.Equal(t, "✗ failed: boom\n", stderr.String())
}

func TestJSON(t *testing.T) {
	stdout, _ := capture(t)

	require.NoError(t, JSON(map[string]int{"total": 2}))
	assert.Equal(t, "{\n  \"total\": 2\n}\n", stdout.String())
}

func TestTableRender(t *testing.T) {
	stdout, _ := capture(t)

	tbl := NewTable([]string{"OUTCOME", "COUNT"})
	tbl.AddRow("succeeded", "10")
	tbl.AddRow("skipped", "2")
	tbl.Render()

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "OUTCOME    COUNT  ", lines[0])
	assert.Equal(t, "---------  -----  ", lines[1])
	assert.Equal(t, "succeeded  10     ", lines[2])
	assert.Equal(t, "skipped    2      ", lines[3])
}
