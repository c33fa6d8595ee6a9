package csvexport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"plain":           "plain",
		"=SUM(A1:A3)":     "'=SUM(A1:A3)",
		"+1":              "'+1",
		"-cmd":            "'-cmd",
		"@import":         "'@import",
		"a=b":             "a=b",
		" =leading space": " =leading space",
	}
	for in, want := range cases {
		assert.Equal(t, want, Sanitize(in), "input %q", in)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []string{"name", "note"}, [][]string{
		{"web-01", "=HYPERLINK(\"x\")"},
		{"db, primary", "ok"},
	})
	require.NoError(t, err)
	assert.Equal(t, "name,note\nweb-01,\"'=HYPERLINK(\"\"x\"\")\"\n\"db, primary\",ok\n", buf.String())
}
