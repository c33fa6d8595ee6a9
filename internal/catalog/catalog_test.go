package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
framework:
  name: NIST SP 800-53
  version: rev5
  description: Security and privacy controls
controls:
  - ref: ac-2
    title: Account Management
    baseline: Low
  - ref: AU-6
    family: AU
    title: Audit Record Review
    baseline: moderate
  - ref: SC-7
    title: Boundary Protection
`

func TestLoad(t *testing.T) {
	doc, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "NIST SP 800-53", doc.Framework.Name)
	assert.Equal(t, "rev5", doc.Framework.Version)
	require.Len(t, doc.Controls, 3)

	assert.Equal(t, "AC-2", doc.Controls[0].Ref)
	assert.Equal(t, "AC", doc.Controls[0].Family, "family derived from ref")
	assert.Equal(t, "low", doc.Controls[0].Baseline)
	assert.Equal(t, "low", doc.Controls[2].Baseline, "baseline defaults to low")
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"no framework":  "controls:\n  - ref: AC-1\n    title: Policy\n",
		"no controls":   "framework:\n  name: X\n  version: '1'\n",
		"bad baseline":  "framework:\n  name: X\n  version: '1'\ncontrols:\n  - ref: AC-1\n    title: P\n    baseline: extreme\n",
		"duplicate ref": "framework:\n  name: X\n  version: '1'\ncontrols:\n  - ref: AC-1\n    title: P\n  - ref: ac-1\n    title: Q\n",
		"unknown field": "framework:\n  name: X\n  version: '1'\n  owner: me\ncontrols:\n  - ref: AC-1\n    title: P\n",
		"missing title": "framework:\n  name: X\n  version: '1'\ncontrols:\n  - ref: AC-1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Controls, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
