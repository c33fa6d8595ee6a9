// Package catalog reads control catalogs from YAML documents.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// Document is a framework together with its controls.
type Document struct {
	Framework FrameworkSpec `yaml:"framework"`
	Controls  []ControlSpec `yaml:"controls"`
}

// FrameworkSpec identifies the framework by name and version.
type FrameworkSpec struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

// ControlSpec is one catalog entry.
type ControlSpec struct {
	Ref         string `yaml:"ref"`
	Family      string `yaml:"family"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Baseline    string `yaml:"baseline"`
}

// Load decodes and validates a catalog document. Unknown fields are rejected.
func Load(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog: empty document")
		}
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	doc.normalize()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadFile reads a catalog from path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func (d *Document) normalize() {
	d.Framework.Name = strings.TrimSpace(d.Framework.Name)
	d.Framework.Version = strings.TrimSpace(d.Framework.Version)
	for i := range d.Controls {
		c := &d.Controls[i]
		c.Ref = strings.ToUpper(strings.TrimSpace(c.Ref))
		c.Family = strings.TrimSpace(c.Family)
		c.Title = strings.TrimSpace(c.Title)
		c.Baseline = strings.ToLower(strings.TrimSpace(c.Baseline))
		if c.Family == "" {
			if dash := strings.IndexByte(c.Ref, '-'); dash > 0 {
				c.Family = c.Ref[:dash]
			}
		}
		if c.Baseline == "" {
			c.Baseline = string(domain.BaselineLow)
		}
	}
}

// Validate checks required fields and duplicate references.
func (d *Document) Validate() error {
	if d.Framework.Name == "" || d.Framework.Version == "" {
		return errors.New("catalog: framework name and version are required")
	}
	if len(d.Controls) == 0 {
		return errors.New("catalog: no controls")
	}
	seen := make(map[string]int, len(d.Controls))
	for i, c := range d.Controls {
		if c.Ref == "" || c.Title == "" {
			return fmt.Errorf("catalog: control %d: ref and title are required", i+1)
		}
		switch domain.Baseline(c.Baseline) {
		case domain.BaselineLow, domain.BaselineModerate, domain.BaselineHigh:
		default:
			return fmt.Errorf("catalog: control %s: invalid baseline %q", c.Ref, c.Baseline)
		}
		if prev, dup := seen[c.Ref]; dup {
			return fmt.Errorf("catalog: control %s duplicated at entries %d and %d", c.Ref, prev+1, i+1)
		}
		seen[c.Ref] = i
	}
	return nil
}
