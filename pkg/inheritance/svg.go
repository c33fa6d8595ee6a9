package inheritance

import (
	"bytes"
	"fmt"
	"html"
)

// RenderSVG emits a standalone SVG document for the layout.
func RenderSVG(layout Layout) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		num(layout.Width), num(layout.Height), num(layout.Width), num(layout.Height))
	b.WriteString("\n")
	b.WriteString(`<g class="edges" fill="none" stroke="#94a3b8" stroke-width="2">`)
	b.WriteString("\n")
	for _, e := range layout.Edges {
		fmt.Fprintf(&b, `<path d="%s" data-from="%s" data-to="%s"/>`,
			e.Path, html.EscapeString(e.From), html.EscapeString(e.To))
		b.WriteString("\n")
	}
	b.WriteString("</g>\n")
	b.WriteString(`<g class="nodes" font-family="sans-serif">`)
	b.WriteString("\n")
	for _, n := range layout.Nodes {
		cx := n.X + n.Width/2
		fmt.Fprintf(&b, `<g data-id="%s">`, html.EscapeString(n.ID))
		fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" rx="8" fill="#ffffff" stroke="#2563eb"/>`,
			num(n.X), num(n.Y), num(n.Width), num(n.Height))
		labelY := n.Y + n.Height/2
		if n.Subtitle != "" {
			labelY = n.Y + n.Height/2 - 6
		}
		fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-size="14" fill="#0f172a">%s</text>`,
			num(cx), num(labelY), html.EscapeString(n.Label))
		if n.Subtitle != "" {
			fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-size="11" fill="#475569">%s</text>`,
				num(cx), num(labelY+18), html.EscapeString(n.Subtitle))
		}
		b.WriteString("</g>\n")
	}
	b.WriteString("</g>\n</svg>\n")
	return b.Bytes()
}
