package docx

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"path"
	"strconv"
	"strings"
)

// emuPerPixel converts drawing extents (English Metric Units) to CSS pixels.
const emuPerPixel = 9525

type relationship struct {
	Type     string
	Target   string
	External bool
}

func parseRelationships(data []byte, dir string) map[string]relationship {
	var doc struct {
		Items []struct {
			ID         string `xml:"Id,attr"`
			Type       string `xml:"Type,attr"`
			Target     string `xml:"Target,attr"`
			TargetMode string `xml:"TargetMode,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil
	}

	rels := make(map[string]relationship, len(doc.Items))
	for _, item := range doc.Items {
		rel := relationship{Type: item.Type, Target: item.Target}
		switch {
		case strings.EqualFold(item.TargetMode, "External"):
			rel.External = true
		case strings.HasPrefix(item.Target, "/"):
			rel.Target = strings.TrimPrefix(path.Clean(item.Target), "/")
		default:
			rel.Target = path.Clean(path.Join(dir, item.Target))
		}
		rels[item.ID] = rel
	}
	return rels
}

// ToHTML converts the package body into an HTML fragment.
//
// Headings, paragraphs (with alignment), bold/italic/underline/strike runs,
// tables, bullet lists, line breaks, hyperlinks and embedded images are
// kept. Empty paragraphs are dropped.
func ToHTML(pkg *Package) (string, error) {
	data, ok := pkg.Part(MainPart)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingPart, MainPart)
	}

	c := &converter{pkg: pkg, rels: pkg.relationships(MainPart)}
	if err := c.convert(data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return c.out.String(), nil
}

type runFormat struct {
	bold      bool
	italic    bool
	underline bool
	strike    bool
}

type segment struct {
	html   string // escaped text or a complete inline element
	format runFormat
	href   string
	inline bool // true for <br>, <img>: not merged, counts as content
}

type paragraph struct {
	style    string
	align    string
	list     bool
	segments []segment
}

type converter struct {
	pkg  *Package
	rels map[string]relationship
	out  strings.Builder

	paras       []*paragraph
	run         runFormat
	inRun       bool
	inRunProps  bool
	inParaProps bool
	inText      bool
	href        string
	listOpen    bool
	extent      [2]int // last drawing size in pixels
}

// skipped subtrees: alternate-content fallbacks duplicate drawings, field
// instructions and deletions are not visible text.
var skipped = map[string]bool{
	"Fallback":  true,
	"instrText": true,
	"delText":   true,
	"del":       true,
}

func (c *converter) convert(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if skipped[t.Name.Local] {
				if err := dec.Skip(); err != nil {
					return err
				}
				continue
			}
			c.start(t)
		case xml.EndElement:
			c.end(t)
		case xml.CharData:
			if c.inText {
				c.appendText(string(t))
			}
		}
	}
	c.closeList()
	return nil
}

func (c *converter) current() *paragraph {
	if len(c.paras) == 0 {
		return nil
	}
	return c.paras[len(c.paras)-1]
}

func (c *converter) start(t xml.StartElement) {
	p := c.current()

	switch t.Name.Local {
	case "p":
		c.paras = append(c.paras, &paragraph{})
	case "pPr":
		c.inParaProps = true
	case "pStyle":
		if c.inParaProps && p != nil {
			p.style = attr(t, "val")
		}
	case "numPr":
		if c.inParaProps && p != nil {
			p.list = true
		}
	case "jc":
		if c.inParaProps && p != nil {
			p.align = attr(t, "val")
		}
	case "r":
		c.inRun = true
		c.run = runFormat{}
	case "rPr":
		c.inRunProps = c.inRun
	case "b", "i", "u", "strike", "dstrike":
		if c.inRunProps {
			c.applyFormat(t)
		}
	case "t":
		c.inText = c.inRun
	case "br":
		if c.inRun && p != nil {
			p.segments = append(p.segments, segment{html: "<br>", inline: true})
		}
	case "tab":
		if c.inRun && p != nil {
			c.appendText("\t")
		}
	case "hyperlink":
		c.href = c.hyperlinkTarget(t)
	case "extent":
		cx, _ := strconv.Atoi(attr(t, "cx"))
		cy, _ := strconv.Atoi(attr(t, "cy"))
		c.extent = [2]int{cx / emuPerPixel, cy / emuPerPixel}
	case "blip":
		if p != nil {
			if img := c.image(attr(t, "embed")); img != "" {
				p.segments = append(p.segments, segment{html: img, href: c.href, inline: true})
			}
		}
	case "tbl":
		c.closeList()
		c.out.WriteString("<table>\n")
	case "tr":
		c.out.WriteString("<tr>")
	case "tc":
		c.out.WriteString("<td>")
	}
}

func (c *converter) end(t xml.EndElement) {
	switch t.Name.Local {
	case "p":
		if p := c.current(); p != nil {
			c.paras = c.paras[:len(c.paras)-1]
			c.flush(p)
		}
	case "pPr":
		c.inParaProps = false
	case "r":
		c.inRun = false
	case "rPr":
		c.inRunProps = false
	case "t":
		c.inText = false
	case "hyperlink":
		c.href = ""
	case "tbl":
		c.out.WriteString("</table>\n")
	case "tr":
		c.out.WriteString("</tr>\n")
	case "tc":
		c.closeList()
		c.out.WriteString("</td>")
	}
}

func (c *converter) applyFormat(t xml.StartElement) {
	val := strings.ToLower(attr(t, "val"))
	on := val != "0" && val != "false" && val != "none"
	switch t.Name.Local {
	case "b":
		c.run.bold = on
	case "i":
		c.run.italic = on
	case "u":
		c.run.underline = on
	case "strike", "dstrike":
		c.run.strike = on
	}
}

func (c *converter) appendText(text string) {
	p := c.current()
	if p == nil {
		return
	}
	escaped := strings.ReplaceAll(html.EscapeString(text), "\t", "&emsp;")

	if n := len(p.segments); n > 0 {
		last := &p.segments[n-1]
		if !last.inline && last.format == c.run && last.href == c.href {
			last.html += escaped
			return
		}
	}
	p.segments = append(p.segments, segment{html: escaped, format: c.run, href: c.href})
}

func (c *converter) hyperlinkTarget(t xml.StartElement) string {
	if anchor := attr(t, "anchor"); anchor != "" {
		return "#" + anchor
	}
	rel, ok := c.rels[attr(t, "id")]
	if !ok || !rel.External {
		return ""
	}
	return rel.Target
}

func (c *converter) image(id string) string {
	rel, ok := c.rels[id]
	if !ok || rel.External {
		return ""
	}
	data, ok := c.pkg.Part(rel.Target)
	if !ok {
		return ""
	}

	size := ""
	if c.extent[0] > 0 && c.extent[1] > 0 {
		size = fmt.Sprintf(` width="%d" height="%d"`, c.extent[0], c.extent[1])
	}
	return fmt.Sprintf(`<img src="data:%s;base64,%s"%s>`,
		imageMediaType(rel.Target), base64.StdEncoding.EncodeToString(data), size)
}

func (c *converter) flush(p *paragraph) {
	content := renderSegments(p.segments)
	if content == "" {
		return
	}

	if p.list || p.style == "ListParagraph" {
		if !c.listOpen {
			c.out.WriteString("<ul>\n")
			c.listOpen = true
		}
		fmt.Fprintf(&c.out, "<li>%s</li>\n", content)
		return
	}
	c.closeList()

	tag := blockTag(p.style)
	fmt.Fprintf(&c.out, "<%s%s>%s</%s>\n", tag, alignStyle(p.align), content, tag)
}

func (c *converter) closeList() {
	if c.listOpen {
		c.out.WriteString("</ul>\n")
		c.listOpen = false
	}
}

func renderSegments(segments []segment) string {
	var b strings.Builder
	hasContent := false

	for _, s := range segments {
		if s.inline || strings.TrimSpace(strings.ReplaceAll(s.html, "&emsp;", "")) != "" {
			hasContent = true
		}

		var open, closing string
		if s.href != "" {
			open += `<a href="` + html.EscapeString(s.href) + `">`
			closing = "</a>" + closing
		}
		if s.format.bold {
			open += "<strong>"
			closing = "</strong>" + closing
		}
		if s.format.italic {
			open += "<em>"
			closing = "</em>" + closing
		}
		if s.format.underline {
			open += "<u>"
			closing = "</u>" + closing
		}
		if s.format.strike {
			open += "<s>"
			closing = "</s>" + closing
		}
		b.WriteString(open)
		b.WriteString(s.html)
		b.WriteString(closing)
	}

	if !hasContent {
		return ""
	}
	return b.String()
}

func blockTag(style string) string {
	switch style {
	case "Title":
		return "h1"
	case "Subtitle":
		return "h2"
	}
	normalized := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if strings.HasPrefix(normalized, "heading") {
		level := strings.TrimPrefix(normalized, "heading")
		if len(level) == 1 && level[0] >= '1' && level[0] <= '6' {
			return "h" + level
		}
	}
	return "p"
}

func alignStyle(jc string) string {
	switch jc {
	case "center":
		return ` style="text-align:center"`
	case "right", "end":
		return ` style="text-align:right"`
	case "both", "distribute":
		return ` style="text-align:justify"`
	}
	return ""
}

func imageMediaType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".bmp":
		return "image/bmp"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
