package docx

import (
	"fmt"
	"reflect"
	"strings"
)

// lineBreak closes the current text node, breaks the line and reopens one.
const lineBreak = `</w:t><w:br/><w:t xml:space="preserve">`

const (
	paragraphOpen      = "<w:p>"
	paragraphOpenAttrs = "<w:p "
	paragraphClose     = "</w:p>"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// RenderOption configures a Renderer.
type RenderOption func(*Renderer)

// WithDelimiters sets the merge-field tokens.
func WithDelimiters(d Delimiters) RenderOption {
	return func(r *Renderer) { r.delims = d }
}

// WithNullGetter sets the value used for missing or nil keys.
func WithNullGetter(fn func(name string) string) RenderOption {
	return func(r *Renderer) {
		if fn != nil {
			r.nullGetter = fn
		}
	}
}

// WithParagraphLoop toggles paragraph-level section expansion.
func WithParagraphLoop(enabled bool) RenderOption {
	return func(r *Renderer) { r.paragraphLoop = enabled }
}

// WithLinebreaks toggles converting "\n" in values into line breaks.
func WithLinebreaks(enabled bool) RenderOption {
	return func(r *Renderer) { r.linebreaks = enabled }
}

// Renderer substitutes merge fields in repaired markup.
type Renderer struct {
	delims        Delimiters
	nullGetter    func(name string) string
	paragraphLoop bool
	linebreaks    bool
}

// NewRenderer creates a Renderer with double-brace delimiters, paragraph
// loops, line breaks, and a null getter that blanks missing fields.
func NewRenderer(opts ...RenderOption) *Renderer {
	r := &Renderer{
		delims:        DefaultDelimiters,
		nullGetter:    func(string) string { return "" },
		paragraphLoop: true,
		linebreaks:    true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render fills every templated part of pkg in place.
// Parts are written back only when all of them render.
func (r *Renderer) Render(pkg *Package, data map[string]any) error {
	rendered := make(map[string][]byte)
	for _, name := range pkg.TemplatedParts() {
		content, _ := pkg.Part(name)
		out, err := r.RenderPart(string(content), data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		rendered[name] = []byte(out)
	}
	for name, content := range rendered {
		pkg.SetPart(name, content)
	}
	return nil
}

// RenderPart fills a single markup part.
func (r *Renderer) RenderPart(markup string, data map[string]any) (string, error) {
	if err := r.delims.Validate(); err != nil {
		return "", err
	}

	tags, err := r.scanTags(markup)
	if err != nil {
		return "", err
	}
	if err := r.pairSections(markup, tags); err != nil {
		return "", err
	}
	nodes, err := buildTree(markup, tags)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.Grow(len(markup))
	r.renderNodes(&out, nodes, []map[string]any{data})
	return out.String(), nil
}

type tagKind int

const (
	tagVariable tagKind = iota
	tagSection
	tagInverted
	tagClose
)

type tag struct {
	kind  tagKind
	name  string
	start int // span replaced by the tag's output
	end   int
}

func (r *Renderer) scanTags(markup string) ([]tag, error) {
	var tags []tag
	pos := 0
	for {
		o := strings.Index(markup[pos:], r.delims.Open)
		if o < 0 {
			return tags, nil
		}
		start := pos + o
		inner := start + len(r.delims.Open)
		c := strings.Index(markup[inner:], r.delims.Close)
		if c < 0 {
			return nil, fmt.Errorf("%w: unclosed tag at offset %d", ErrTemplateContent, start)
		}
		end := inner + c + len(r.delims.Close)

		t, err := parseTag(markup[inner : inner+c])
		if err != nil {
			return nil, fmt.Errorf("%w (offset %d)", err, start)
		}
		t.start, t.end = start, end
		tags = append(tags, t)
		pos = end
	}
}

func parseTag(raw string) (tag, error) {
	body := strings.TrimSpace(markupTag.ReplaceAllString(raw, ""))
	if body == "" {
		return tag{}, fmt.Errorf("%w: empty tag", ErrTemplateContent)
	}

	kind := tagVariable
	switch body[0] {
	case '#':
		kind = tagSection
	case '^':
		kind = tagInverted
	case '/':
		kind = tagClose
	case '%', '@', '>', '=', '!', '&', '{':
		return tag{}, fmt.Errorf("%w: unsupported tag %q", ErrTemplateContent, body)
	}

	name := body
	if kind != tagVariable {
		name = strings.TrimSpace(body[1:])
	}
	if name == "" {
		return tag{}, fmt.Errorf("%w: empty tag name in %q", ErrTemplateContent, body)
	}
	return tag{kind: kind, name: name}, nil
}

// pairSections matches opens with closes and, for paragraph loops, widens
// both tags to cover their whole paragraphs.
func (r *Renderer) pairSections(markup string, tags []tag) error {
	var stack []int
	for i := range tags {
		switch tags[i].kind {
		case tagSection, tagInverted:
			stack = append(stack, i)
		case tagClose:
			if len(stack) == 0 {
				return fmt.Errorf("%w: unopened section close %q", ErrTemplateContent, tags[i].name)
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if tags[open].name != tags[i].name {
				return fmt.Errorf("%w: section %q closed by %q", ErrTemplateContent, tags[open].name, tags[i].name)
			}
			if r.paragraphLoop {
				widenToParagraphs(markup, &tags[open], &tags[i])
			}
		}
	}
	if len(stack) > 0 {
		return fmt.Errorf("%w: unclosed section %q", ErrTemplateContent, tags[stack[len(stack)-1]].name)
	}
	return nil
}

func widenToParagraphs(markup string, open, closing *tag) {
	ps, pe, ok := soleParagraph(markup, open)
	if !ok {
		return
	}
	cs, ce, ok := soleParagraph(markup, closing)
	if !ok || cs < pe {
		return
	}
	open.start, open.end = ps, pe
	closing.start, closing.end = cs, ce
}

// soleParagraph returns the bounds of the paragraph holding t when t is
// the only text in it.
func soleParagraph(markup string, t *tag) (int, int, bool) {
	before := markup[:t.start]
	start := max(strings.LastIndex(before, paragraphOpen), strings.LastIndex(before, paragraphOpenAttrs))
	if start < 0 || strings.LastIndex(before, paragraphClose) > start {
		return 0, 0, false
	}
	rel := strings.Index(markup[t.end:], paragraphClose)
	if rel < 0 {
		return 0, 0, false
	}
	end := t.end + rel + len(paragraphClose)

	text := strings.TrimSpace(markupTag.ReplaceAllString(markup[start:end], ""))
	own := strings.TrimSpace(markupTag.ReplaceAllString(markup[t.start:t.end], ""))
	if text != own {
		return 0, 0, false
	}
	return start, end, true
}

type node struct {
	text     string
	name     string
	kind     tagKind
	isText   bool
	children []*node
}

func buildTree(markup string, tags []tag) ([]*node, error) {
	root := &node{}
	stack := []*node{root}
	pos := 0

	for _, t := range tags {
		current := stack[len(stack)-1]
		if t.start > pos {
			current.children = append(current.children, &node{isText: true, text: markup[pos:t.start]})
		}
		if t.end > pos {
			pos = t.end
		}

		switch t.kind {
		case tagVariable:
			current.children = append(current.children, &node{kind: tagVariable, name: t.name})
		case tagSection, tagInverted:
			section := &node{kind: t.kind, name: t.name}
			current.children = append(current.children, section)
			stack = append(stack, section)
		case tagClose:
			if len(stack) < 2 {
				return nil, fmt.Errorf("%w: unopened section close %q", ErrTemplateContent, t.name)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if pos < len(markup) {
		root.children = append(root.children, &node{isText: true, text: markup[pos:]})
	}
	return root.children, nil
}

func (r *Renderer) renderNodes(out *strings.Builder, nodes []*node, scopes []map[string]any) {
	for _, n := range nodes {
		if n.isText {
			out.WriteString(n.text)
			continue
		}

		value, found := lookup(n.name, scopes)
		switch n.kind {
		case tagVariable:
			var s string
			if !found || value == nil {
				s = r.nullGetter(n.name)
			} else {
				s = stringify(value)
			}
			out.WriteString(r.escape(s))

		case tagInverted:
			if !found || !truthy(value) {
				r.renderNodes(out, n.children, scopes)
			}

		case tagSection:
			if !found || !truthy(value) {
				continue
			}
			r.renderSection(out, n, value, scopes)
		}
	}
}

func (r *Renderer) renderSection(out *strings.Builder, n *node, value any, scopes []map[string]any) {
	switch v := value.(type) {
	case map[string]any:
		r.renderNodes(out, n.children, append(scopes, v))
		return
	case []map[string]any:
		for _, item := range v {
			r.renderNodes(out, n.children, append(scopes, item))
		}
		return
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i).Interface()
			scope, ok := item.(map[string]any)
			if !ok {
				scope = map[string]any{".": item}
			}
			r.renderNodes(out, n.children, append(scopes, scope))
		}
		return
	}

	r.renderNodes(out, n.children, scopes)
}

func (r *Renderer) escape(s string) string {
	s = xmlEscaper.Replace(s)
	if r.linebreaks && strings.Contains(s, "\n") {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\n", lineBreak)
	}
	return s
}

// lookup resolves name from the innermost scope outwards.
// Dotted names walk nested maps.
func lookup(name string, scopes []map[string]any) (any, bool) {
	if name == "." {
		for i := len(scopes) - 1; i >= 0; i-- {
			if v, ok := scopes[i]["."]; ok {
				return v, true
			}
		}
		return nil, false
	}

	parts := strings.Split(name, ".")
	for i := len(scopes) - 1; i >= 0; i-- {
		v, ok := scopes[i][parts[0]]
		if !ok {
			continue
		}
		for _, p := range parts[1:] {
			m, isMap := v.(map[string]any)
			if !isMap {
				return nil, false
			}
			if v, ok = m[p]; !ok {
				return nil, false
			}
		}
		return v, true
	}
	return nil, false
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
