package docx

import (
	"fmt"
	"regexp"
	"strings"
)

// Delimiters holds the merge-field open and close tokens.
type Delimiters struct {
	Open  string
	Close string
}

// DefaultDelimiters are the double-brace tokens used by caller templates.
var DefaultDelimiters = Delimiters{Open: "{{", Close: "}}"}

// markupTag matches any tag-shaped span leaked inside a field name.
var markupTag = regexp.MustCompile(`<[^>]*>`)

// Validate rejects delimiter pairs the scanner cannot tell apart.
func (d Delimiters) Validate() error {
	if d.Open == "" || d.Close == "" {
		return fmt.Errorf("%w: empty delimiter", ErrInvalidDelimiters)
	}
	if d.Open == d.Close {
		return fmt.Errorf("%w: open and close are both %q", ErrInvalidDelimiters, d.Open)
	}
	return nil
}

// Repair normalizes merge fields in raw markup.
//
// Authoring tools split a field like {{name}} across several runs, which
// leaves markup between the braces, duplicated opens and stray closes.
// Repair scans the open/close token stream once:
//   - a second open before any close voids the first one (its text is kept)
//   - a close without an open is dropped
//   - a matched pair is re-emitted with every <...> span removed from its content
//   - an open still pending at the end is dropped, text after it is kept
func Repair(markup string, d Delimiters) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}

	var out strings.Builder
	out.Grow(len(markup))

	last := 0  // everything before last has been handled
	open := -1 // position of the pending open token, -1 if none
	pos := 0

	for pos < len(markup) {
		tokenAt, isOpen := nextToken(markup, pos, d)
		if tokenAt < 0 {
			break
		}

		if isOpen {
			// Text between a voided open and this one lands here too,
			// since last already points past the voided token.
			out.WriteString(markup[last:tokenAt])
			open = tokenAt
			last = tokenAt + len(d.Open)
			pos = last
			continue
		}

		if open >= 0 {
			content := markup[open+len(d.Open) : tokenAt]
			out.WriteString(d.Open)
			out.WriteString(markupTag.ReplaceAllString(content, ""))
			out.WriteString(d.Close)
			open = -1
		} else {
			out.WriteString(markup[last:tokenAt])
		}
		last = tokenAt + len(d.Close)
		pos = last
	}

	out.WriteString(markup[last:])
	return out.String(), nil
}

// nextToken returns the index of the earliest open or close token at or
// after pos, and whether it is an open token. Returns -1 when none remain.
func nextToken(markup string, pos int, d Delimiters) (int, bool) {
	rest := markup[pos:]
	o := strings.Index(rest, d.Open)
	c := strings.Index(rest, d.Close)

	switch {
	case o < 0 && c < 0:
		return -1, false
	case c < 0 || (o >= 0 && o < c):
		return pos + o, true
	default:
		return pos + c, false
	}
}

// RepairPackage repairs every templated part of the package.
// Parts are only replaced once all of them repaired cleanly, so a failure
// leaves the package exactly as it was.
func RepairPackage(pkg *Package, d Delimiters) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRepair, r)
		}
	}()

	repaired := make(map[string][]byte)
	for _, name := range pkg.TemplatedParts() {
		data, _ := pkg.Part(name)
		fixed, rerr := Repair(string(data), d)
		if rerr != nil {
			return fmt.Errorf("%w: %s: %v", ErrRepair, name, rerr)
		}
		repaired[name] = []byte(fixed)
	}

	for name, data := range repaired {
		pkg.SetPart(name, data)
	}
	return nil
}
