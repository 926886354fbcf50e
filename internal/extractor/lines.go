package extractor

import (
	"regexp"
	"strings"
)

// A tagged line, tolerating list markers, numbering and markdown emphasis:
// "Question: ...", "2. **Answer:** ...", "- Title: ..."
var taggedLine = regexp.MustCompile(`(?i)^[\s\-*#>\d.)]*(question|answer|title|author|language)\s*[*_]*\s*:\s*[*_]*\s*(.*)$`)

type lineField int

const (
	fieldNone lineField = iota
	fieldQuestion
	fieldAnswer
)

// lineParser holds the state of one line-tagged scan.
type lineParser struct {
	result   *Result
	question strings.Builder
	answer   strings.Builder
	open     bool
	field    lineField
}

// parseLineTagged reads "Question:" / "Answer:" lines. A question line opens
// a card and the first answer line after it completes it. Untagged lines continue
// the field above them until a blank line. Cards missing either side are
// discarded.
func parseLineTagged(raw string) (*Result, bool) {
	p := &lineParser{result: &Result{}}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			p.field = fieldNone
			continue
		}

		m := taggedLine.FindStringSubmatch(line)
		if m == nil {
			p.continueField(line)
			continue
		}

		value := m[2]
		switch strings.ToLower(m[1]) {
		case "question":
			p.flush()
			p.open = true
			p.field = fieldQuestion
			p.question.WriteString(value)
		case "answer":
			if !p.open {
				p.field = fieldNone
				continue
			}
			if p.answer.Len() > 0 {
				// One answer per question; repeats are dropped
				p.field = fieldNone
				continue
			}
			p.field = fieldAnswer
			p.answer.WriteString(value)
		default:
			if p.open {
				// Metadata tags are only honoured before the first card
				p.continueField(line)
				continue
			}
			p.setMetadata(strings.ToLower(m[1]), value)
		}
	}
	p.flush()

	return p.result, len(p.result.Flashcards) > 0
}

func (p *lineParser) continueField(line string) {
	var b *strings.Builder
	switch p.field {
	case fieldQuestion:
		b = &p.question
	case fieldAnswer:
		b = &p.answer
	default:
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(strings.TrimSpace(line))
}

// flush emits the open card when both sides are present and resets state.
func (p *lineParser) flush() {
	if p.open {
		if card, ok := newCard(p.question.String(), p.answer.String()); ok {
			p.result.Flashcards = append(p.result.Flashcards, card)
		}
	}
	p.question.Reset()
	p.answer.Reset()
	p.open = false
	p.field = fieldNone
}

func (p *lineParser) setMetadata(tag, value string) {
	v := optional(strings.Trim(value, "*_ "))
	switch tag {
	case "title":
		if p.result.Title == nil {
			p.result.Title = v
		}
	case "author":
		if p.result.Author == nil {
			p.result.Author = v
		}
	case "language":
		if p.result.Language == nil {
			p.result.Language = v
		}
	}
}
