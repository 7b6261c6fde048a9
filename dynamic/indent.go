package dynamic

import "bytes"

// indentBuffer accumulates JSON output. An indentCount of -1 produces
// compact output with no extra whitespace; otherwise it tracks the current
// nesting depth and writes indent once per level after each newline.
type indentBuffer struct {
	bytes.Buffer
	indent      string
	indentCount int
	comma       bool
}

func (b *indentBuffer) start() error {
	if b.indentCount >= 0 {
		b.indentCount++
		return b.newLine(false)
	}
	return nil
}

func (b *indentBuffer) sep() error {
	if b.indentCount >= 0 {
		_, err := b.WriteString(": ")
		return err
	}
	return b.WriteByte(':')
}

func (b *indentBuffer) end() error {
	if b.indentCount >= 0 {
		b.indentCount--
		return b.newLine(false)
	}
	return nil
}

func (b *indentBuffer) maybeNext(first *bool) error {
	if *first {
		*first = false
		return nil
	}
	return b.next()
}

func (b *indentBuffer) next() error {
	if b.indentCount >= 0 {
		return b.newLine(b.comma)
	}
	if b.comma {
		return b.WriteByte(',')
	}
	return nil
}

func (b *indentBuffer) newLine(comma bool) error {
	if comma {
		if err := b.WriteByte(','); err != nil {
			return err
		}
	}
	if err := b.WriteByte('\n'); err != nil {
		return err
	}
	for i := 0; i < b.indentCount; i++ {
		if _, err := b.WriteString(b.indent); err != nil {
			return err
		}
	}
	return nil
}
