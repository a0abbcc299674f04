package shellinput

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Buffer holds the text being edited and a cursor expressed as a byte
// offset. The cursor never splits an encoded rune. Deletion and movement
// leave it on a grapheme cluster boundary; Insert advances it by exactly the
// inserted rune, so inserting in front of a combining mark or a second
// regional indicator leaves it inside the new cluster until the next move.
type Buffer struct {
	text   string
	cursor int
}

// NewBuffer returns a buffer holding text with the cursor at its end.
func NewBuffer(text string) Buffer {
	return Buffer{text: text, cursor: len(text)}
}

// Value returns the current text.
func (b Buffer) Value() string {
	return b.text
}

// Cursor returns the cursor position as a byte offset into Value.
func (b Buffer) Cursor() int {
	return b.cursor
}

// Len returns the length of the text in bytes.
func (b Buffer) Len() int {
	return len(b.text)
}

// Insert inserts r at the cursor and moves the cursor past it.
func (b *Buffer) Insert(r rune) {
	var encoded [utf8.UTFMax]byte
	n := utf8.EncodeRune(encoded[:], r)
	b.text = b.text[:b.cursor] + string(encoded[:n]) + b.text[b.cursor:]
	b.cursor += n
}

// InsertString inserts every rune of s at the cursor, in order.
func (b *Buffer) InsertString(s string) {
	for _, r := range s {
		b.Insert(r)
	}
}

// DeleteBeforeCursor removes the grapheme cluster immediately before the
// cursor. It does nothing when the cursor is at the start of the text.
func (b *Buffer) DeleteBeforeCursor() {
	if b.cursor == 0 {
		return
	}
	start := previousBoundary(b.text, b.cursor)
	b.text = b.text[:start] + b.text[b.cursor:]
	b.cursor = start
}

// DeleteAfterCursor removes everything from the cursor to the end of the
// text and returns what was removed.
func (b *Buffer) DeleteAfterCursor() string {
	killed := b.text[b.cursor:]
	b.text = b.text[:b.cursor]
	return killed
}

// DeleteToStart removes everything before the cursor and returns what was
// removed.
func (b *Buffer) DeleteToStart() string {
	killed := b.text[:b.cursor]
	b.text = b.text[b.cursor:]
	b.cursor = 0
	return killed
}

// SetContent replaces the text and moves the cursor to the end.
func (b *Buffer) SetContent(text string) {
	b.text = text
	b.cursor = len(text)
}

// MoveLeft moves the cursor back by one grapheme cluster.
func (b *Buffer) MoveLeft() {
	if b.cursor > 0 {
		b.cursor = previousBoundary(b.text, b.cursor)
	}
}

// MoveRight moves the cursor forward by one grapheme cluster.
func (b *Buffer) MoveRight() {
	if b.cursor >= len(b.text) {
		return
	}
	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(b.text[b.cursor:], -1)
	b.cursor += len(cluster)
}

func (b *Buffer) MoveStart() {
	b.cursor = 0
}

func (b *Buffer) MoveEnd() {
	b.cursor = len(b.text)
}

// CursorColumn returns the display column of the cursor.
func (b Buffer) CursorColumn() int {
	return runewidth.StringWidth(b.text[:b.cursor])
}

// previousBoundary returns the byte offset where the grapheme cluster that
// ends at pos begins.
func previousBoundary(text string, pos int) int {
	prefix := text[:pos]
	start := 0
	state := -1
	for len(prefix) > 0 {
		var cluster string
		cluster, prefix, _, state = uniseg.FirstGraphemeClusterInString(prefix, state)
		if len(prefix) == 0 {
			return start
		}
		start += len(cluster)
	}
	return start
}
