package parser

import (
	"regexp"
	"sort"
	"strconv"
)

var (
	// Package path reference. Groups:
	//  1) Prefix and path, e.g. "pkg:/source/main.brs" or "complib1:/components/Player.brs"
	//  2) 1-based line number
	// Matches:
	// |Divide by Zero. (runtime error &h14) in pkg:/source/main.brs(14)|
	// |   file/line: complib1:/components/Player.brs(1151)|
	pkgPathPattern = regexp.MustCompile(`(\w+:/.*?)\((\d+)\)`)

	lineBreakPattern = regexp.MustCompile(`\r?\n`)
)

// LineIndex holds a text together with the byte offset of every line start.
// Build a new index whenever the text changes.
type LineIndex struct {
	text   string
	starts []int
	lines  []string
}

func NewLineIndex(text string) *LineIndex {
	idx := &LineIndex{text: text, starts: []int{0}}
	prev := 0
	for _, br := range lineBreakPattern.FindAllStringIndex(text, -1) {
		idx.lines = append(idx.lines, text[prev:br[0]])
		// br[1] already accounts for "\r\n" vs "\n".
		idx.starts = append(idx.starts, br[1])
		prev = br[1]
	}
	idx.lines = append(idx.lines, text[prev:])
	return idx
}

func (idx *LineIndex) Text() string {
	return idx.text
}

func (idx *LineIndex) LineCount() int {
	return len(idx.lines)
}

// Line returns the text of line i without its line break.
func (idx *LineIndex) Line(i int) string {
	if i < 0 || i >= len(idx.lines) {
		return ""
	}
	return idx.lines[i]
}

// LineStart returns the byte offset where line i begins.
func (idx *LineIndex) LineStart(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(idx.starts) {
		return len(idx.text)
	}
	return idx.starts[i]
}

// PositionAt converts an absolute byte offset to a line/character position.
func (idx *LineIndex) PositionAt(offset int) Position {
	line := sort.Search(len(idx.starts), func(i int) bool {
		return idx.starts[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}
	return Position{Line: line, Character: offset - idx.starts[line]}
}

// References scans every line and returns the package path references in
// encounter order.
func (idx *LineIndex) References() []*FileReference {
	refs := make([]*FileReference, 0)
	for i, line := range idx.lines {
		refs = append(refs, matchReferences(line, Position{Line: i}, idx.starts[i])...)
	}
	return refs
}

// ScanReferences finds all package path references in text. Empty text yields
// an empty list.
func ScanReferences(text string) []*FileReference {
	if text == "" {
		return []*FileReference{}
	}
	return NewLineIndex(text).References()
}

// matchReferences is the single place a package path is recognized. at is the
// document position of text[0]; offset is its absolute byte offset, or -1
// when the text is not anchored in a document.
func matchReferences(text string, at Position, offset int) []*FileReference {
	matches := pkgPathPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	refs := make([]*FileReference, 0, len(matches))
	for _, m := range matches {
		printed, err := strconv.Atoi(text[m[4]:m[5]])
		if err != nil {
			continue
		}
		ref := &FileReference{
			Range: Range{
				Start: Position{Line: at.Line, Character: at.Character + m[0]},
				End:   Position{Line: at.Line, Character: at.Character + m[1]},
			},
			Offset: -1,
			Length: m[1] - m[0],
			PkgLocation: Location{
				Path: text[m[2]:m[3]],
				Line: zeroBasedLine(printed),
			},
		}
		if offset >= 0 {
			ref.Offset = offset + m[0]
		}
		refs = append(refs, ref)
	}
	return refs
}

func zeroBasedLine(printed int) int {
	if printed <= 0 {
		return 0
	}
	return printed - 1
}
