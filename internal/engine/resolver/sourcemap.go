package resolver

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/neelance/sourcemap"
)

const vlqAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// OriginalPosition is a sourcemap lookup result. Line is 1-based and Column
// 0-based, as in the sourcemap format.
type OriginalPosition struct {
	Source string
	Name   string
	Line   int
	Column int
}

// segment is one decoded mapping on a generated line.
type segment struct {
	column     int
	source     string
	name       string
	origLine   int
	origColumn int
	hasSource  bool
}

// SourceMap answers original-position queries with a least-upper-bound bias:
// when no mapping starts exactly at the queried column, the nearest mapping
// after it on the same generated line is used.
type SourceMap struct {
	lines map[int][]segment
}

// ParseSourceMap decodes a v3 sourcemap. Source paths are kept as written in
// the map (joined with sourceRoot when present).
func ParseSourceMap(data []byte) (*SourceMap, error) {
	m, err := sourcemap.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := validateMappings(m.Mappings); err != nil {
		return nil, err
	}
	mappings, err := decodeMappings(m)
	if err != nil {
		return nil, err
	}

	sm := &SourceMap{lines: make(map[int][]segment)}
	for _, mapping := range mappings {
		seg := segment{column: mapping.GeneratedColumn}
		if mapping.OriginalFile != "" {
			seg.hasSource = true
			seg.source = joinSourceRoot(m.SourceRoot, mapping.OriginalFile)
			seg.name = mapping.OriginalName
			seg.origLine = mapping.OriginalLine
			seg.origColumn = mapping.OriginalColumn
		}
		sm.lines[mapping.GeneratedLine] = append(sm.lines[mapping.GeneratedLine], seg)
	}
	for _, segs := range sm.lines {
		sort.SliceStable(segs, func(i, j int) bool { return segs[i].column < segs[j].column })
	}
	return sm, nil
}

// decodeMappings turns decoder panics on inconsistent maps (source or name
// indexes out of range, bad segment arity) into errors.
func decodeMappings(m *sourcemap.Map) (mappings []*sourcemap.Mapping, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid sourcemap mappings: %v", r)
		}
	}()
	return m.DecodedMappings(), nil
}

// validateMappings rejects characters outside the base64 VLQ alphabet and
// values left unterminated at a segment boundary.
func validateMappings(mappings string) error {
	open := false
	for i := 0; i < len(mappings); i++ {
		c := mappings[i]
		if c == ',' || c == ';' {
			if open {
				return fmt.Errorf("invalid sourcemap mappings: unterminated value at %d", i)
			}
			continue
		}
		digit := strings.IndexByte(vlqAlphabet, c)
		if digit < 0 {
			return fmt.Errorf("invalid sourcemap mappings: unexpected %q at %d", c, i)
		}
		open = digit&32 != 0
	}
	if open {
		return fmt.Errorf("invalid sourcemap mappings: unterminated value at end")
	}
	return nil
}

func joinSourceRoot(root, source string) string {
	if root == "" {
		return source
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return root + source
}

// OriginalPositionFor maps a generated position (1-based line, 0-based
// column) to its original position.
func (m *SourceMap) OriginalPositionFor(line, column int) (OriginalPosition, bool) {
	if line < 1 || column < 0 {
		return OriginalPosition{}, false
	}

	segs := m.lines[line]
	i := sort.Search(len(segs), func(i int) bool { return segs[i].column >= column })
	if i == len(segs) || !segs[i].hasSource {
		return OriginalPosition{}, false
	}
	seg := segs[i]
	return OriginalPosition{Source: seg.source, Name: seg.name, Line: seg.origLine, Column: seg.origColumn}, true
}
