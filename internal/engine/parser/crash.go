package parser

import (
	"regexp"
	"strings"
	"unicode"
)

const stackTraceMissingMarker = "StackTrace missing"

var (
	// A run of underscores (with surrounding whitespace) separates crash blocks.
	blockSeparatorPattern = regexp.MustCompile(`\s*_{3,}\s*`)

	// Consecutive line breaks count as one separator inside a block.
	blockLineBreakPattern = regexp.MustCompile(`(\r?\n)+`)

	// Column rules under section headers, e.g. "-----   -----------------".
	dashRulePattern = regexp.MustCompile(`^[-\s]*-{3,}[-\s]*$`)

	hardwareHeaderPattern   = regexp.MustCompile(`^count\s+Hardware Platform`)
	versionHeaderPattern    = regexp.MustCompile(`^count\s+Application Version`)
	stackTraceHeaderPattern = regexp.MustCompile(`^Stack Trace`)
)

type sectionKind int

const (
	sectionHardware sectionKind = iota + 1
	sectionVersion
	sectionStackTrace
)

// textLine is a trimmed line and the absolute byte offset of its first
// character, or -1 when the line does not come from a document.
type textLine struct {
	text   string
	offset int
}

// ParseCrashReports splits a crash log into crash blocks and extracts one
// CrashReport per block that has at least one recognized section.
func ParseCrashReports(text string) []CrashReport {
	return NewLineIndex(text).CrashReports()
}

// CrashReports parses the indexed text. Stack frames are not linked to any
// reference list; see LinkFrames.
func (idx *LineIndex) CrashReports() []CrashReport {
	reports := make([]CrashReport, 0)
	for _, block := range splitBlocks(idx.text) {
		if strings.Contains(block.text, stackTraceMissingMarker) {
			continue
		}
		sections := splitSections(splitBlockLines(block))
		if len(sections) == 0 {
			continue
		}
		reports = append(reports, idx.buildReport(sections))
	}
	return reports
}

func (idx *LineIndex) buildReport(sections map[sectionKind][]textLine) CrashReport {
	report := CrashReport{
		StackFrame:          []StackFrame{},
		LocalVariables:      []LocalVariable{},
		ApplicationVersions: []ApplicationVersionCount{},
		Count:               CrashCount{Details: []HardwarePlatformCount{}},
	}

	if lines, ok := sections[sectionHardware]; ok {
		report.Count.Details = ParseHardwarePlatformSection(lineTexts(lines))
	}
	if lines, ok := sections[sectionVersion]; ok {
		report.ApplicationVersions = ParseApplicationVersionSection(lineTexts(lines))
	}
	if lines, ok := sections[sectionStackTrace]; ok {
		trace := parseStackTrace(lines, idx)
		report.ErrorMessage = trace.ErrorMessage
		report.StackFrame = trace.StackFrame
		report.LocalVariables = trace.LocalVariables
	}

	for _, v := range report.ApplicationVersions {
		report.Count.Total += v.Count
	}
	return report
}

func splitBlocks(text string) []textLine {
	blocks := make([]textLine, 0)
	prev := 0
	for _, sep := range blockSeparatorPattern.FindAllStringIndex(text, -1) {
		blocks = append(blocks, textLine{text: text[prev:sep[0]], offset: prev})
		prev = sep[1]
	}
	return append(blocks, textLine{text: text[prev:], offset: prev})
}

func splitBlockLines(block textLine) []textLine {
	lines := make([]textLine, 0)
	prev := 0
	for _, br := range blockLineBreakPattern.FindAllStringIndex(block.text, -1) {
		lines = append(lines, trimLine(block.text[prev:br[0]], block.offset+prev))
		prev = br[1]
	}
	return append(lines, trimLine(block.text[prev:], block.offset+prev))
}

func trimLine(raw string, offset int) textLine {
	trimmedLeft := strings.TrimLeftFunc(raw, unicode.IsSpace)
	line := textLine{text: strings.TrimRightFunc(trimmedLeft, unicode.IsSpace), offset: -1}
	if offset >= 0 {
		line.offset = offset + len(raw) - len(trimmedLeft)
	}
	return line
}

// splitSections assigns lines to the section whose header was seen last.
// Lines before the first header are dropped; a repeated header keeps
// appending to the same bucket.
func splitSections(lines []textLine) map[sectionKind][]textLine {
	sections := make(map[sectionKind][]textLine)
	var current sectionKind
	for _, line := range lines {
		if dashRulePattern.MatchString(line.text) {
			continue
		}
		if kind, ok := sectionHeader(line.text); ok {
			current = kind
			if _, exists := sections[kind]; !exists {
				sections[kind] = []textLine{}
			}
			continue
		}
		if current == 0 {
			continue
		}
		sections[current] = append(sections[current], line)
	}
	return sections
}

func sectionHeader(line string) (sectionKind, bool) {
	switch {
	case hardwareHeaderPattern.MatchString(line):
		return sectionHardware, true
	case versionHeaderPattern.MatchString(line):
		return sectionVersion, true
	case stackTraceHeaderPattern.MatchString(line):
		return sectionStackTrace, true
	}
	return 0, false
}

func lineTexts(lines []textLine) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line.text
	}
	return out
}
