package parser

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	backtraceHeader      = "Backtrace:"
	localVariablesHeader = "Local Variables:"
)

var (
	versionSeparatorPattern = regexp.MustCompile(`[.,;]`)

	// "#1  Function main() As Void"
	frameScopePattern = regexp.MustCompile(`^#\d+\s+\S`)

	// "file/line: pkg:/source/main.brs(14)"
	frameFileLinePattern = regexp.MustCompile(`^file/line:\s+\S`)
)

// StackTrace is the parsed content of a "Stack Trace" section.
type StackTrace struct {
	ErrorMessage   string          `json:"errorMessage"`
	StackFrame     []StackFrame    `json:"stackFrame"`
	LocalVariables []LocalVariable `json:"localVariables"`
}

// ParseHardwarePlatformSection parses "<count> <code name>" lines. Blank lines
// and lines without a leading count are skipped.
func ParseHardwarePlatformSection(lines []string) []HardwarePlatformCount {
	counts := make([]HardwarePlatformCount, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		count, ok := parseCount(fields[0])
		if !ok {
			continue
		}
		counts = append(counts, HardwarePlatformCount{
			Count:            count,
			HardwarePlatform: strings.Join(fields[1:], " "),
		})
	}
	return counts
}

// ParseApplicationVersionSection parses "<count> <version>" lines. The version
// is kept raw and, when it is exactly three numeric segments separated by
// '.', ',' or ';', also parsed.
func ParseApplicationVersionSection(lines []string) []ApplicationVersionCount {
	versions := make([]ApplicationVersionCount, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		count, ok := parseCount(fields[0])
		if !ok {
			continue
		}
		raw := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
		versions = append(versions, ApplicationVersionCount{
			Count:      count,
			Version:    parseApplicationVersion(raw),
			RawVersion: raw,
		})
	}
	return versions
}

func parseApplicationVersion(raw string) *ApplicationVersion {
	parts := versionSeparatorPattern.Split(raw, -1)
	if len(parts) != 3 {
		return nil
	}
	numbers := make([]int, 3)
	for i, part := range parts {
		n, ok := parseCount(part)
		if !ok {
			return nil
		}
		numbers[i] = n
	}
	return &ApplicationVersion{Major: numbers[0], Minor: numbers[1], Build: numbers[2]}
}

func parseCount(s string) (int, bool) {
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// ParseStackTraceSection parses the raw lines of a "Stack Trace" section.
// Frames are not correlated with any document reference.
func ParseStackTraceSection(lines []string) StackTrace {
	detached := make([]textLine, len(lines))
	for i, line := range lines {
		detached[i] = textLine{text: strings.TrimSpace(line), offset: -1}
	}
	return parseStackTrace(detached, nil)
}

func parseStackTrace(lines []textLine, idx *LineIndex) StackTrace {
	trace := StackTrace{
		StackFrame:     []StackFrame{},
		LocalVariables: []LocalVariable{},
	}

	content := make([]textLine, 0, len(lines))
	for _, line := range lines {
		if line.text != "" {
			content = append(content, line)
		}
	}
	if len(content) == 0 {
		return trace
	}

	if first := content[0].text; first != backtraceHeader && first != localVariablesHeader {
		trace.ErrorMessage = first
		content = content[1:]
	}

	var backtrace, locals []textLine
	var current *[]textLine
	for _, line := range content {
		switch line.text {
		case backtraceHeader:
			current = &backtrace
			continue
		case localVariablesHeader:
			current = &locals
			continue
		}
		if current != nil {
			*current = append(*current, line)
		}
	}

	trace.StackFrame = parseBacktrace(backtrace, idx)
	trace.LocalVariables = parseLocalVariables(locals)
	return trace
}

func parseBacktrace(lines []textLine, idx *LineIndex) []StackFrame {
	frames := make([]StackFrame, 0)
	var current StackFrame
	for i, line := range lines {
		if frameScopePattern.MatchString(line.text) {
			current.Scope = strings.Join(strings.Fields(line.text)[1:], " ")
			continue
		}
		if !frameFileLinePattern.MatchString(line.text) {
			continue
		}

		at := Position{Line: i}
		if idx != nil && line.offset >= 0 {
			at = idx.PositionAt(line.offset)
		}
		refs := matchReferences(line.text, at, line.offset)
		if len(refs) == 0 {
			continue
		}
		frame := current
		frame.PkgLocation = refs[0].PkgLocation
		frame.offset = refs[0].Offset
		frames = append(frames, frame)
	}
	return frames
}

func parseLocalVariables(lines []textLine) []LocalVariable {
	vars := make([]LocalVariable, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line.text)
		if len(fields) == 0 {
			continue
		}
		vars = append(vars, LocalVariable{
			Name:     fields[0],
			Metadata: strings.TrimSpace(strings.TrimPrefix(line.text, fields[0])),
		})
	}
	return vars
}

// LinkFrames points every stack frame at the matching reference in refs, the
// document's own reference list. Frames are matched by absolute offset and
// otherwise by equal package path and line. Unmatched frames keep a nil
// Reference.
func LinkFrames(reports []CrashReport, refs []*FileReference) {
	byOffset := make(map[int]*FileReference, len(refs))
	for _, ref := range refs {
		if ref.Offset >= 0 {
			byOffset[ref.Offset] = ref
		}
	}

	for i := range reports {
		for j := range reports[i].StackFrame {
			frame := &reports[i].StackFrame[j]
			frame.Reference = findFrameReference(frame, byOffset, refs)
		}
	}
}

func findFrameReference(frame *StackFrame, byOffset map[int]*FileReference, refs []*FileReference) *FileReference {
	if frame.offset >= 0 {
		if ref, ok := byOffset[frame.offset]; ok && ref.PkgLocation == frame.PkgLocation {
			return ref
		}
	}
	for _, ref := range refs {
		if ref.PkgLocation.Path == frame.PkgLocation.Path && ref.PkgLocation.Line == frame.PkgLocation.Line {
			return ref
		}
	}
	return nil
}
