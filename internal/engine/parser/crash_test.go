package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCrashLog = `Application crash log
______________________________________________________________________________
count   Hardware Platform
-----   -----------------
    3   Austin
    1   Reno 4K

count   Application Version
-----   -------------------
    2   2.6.590
    2   ver3

Stack Trace
-----------
Divide by Zero. (runtime error &h14) in pkg:/source/main.brs(14)
Backtrace:
#1  Function startplayback() As Void
   file/line: pkg:/source/main.brs(14)
#0  Function main(args As Object) As Void
   file/line: pkg:/source/main.brs(3)
Local Variables:
global           Interface:ifGlobal
m                roAssociativeArray refcnt=2 count:0
args             roAssociativeArray refcnt=1 count:2
______________________________________________________________________________
count   Hardware Platform
-----   -----------------
    1   Liberty

count   Application Version
-----   -------------------
    1   2.6.590

StackTrace missing
______________________________________________________________________________
`

func TestParseCrashReports_SampleLog(t *testing.T) {
	reports := ParseCrashReports(sampleCrashLog)
	require.Len(t, reports, 1)

	report := reports[0]
	assert.Equal(t, "Divide by Zero. (runtime error &h14) in pkg:/source/main.brs(14)", report.ErrorMessage)
	assert.Equal(t, 4, report.Count.Total)
	assert.Equal(t, []HardwarePlatformCount{
		{Count: 3, HardwarePlatform: "Austin"},
		{Count: 1, HardwarePlatform: "Reno 4K"},
	}, report.Count.Details)
	assert.Equal(t, []ApplicationVersionCount{
		{Count: 2, Version: &ApplicationVersion{Major: 2, Minor: 6, Build: 590}, RawVersion: "2.6.590"},
		{Count: 2, RawVersion: "ver3"},
	}, report.ApplicationVersions)

	require.Len(t, report.StackFrame, 2)
	assert.Equal(t, "Function startplayback() As Void", report.StackFrame[0].Scope)
	assert.Equal(t, Location{Path: "pkg:/source/main.brs", Line: 13}, report.StackFrame[0].PkgLocation)
	assert.Equal(t, "Function main(args As Object) As Void", report.StackFrame[1].Scope)
	assert.Equal(t, Location{Path: "pkg:/source/main.brs", Line: 2}, report.StackFrame[1].PkgLocation)

	assert.Equal(t, []LocalVariable{
		{Name: "global", Metadata: "Interface:ifGlobal"},
		{Name: "m", Metadata: "roAssociativeArray refcnt=2 count:0"},
		{Name: "args", Metadata: "roAssociativeArray refcnt=1 count:2"},
	}, report.LocalVariables)
}

func TestParseCrashReports_EmptyAndUnrecognized(t *testing.T) {
	assert.Empty(t, ParseCrashReports(""))
	assert.Empty(t, ParseCrashReports("no sections here\n_____\nstill nothing"))
}

func TestParseCrashReports_TotalIsSumOfVersionCounts(t *testing.T) {
	text := strings.Join([]string{
		"count   Hardware Platform",
		"-----   -----------------",
		"    9   Austin",
		"count   Application Version",
		"-----   -------------------",
		"    1   3.6.5",
		"    2   0,0,1",
		"    4   1;2;3",
	}, "\n")

	reports := ParseCrashReports(text)
	require.Len(t, reports, 1)
	assert.Equal(t, 7, reports[0].Count.Total)
	assert.Equal(t, []HardwarePlatformCount{{Count: 9, HardwarePlatform: "Austin"}}, reports[0].Count.Details)
	assert.Empty(t, reports[0].StackFrame)
	assert.Empty(t, reports[0].LocalVariables)
	assert.Equal(t, "", reports[0].ErrorMessage)
}

func TestParseCrashReports_EmptyHardwareSection(t *testing.T) {
	text := "count   Hardware Platform\n-----   -----\n\ncount   Application Version\n    5   1.0.0\n"
	reports := ParseCrashReports(text)
	require.Len(t, reports, 1)
	assert.NotNil(t, reports[0].Count.Details)
	assert.Empty(t, reports[0].Count.Details)
	assert.Equal(t, 5, reports[0].Count.Total)
}

func TestParseCrashReports_RepeatedHeaderAccumulates(t *testing.T) {
	text := strings.Join([]string{
		"count   Application Version",
		"    1   1.0.0",
		"count   Hardware Platform",
		"    1   Austin",
		"count   Application Version",
		"    2   1.0.1",
	}, "\n")

	reports := ParseCrashReports(text)
	require.Len(t, reports, 1)
	require.Len(t, reports[0].ApplicationVersions, 2)
	assert.Equal(t, "1.0.1", reports[0].ApplicationVersions[1].RawVersion)
	assert.Equal(t, 3, reports[0].Count.Total)
}

func TestParseCrashReports_CRLF(t *testing.T) {
	text := strings.ReplaceAll(sampleCrashLog, "\n", "\r\n")
	reports := ParseCrashReports(text)
	require.Len(t, reports, 1)
	require.Len(t, reports[0].StackFrame, 2)
	assert.Equal(t, "Divide by Zero. (runtime error &h14) in pkg:/source/main.brs(14)", reports[0].ErrorMessage)
	assert.Equal(t, "Interface:ifGlobal", reports[0].LocalVariables[0].Metadata)
}

func TestLinkFrames_UsesDocumentReferences(t *testing.T) {
	idx := NewLineIndex(sampleCrashLog)
	refs := idx.References()
	reports := idx.CrashReports()
	require.Len(t, refs, 3)
	require.Len(t, reports, 1)

	LinkFrames(reports, refs)

	frames := reports[0].StackFrame
	// The error message line prints the same location as the first frame,
	// but the frame must point at its own file/line occurrence.
	assert.Same(t, refs[1], frames[0].Reference)
	assert.Same(t, refs[2], frames[1].Reference)

	refs[1].SrcLocation = &Location{Path: "/src/main.bs", Line: 20}
	assert.True(t, frames[0].Reference.Resolved())
	assert.False(t, frames[1].Reference.Resolved())
}

func TestLinkFrames_FallsBackToPathAndLine(t *testing.T) {
	trace := ParseStackTraceSection([]string{
		"Backtrace:",
		"#0  Function main() As Void",
		"   file/line: pkg:/source/main.brs(3)",
		"#1  Function other() As Void",
		"   file/line: pkg:/source/other.brs(8)",
	})
	reports := []CrashReport{{StackFrame: trace.StackFrame}}
	refs := ScanReferences("seen at pkg:/source/main.brs(3)")

	LinkFrames(reports, refs)

	assert.Same(t, refs[0], reports[0].StackFrame[0].Reference)
	assert.Nil(t, reports[0].StackFrame[1].Reference)
}
