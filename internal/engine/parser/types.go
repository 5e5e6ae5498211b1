package parser

// Location is a 0-based position inside a file. Device logs print 1-based
// line numbers; every ingestion point converts them exactly once.
type Location struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
}

type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is the literal span of a matched reference inside the log text.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// FileReference is one `prefix:/path(line)` occurrence in a log.
//
// Range, Offset, Length and PkgLocation are fixed at scan time. SrcLocation is
// set at most once by the resolver; a nil SrcLocation after processing means
// the reference could not be resolved.
type FileReference struct {
	Range       Range     `json:"range"`
	Offset      int       `json:"offset"` // byte index of the match start within the whole text
	Length      int       `json:"length"` // byte length of the matched text
	PkgLocation Location  `json:"pkgLocation"`
	SrcLocation *Location `json:"srcLocation,omitempty"`
}

// Resolved reports whether a source location has been attached.
func (r *FileReference) Resolved() bool {
	return r != nil && r.SrcLocation != nil
}

// CrashReport is one underscore-delimited crash block.
type CrashReport struct {
	// ErrorMessage is the line right before the backtrace, e.g.
	// "Divide by Zero. (runtime error &h14) in pkg:/source/main.brs(14)".
	ErrorMessage        string                    `json:"errorMessage"`
	StackFrame          []StackFrame              `json:"stackFrame"`
	LocalVariables      []LocalVariable           `json:"localVariables"`
	ApplicationVersions []ApplicationVersionCount `json:"applicationVersions"`
	Count               CrashCount                `json:"count"`
}

type CrashCount struct {
	Total   int                     `json:"total"` // sum of ApplicationVersions[].Count
	Details []HardwarePlatformCount `json:"details"`
}

type HardwarePlatformCount struct {
	Count            int    `json:"count"`
	HardwarePlatform string `json:"hardwarePlatform"`
}

// StackFrame is one backtrace entry, in printed order.
type StackFrame struct {
	Scope string `json:"scope"` // raw signature, e.g. "Function main() As Void"
	// PkgLocation is the frame location as printed in the log.
	PkgLocation Location `json:"pkgLocation"`
	// Reference points into the owning document's reference list, so a
	// resolution made through that list is visible here. Nil when the frame
	// could not be correlated.
	Reference *FileReference `json:"reference,omitempty"`

	offset int
}

type LocalVariable struct {
	Name string `json:"name"`
	// Metadata is the raw remainder of the line, e.g. "roAssociativeArray refcnt=3 count:67".
	Metadata string `json:"metadata"`
}

type ApplicationVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Build int `json:"build"`
}

// ApplicationVersionCount is the crash count for one application version.
// Version is nil when RawVersion is not three numeric segments.
type ApplicationVersionCount struct {
	Count      int                 `json:"count"`
	Version    *ApplicationVersion `json:"version,omitempty"`
	RawVersion string              `json:"rawVersion"`
}
