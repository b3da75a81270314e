package ir

import "time"

const Version = "2.0"

// Run kinds.
const (
	KindJCL   = "jcl"
	KindCOBOL = "cobol"
	KindASM   = "asm"
	KindIMS   = "ims"
)

type Run struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	StartedAt time.Time `json:"started_at"`
	Source    string    `json:"source,omitempty"`
	IRVersion string    `json:"ir_version,omitempty"`

	Utilities Utilities       `json:"utilities"`
	Steps     []ExtractedStep `json:"steps,omitempty"`
	Calls     []CallSite      `json:"calls,omitempty"`
	Skips     []Skip          `json:"skips,omitempty"`
	Findings  []Finding       `json:"findings,omitempty"`
	// Files counts scanned files per file type (IMS runs).
	Files map[string]int `json:"files,omitempty"`
}

// Utilities splits the configured inventory the same way the reports do.
type Utilities struct {
	Default []string `json:"default,omitempty"`
	Custom  []string `json:"custom,omitempty"`
}

// All returns the union of default and custom utilities, upper-cased.
func (u Utilities) All() map[string]bool {
	out := make(map[string]bool, len(u.Default)+len(u.Custom))
	for _, n := range u.Default {
		out[n] = true
	}
	for _, n := range u.Custom {
		out[n] = true
	}
	return out
}

// ScanTask is one queued file.
type ScanTask struct {
	Path      string
	Rel       string // Path relative to the scan root, slash-separated
	Utilities map[string]bool
	FileType  string
	CntlLib   string
	ProcLibs  []string
}

type SysinType string

const (
	SysinNone        SysinType = "None"
	SysinInline      SysinType = "InlineSYSIN"
	SysinControlCard SysinType = "ControlCard"
)

// Label is the column text used in reports.
func (t SysinType) Label() string {
	switch t {
	case SysinInline:
		return "Inline SYSIN"
	case SysinControlCard:
		return "Control Card"
	default:
		return "None"
	}
}

// ExtractedStep is one EXEC step whose program is an inventoried utility.
type ExtractedStep struct {
	FileName           string    `json:"file_name"`
	Path               string    `json:"path,omitempty"`
	FileType           string    `json:"file_type"`
	StepName           string    `json:"step_name"`
	Line               int       `json:"line"`
	StepBlock          string    `json:"step_block"`
	Program            string    `json:"program"`
	ResolvedFrom       string    `json:"resolved_from,omitempty"`
	SysinType          SysinType `json:"sysin_type"`
	SysinStatement     string    `json:"sysin_statement,omitempty"`
	SysinData          string    `json:"sysin_data,omitempty"` // inline SYSIN records
	ControlCardMember  string    `json:"control_card_member,omitempty"`
	ControlCardContent string    `json:"control_card_content,omitempty"`
	Comments           string    `json:"comments,omitempty"`
}

// Key identifies the source file: the path relative to the scan root, or the
// base name when the step did not come from a directory scan.
func (s ExtractedStep) Key() string {
	if s.Path != "" {
		return s.Path
	}
	return s.FileName
}

// CallSite is a COBOL CALL or Assembler macro that targets a utility, or an
// IMS DL/I call. CallType, Function and Param are set for IMS calls only.
type CallSite struct {
	FileName string `json:"file_name"`
	Path     string `json:"path,omitempty"`
	FileType string `json:"file_type"`
	Module   string `json:"module,omitempty"`
	Line     int    `json:"line"`
	Utility  string `json:"utility"`
	Target   string `json:"target"`
	Snippet  string `json:"snippet"`
	Comments string `json:"comments,omitempty"`

	CallType string `json:"call_type,omitempty"` // Static|Dynamic
	Function string `json:"function,omitempty"`  // DL/I function code, or Unknown
	Param    string `json:"param,omitempty"`     // first USING parameter
}

func (c CallSite) Key() string {
	if c.Path != "" {
		return c.Path
	}
	return c.FileName
}

// Skip records a file or step left out of the results, and why.
type Skip struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type Finding struct {
	ID       string         `json:"id"`
	File     string         `json:"file"`
	Step     string         `json:"step,omitempty"`
	RuleID   string         `json:"rule_id"`
	Type     string         `json:"type"`     // RISK|INFO
	Severity string         `json:"severity"` // LOW|MEDIUM|HIGH
	Message  string         `json:"message"`
	Evidence string         `json:"evidence,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
