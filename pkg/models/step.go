package models

// Tool identifies the atomic action a step performs against the browser
// session. The set is closed and exhaustively handled by the actuator.
type Tool string

const (
	// ToolGoto navigates the session to a URL.
	ToolGoto Tool = "GOTO"
	// ToolAct performs an interaction on the current page.
	ToolAct Tool = "ACT"
	// ToolExtract pulls data out of the current page.
	ToolExtract Tool = "EXTRACT"
	// ToolObserve lists interactive elements on the current page.
	ToolObserve Tool = "OBSERVE"
	// ToolWait pauses before the next decision.
	ToolWait Tool = "WAIT"
	// ToolNavback navigates back in session history.
	ToolNavback Tool = "NAVBACK"
	// ToolScreenshot captures the current page image.
	ToolScreenshot Tool = "SCREENSHOT"
	// ToolDone signals the subtask completed successfully.
	ToolDone Tool = "DONE"
	// ToolFail signals the subtask cannot be completed.
	ToolFail Tool = "FAIL"
	// ToolClose is a legacy synonym for session teardown. The execution
	// loop converts it to DONE; a subtask never tears down its session.
	ToolClose Tool = "CLOSE"
)

// Valid returns true if the tool is a known value.
func (t Tool) Valid() bool {
	switch t {
	case ToolGoto, ToolAct, ToolExtract, ToolObserve, ToolWait,
		ToolNavback, ToolScreenshot, ToolDone, ToolFail, ToolClose:
		return true
	default:
		return false
	}
}

// Terminal returns true for tools that end the execution loop.
func (t Tool) Terminal() bool {
	return t == ToolDone || t == ToolFail
}

// Step is one atomic decision+action pair recorded during a subtask's
// execution. Steps are owned by a single execution loop invocation and
// surface only as oracle context and in the subtask result audit trail.
type Step struct {
	// Text is the human-readable description of the action.
	Text string `json:"text"`
	// Reasoning explains why the action was chosen.
	Reasoning string `json:"reasoning"`
	// Tool is the action to perform.
	Tool Tool `json:"tool"`
	// Instruction is the free-form parameter for the tool.
	Instruction string `json:"instruction"`
}
