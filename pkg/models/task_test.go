package models

import "testing"

func TestStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   bool
	}{
		{"pending is valid", StatusPending, true},
		{"in_progress is valid", StatusInProgress, true},
		{"done is valid", StatusDone, true},
		{"failed is valid", StatusFailed, true},
		{"empty string is invalid", Status(""), false},
		{"unknown status is invalid", Status("blocked"), false},
		{"uppercase is invalid", Status("DONE"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("Status(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusInProgress, false},
		{StatusDone, true},
		{StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Status(%q).Terminal() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestTool_Valid(t *testing.T) {
	valid := []Tool{
		ToolGoto, ToolAct, ToolExtract, ToolObserve, ToolWait,
		ToolNavback, ToolScreenshot, ToolDone, ToolFail, ToolClose,
	}
	for _, tool := range valid {
		if !tool.Valid() {
			t.Errorf("Tool(%q).Valid() = false, want true", tool)
		}
	}

	invalid := []Tool{"", "goto", "CLICK", "TYPE"}
	for _, tool := range invalid {
		if tool.Valid() {
			t.Errorf("Tool(%q).Valid() = true, want false", tool)
		}
	}
}

func TestTool_Terminal(t *testing.T) {
	if !ToolDone.Terminal() || !ToolFail.Terminal() {
		t.Error("DONE and FAIL should be terminal")
	}
	for _, tool := range []Tool{ToolGoto, ToolAct, ToolExtract, ToolObserve, ToolWait, ToolNavback, ToolScreenshot, ToolClose} {
		if tool.Terminal() {
			t.Errorf("Tool(%q).Terminal() = true, want false", tool)
		}
	}
}
