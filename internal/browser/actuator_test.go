package browser

import "testing"

func TestParseAct(t *testing.T) {
	tests := []struct {
		name         string
		instruction  string
		wantVerb     string
		wantSelector string
		wantArg      string
		wantErr      bool
	}{
		{"click", "click #submit", "click", "#submit", "", false},
		{"fill with value", "fill #q electric kettle", "fill", "#q", "electric kettle", false},
		{"press key", "press #q Enter", "press", "#q", "Enter", false},
		{"hover", "hover .menu", "hover", ".menu", "", false},
		{"select option", "select #size large", "select", "#size", "large", false},
		{"uppercase verb normalized", "CLICK #ok", "click", "#ok", "", false},
		{"missing selector", "click", "", "", "", true},
		{"fill without value", "fill #q", "", "", "", true},
		{"empty", "", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verb, selector, arg, err := parseAct(tt.instruction)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseAct(%q) error = nil, want error", tt.instruction)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAct(%q) error = %v", tt.instruction, err)
			}
			if verb != tt.wantVerb || selector != tt.wantSelector || arg != tt.wantArg {
				t.Errorf("parseAct(%q) = (%q, %q, %q), want (%q, %q, %q)",
					tt.instruction, verb, selector, arg, tt.wantVerb, tt.wantSelector, tt.wantArg)
			}
		})
	}
}
