package ttyguard

import "testing"

func TestShouldSuppress(t *testing.T) {
	tests := []struct {
		args     []string
		testMode bool
		want     bool
	}{
		{nil, false, false},
		{nil, true, true},
		{[]string{"--version"}, false, true},
		{[]string{"-help"}, false, true},
		{[]string{"--history", "--json"}, false, true},
		{[]string{"--json", "hosts.txt"}, false, false},
		{[]string{"history"}, false, false},         // a source named history
		{[]string{"--", "--version"}, false, false}, // after the terminator
		{[]string{"--source", "version.txt"}, false, false},
	}
	for _, tt := range tests {
		if got := shouldSuppress(tt.args, tt.testMode); got != tt.want {
			t.Errorf("shouldSuppress(%v, %v) = %v, want %v", tt.args, tt.testMode, got, tt.want)
		}
	}
}
