package provider

import "testing"

func TestStripReasoning(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"no trace", "plain answer", "plain answer"},
		{"trace stripped", "<think>pondering...</think>\nfinal answer", "final answer"},
		{"unterminated trace passes through", "<think>never closed", "<think>never closed"},
		{"end marker without start", "text </think> more", "text </think> more"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripReasoning(tc.in); got != tc.want {
				t.Fatalf("StripReasoning(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
