package ferrors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without cause",
			err:      New(CodeNotFound, "node %s", "abc"),
			expected: "NOT_FOUND: node abc",
		},
		{
			name:     "with cause",
			err:      Wrap(CodeParse, errors.New("unexpected EOF"), "import failed"),
			expected: "PARSE_ERROR: import failed: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestIsFollowsWrapChain(t *testing.T) {
	base := New(CodeInvalidTarget, "missing node")
	wrapped := fmt.Errorf("resolve: %w", base)

	if !Is(wrapped, CodeInvalidTarget) {
		t.Error("expected wrapped error to match CodeInvalidTarget")
	}
	if Is(wrapped, CodeNotFound) {
		t.Error("did not expect wrapped error to match CodeNotFound")
	}
	if GetCode(errors.New("plain")) != "" {
		t.Error("expected empty code for plain errors")
	}
}

func TestOutermostCodeWins(t *testing.T) {
	inner := New(CodeNotFound, "node x")
	outer := Wrap(CodeInvalidTarget, inner, "right-of x")

	if GetCode(outer) != CodeInvalidTarget {
		t.Errorf("GetCode = %s, expected %s", GetCode(outer), CodeInvalidTarget)
	}
	if !errors.Is(outer, inner) {
		t.Error("expected cause to remain reachable through errors.Is")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(Wrap(CodeNetwork, errors.New("dial tcp"), "save form")); got != "save form" {
		t.Errorf("UserMessage = %q, expected %q", got, "save form")
	}
	nested := Wrap(CodeParse, New(CodeInvalidInput, "duplicate component id %q", "a"), "invalid form schema")
	if got := UserMessage(nested); got != `invalid form schema: duplicate component id "a"` {
		t.Errorf("UserMessage = %q", got)
	}
	if got := UserMessage(errors.New("boom")); got != "boom" {
		t.Errorf("UserMessage = %q, expected %q", got, "boom")
	}
}

func TestIsAborted(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"coded", New(CodeAborted, "stopped"), true},
		{"context canceled", fmt.Errorf("call: %w", context.Canceled), true},
		{"deadline", context.DeadlineExceeded, false},
		{"network", New(CodeNetwork, "down"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAborted(tt.err); got != tt.expected {
				t.Errorf("IsAborted = %v, expected %v", got, tt.expected)
			}
		})
	}
}
