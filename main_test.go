package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/schardosin/formstudio/pkg/ferrors"
)

func TestReport(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     int
		contains string
		absent   string
	}{
		{"success", nil, 0, "", "Error"},
		{"cancelled", ferrors.Wrap(ferrors.CodeAborted, context.Canceled, "generation aborted"), exitInterrupted, "Cancelled.", "✕"},
		{"wrapped cancel", errors.Join(errors.New("generate"), ferrors.New(ferrors.CodeAborted, "stop")), exitInterrupted, "Cancelled.", "✕"},
		{"coded failure", ferrors.New(ferrors.CodeNotFound, "form 4 not found"), 1, "Not Found", ""},
		{"plain failure", errors.New("boom"), 1, "Error: boom", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if got := report(tt.err, &out); got != tt.code {
				t.Errorf("report() = %d, expected %d", got, tt.code)
			}
			if tt.contains != "" && !strings.Contains(out.String(), tt.contains) {
				t.Errorf("output %q is missing %q", out.String(), tt.contains)
			}
			if tt.absent != "" && strings.Contains(out.String(), tt.absent) {
				t.Errorf("output %q should not contain %q", out.String(), tt.absent)
			}
		})
	}
}
