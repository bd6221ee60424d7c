package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	err := MissingPrimaryFile("tx.csv", fs.ErrNotExist)

	if !strings.Contains(err.Error(), "MISSING_PRIMARY_FILE") {
		t.Errorf("Error() = %q, should contain code", err.Error())
	}
	if !strings.Contains(err.Error(), "tx.csv") {
		t.Errorf("Error() = %q, should name the file", err.Error())
	}
	if !stderrors.Is(err, fs.ErrNotExist) {
		t.Error("errors.Is should see the cause")
	}
	if err.Details != "tx.csv" {
		t.Errorf("Details = %q", err.Details)
	}
}

func TestHasCode(t *testing.T) {
	inner := MissingReferenceFile("catalog", "products.csv", fs.ErrNotExist)
	wrapped := fmt.Errorf("load references: %w", inner)
	nested := InternalWrap(wrapped, "pipeline failed")

	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"direct", inner, CodeMissingReferenceFile, true},
		{"fmt wrapped", wrapped, CodeMissingReferenceFile, true},
		{"outer code", nested, CodeInternal, true},
		{"inner code through app error", nested, CodeMissingReferenceFile, true},
		{"absent code", nested, CodeReportWrite, false},
		{"plain error", fs.ErrNotExist, CodeInternal, false},
		{"nil", nil, CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCode(tt.err, tt.code); got != tt.want {
				t.Errorf("HasCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{InvalidConfig(fmt.Errorf("bad")), 2},
		{MissingPrimaryFile("a", nil), 3},
		{InvalidInput("a", "no header"), 3},
		{ReportWrite("out.json", nil), 4},
		{fmt.Errorf("boom"), 1},
	}

	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
