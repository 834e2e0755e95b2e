package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "registry error",
			code:    CodeRegistryUnreachable,
			wantMsg: "Registry unreachable",
			wantCat: CategoryRegistry,
		},
		{
			name:    "validation error",
			code:    CodeValidation,
			wantMsg: "Invalid payload",
			wantCat: CategoryValidation,
		},
		{
			name:    "auth denied",
			code:    CodeAuthDenied,
			wantMsg: "Authorization denied",
			wantCat: CategoryAuth,
		},
		{
			name:    "publish error",
			code:    CodePublish,
			wantMsg: "Publishing to the registry repository failed",
			wantCat: CategoryPublish,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "file %q not found", "button.tsx")
	if err.Message != `file "button.tsx" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestError_Error(t *testing.T) {
	err := New(CodeAuthDenied).WithDetail("access_denied")
	if got := err.Error(); got != "E111: Authorization denied: access_denied" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := New(CodePublish).WithDetail("create blob").Wrap(fmt.Errorf("status 500"))
	if got := wrapped.Error(); got != "E120: Publishing to the registry repository failed: create blob: status 500" {
		t.Errorf("Error() = %q", got)
	}
}

func TestError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("diff: %w", New(CodeValidation).WithDetail("bad type"))

	if !stderrors.Is(err, Code(CodeValidation)) {
		t.Error("errors.Is should match on code through a wrap chain")
	}
	if stderrors.Is(err, Code(CodeRegistryUnreachable)) {
		t.Error("errors.Is should not match a different code")
	}
	if !HasCode(err, CodeValidation) {
		t.Error("HasCode should report true")
	}
	if stderrors.Is(err, &Error{}) {
		t.Error("an empty code must never match")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := New(CodeRegistryUnreachable).Wrap(cause)
	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause should be reachable")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, CodePublish) != nil {
		t.Error("FromError(nil) should be nil")
	}

	orig := New(CodeAuthExpired)
	if got := FromError(fmt.Errorf("outer: %w", orig), CodePublish); got != orig {
		t.Error("FromError should return an existing *Error unchanged")
	}

	plain := stderrors.New("boom")
	got := FromError(plain, CodePublish)
	if got.Code != CodePublish || got.Wrapped != plain {
		t.Errorf("FromError = %+v", got)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New(CodeRegistryUnreachable).
		WithDetail("GET https://example.com/index.json returned 502").
		WithSuggestion("Check your internet connection")

	out := err.Format()
	for _, want := range []string{
		"ERROR E100: Registry unreachable",
		"returned 502",
		"Hint: Check your internet connection",
		"Learn more: " + docBase + "E100",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestFprint_PlainError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 40), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line too long: %q", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should produce no lines")
	}
}
