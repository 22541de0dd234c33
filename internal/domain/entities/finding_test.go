package entities

import (
	"errors"
	"strings"
	"testing"
)

func TestNewFinding_Valid(t *testing.T) {
	f, err := NewFinding("SQL Injection", SeverityHigh, "app/db.py", 42, "raw query built from input", "cursor.execute(q)")
	if err != nil {
		t.Fatalf("NewFinding() error = %v", err)
	}

	if f.Kind != "SQL Injection" {
		t.Errorf("Kind = %q, want %q", f.Kind, "SQL Injection")
	}
	if f.Line() != 42 {
		t.Errorf("Line() = %d, want 42", f.Line())
	}
	if f.CodeSnippet() != "cursor.execute(q)" {
		t.Errorf("CodeSnippet() = %q", f.CodeSnippet())
	}
}

func TestNewFinding_OptionalFields(t *testing.T) {
	f, err := NewFinding("Vulnerable Dependency", SeverityMedium, "package.json", 0, "npm package x has low severity vulnerability", "")
	if err != nil {
		t.Fatalf("NewFinding() error = %v", err)
	}

	if f.LineNumber != nil {
		t.Errorf("LineNumber = %v, want nil", *f.LineNumber)
	}
	if f.Snippet != nil {
		t.Errorf("Snippet = %q, want nil", *f.Snippet)
	}
}

func TestNewFinding_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		severity Severity
		desc     string
		field    string
	}{
		{"unknown severity", "XSS", Severity("moderate"), "desc", "severity"},
		{"uppercase severity", "XSS", Severity("HIGH"), "desc", "severity"},
		{"empty severity", "XSS", Severity(""), "desc", "severity"},
		{"empty kind", "  ", SeverityLow, "desc", "type"},
		{"empty description", "XSS", SeverityLow, "", "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFinding(tt.kind, tt.severity, "f.py", 1, tt.desc, "")
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("NewFinding() error = %v, want *ValidationError", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestNewFinding_TruncatesSnippet(t *testing.T) {
	long := strings.Repeat("a", 500)
	f, err := NewFinding("Exposed Secret", SeverityCritical, "config.py", 0, "Detected AWS exposed in code", long)
	if err != nil {
		t.Fatalf("NewFinding() error = %v", err)
	}

	if got := len([]rune(f.CodeSnippet())); got != MaxSnippetLength {
		t.Errorf("snippet length = %d, want %d", got, MaxSnippetLength)
	}
}

func TestTruncateSnippet_Multibyte(t *testing.T) {
	s := strings.Repeat("é", 250)
	got := TruncateSnippet(s)

	if len([]rune(got)) != MaxSnippetLength {
		t.Errorf("rune length = %d, want %d", len([]rune(got)), MaxSnippetLength)
	}
	if !strings.HasPrefix(s, got) {
		t.Error("truncated snippet is not a prefix of the input")
	}
}

func TestSeverity_Weight(t *testing.T) {
	tests := []struct {
		severity Severity
		want     float64
	}{
		{SeverityCritical, 3.0},
		{SeverityHigh, 2.0},
		{SeverityMedium, 1.0},
		{SeverityLow, 0.5},
	}

	for _, tt := range tests {
		if got := tt.severity.Weight(); got != tt.want {
			t.Errorf("%s.Weight() = %v, want %v", tt.severity, got, tt.want)
		}
	}
}

func TestIsClientError(t *testing.T) {
	if !IsClientError(&ValidationError{Message: "bad url"}) {
		t.Error("ValidationError should be a client error")
	}
	if !IsClientError(&ResourceLimitError{Resource: "Repository", Actual: 2, Limit: 1}) {
		t.Error("ResourceLimitError should be a client error")
	}
	if IsClientError(errors.New("boom")) {
		t.Error("plain error should not be a client error")
	}
}

func TestResourceLimitError_Message(t *testing.T) {
	err := &ResourceLimitError{Resource: "Repository", Actual: 600 * 1024 * 1024, Limit: 500 * 1024 * 1024}
	want := "Repository size (600.0MB) exceeds maximum allowed size (500MB)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		url       string
		wantOwner string
		wantName  string
		wantErr   string
	}{
		{url: "https://github.com/octocat/hello-world", wantOwner: "octocat", wantName: "hello-world"},
		{url: "http://github.com/octocat/hello-world.git/", wantOwner: "octocat", wantName: "hello-world"},
		{url: "https://github.com/octocat/hello-world/tree/main", wantOwner: "octocat", wantName: "hello-world"},
		{url: "https://gitlab.com/octocat/hello-world", wantErr: "Only GitHub URLs are currently supported"},
		{url: "git@github.com:octocat/hello-world.git", wantErr: "Only GitHub URLs are currently supported"},
		{url: "https://github.com/octocat", wantErr: "Invalid GitHub repository URL format"},
		{url: "https://github.com/octocat/", wantErr: "Invalid GitHub repository URL format"},
		{url: "https://github.com//repo", wantErr: "Invalid GitHub repository URL format"},
		{url: "https://github.com/a/b c", wantErr: "Invalid GitHub repository URL format"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			owner, name, err := ParseRepoURL(tt.url)
			if tt.wantErr != "" {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("ParseRepoURL() error = %v, want ValidationError", err)
				}
				if vErr.Message != tt.wantErr {
					t.Errorf("message = %q, want %q", vErr.Message, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRepoURL() error = %v", err)
			}
			if owner != tt.wantOwner || name != tt.wantName {
				t.Errorf("ParseRepoURL() = %s/%s, want %s/%s", owner, name, tt.wantOwner, tt.wantName)
			}
		})
	}
}
