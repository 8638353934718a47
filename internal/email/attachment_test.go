package email

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(file, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		att          Attachment
		wantStatus   ResolveStatus
		wantFilename string
		wantType     string
		wantContent  string
	}{
		{
			name:         "regular file",
			att:          Attachment{Path: file},
			wantStatus:   Found,
			wantFilename: "report.pdf",
			wantType:     "application/pdf",
			wantContent:  "%PDF-1.4",
		},
		{
			name:         "display name override",
			att:          Attachment{Path: file, Name: "Q3 report.pdf"},
			wantStatus:   Found,
			wantFilename: "Q3 report.pdf",
			wantType:     "application/pdf",
			wantContent:  "%PDF-1.4",
		},
		{
			name:         "missing file",
			att:          Attachment{Path: filepath.Join(dir, "nope.pdf")},
			wantStatus:   Missing,
			wantFilename: "nope.pdf",
		},
		{
			name:         "path through a file",
			att:          Attachment{Path: filepath.Join(file, "child")},
			wantStatus:   Missing,
			wantFilename: "child",
		},
		{
			name:         "directory",
			att:          Attachment{Path: dir},
			wantStatus:   NotAFile,
			wantFilename: filepath.Base(dir),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := tt.att.Resolve()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("Status: got %v, want %v", res.Status, tt.wantStatus)
			}
			if res.Filename != tt.wantFilename {
				t.Errorf("Filename: got %q, want %q", res.Filename, tt.wantFilename)
			}
			if res.ContentType != tt.wantType {
				t.Errorf("ContentType: got %q, want %q", res.ContentType, tt.wantType)
			}
			if string(res.Content) != tt.wantContent {
				t.Errorf("Content: got %q, want %q", res.Content, tt.wantContent)
			}
		})
	}
}

func TestGuessContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"report.pdf", "application/pdf"},
		{"REPORT.PDF", "application/pdf"},
		{"logo.png", "image/png"},
		{"page.html", "text/html"},
		{"style.css", "text/css"},
		{"archive.tar.gz", "application/octet-stream"},
		{"data.json.bz2", "application/octet-stream"},
		{"dump.xz", "application/octet-stream"},
		{"blob.unknownext", "application/octet-stream"},
		{"Makefile", "application/octet-stream"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := GuessContentType(tt.path); got != tt.want {
				t.Errorf("GuessContentType(%q): got %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestAttachmentSkipped_String(t *testing.T) {
	t.Parallel()

	missing := AttachmentSkipped{Path: "/tmp/x.pdf", Status: Missing}
	if got := missing.String(); got != `file "/tmp/x.pdf" does not exist, not attaching to email` {
		t.Errorf("missing: got %q", got)
	}

	dir := AttachmentSkipped{Path: "/tmp", Status: NotAFile}
	if got := dir.String(); got != `attachment "/tmp" is not a file, not attaching to email` {
		t.Errorf("not a file: got %q", got)
	}
}

func TestResolveStatus_String(t *testing.T) {
	t.Parallel()

	if Found.String() != "found" || Missing.String() != "missing" || NotAFile.String() != "not a file" {
		t.Error("unexpected status names")
	}
	if got := ResolveStatus(42).String(); got != "ResolveStatus(42)" {
		t.Errorf("unknown status: got %q", got)
	}
}
