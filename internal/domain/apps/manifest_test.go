package apps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MicroPythonOS/shell/internal/shared/utils"
)

const jsonManifest = `{
	"id": "com.example.files",
	"name": "Files",
	"version": "1.2.0",
	"entry": "files.js",
	"activities": [
		{"component": "com.example.files.browser", "actions": ["main.files", "view.file"]},
		{"component": "com.example.files.picker", "entry": "picker.js", "actions": ["pick.file"]}
	]
}`

const yamlManifest = `id: com.example.files
name: Files
version: 1.2.0
entry: files.js
activities:
  - component: com.example.files.browser
    actions: [main.files, view.file]
  - component: com.example.files.picker
    entry: picker.js
    actions: [pick.file]
`

const tomlManifest = `id = "com.example.files"
name = "Files"
version = "1.2.0"
entry = "files.js"

[[activities]]
component = "com.example.files.browser"
actions = ["main.files", "view.file"]

[[activities]]
component = "com.example.files.picker"
entry = "picker.js"
actions = ["pick.file"]
`

func TestParseManifestFormats(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
	}{
		{"json", "manifest.json", jsonManifest},
		{"yaml", "manifest.yaml", yamlManifest},
		{"yml", "manifest.yml", yamlManifest},
		{"toml", "manifest.toml", tomlManifest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseManifest([]byte(tt.data), tt.filename)
			if err != nil {
				t.Fatalf("ParseManifest failed: %v", err)
			}
			if m.ID != "com.example.files" {
				t.Errorf("expected id com.example.files, got %s", m.ID)
			}
			if m.Name != "Files" || m.Version != "1.2.0" {
				t.Errorf("unexpected metadata: %+v", m)
			}
			if len(m.Activities) != 2 {
				t.Fatalf("expected 2 activities, got %d", len(m.Activities))
			}
			browser := m.Activities[0]
			if browser.Component != "com.example.files.browser" {
				t.Errorf("unexpected component %s", browser.Component)
			}
			if browser.Entry != "files.js" {
				t.Errorf("expected browser entry to default to files.js, got %s", browser.Entry)
			}
			if len(browser.Actions) != 2 || browser.Actions[1] != "view.file" {
				t.Errorf("unexpected actions %v", browser.Actions)
			}
			if m.Activities[1].Entry != "picker.js" {
				t.Errorf("explicit entry overridden: %s", m.Activities[1].Entry)
			}
		})
	}
}

func TestManifestDefaults(t *testing.T) {
	m, err := ParseManifest([]byte(`{"id":"com.example.clock","name":"Clock","version":"0.1"}`), "manifest.json")
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}
	if m.Entry != DefaultEntry {
		t.Errorf("expected entry %s, got %s", DefaultEntry, m.Entry)
	}
	if len(m.Activities) != 1 {
		t.Fatalf("expected a synthesized activity, got %d", len(m.Activities))
	}
	decl := m.Activities[0]
	if decl.Component != "com.example.clock" {
		t.Errorf("synthesized component should match the package id, got %s", decl.Component)
	}
	if decl.Entry != DefaultEntry {
		t.Errorf("synthesized entry should be %s, got %s", DefaultEntry, decl.Entry)
	}
	if len(decl.Actions) != 0 {
		t.Errorf("synthesized activity should declare no actions, got %v", decl.Actions)
	}
}

func TestManifestValidation(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			"undotted id",
			`{"id":"files","name":"F","version":"1.0"}`,
			"dotted identifier",
		},
		{
			"missing name",
			`{"id":"com.example.files","version":"1.0"}`,
			"name is required",
		},
		{
			"bad version",
			`{"id":"com.example.files","name":"Files","version":"latest!"}`,
			"invalid version",
		},
		{
			"duplicate component",
			`{"id":"com.example.files","name":"Files","version":"1.0","activities":[
				{"component":"com.example.files"},{"component":"com.example.files"}]}`,
			"duplicate component",
		},
		{
			"bad action",
			`{"id":"com.example.files","name":"Files","version":"1.0","activities":[
				{"component":"com.example.files","actions":["no spaces"]}]}`,
			"invalid characters",
		},
		{
			"absolute entry",
			`{"id":"com.example.files","name":"Files","version":"1.0","entry":"/etc/passwd"}`,
			"relative",
		},
		{
			"escaping entry",
			`{"id":"com.example.files","name":"Files","version":"1.0","entry":"../../shell.js"}`,
			"escapes",
		},
		{
			"escaping icon",
			`{"id":"com.example.files","name":"Files","version":"1.0","icon":"../icon.png"}`,
			"escapes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.data), "manifest.json")
			if err == nil {
				t.Fatal("expected validation to fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseManifestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(path, []byte(yamlManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := ParseManifestFile(path)
	if err != nil {
		t.Fatalf("ParseManifestFile failed: %v", err)
	}
	if m.ID != "com.example.files" {
		t.Errorf("unexpected id %s", m.ID)
	}

	if _, err := ParseManifestFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseManifestUnsupportedFormat(t *testing.T) {
	_, err := ParseManifest([]byte("id = 1"), "manifest.ini")
	if err == nil || !strings.Contains(err.Error(), "unsupported manifest format") {
		t.Errorf("expected format error, got %v", err)
	}
}

func TestParseManifestTooLarge(t *testing.T) {
	data := make([]byte, utils.MaxManifestSize+1)
	if _, err := ParseManifest(data, "manifest.json"); err == nil {
		t.Error("expected size limit error")
	}
}
