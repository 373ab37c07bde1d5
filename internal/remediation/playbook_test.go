package remediation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPlaybookExtendsBuiltins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "playbook.yaml")
	if err := os.WriteFile(path, []byte(`actions:
  - id: clear_tmp
    description: clear /tmp
    commands: ["sudo find /tmp -mindepth 1 -delete"]
  - id: restart_service
    description: restart nginx
    commands: ["sudo systemctl restart nginx", ""]
`), 0o644); err != nil {
		t.Fatalf("write playbook: %v", err)
	}

	p, err := LoadPlaybook(path, nil)
	if err != nil {
		t.Fatalf("load playbook: %v", err)
	}
	if got := p.Actions(); len(got) != 2 || got[0] != ActionRestartService || got[1] != "clear_tmp" {
		t.Fatalf("unexpected actions %v", got)
	}

	restart, ok := p.Lookup(ActionRestartService)
	if !ok {
		t.Fatalf("expected restart_service")
	}
	if restart.Description != "restart nginx" || len(restart.Commands) != 1 {
		t.Fatalf("expected file to override built-in, got %+v", restart)
	}
	if restart.Document != DefaultDocument {
		t.Fatalf("expected default document, got %q", restart.Document)
	}
}

func TestLoadPlaybookMissingFile(t *testing.T) {
	p, err := LoadPlaybook("non-existent.yaml", nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	a, ok := p.Lookup(ActionRestartService)
	if !ok {
		t.Fatalf("expected built-in action when file missing")
	}
	if a.Commands[0] != "sudo systemctl restart httpd" {
		t.Fatalf("unexpected built-in command %q", a.Commands[0])
	}
}

func TestLoadPlaybookRejectsEmptyAction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playbook.yaml")
	if err := os.WriteFile(path, []byte("actions:\n  - id: noop\n"), 0o644); err != nil {
		t.Fatalf("write playbook: %v", err)
	}
	if _, err := LoadPlaybook(path, nil); err == nil {
		t.Fatalf("expected error for action without commands")
	}
}

func TestLookupIsExact(t *testing.T) {
	p, err := NewPlaybook(DefaultActions()...)
	if err != nil {
		t.Fatalf("new playbook: %v", err)
	}
	if _, ok := p.Lookup("Restart_Service"); ok {
		t.Fatalf("lookup must be case-sensitive")
	}
}
