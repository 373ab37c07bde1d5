package remediation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ActionRestartService restarts the web server on the managed instance.
const ActionRestartService = "restart_service"

// DefaultDocument runs shell commands on the target instance.
const DefaultDocument = "AWS-RunShellScript"

// Action is a scripted remediation the dispatcher can send to an instance.
type Action struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description"`
	Document    string   `yaml:"document"`
	Commands    []string `yaml:"commands"`
}

// PlaybookFile is the YAML root structure.
type PlaybookFile struct {
	Actions []Action `yaml:"actions"`
}

// Playbook maps requested action names onto scripted actions.
type Playbook struct {
	actions map[string]Action
	order   []string
}

// DefaultActions is the built-in catalogue.
func DefaultActions() []Action {
	return []Action{{
		ID:          ActionRestartService,
		Description: "restart httpd",
		Document:    DefaultDocument,
		Commands:    []string{"sudo systemctl restart httpd"},
	}}
}

// NewPlaybook builds a playbook from actions; later entries replace earlier ones with the same id.
func NewPlaybook(actions ...Action) (*Playbook, error) {
	p := &Playbook{actions: make(map[string]Action, len(actions))}
	for _, a := range actions {
		if err := p.add(a); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// LoadPlaybook returns the built-in actions extended or overridden by the YAML file at
// path. An empty path or a missing file yields the built-in actions only.
func LoadPlaybook(path string, logger *slog.Logger) (*Playbook, error) {
	if logger == nil {
		logger = slog.Default()
	}
	actions := DefaultActions()
	if path == "" {
		return NewPlaybook(actions...)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("playbook file not found, using built-in actions", slog.String("path", path))
			return NewPlaybook(actions...)
		}
		return nil, err
	}
	var file PlaybookFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse playbook %s: %w", path, err)
	}
	p, err := NewPlaybook(append(actions, file.Actions...)...)
	if err != nil {
		return nil, fmt.Errorf("playbook %s: %w", path, err)
	}
	logger.Info("playbook loaded", slog.String("path", path), slog.Int("actions", len(p.order)))
	return p, nil
}

func (p *Playbook) add(a Action) error {
	a.ID = strings.TrimSpace(a.ID)
	if a.ID == "" {
		return errors.New("action id is required")
	}
	a.Commands = nonEmpty(a.Commands)
	if len(a.Commands) == 0 {
		return fmt.Errorf("action %q has no commands", a.ID)
	}
	if a.Document == "" {
		a.Document = DefaultDocument
	}
	if a.Description == "" {
		a.Description = "run " + a.ID
	}
	if _, ok := p.actions[a.ID]; !ok {
		p.order = append(p.order, a.ID)
	}
	p.actions[a.ID] = a
	return nil
}

// Lookup returns the action named id. Names are matched exactly.
func (p *Playbook) Lookup(id string) (Action, bool) {
	if p == nil {
		return Action{}, false
	}
	a, ok := p.actions[id]
	return a, ok
}

// Actions lists action ids in definition order.
func (p *Playbook) Actions() []string {
	return append([]string(nil), p.order...)
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
