// Package workflows stores named multi-step commands the user can save
// once and replay by name.
package workflows

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Workflow is a saved sequence of commands.
type Workflow struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Steps       []domain.Command `yaml:"steps"`
	Version     int              `yaml:"version"`
	Updated     time.Time        `yaml:"updated"`
	BuiltIn     bool             `yaml:"-"`
}

// Command returns the workflow as a dispatchable command.
func (w Workflow) Command() domain.Command {
	desc := w.Description
	if desc == "" {
		desc = w.Name
	}
	return domain.Command{Steps: w.Steps, Description: desc}
}

// Summary is the short form shown by list_workflows.
type Summary struct {
	Name        string
	Description string
	Steps       int
	BuiltIn     bool
}

type file struct {
	Workflows []Workflow `yaml:"workflows"`
}

// Library holds workflows in memory and mirrors user-saved ones to a
// YAML file. Safe for concurrent use.
type Library struct {
	mu        sync.RWMutex
	path      string
	workflows map[string]*Workflow
	log       *logger.Logger
	now       func() time.Time
}

// Open loads the library at path. A missing file yields a library with
// only the built-in workflows. An empty path keeps everything in memory.
func Open(path string, log *logger.Logger) (*Library, error) {
	l := &Library{
		path:      path,
		workflows: make(map[string]*Workflow),
		log:       log,
		now:       time.Now,
	}
	l.seed()

	if path == "" {
		return l, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("workflows: reading %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("workflows: parsing %s: %w", path, err)
	}
	for i := range f.Workflows {
		w := f.Workflows[i]
		key := normalize(w.Name)
		if key == "" || len(w.Steps) == 0 {
			log.Warn("workflows: skipping invalid entry %d in %s", i, path)
			continue
		}
		w.Name = key
		l.workflows[key] = &w
	}
	log.Debug("workflows: loaded %d from %s", len(f.Workflows), path)
	return l, nil
}

func normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Save stores steps under name, replacing any previous workflow of that
// name and bumping its version.
func (l *Library) Save(ctx context.Context, name, description string, steps []domain.Command) (Workflow, error) {
	key := normalize(name)
	if key == "" {
		return Workflow{}, fmt.Errorf("workflows: name: %w", domain.ErrMissingParam)
	}
	if len(steps) == 0 {
		return Workflow{}, fmt.Errorf("workflows: %s has no steps: %w", key, domain.ErrMissingParam)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w := &Workflow{Name: key, Description: description, Steps: steps, Version: 1, Updated: l.now()}
	if prev, ok := l.workflows[key]; ok {
		w.Version = prev.Version + 1
	}
	l.workflows[key] = w
	if err := l.persistLocked(); err != nil {
		return Workflow{}, err
	}
	l.log.Info("workflows: saved %s (v%d, %d steps)", key, w.Version, len(steps))
	return *w, nil
}

// Get returns the workflow called name.
func (l *Library) Get(ctx context.Context, name string) (Workflow, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	w, ok := l.workflows[normalize(name)]
	if !ok {
		l.log.Debug("workflows: not found: %s", name)
		return Workflow{}, fmt.Errorf("workflow %q: %w", name, domain.ErrNotFound)
	}
	return *w, nil
}

// List returns summaries sorted by name.
func (l *Library) List(ctx context.Context) []Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Summary, 0, len(l.workflows))
	for _, w := range l.workflows {
		out = append(out, Summary{Name: w.Name, Description: w.Description, Steps: len(w.Steps), BuiltIn: w.BuiltIn})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Delete removes a saved workflow.
func (l *Library) Delete(ctx context.Context, name string) error {
	key := normalize(name)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.workflows[key]; !ok {
		return fmt.Errorf("workflow %q: %w", name, domain.ErrNotFound)
	}
	delete(l.workflows, key)
	return l.persistLocked()
}

// persistLocked writes user workflows to disk. Built-ins are never
// written.
func (l *Library) persistLocked() error {
	if l.path == "" {
		return nil
	}
	var f file
	for _, w := range l.workflows {
		if !w.BuiltIn {
			f.Workflows = append(f.Workflows, *w)
		}
	}
	sort.Slice(f.Workflows, func(i, j int) bool { return f.Workflows[i].Name < f.Workflows[j].Name })

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("workflows: encoding: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("workflows: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("workflows: writing: %w", err)
	}
	return os.Rename(tmp, l.path)
}

// seed installs the built-in workflows.
func (l *Library) seed() {
	builtins := []*Workflow{
		{
			Name:        "morning routine",
			Description: "Start the day",
			Steps: []domain.Command{
				{Action: "get_date"},
				{Action: "get_time"},
				{Action: "open_url", Parameters: domain.Params{"url": "https://news.google.com"}},
			},
		},
		{
			Name:        "focus mode",
			Description: "Quiet replies and music",
			Steps: []domain.Command{
				{Action: "toggle_brief_mode", Parameters: domain.Params{"enabled": true}},
				{Action: "play_music", Parameters: domain.Params{"query": "lofi focus"}},
			},
		},
	}
	for _, w := range builtins {
		w.BuiltIn = true
		w.Version = 1
		l.workflows[w.Name] = w
	}
	l.log.Debug("workflows: seeded %d built-ins", len(builtins))
}
