package program

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrUnknownProgram is returned by Lookup when no program matches the path.
var ErrUnknownProgram = errors.New("unknown program")

// Registry maps executable paths to programs.
type Registry struct {
	mu       sync.RWMutex
	programs map[string]*Program
}

// NewRegistry returns a registry preloaded with the built-in programs.
func NewRegistry() *Registry {
	r := &Registry{programs: make(map[string]*Program)}
	for _, p := range builtins() {
		if err := r.Add(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Add compiles p and registers it under its name, replacing any program of
// the same name.
func (r *Registry) Add(p *Program) error {
	if err := p.Compile(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[p.Name] = p
	return nil
}

// Lookup resolves an executable path. Directories and a .yaml/.yml
// extension are ignored, so "/bin/cpu" and "cpu.yaml" both resolve to "cpu".
func (r *Registry) Lookup(execPath string) (*Program, error) {
	name := strings.TrimSuffix(strings.TrimSuffix(path.Base(execPath), ".yaml"), ".yml")
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, execPath)
	}
	return p, nil
}

// Names returns the registered program names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.programs))
	for n := range r.programs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Parse decodes one YAML program definition. fallbackName is used when the
// document has no name field.
func Parse(data []byte, fallbackName string) (*Program, error) {
	var p Program
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse program yaml: %w", err)
	}
	if p.Name == "" {
		p.Name = fallbackName
	}
	return &p, nil
}

// LoadDir registers every *.yaml and *.yml file in dir and returns how many
// programs were loaded.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read programs dir %s: %w", dir, err)
	}
	n := 0
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return n, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		p, err := Parse(data, strings.TrimSuffix(e.Name(), ext))
		if err != nil {
			return n, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if err := r.Add(p); err != nil {
			return n, fmt.Errorf("%s: %w", e.Name(), err)
		}
		n++
	}
	return n, nil
}

// builtins are always available, even without a programs directory.
func builtins() []*Program {
	return []*Program{
		{
			Name:        "cpu",
			Description: "CPU-bound: runs 60 ticks and exits",
			Steps:       []string{"run:60", "exit"},
		},
		{
			Name:        "io",
			Description: "I/O-bound: short bursts between sleeps",
			Steps:       []string{"run:1", "sleep:3"},
			Repeat:      15,
		},
		{
			Name:        "short",
			Description: "Runs 3 ticks and exits",
			Steps:       []string{"run:3", "exit"},
		},
		{
			Name:        "spin",
			Description: "Never exits; stays in the lowest tier and ages",
			Script:      `function step(tick, pid) { return "run"; }`,
		},
		{
			Name:        "grow",
			Description: "Grows its heap by one page every 5 ticks for 40 ticks",
			Script: `function step(tick, pid) {
	if (tick >= 40) return "exit";
	return tick % 5 === 4 ? "grow:4096" : "run";
}`,
		},
	}
}
