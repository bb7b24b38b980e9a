package agent

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted session: prompts run in order, then assertions are judged.
type Scenario struct {
	Name    string `yaml:"name"`
	Account string `yaml:"account,omitempty"`
	// Segments optionally restricts the tools offered (mail, calendar, groups, places).
	Segments   []string `yaml:"segments,omitempty"`
	Prompts    []string `yaml:"prompts"`
	Assertions []string `yaml:"assertions,omitempty"`
}

// Validate checks the scenario is runnable.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("scenario name was empty")
	}
	if len(s.Prompts) == 0 {
		return fmt.Errorf("scenario %v: no prompts", s.Name)
	}
	return nil
}

// ParseScenario decodes a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	scenario := &Scenario{}
	if err := yaml.Unmarshal(data, scenario); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return scenario, nil
}

// LoadScenario reads a scenario from any afs URL (file, mem, s3, gs...).
func LoadScenario(ctx context.Context, fs afs.Service, URL string) (*Scenario, error) {
	reader, err := fs.OpenURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("open scenario %v: %w", URL, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read scenario %v: %w", URL, err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", URL, err)
	}
	return scenario, nil
}

// LoadScenarios loads a single scenario file or every .yaml/.yml file in a folder.
func LoadScenarios(ctx context.Context, fs afs.Service, URL string) ([]*Scenario, error) {
	if isScenarioFile(URL) {
		scenario, err := LoadScenario(ctx, fs, URL)
		if err != nil {
			return nil, err
		}
		return []*Scenario{scenario}, nil
	}
	objects, err := fs.List(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("list scenarios %v: %w", URL, err)
	}
	var URLs []string
	for _, object := range objects {
		if object.IsDir() || !isScenarioFile(object.Name()) {
			continue
		}
		URLs = append(URLs, object.URL())
	}
	sort.Strings(URLs)
	var scenarios []*Scenario
	for _, u := range URLs {
		scenario, err := LoadScenario(ctx, fs, u)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, scenario)
	}
	return scenarios, nil
}

func isScenarioFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
