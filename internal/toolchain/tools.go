package toolchain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/fx"

	"glslang-runner/internal/spawn"
)

var ErrUnknownTool = errors.New("unknown tool")

type NewToolsParams struct {
	fx.In

	Tools []Tool `group:"tools"`
}

func NewTools(p NewToolsParams) (map[string]Tool, error) {
	m := make(map[string]Tool, len(p.Tools))
	for _, t := range p.Tools {
		if _, exists := m[t.Name()]; exists {
			return nil, fmt.Errorf("duplicate tool name: %s", t.Name())
		}
		m[t.Name()] = t
	}
	return m, nil
}

// Service dispatches runs to tools by name.
type Service struct {
	tools map[string]Tool
}

func NewService(tools map[string]Tool) *Service {
	return &Service{tools: tools}
}

func (s *Service) Tool(name string) (Tool, error) {
	t, ok := s.tools[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

func (s *Service) Run(name string, opts spawn.Options) (*spawn.Pending, error) {
	t, err := s.Tool(name)
	if err != nil {
		return nil, err
	}
	return t.Run(opts)
}

// Names returns the registered tool names in sorted order.
func (s *Service) Names() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
