// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

func LoadCatalog(path string) (*ProgramCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat ProgramCatalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	cat.reindex()
	return &cat, nil
}

// NewCatalog returns an empty catalog.
func NewCatalog() *ProgramCatalog {
	cat := &ProgramCatalog{
		Version:     "1.0.0",
		LastUpdated: time.Now().Format(time.RFC3339),
		Programs:    []Program{},
	}
	cat.reindex()
	return cat
}

func (c *ProgramCatalog) reindex() {
	c.index = make(map[string]int, len(c.Programs))
	for i, p := range c.Programs {
		c.index[normalize(p.Code)] = i
	}
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Get looks a program up by code, case-insensitively.
func (c *ProgramCatalog) Get(code string) (Program, bool) {
	i, ok := c.index[normalize(code)]
	if !ok {
		return Program{}, false
	}
	return c.Programs[i], true
}

// IsActive reports whether code names a program that is accepting applications.
func (c *ProgramCatalog) IsActive(code string) bool {
	p, ok := c.Get(code)
	return ok && p.Active
}

// Active returns the accepting programs in catalog order.
func (c *ProgramCatalog) Active() []Program {
	out := make([]Program, 0, len(c.Programs))
	for _, p := range c.Programs {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

func (c *ProgramCatalog) Add(p Program) error {
	if c.index == nil {
		c.reindex()
	}
	if _, exists := c.Get(p.Code); exists {
		return fmt.Errorf("program with code %s already exists", p.Code)
	}
	c.Programs = append(c.Programs, p)
	c.index[normalize(p.Code)] = len(c.Programs) - 1
	c.touch()
	return nil
}

// Update sets one field of an existing program.
func (c *ProgramCatalog) Update(code, field, value string) error {
	i, ok := c.index[normalize(code)]
	if !ok {
		return fmt.Errorf("program with code %s not found", code)
	}
	p := &c.Programs[i]
	switch field {
	case "displayName":
		p.DisplayName = value
	case "description":
		p.Description = value
	case "active":
		active, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid active value: %w", err)
		}
		p.Active = active
	case "assistanceTypes":
		p.AssistanceTypes = splitList(value)
	case "tags":
		p.Tags = splitList(value)
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	c.touch()
	return nil
}

// Validate checks codes are present and unique and every program has a name.
func (c *ProgramCatalog) Validate() error {
	if len(c.Programs) == 0 {
		return fmt.Errorf("catalog contains no programs")
	}
	seen := make(map[string]bool)
	for _, p := range c.Programs {
		code := normalize(p.Code)
		if code == "" {
			return fmt.Errorf("program missing required field: code")
		}
		if seen[code] {
			return fmt.Errorf("duplicate program code: %s", p.Code)
		}
		seen[code] = true
		if p.DisplayName == "" {
			return fmt.Errorf("program %s missing required field: displayName", p.Code)
		}
	}
	return nil
}

func (c *ProgramCatalog) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}

func (c *ProgramCatalog) touch() {
	c.LastUpdated = time.Now().Format(time.RFC3339)
}

func splitList(value string) []string {
	var out []string
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
