package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hammamikhairi/deskmate/internal/domain"
)

// allowedKeys is the closed top-level key set of a command object.
var allowedKeys = map[string]bool{
	"action":      true,
	"parameters":  true,
	"steps":       true,
	"description": true,
}

// rawCommand mirrors the wire shape before normalisation.
type rawCommand struct {
	Action      string            `json:"action"`
	Parameters  json.RawMessage   `json:"parameters"`
	Steps       []json.RawMessage `json:"steps"`
	Description string            `json:"description"`
}

// Decode parses a JSON object into a normalised Command. It rejects
// unknown top-level keys and nested workflows.
func Decode(raw string) (domain.Command, error) {
	return decode([]byte(raw), 0)
}

func decode(data []byte, depth int) (domain.Command, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return domain.Command{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	for k := range keys {
		if !allowedKeys[k] {
			return domain.Command{}, fmt.Errorf("%w: unexpected key %q", domain.ErrParse, k)
		}
	}

	var rc rawCommand
	if err := json.Unmarshal(data, &rc); err != nil {
		return domain.Command{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	params, err := decodeParams(rc.Parameters)
	if err != nil {
		return domain.Command{}, err
	}

	cmd := domain.Command{
		Action:      strings.ToLower(strings.TrimSpace(rc.Action)),
		Parameters:  params,
		Description: rc.Description,
	}

	if _, hasSteps := keys["steps"]; hasSteps {
		if depth > 0 {
			return domain.Command{}, fmt.Errorf("%w: nested workflow in step", domain.ErrParse)
		}
		if len(rc.Steps) == 0 {
			return domain.Command{}, fmt.Errorf("%w: workflow has no steps", domain.ErrParse)
		}
		cmd.Steps = make([]domain.Command, 0, len(rc.Steps))
		for i, s := range rc.Steps {
			step, err := decode(s, depth+1)
			if err != nil {
				return domain.Command{}, fmt.Errorf("step %d: %w", i+1, err)
			}
			cmd.Steps = append(cmd.Steps, step)
		}
	}
	return cmd, nil
}

// decodeParams coerces the parameters value to a map. Missing or null
// parameters become an empty map; anything other than an object is
// rejected.
func decodeParams(raw json.RawMessage) (domain.Params, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return domain.Params{}, nil
	}
	var p domain.Params
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, fmt.Errorf("%w: parameters must be an object", domain.ErrParse)
	}
	if p == nil {
		p = domain.Params{}
	}
	return p, nil
}

// Known reports whether an action name is registered.
type Known interface {
	Has(name string) bool
}

// Validate checks a decoded command against the registry. A single
// action must be registered (or be the model's own error sentinel); a
// workflow must have registered, non-nested steps.
func Validate(cmd domain.Command, known Known) error {
	if cmd.IsWorkflow() {
		for i, s := range cmd.Steps {
			if s.IsWorkflow() {
				return fmt.Errorf("%w: step %d is a nested workflow", domain.ErrParse, i+1)
			}
			if s.Action == "" {
				return fmt.Errorf("%w: step %d has no action", domain.ErrParse, i+1)
			}
			if !known.Has(s.Action) {
				return fmt.Errorf("step %d: %w: %s", i+1, domain.ErrUnknownAction, s.Action)
			}
		}
		return nil
	}

	switch {
	case cmd.Action == "":
		return fmt.Errorf("%w: reply has neither action nor steps", domain.ErrParse)
	case cmd.Action == domain.ActionError:
		return nil
	case !known.Has(cmd.Action):
		return fmt.Errorf("%w: %s", domain.ErrUnknownAction, cmd.Action)
	}
	return nil
}
