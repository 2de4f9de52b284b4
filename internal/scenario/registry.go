package scenario

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownScenario is returned when a scenario type is not in the registry.
var ErrUnknownScenario = errors.New("unknown scenario type")

// Registry is the read-only catalog of scenario definitions. It is built once
// at startup, validated, and passed by reference to consumers.
type Registry struct {
	defs map[Type]*Definition
}

// NewRegistry builds the registry and validates every state graph. A graph
// error is a configuration fault and fails startup.
func NewRegistry() (*Registry, error) {
	defs := map[Type]*Definition{
		DriverCheckin:     driverCheckinDefinition(),
		EmergencyProtocol: emergencyProtocolDefinition(),
	}
	for _, def := range defs {
		if err := def.ValidateGraph(); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", def.Type, err)
		}
	}
	return &Registry{defs: defs}, nil
}

// Get returns the definition for a scenario type.
func (r *Registry) Get(t Type) (*Definition, error) {
	def, ok := r.defs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, t)
	}
	return def, nil
}

// List returns catalog summaries for every registered scenario, ordered by type.
func (r *Registry) List() []Summary {
	out := make([]Summary, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, Summary{Type: def.Type, Name: def.Name, Description: def.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// ValidateGraph checks the structural invariants of the state graph: every
// edge target is a state in the same scenario, the graph has at least one
// terminal state, and some terminal state is reachable from the initial state.
func (d *Definition) ValidateGraph() error {
	if len(d.States) == 0 {
		return errors.New("no states defined")
	}

	byName := make(map[string]State, len(d.States))
	for _, s := range d.States {
		if _, dup := byName[s.Name]; dup {
			return fmt.Errorf("duplicate state %q", s.Name)
		}
		byName[s.Name] = s
	}

	terminals := 0
	for _, s := range d.States {
		if s.Terminal() {
			terminals++
		}
		for _, e := range s.Edges {
			if _, ok := byName[e.Destination]; !ok {
				return fmt.Errorf("state %q has edge to unknown state %q", s.Name, e.Destination)
			}
		}
	}
	if terminals == 0 {
		return errors.New("no terminal state")
	}

	if d.EmergencyState != "" {
		if _, ok := byName[d.EmergencyState]; !ok {
			return fmt.Errorf("emergency state %q is not a state", d.EmergencyState)
		}
	}

	// BFS from the initial state; a terminal state must be reachable.
	seen := map[string]bool{d.InitialState(): true}
	queue := []string{d.InitialState()}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		s := byName[cur]
		if s.Terminal() {
			return nil
		}
		for _, e := range s.Edges {
			if !seen[e.Destination] {
				seen[e.Destination] = true
				queue = append(queue, e.Destination)
			}
		}
	}
	return errors.New("no terminal state reachable from initial state")
}

// ExtractionPrompt builds the post-call data extraction prompt for a
// scenario, describing each schema field with its type and enum options.
func (r *Registry) ExtractionPrompt(t Type, transcript string) (string, error) {
	def, err := r.Get(t)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Extract structured data from this logistics call transcript.\n\n")
	fmt.Fprintf(&b, "SCENARIO: %s\n\nTRANSCRIPT:\n%s\n\nEXTRACT THE FOLLOWING DATA in JSON format:\n\n", def.Name, transcript)

	keys := def.SchemaKeys()
	sort.Strings(keys)
	for _, name := range keys {
		f := def.Schema[name]
		fmt.Fprintf(&b, "- %s: %s", name, f.Description)
		if len(f.Enum) > 0 {
			fmt.Fprintf(&b, " (Options: %s)", strings.Join(f.Enum, ", "))
		}
		fmt.Fprintf(&b, " [%s]\n", f.Type)
	}

	b.WriteString(`
INSTRUCTIONS:
- Extract only information explicitly mentioned in the transcript
- Use null for missing information
- Be accurate - don't infer information not clearly stated
- For enums, use exact values from the options list

Return valid JSON only.`)

	return b.String(), nil
}
