package transitions

// Machine enforces status transitions over a fixed allowed-transitions table.
type Machine struct {
	allowed map[string][]string
}

// New creates a machine from an allowed-transitions table.
func New(allowed map[string][]string) *Machine {
	return &Machine{allowed: allowed}
}

// CanTransition checks if a status transition is allowed.
func (m *Machine) CanTransition(from, to string) bool {
	allowed, exists := m.allowed[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// AllowedFrom returns the allowed next statuses for a given status.
func (m *Machine) AllowedFrom(from string) []string {
	allowed, exists := m.allowed[from]
	if !exists {
		return []string{}
	}
	return allowed
}
