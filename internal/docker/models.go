package docker

// ReasonNotFound marks a restart that found no container with the service name.
const ReasonNotFound = "not_found"

// Ref identifies a container resolved from a service name.
type Ref struct {
	ID    string
	Name  string
	Image string
	State string
}

// ShortID returns the 12 character form of the container ID.
func (r Ref) ShortID() string {
	if len(r.ID) > 12 {
		return r.ID[:12]
	}
	return r.ID
}

// RestartResult is the outcome of restarting one service's container.
type RestartResult struct {
	Service string `json:"service"`
	OK      bool   `json:"ok"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}
