// Package model defines the normalised load-balancer tree every vendor
// collector produces and every bitemporal write/read operates on.
package model

// State is the observed operational state of a real or sorry server.
type State string

const (
	StateUp       State = "up"
	StateDown     State = "down"
	StateDisabled State = "disabled"
	StateUnknown  State = "unknown"
)

// AggregatedState is the VS-level state derived from its member states.
type AggregatedState string

const (
	AggregatedUp       AggregatedState = "up"
	AggregatedDegraded AggregatedState = "degraded"
	AggregatedDown     AggregatedState = "down"
	AggregatedDisabled AggregatedState = "disabled"
)

// LoadBalancer is the root of one collected snapshot.
type LoadBalancer struct {
	Name           string                  `json:"name"`
	Kind           string                  `json:"type"`
	Description    string                  `json:"description"`
	Extra          map[string]string       `json:"extra,omitempty"`
	Actions        map[string]string       `json:"actions,omitempty"`
	VirtualServers map[string]*VirtualServer `json:"-"`
}

// NewLoadBalancer returns an empty LoadBalancer ready to be populated by a collector.
func NewLoadBalancer(name, kind string) *LoadBalancer {
	return &LoadBalancer{
		Name:           name,
		Kind:           kind,
		VirtualServers: make(map[string]*VirtualServer),
	}
}

// VirtualServer is a front-end configuration on a load balancer.
type VirtualServer struct {
	Name        string                 `json:"name"`
	VIP         string                 `json:"vip"`
	Protocol    string                 `json:"protocol"`
	Mode        string                 `json:"mode"`
	Extra       map[string]string      `json:"extra,omitempty"`
	Actions     map[string]string      `json:"actions,omitempty"`
	RealServers map[string]*RealServer `json:"-"`
	SorryServers map[string]*SorryServer `json:"-"`
}

// NewVirtualServer returns an empty VirtualServer.
func NewVirtualServer(name string) *VirtualServer {
	return &VirtualServer{
		Name:         name,
		RealServers:  make(map[string]*RealServer),
		SorryServers: make(map[string]*SorryServer),
	}
}

// Member is the capability set shared by RealServer and SorryServer.
type Member interface {
	MemberName() string
	MemberState() State
}

// RealServer is a concrete backend selected by a virtual server.
type RealServer struct {
	Name     string            `json:"name"`
	RIP      string            `json:"ip"`
	RPort    int               `json:"port"`
	Protocol string            `json:"protocol"`
	Weight   int               `json:"weight"`
	State    State             `json:"state"`
	Extra    map[string]string `json:"extra,omitempty"`
	Actions  map[string]string `json:"actions,omitempty"`
}

func (r *RealServer) MemberName() string { return r.Name }
func (r *RealServer) MemberState() State { return r.State }

// SorryServer is a backup real server served when every primary is down.
// It carries the same fields as RealServer minus Weight.
type SorryServer struct {
	Name     string            `json:"name"`
	RIP      string            `json:"ip"`
	RPort    int               `json:"port"`
	Protocol string            `json:"protocol"`
	State    State             `json:"state"`
	Extra    map[string]string `json:"extra,omitempty"`
	Actions  map[string]string `json:"actions,omitempty"`
}

func (s *SorryServer) MemberName() string { return s.Name }
func (s *SorryServer) MemberState() State { return s.State }

// AggregateState derives a virtual server's overall state from its real
// server members: any "down" member moves state to "degraded" (from "up")
// or "down" (from "disabled"); any "up" member lifts "down" to "degraded"
// or "disabled" to "up"; "disabled" members alone leave the state as
// "disabled". The running state starts as "disabled" (no real member seen
// yet) so the first up/down member observed sets the baseline the way the
// "alone" case implies.
func AggregateState(members []State) AggregatedState {
	state := AggregatedDisabled
	seen := false

	for _, m := range members {
		switch m {
		case StateUp:
			seen = true
			switch state {
			case AggregatedDown:
				state = AggregatedDegraded
			case AggregatedDisabled:
				state = AggregatedUp
			}
		case StateDown:
			seen = true
			switch state {
			case AggregatedUp:
				state = AggregatedDegraded
			case AggregatedDisabled:
				state = AggregatedDown
			}
		}
	}

	if !seen {
		return AggregatedDisabled
	}
	return state
}
