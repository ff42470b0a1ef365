package types

import "fmt"

// InstallState is a step of the per-formula install state machine.
type InstallState int

const (
	StatePending InstallState = iota
	StateFetching
	StatePatching
	StateConfiguring
	StateBuilding
	StateInstalling
	StateFinalizing
	StateInstalled
	StateFailed
)

var stateNames = [...]string{
	StatePending:     "Pending",
	StateFetching:    "Fetching",
	StatePatching:    "Patching",
	StateConfiguring: "Configuring",
	StateBuilding:    "Building",
	StateInstalling:  "Installing",
	StateFinalizing:  "Finalizing",
	StateInstalled:   "Installed",
	StateFailed:      "Failed",
}

func (s InstallState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("InstallState(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s InstallState) Terminal() bool {
	return s == StateInstalled || s == StateFailed
}

// Next is the successor on the success path. Terminal states return
// themselves.
func (s InstallState) Next() InstallState {
	if s.Terminal() {
		return s
	}
	return s + 1
}

// CanTransition reports whether to is a legal successor of s.
func (s InstallState) CanTransition(to InstallState) bool {
	if s.Terminal() {
		return false
	}
	return to == StateFailed || to == s.Next()
}

// MarshalText implements encoding.TextMarshaler.
func (s InstallState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *InstallState) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = InstallState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown install state %q", text)
}
