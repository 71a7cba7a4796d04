package status

import (
	"fmt"
	"strings"
)

// Hints lists likely issues and remediations for an interface in a given state.
type Hints struct {
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

type hintRule struct {
	issues      []string
	suggestions []string
}

// hintRules is keyed by status; %s is replaced with the interface name.
var hintRules = map[Status]hintRule{
	StatusDown: {
		issues: []string{
			"Interface %s is operationally down",
			"Physical link failure or disconnected cable",
			"Port administratively disabled or err-disabled",
			"Remote device powered off or unreachable",
		},
		suggestions: []string{
			"Check the cable and transceiver on %s",
			"Verify the port configuration (admin state, speed, duplex, VLAN)",
			"Confirm the remote end of the link is powered and enabled",
			"Review interface error and discard counters for recent spikes",
		},
	},
	StatusUnknown: {
		issues: []string{
			"No operational status data available for %s",
		},
		suggestions: []string{
			"Verify SNMP polling is enabled for this interface",
			"Check agent connectivity to the monitored device",
		},
	},
}

// Suggest returns the rule-table hints for an interface status. Up interfaces
// get empty lists.
func Suggest(interfaceName string, st Status) Hints {
	rule, ok := hintRules[st]
	if !ok {
		return Hints{Issues: []string{}, Suggestions: []string{}}
	}
	if interfaceName == "" {
		interfaceName = "interface"
	}
	return Hints{
		Issues:      render(rule.issues, interfaceName),
		Suggestions: render(rule.suggestions, interfaceName),
	}
}

func render(templates []string, name string) []string {
	out := make([]string, 0, len(templates))
	for _, t := range templates {
		if strings.Contains(t, "%s") {
			out = append(out, fmt.Sprintf(t, name))
			continue
		}
		out = append(out, t)
	}
	return out
}
