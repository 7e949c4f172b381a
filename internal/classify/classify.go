package classify

import (
	"fmt"
	"strings"

	"github.com/clusterautomation/perfwatch/pkg/types"
)

// DefaultFallback is the label for nodes that match no rule.
const DefaultFallback = "Other"

// Rule maps a node-name prefix to a group label.
type Rule struct {
	Prefix string `yaml:"prefix"`
	Label  string `yaml:"label"`
}

// DefaultRules returns the rules for the cluster's current node generations.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "c18", Label: "2018"},
		{Prefix: "c24", Label: "2024"},
		{Prefix: "c21", Label: "2021"},
	}
}

// Classifier assigns group labels and partition keys. The zero value
// classifies every node as DefaultFallback.
type Classifier struct {
	rules    []Rule
	fallback string
}

// New returns a Classifier evaluating rules in order. An empty fallback
// selects DefaultFallback.
func New(rules []Rule, fallback string) (*Classifier, error) {
	for i, r := range rules {
		if r.Prefix == "" {
			return nil, fmt.Errorf("classify: rules[%d]: prefix is required", i)
		}
		if r.Label == "" {
			return nil, fmt.Errorf("classify: rules[%d] %q: label is required", i, r.Prefix)
		}
	}
	if fallback == "" {
		fallback = DefaultFallback
	}
	return &Classifier{
		rules:    append([]Rule(nil), rules...),
		fallback: fallback,
	}, nil
}

// Classify returns the group label for nodeID.
func (c *Classifier) Classify(nodeID string) string {
	for _, r := range c.rules {
		if strings.HasPrefix(nodeID, r.Prefix) {
			return r.Label
		}
	}
	if c.fallback == "" {
		return DefaultFallback
	}
	return c.fallback
}

// Key returns the partition key of m.
func (c *Classifier) Key(m types.Measurement) types.PartitionKey {
	return types.PartitionKey{
		Group:       c.Classify(m.NodeID),
		Concurrency: m.Concurrency,
	}
}

// Labels returns every label the classifier can produce, in rule order with
// the fallback last and duplicates removed.
func (c *Classifier) Labels() []string {
	seen := make(map[string]bool, len(c.rules)+1)
	var out []string
	for _, r := range c.rules {
		if !seen[r.Label] {
			seen[r.Label] = true
			out = append(out, r.Label)
		}
	}
	// No rule has an empty prefix, so "" always resolves to the fallback.
	if fb := c.Classify(""); !seen[fb] {
		out = append(out, fb)
	}
	return out
}
