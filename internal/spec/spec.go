// Package spec loads and validates product specs: the checklist definition
// and output route configuration for one sink deployment.
package spec

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported output route types. Closed enumeration: anything else fails
// validation, and the Teams kinds fail route construction until implemented.
const (
	RouteUIStream  = "ui_stream"
	RouteWebhook   = "webhook"
	RouteKafka     = "kafka"
	RouteTeamsChat = "teams_chat"
	RouteTeamsDM   = "teams_dm"
)

var knownRouteTypes = map[string]bool{
	RouteUIStream:  true,
	RouteWebhook:   true,
	RouteKafka:     true,
	RouteTeamsChat: true,
	RouteTeamsDM:   true,
}

// ChecklistItem is one tracked topic definition.
type ChecklistItem struct {
	ID       string   `json:"id" yaml:"id"`
	Label    string   `json:"label" yaml:"label"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// Checklist is the required checklist configuration.
type Checklist struct {
	Items []ChecklistItem `json:"items" yaml:"items"`
}

// Route is a single output route declaration. Enabled defaults to true
// when omitted.
type Route struct {
	ID             string            `json:"id" yaml:"id"`
	Type           string            `json:"type" yaml:"type"`
	Enabled        *bool             `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	URL            string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers        map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	TimeoutSeconds float64           `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	Brokers        []string          `json:"brokers,omitempty" yaml:"brokers,omitempty"`
	Topic          string            `json:"topic,omitempty" yaml:"topic,omitempty"`
}

// IsEnabled reports whether the route is enabled (default true).
func (r Route) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Outputs is the output routing configuration.
type Outputs struct {
	Routes []Route `json:"routes" yaml:"routes"`
}

// ProductSpec is the canonical product configuration for one deployment.
type ProductSpec struct {
	ProductID   string    `json:"product_id" yaml:"product_id"`
	DisplayName string    `json:"display_name" yaml:"display_name"`
	Checklist   Checklist `json:"checklist" yaml:"checklist"`
	Outputs     Outputs   `json:"outputs" yaml:"outputs"`
}

// Load reads a product spec from disk (JSON or YAML by extension) and
// validates it. Any violation is a configuration error, fatal at startup.
func Load(path string) (*ProductSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read product spec %q: %w", path, err)
	}

	var ps ProductSpec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &ps); err != nil {
			return nil, fmt.Errorf("product spec %q is not valid YAML: %w", path, err)
		}
	default:
		if err := json.Unmarshal(raw, &ps); err != nil {
			return nil, fmt.Errorf("product spec %q is not valid JSON: %w", path, err)
		}
	}

	if err := ps.Validate(); err != nil {
		return nil, fmt.Errorf("product spec %q: %w", path, err)
	}
	return &ps, nil
}

// Validate enforces the structural rules of a product spec.
func (ps *ProductSpec) Validate() error {
	if strings.TrimSpace(ps.ProductID) == "" {
		return fmt.Errorf("product_id is required")
	}

	if len(ps.Checklist.Items) == 0 {
		return fmt.Errorf("checklist.items must contain at least one item")
	}
	seenItems := make(map[string]bool, len(ps.Checklist.Items))
	for i, item := range ps.Checklist.Items {
		if strings.TrimSpace(item.ID) == "" {
			return fmt.Errorf("checklist.items[%d].id is required", i)
		}
		if strings.TrimSpace(item.Label) == "" {
			return fmt.Errorf("checklist.items[%d].label is required", i)
		}
		if seenItems[item.ID] {
			return fmt.Errorf("checklist.items has duplicate id %q", item.ID)
		}
		seenItems[item.ID] = true
	}

	if len(ps.Outputs.Routes) == 0 {
		return fmt.Errorf("outputs.routes must contain at least one route")
	}
	seenRoutes := make(map[string]bool, len(ps.Outputs.Routes))
	enabled := 0
	for i, route := range ps.Outputs.Routes {
		if strings.TrimSpace(route.ID) == "" {
			return fmt.Errorf("outputs.routes[%d].id is required", i)
		}
		if seenRoutes[route.ID] {
			return fmt.Errorf("outputs.routes has duplicate id %q", route.ID)
		}
		seenRoutes[route.ID] = true

		if !knownRouteTypes[route.Type] {
			return fmt.Errorf("outputs.routes[%d] has unsupported type %q", i, route.Type)
		}
		if !route.IsEnabled() {
			continue
		}
		enabled++

		switch route.Type {
		case RouteWebhook:
			if strings.TrimSpace(route.URL) == "" {
				return fmt.Errorf("route %q is webhook but has no URL configured", route.ID)
			}
		case RouteKafka:
			if len(route.Brokers) == 0 {
				return fmt.Errorf("route %q is kafka but has no brokers configured", route.ID)
			}
			if strings.TrimSpace(route.Topic) == "" {
				return fmt.Errorf("route %q is kafka but has no topic configured", route.ID)
			}
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no enabled output routes configured")
	}

	return nil
}
