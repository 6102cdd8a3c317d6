// Package whail is the container runtime client used by settle. It wraps the
// Docker SDK behind the Runtime interface and marks every container and
// network it creates with a managed label so that destructive operations only
// ever touch resources settle owns.
package whail

import (
	"maps"

	"github.com/docker/docker/api/types/filters"
)

// LabelConfig defines labels to apply to different resource types.
// All labels are optional - if a map is nil, no labels are applied for that resource type.
type LabelConfig struct {
	// Default labels applied to containers and networks.
	Default map[string]string

	// Container-specific labels (merged with Default)
	Container map[string]string

	// Network-specific labels (merged with Default)
	Network map[string]string
}

// MergeLabels merges multiple label maps, with later maps overriding earlier ones.
// Returns a new map containing all labels.
func MergeLabels(labelMaps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range labelMaps {
		maps.Copy(result, m)
	}
	return result
}

// ContainerLabels returns the merged labels for containers.
func (c *LabelConfig) ContainerLabels(extra ...map[string]string) map[string]string {
	all := append([]map[string]string{c.Default, c.Container}, extra...)
	return MergeLabels(all...)
}

// NetworkLabels returns the merged labels for networks.
func (c *LabelConfig) NetworkLabels(extra ...map[string]string) map[string]string {
	all := append([]map[string]string{c.Default, c.Network}, extra...)
	return MergeLabels(all...)
}

// LabelFilter builds a Docker filter matching every key=value pair in labels.
func LabelFilter(labels map[string]string) filters.Args {
	args := filters.NewArgs()
	for k, v := range labels {
		args.Add("label", k+"="+v)
	}
	return args
}
