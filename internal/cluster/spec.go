package cluster

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/schmitthub/settle/pkg/whail"
)

// Spec describes a cluster file.
type Spec struct {
	Name   string     `yaml:"name"`
	Subnet string     `yaml:"subnet,omitempty"`
	Nodes  []NodeSpec `yaml:"nodes"`
}

// NodeSpec describes one node of a cluster.
type NodeSpec struct {
	Name    string            `yaml:"name"`
	Image   string            `yaml:"image"`
	Cmd     []string          `yaml:"cmd,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Labels  map[string]string `yaml:"labels,omitempty"`
	Aliases []string          `yaml:"aliases,omitempty"`
	IP      string            `yaml:"ip,omitempty"`
	// Ports lists container ports ("6379", "53/udp"). Each gets a host port
	// from the allocator unless it already names one ("16379:6379").
	Ports  []string `yaml:"ports,omitempty"`
	Memory string   `yaml:"memory,omitempty"`
	CPUs   float64  `yaml:"cpus,omitempty"`
	// Files maps absolute paths inside the container to their content.
	// Missing parent directories are created.
	Files      map[string]string `yaml:"files,omitempty"`
	Privileged bool              `yaml:"privileged,omitempty"`
	CapAdd     []string          `yaml:"cap_add,omitempty"`
	Ready      ReadySpec         `yaml:"ready,omitempty"`
}

// ReadySpec is what Up waits for after a node is running.
type ReadySpec struct {
	// Log waits until the container log contains this text.
	Log string `yaml:"log,omitempty"`
	// Exec waits until this shell-quoted command exits 0.
	Exec    string        `yaml:"exec,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

var nodeNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// LoadSpec reads and validates a cluster file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cluster file: %w", err)
	}
	return ParseSpec(data)
}

// ParseSpec decodes and validates a cluster file. Unknown fields are rejected.
func ParseSpec(data []byte) (*Spec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var spec Spec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing cluster file: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks node names, images and addresses.
func (s *Spec) Validate() error {
	var errs []error
	if s.Name != "" && !nodeNamePattern.MatchString(s.Name) {
		errs = append(errs, fmt.Errorf("cluster name %q is not a valid container name", s.Name))
	}
	var subnet *net.IPNet
	if s.Subnet != "" {
		_, n, err := net.ParseCIDR(s.Subnet)
		if err != nil {
			errs = append(errs, fmt.Errorf("subnet %q: %w", s.Subnet, err))
		}
		subnet = n
	}
	if len(s.Nodes) == 0 {
		errs = append(errs, errors.New("cluster has no nodes"))
	}
	seen := map[string]bool{}
	for i, n := range s.Nodes {
		where := fmt.Sprintf("nodes[%d]", i)
		if n.Name != "" {
			where = fmt.Sprintf("node %q", n.Name)
		}
		if !nodeNamePattern.MatchString(n.Name) {
			errs = append(errs, fmt.Errorf("%s: invalid name", where))
		}
		if seen[n.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate name", where))
		}
		seen[n.Name] = true
		if _, err := whail.NormalizeImageRef(n.Image); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
		if n.IP != "" {
			ip := net.ParseIP(n.IP)
			switch {
			case ip == nil:
				errs = append(errs, fmt.Errorf("%s: invalid ip %q", where, n.IP))
			case s.Subnet == "":
				errs = append(errs, fmt.Errorf("%s: a fixed ip requires a cluster subnet", where))
			case subnet != nil && !subnet.Contains(ip):
				errs = append(errs, fmt.Errorf("%s: ip %s is outside subnet %s", where, n.IP, s.Subnet))
			}
		}
		for path := range n.Files {
			if !strings.HasPrefix(path, "/") {
				errs = append(errs, fmt.Errorf("%s: file path %q must be absolute", where, path))
			}
		}
		if n.CPUs < 0 {
			errs = append(errs, fmt.Errorf("%s: cpus must not be negative", where))
		}
	}
	return errors.Join(errs...)
}

// envList renders the env map as sorted KEY=VALUE pairs.
func (n NodeSpec) envList() []string {
	out := make([]string, 0, len(n.Env))
	for k, v := range n.Env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
