package whailtest

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/schmitthub/settle/pkg/callback"
	"github.com/schmitthub/settle/pkg/whail"
)

// FakeContainer is the in-memory state of one container in a FakeRuntime.
type FakeContainer struct {
	ID       string
	Image    string
	Options  whail.ContainerOptions
	Running  bool
	ExitCode int
	IP       string
	Logs     string
	Files    map[string]string
	Execs    [][]string
}

// FakeRuntime is an in-memory whail.Runtime. Containers become running on
// StartContainer and stop on StopContainer or KillContainer. The Fn hooks
// override the default behavior of single operations.
type FakeRuntime struct {
	mu         sync.Mutex
	containers map[string]*FakeContainer
	networks   map[string]string
	nextID     int
	nextIP     map[string]int

	// Calls records "Method id" entries in order.
	Calls []string

	// StartFn runs before a container is marked running. A non-nil error
	// fails the start and leaves the container stopped.
	StartFn func(id string, attempt int) error

	// ExecFn produces the result of Exec. A non-zero exit code is turned into
	// a *whail.ProcessError like the real engine does. Default: exit 0, no output.
	ExecFn func(id string, argv []string) (whail.ExecResult, error)

	// InspectFn overrides InspectContainer.
	InspectFn func(id string) (whail.ContainerStatus, error)

	// CreateErr, when set, fails every CreateContainer call.
	CreateErr error

	startAttempts map[string]int
}

var _ whail.Runtime = (*FakeRuntime)(nil)

// NewFakeRuntime returns an empty runtime.
func NewFakeRuntime() *FakeRuntime {
	return &FakeRuntime{
		containers:    map[string]*FakeContainer{},
		networks:      map[string]string{},
		nextIP:        map[string]int{},
		startAttempts: map[string]int{},
	}
}

func (f *FakeRuntime) record(method, id string) {
	f.Calls = append(f.Calls, method+" "+id)
}

// CallsTo returns the recorded calls of method, in order.
func (f *FakeRuntime) CallsTo(method string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Calls {
		if strings.HasPrefix(c, method+" ") {
			out = append(out, c)
		}
	}
	return out
}

// Container returns a copy of the container state, if it exists.
func (f *FakeRuntime) Container(id string) (FakeContainer, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.lookup(id)
	if !ok {
		return FakeContainer{}, false
	}
	cp := *c
	cp.Files = maps.Clone(c.Files)
	cp.Execs = slices.Clone(c.Execs)
	return cp, true
}

// ContainerIDs returns the IDs of all existing containers, sorted.
func (f *FakeRuntime) ContainerIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Sorted(maps.Keys(f.containers))
}

// Networks returns the names of all existing networks, sorted.
func (f *FakeRuntime) Networks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Sorted(maps.Keys(f.networks))
}

// AppendLog adds text to the container's log output.
func (f *FakeRuntime) AppendLog(id, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.lookup(id); ok {
		c.Logs += text
	}
}

// SetRunning flips the running state of a container, simulating a crash or
// an external restart.
func (f *FakeRuntime) SetRunning(id string, running bool, exitCode int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.lookup(id); ok {
		c.Running = running
		c.ExitCode = exitCode
	}
}

// lookup resolves an ID or container name. Must be called with f.mu held.
func (f *FakeRuntime) lookup(idOrName string) (*FakeContainer, bool) {
	if c, ok := f.containers[idOrName]; ok {
		return c, true
	}
	for _, c := range f.containers {
		if c.Options.Name != "" && c.Options.Name == idOrName {
			return c, true
		}
	}
	return nil, false
}

func notFound(kind, id string) error {
	return NotFound(fmt.Sprintf("%s %s", kind, id))
}

func (f *FakeRuntime) CreateContainer(_ context.Context, image string, opts whail.ContainerOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateContainer", opts.Name)
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	ref, err := whail.NormalizeImageRef(image)
	if err != nil {
		return "", err
	}
	if opts.Name != "" {
		if _, exists := f.lookup(opts.Name); exists {
			return "", whail.ErrContainerCreateFailed(opts.Name, fmt.Errorf("name %q already in use", opts.Name))
		}
	}
	if opts.Network != "" {
		if _, ok := f.networks[opts.Network]; !ok {
			return "", whail.ErrContainerCreateFailed(opts.Name, notFound("network", opts.Network))
		}
	}

	f.nextID++
	id := fmt.Sprintf("fake%08d", f.nextID)
	c := &FakeContainer{ID: id, Image: ref, Options: opts, Files: map[string]string{}}
	if opts.Network != "" {
		c.IP = opts.IPv4Address
		if c.IP == "" {
			f.nextIP[opts.Network]++
			c.IP = fmt.Sprintf("10.99.0.%d", f.nextIP[opts.Network]+1)
		}
	}
	f.containers[id] = c
	return id, nil
}

func (f *FakeRuntime) StartContainer(_ context.Context, id string) error {
	f.mu.Lock()
	f.record("StartContainer", id)
	c, ok := f.lookup(id)
	if !ok {
		f.mu.Unlock()
		return whail.ErrContainerStartFailed(id, notFound("container", id))
	}
	f.startAttempts[c.ID]++
	attempt := f.startAttempts[c.ID]
	hook := f.StartFn
	f.mu.Unlock()

	if hook != nil {
		if err := hook(c.ID, attempt); err != nil {
			return whail.ErrContainerStartFailed(id, err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	c.Running = true
	c.ExitCode = 0
	return nil
}

func (f *FakeRuntime) StopContainer(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("StopContainer", id)
	c, ok := f.lookup(id)
	if !ok {
		return whail.ErrContainerStopFailed(id, notFound("container", id))
	}
	c.Running = false
	c.ExitCode = 0
	return nil
}

func (f *FakeRuntime) KillContainer(_ context.Context, id, signal string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("KillContainer", id)
	c, ok := f.lookup(id)
	if !ok {
		return whail.ErrContainerKillFailed(id, notFound("container", id))
	}
	c.Running = false
	c.ExitCode = 137
	return nil
}

func (f *FakeRuntime) RemoveContainer(_ context.Context, id string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveContainer", id)
	c, ok := f.lookup(id)
	if !ok {
		return nil
	}
	if c.Running && !force {
		return whail.ErrContainerRemoveFailed(id, fmt.Errorf("container %s is running", id))
	}
	delete(f.containers, c.ID)
	return nil
}

func (f *FakeRuntime) Exec(_ context.Context, id string, argv []string) (whail.ExecResult, error) {
	f.mu.Lock()
	f.record("Exec", id)
	c, ok := f.lookup(id)
	if !ok {
		f.mu.Unlock()
		return whail.ExecResult{}, whail.ErrContainerExecFailed(id, notFound("container", id))
	}
	if !c.Running {
		f.mu.Unlock()
		return whail.ExecResult{}, whail.ErrContainerExecFailed(id, fmt.Errorf("container %s is not running", id))
	}
	c.Execs = append(c.Execs, slices.Clone(argv))
	hook := f.ExecFn
	f.mu.Unlock()

	if hook == nil {
		return whail.ExecResult{}, nil
	}
	res, err := hook(c.ID, argv)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		return res, &whail.ProcessError{Container: id, Argv: argv, ExitCode: res.ExitCode, Lines: res.Lines}
	}
	return res, nil
}

func (f *FakeRuntime) Logs(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Logs", id)
	c, ok := f.lookup(id)
	if !ok {
		return "", whail.ErrContainerLogsFailed(id, notFound("container", id))
	}
	return c.Logs, nil
}

func (f *FakeRuntime) InspectContainer(_ context.Context, id string) (whail.ContainerStatus, error) {
	f.mu.Lock()
	f.record("InspectContainer", id)
	hook := f.InspectFn
	if hook != nil {
		f.mu.Unlock()
		return hook(id)
	}
	defer f.mu.Unlock()
	c, ok := f.lookup(id)
	if !ok {
		return whail.ContainerStatus{}, whail.ErrContainerInspectFailed(id, notFound("container", id))
	}
	return c.status(), nil
}

func (c *FakeContainer) status() whail.ContainerStatus {
	st := whail.ContainerStatus{
		ID:          c.ID,
		Name:        c.Options.Name,
		Image:       c.Image,
		Running:     c.Running,
		ExitCode:    c.ExitCode,
		IPAddresses: map[string]string{},
	}
	st.Status = "exited"
	if c.Running {
		st.Status = "running"
	}
	if c.IP != "" {
		st.IPAddresses[c.Options.Network] = c.IP
	}
	return st
}

func (f *FakeRuntime) ListContainers(_ context.Context, labels map[string]string) ([]whail.ContainerStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListContainers", "")
	var out []whail.ContainerStatus
	for _, id := range slices.Sorted(maps.Keys(f.containers)) {
		c := f.containers[id]
		match := true
		for k, v := range labels {
			if c.Options.Labels[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, c.status())
		}
	}
	return out, nil
}

func (f *FakeRuntime) CreateNetwork(_ context.Context, name, subnet string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateNetwork", name)
	if _, exists := f.networks[name]; exists {
		return "", whail.ErrNetworkCreateFailed(name, fmt.Errorf("network %s already exists", name))
	}
	f.networks[name] = subnet
	return "net-" + name, nil
}

func (f *FakeRuntime) RemoveNetwork(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveNetwork", name)
	for _, c := range f.containers {
		if c.Options.Network == name {
			return whail.ErrNetworkRemoveFailed(name, fmt.Errorf("network has active endpoints"))
		}
	}
	delete(f.networks, name)
	return nil
}

func (f *FakeRuntime) CopyFileToContainer(_ context.Context, id, path, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CopyFileToContainer", id)
	c, ok := f.lookup(id)
	if !ok {
		return whail.ErrCopyToContainerFailed(id, notFound("container", id))
	}
	if !strings.HasPrefix(path, "/") {
		return whail.ErrCopyToContainerFailed(id, fmt.Errorf("destination %q must be an absolute path", path))
	}
	c.Files[path] = content
	return nil
}

// StreamLogs emits the current log lines of the container and completes. The
// fake has no running processes, so follow has no effect.
func (f *FakeRuntime) StreamLogs(_ context.Context, id string, _ bool, cb callback.Callback[string]) error {
	f.mu.Lock()
	f.record("StreamLogs", id)
	c, ok := f.lookup(id)
	if !ok {
		f.mu.Unlock()
		return whail.ErrContainerLogsFailed(id, notFound("container", id))
	}
	logs := c.Logs
	f.mu.Unlock()

	w := callback.LineWriter(cb)
	_, _ = w.Write([]byte(logs))
	_ = w.Close()
	cb.OnComplete()
	return nil
}

// Close is a no-op.
func (f *FakeRuntime) Close() error { return nil }
