package taskgroup

// Priority is a scheduling hint attached to spawned children. The Go
// runtime does not honor priorities; the value is inherited by children,
// reported to observers, and available to integrations that do.
type Priority int

const (
	PriorityBackground Priority = iota
	PriorityUtility
	PriorityDefault
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityBackground:
		return "background"
	case PriorityUtility:
		return "utility"
	case PriorityHigh:
		return "high"
	default:
		return "default"
	}
}

type Option func(*Options)

type Options struct {
	Observer Observer
	Priority Priority
}

func defaultOptions() Options { return Options{Priority: PriorityDefault} }

// WithObserver attaches an Observer to the group.
func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

// WithDefaultPriority sets the priority children inherit when Spawn is
// not given an explicit one.
func WithDefaultPriority(p Priority) Option { return func(o *Options) { o.Priority = p } }

// SpawnOption configures a single Spawn call.
type SpawnOption func(*spawnConfig)

type spawnConfig struct {
	priority    Priority
	hasPriority bool
}

// WithSpawnPriority overrides the inherited priority for one child.
func WithSpawnPriority(p Priority) SpawnOption {
	return func(c *spawnConfig) {
		c.priority = p
		c.hasPriority = true
	}
}
