package reactor

// Role tags why a descriptor is in the poll set, selecting which component
// handles it when it becomes ready (spec §4.A, §4.I step 4).
type Role int

const (
	RoleSignal Role = iota
	RoleListener
	RoleGPIOEdge
	RoleLongPressTimer
	RoleOutputTimer
	RoleSession
	RoleSessionTimeout
)

func (r Role) String() string {
	switch r {
	case RoleSignal:
		return "signal"
	case RoleListener:
		return "listener"
	case RoleGPIOEdge:
		return "gpio-edges"
	case RoleLongPressTimer:
		return "gpio-long-press-timer"
	case RoleOutputTimer:
		return "gpio-output-timer"
	case RoleSession:
		return "session"
	case RoleSessionTimeout:
		return "session-timeout"
	default:
		return "unknown"
	}
}

// entry is one descriptor's registry record.
type entry struct {
	fd   int
	role Role
	// key identifies the owning domain object (input line number, output
	// line number, or session ID) so a handler can look it back up.
	key int
}

// Registry maps active kernel descriptors to their logical role (spec
// component A). It tracks a dirty flag the way FastPoller tracks a version
// counter: any mutation sets it. No userspace poll set is rebuilt from it;
// the epoll set is kept current by FastPoller's own add/modify/delete
// calls, and Loop.Run only clears the flag before each wait.
type Registry struct {
	entries map[int]entry
	dirty   bool
}

// NewRegistry builds an empty Registry. The number of entries is not
// bounded: Add accepts every descriptor it is given and never reports a
// capacity error.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[int]entry, 64)}
}

// Add records fd's role and owning key, marking the registry dirty (spec
// invariant 1: a descriptor appears at most once).
func (r *Registry) Add(fd int, role Role, key int) {
	r.entries[fd] = entry{fd: fd, role: role, key: key}
	r.dirty = true
}

// Remove drops fd from the registry (spec invariant 2: the owner is
// responsible for actually closing it; Remove only forgets the role).
func (r *Registry) Remove(fd int) {
	if _, ok := r.entries[fd]; ok {
		delete(r.entries, fd)
		r.dirty = true
	}
}

// Lookup returns fd's role and owning key.
func (r *Registry) Lookup(fd int) (role Role, key int, ok bool) {
	e, ok := r.entries[fd]
	return e.role, e.key, ok
}

// Dirty reports whether the poll set needs rebuilding since the last
// ClearDirty call.
func (r *Registry) Dirty() bool { return r.dirty }

// ClearDirty resets the dirty flag; Loop.Run calls it before each wait.
func (r *Registry) ClearDirty() { r.dirty = false }

// Entries returns every currently registered descriptor, for poll-set
// rebuilding.
func (r *Registry) Entries() []int {
	out := make([]int, 0, len(r.entries))
	for fd := range r.entries {
		out = append(out, fd)
	}
	return out
}

// Len is the number of currently registered descriptors.
func (r *Registry) Len() int { return len(r.entries) }
