// Package reactor is the unified reactor (spec §2, component I): a
// single-threaded event loop built on the same direct-indexed epoll wrapper
// (FastPoller, in poller_linux.go) the teacher eventloop package uses for
// its own I/O readiness notification, repurposed here to multiplex GPIO
// edge streams, timers, signals and client sockets instead of JavaScript
// promise/timer callbacks.
//
// # Descriptor ownership
//
// Every descriptor in the poll set is owned by exactly one Role (spec
// invariant 2). The Registry (registry.go) tracks that ownership and a
// dirty flag set on every change, playing the role FastPoller's atomic
// version counter plays in detecting "the set changed under me".
//
// # Loop
//
// Loop (loop.go) owns a Registry and a FastPoller. The daemon registers the
// initial poll set with it (the signal descriptor, the listener and every
// configured input line's edge descriptor); Run then blocks in PollIO. Handlers supplied
// at registration time run inline from FastPoller's dispatch, exactly as
// spec §4.I describes ("classifies each ready descriptor, and calls the
// component-appropriate handler").
package reactor
