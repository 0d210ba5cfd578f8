// Package action is component D: it turns raw GPIO edges into logical
// events and dispatches configured action lists to a small set of
// polymorphic executors. Spec §4.D deliberately treats executors as an
// abstract ActionExecutor contract; the concrete system/http/mpc/mympd/
// script-hook backends below are grounded on the original myGPIOd C
// sources' mygpiod/actions/*.c (see original_source/), reimplemented with
// Go's ecosystem equivalents (os/exec, net/http) instead of fork+exec and
// raw sockets.
package action

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/mygpiod/mygpiod/internal/errkind"
	"github.com/mygpiod/mygpiod/internal/gpio"
	"github.com/mygpiod/mygpiod/internal/logging"
)

// Context is the logical-event context handed to every executor.
type Context struct {
	Line      int
	Kind      gpio.EventKind
	TimestampNS uint64
}

// Executor runs one configured Action. It must fail with one of
// errkind.ErrInvalidArgument, errkind.ErrResourceExhausted or
// errkind.ErrExecutionFailed (spec §4.D).
type Executor interface {
	Run(ctx context.Context, ec Context, option string) error
}

// Registry dispatches an Action to the Executor registered for its Kind.
type Registry struct {
	execs map[gpio.ActionKind]Executor
	log   *logging.Logger
}

// NewRegistry builds a Registry with the standard executor set wired in.
func NewRegistry(log *logging.Logger, mpcAddr, mympdAddr string, httpClient *http.Client) *Registry {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	r := &Registry{execs: make(map[gpio.ActionKind]Executor), log: log}
	r.execs[gpio.ActionSystem] = systemExecutor{}
	r.execs[gpio.ActionHTTP] = httpExecutor{client: httpClient}
	r.execs[gpio.ActionScriptHook] = scriptExecutor{}
	r.execs[gpio.ActionMPC] = mpdExecutor{addr: mpcAddr, proto: protoMPD}
	r.execs[gpio.ActionMyMPD] = mpdExecutor{addr: mympdAddr, proto: protoMyMPD}
	return r
}

// RegisterGPIO wires the gpioset/gpiotoggle/gpioblink executors, which need
// a callback back into the GPIO model (component C) to avoid an import
// cycle between action and gpio.
func (r *Registry) RegisterGPIO(exec Executor) {
	r.execs[gpio.ActionGPIOSet] = exec
	r.execs[gpio.ActionGPIOToggle] = exec
	r.execs[gpio.ActionGPIOBlink] = exec
}

// Run dispatches every action in list in order. Failures are logged and do
// not stop the remaining actions (spec §4.D).
func (r *Registry) Run(ctx context.Context, ec Context, list []gpio.Action) {
	for _, a := range list {
		ex, ok := r.execs[a.Kind]
		if !ok {
			r.log.Warning().Log(fmt.Sprintf("action: no executor registered for kind %s", a.Kind))
			continue
		}
		if err := ex.Run(ctx, ec, a.Option); err != nil {
			r.log.Err().Err(err).Log(fmt.Sprintf("action: %s:%s failed on line %d", a.Kind, a.Option, ec.Line))
		}
	}
}

// systemExecutor spawns a process and does not wait for it to finish,
// grounded on mygpiod/actions/system semantics (fire-and-forget fork+exec).
type systemExecutor struct{}

func (systemExecutor) Run(ctx context.Context, ec Context, option string) error {
	fields := strings.Fields(option)
	if len(fields) == 0 {
		return errkind.Wrap(errkind.ErrInvalidArgument, "system: empty command")
	}
	cmd := exec.CommandContext(context.Background(), fields[0], fields[1:]...)
	if err := cmd.Start(); err != nil {
		return errkind.Wrapf(errkind.ErrExecutionFailed, "system: start "+fields[0], err)
	}
	go cmd.Wait()
	return nil
}

// httpExecutor posts a minimal JSON status body to a configured URL.
type httpExecutor struct {
	client *http.Client
}

func (h httpExecutor) Run(ctx context.Context, ec Context, option string) error {
	if option == "" {
		return errkind.Wrap(errkind.ErrInvalidArgument, "http: empty URL")
	}
	body := fmt.Sprintf(`{"line":%d,"event":%q}`, ec.Line, ec.Kind.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, option, bytes.NewBufferString(body))
	if err != nil {
		return errkind.Wrap(errkind.ErrInvalidArgument, "http: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return errkind.Wrapf(errkind.ErrExecutionFailed, "http: post "+option, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return errkind.Wrap(errkind.ErrExecutionFailed, fmt.Sprintf("http: %s returned %d", option, resp.StatusCode))
	}
	return nil
}

// scriptExecutor runs an external script hook with the event context as
// positional arguments, restoring the original C sources' lua.c hook
// (dropped by the spec distillation; see SPEC_FULL.md §4.D).
type scriptExecutor struct{}

func (scriptExecutor) Run(ctx context.Context, ec Context, option string) error {
	if option == "" {
		return errkind.Wrap(errkind.ErrInvalidArgument, "script: empty path")
	}
	cmd := exec.CommandContext(ctx, option, fmt.Sprint(ec.Line), ec.Kind.String())
	if err := cmd.Run(); err != nil {
		return errkind.Wrapf(errkind.ErrExecutionFailed, "script: run "+option, err)
	}
	return nil
}

type mpdProto int

const (
	protoMPD mpdProto = iota
	protoMyMPD
)

// mpdExecutor is a hand-rolled client for the line-oriented MPD/myMPD
// control protocol: no ecosystem client library for either was found in
// the retrieval pack, so this follows the same "dial, write a line, read
// one response line" shape the teacher's own small network clients use.
type mpdExecutor struct {
	addr  string
	proto mpdProto
}

func (m mpdExecutor) Run(ctx context.Context, ec Context, option string) error {
	if m.addr == "" {
		return errkind.Wrap(errkind.ErrInvalidArgument, "mpd: no server address configured")
	}
	if option == "" {
		return errkind.Wrap(errkind.ErrInvalidArgument, "mpd: empty command")
	}
	d := net.Dialer{Timeout: 3 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return errkind.Wrapf(errkind.ErrExecutionFailed, "mpd: dial "+m.addr, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(3 * time.Second))
	greeting := make([]byte, 128)
	if _, err := conn.Read(greeting); err != nil {
		return errkind.Wrapf(errkind.ErrExecutionFailed, "mpd: read greeting", err)
	}
	if _, err := conn.Write([]byte(option + "\n")); err != nil {
		return errkind.Wrapf(errkind.ErrExecutionFailed, "mpd: write command", err)
	}
	resp := make([]byte, 256)
	n, err := conn.Read(resp)
	if err != nil {
		return errkind.Wrapf(errkind.ErrExecutionFailed, "mpd: read response", err)
	}
	if bytes.HasPrefix(resp[:n], []byte("ACK")) {
		return errkind.Wrap(errkind.ErrExecutionFailed, "mpd: "+string(resp[:n]))
	}
	return nil
}
