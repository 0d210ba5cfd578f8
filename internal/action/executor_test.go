package action

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mygpiod/mygpiod/internal/errkind"
	"github.com/mygpiod/mygpiod/internal/gpio"
	"github.com/mygpiod/mygpiod/internal/logging"
)

func TestSystemExecutorRejectsEmptyCommand(t *testing.T) {
	var e systemExecutor
	err := e.Run(context.Background(), Context{}, "")
	if err == nil {
		t.Fatal("expected an error for an empty system command")
	}
}

func TestSystemExecutorRunsFireAndForget(t *testing.T) {
	var e systemExecutor
	if err := e.Run(context.Background(), Context{}, "/bin/true"); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestHTTPExecutorPostsEventBody(t *testing.T) {
	var gotMethod, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		buf := make([]byte, 256)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := httpExecutor{client: srv.Client()}
	err := e.Run(context.Background(), Context{Line: 3, Kind: gpio.EventRising}, srv.URL)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("method = %q, want POST", gotMethod)
	}
	if gotBody == "" {
		t.Fatal("expected a non-empty request body")
	}
}

func TestHTTPExecutorReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := httpExecutor{client: srv.Client()}
	err := e.Run(context.Background(), Context{}, srv.URL)
	if err == nil {
		t.Fatal("expected an error for a 5xx response")
	}
}

func TestScriptExecutorRejectsEmptyPath(t *testing.T) {
	var e scriptExecutor
	if err := e.Run(context.Background(), Context{}, ""); err == nil {
		t.Fatal("expected an error for an empty script path")
	}
}

func TestMPDExecutorRequiresAddress(t *testing.T) {
	e := mpdExecutor{proto: protoMPD}
	err := e.Run(context.Background(), Context{}, "play")
	if err == nil {
		t.Fatal("expected an error with no server address configured")
	}
}

type recordingExecutor struct {
	ran bool
	err error
}

func (r *recordingExecutor) Run(ctx context.Context, ec Context, option string) error {
	r.ran = true
	return r.err
}

func TestRegistryRunContinuesAfterFailure(t *testing.T) {
	log := logging.NewDiscard()
	reg := NewRegistry(log, "", "", nil)

	first := &recordingExecutor{err: errkind.Wrap(errkind.ErrExecutionFailed, "boom")}
	second := &recordingExecutor{}
	reg.execs[gpio.ActionSystem] = first
	reg.RegisterGPIO(second)

	reg.Run(context.Background(), Context{}, []gpio.Action{
		{Kind: gpio.ActionSystem, Option: "x"},
		{Kind: gpio.ActionGPIOSet, Option: "1:active"},
	})

	if !first.ran || !second.ran {
		t.Fatal("expected every action in the list to run despite the first failing")
	}
}

func TestRegistryRunSkipsUnregisteredKind(t *testing.T) {
	log := logging.NewDiscard()
	reg := NewRegistry(log, "", "", nil)
	// ActionGPIOSet has no executor registered until RegisterGPIO is called.
	reg.Run(context.Background(), Context{}, []gpio.Action{{Kind: gpio.ActionGPIOSet, Option: "1"}})
}
