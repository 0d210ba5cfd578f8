// Command mygpiod is a long-running supervisor daemon for a Linux host's
// GPIO lines (spec §1). Usage: mygpiod [config-file]; a path beginning
// with '/' is used verbatim, otherwise /etc/mygpiod.conf is the default.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mygpiod/mygpiod/internal/daemon"
)

func main() {
	os.Exit(run())
}

func run() int {
	path := "/etc/mygpiod.conf"
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if strings.HasPrefix(arg, "/") {
			path = arg
		}
	}

	d, err := daemon.New(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mygpiod: startup failed: %v\n", err)
		return 1
	}

	if err := d.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "mygpiod: %v\n", err)
		return 1
	}
	return 0
}
