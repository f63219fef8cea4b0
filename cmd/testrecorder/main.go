// Command testrecorder serves the step recorder to browser clients and
// manages archived test plans.
package main

import (
	"context"
	"os"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
