// Command fragcache serves and administers fragment caches.
package main

import (
	"os"
)

// Version as provided by the release build.
var Version = ""

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
