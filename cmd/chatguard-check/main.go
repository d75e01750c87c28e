// Command chatguard-check runs text through the configured rules offline and
// reads the moderation log.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
