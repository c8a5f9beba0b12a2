// Command breedcore manages breeding plans: it locks and unlocks cycle
// starts, records actual milestones and renders or exports the timeline.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
