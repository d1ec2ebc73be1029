package app

import (
	"context"
	"sync"

	"github.com/five82/likebar/internal/widget"
)

// StartPollers launches the poll loop of every widget and returns a func
// that stops them all and waits for their loops to exit.
func StartPollers(ctx context.Context, widgets []*widget.Widget) (stop func()) {
	for _, w := range widgets {
		w.Start(ctx)
	}
	return func() {
		var wg sync.WaitGroup
		for _, w := range widgets {
			wg.Add(1)
			go func(w *widget.Widget) {
				defer wg.Done()
				w.Stop()
			}(w)
		}
		wg.Wait()
	}
}
