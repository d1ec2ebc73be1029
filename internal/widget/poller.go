package widget

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Start launches the widget's poll loop and returns immediately. The first
// poll runs at once, then every PollInterval until ctx is cancelled or Stop
// is called. Starting a running widget is a no-op.
func (w *Widget) Start(ctx context.Context) {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done

	go func() {
		defer close(done)

		if w.cfg.InitPage {
			if err := w.api.InitPage(ctx, w.cfg.PageKey); err != nil && ctx.Err() == nil {
				w.logger.Warn("page init failed", zap.Error(err))
			}
		}

		ticker := time.NewTicker(w.cfg.PollInterval)
		defer ticker.Stop()

		for {
			_ = w.Refresh(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop cancels the poll loop and waits for it to exit. In-flight like and
// comment submissions are not affected.
func (w *Widget) Stop() {
	w.runMu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.runMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	w.mu.Lock()
	if w.pulseTimer != nil {
		w.pulseTimer.Stop()
	}
	w.view.Pulse = false
	w.mu.Unlock()
}
