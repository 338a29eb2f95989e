package markdown

import (
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// copiedWindow is how long a code block's copy control shows the
// "copied" acknowledgement before reverting.
const copiedWindow = 2 * time.Second

// CopyTracker owns the copy-to-clipboard affordance for code blocks.
// Acknowledgement state is tracked per distinct code string, so copying
// one block never disturbs another's indicator, and re-copying the same
// code restarts its window.
type CopyTracker struct {
	mu     sync.Mutex
	copied map[string]time.Time

	now      func() time.Time
	write    func(string) error
	observer func(string)
}

// CopyOption configures a CopyTracker.
type CopyOption func(*CopyTracker)

// WithClock replaces the tracker's time source. Tests use this to
// step past the acknowledgement window without sleeping.
func WithClock(now func() time.Time) CopyOption {
	return func(t *CopyTracker) { t.now = now }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) CopyOption {
	return func(t *CopyTracker) { t.write = write }
}

// WithObserver registers a callback notified with the copied text.
func WithObserver(fn func(string)) CopyOption {
	return func(t *CopyTracker) { t.observer = fn }
}

// NewCopyTracker builds a tracker writing to the system clipboard.
func NewCopyTracker(opts ...CopyOption) *CopyTracker {
	t := &CopyTracker{
		copied: make(map[string]time.Time),
		now:    time.Now,
		write:  clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Copy writes the code to the clipboard with its trailing newline
// stripped, notifies the observer, and starts the block's
// acknowledgement window. The raw code string is the state key.
func (t *CopyTracker) Copy(code string) error {
	payload := strings.TrimRight(code, "\n")
	if err := t.write(payload); err != nil {
		return err
	}
	t.mu.Lock()
	t.copied[code] = t.now()
	t.mu.Unlock()
	if t.observer != nil {
		t.observer(payload)
	}
	return nil
}

// Copied reports whether the code's acknowledgement window is still
// open. Expired entries are dropped on the way out.
func (t *CopyTracker) Copied(code string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.copied[code]
	if !ok {
		return false
	}
	if t.now().Sub(at) >= copiedWindow {
		delete(t.copied, code)
		return false
	}
	return true
}
