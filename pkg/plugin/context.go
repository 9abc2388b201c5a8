package plugin

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/deployworks/deployctl/pkg/target"
)

// Context carries one operation's state through a plugin. Files are consumed
// through the cursor one at a time; a cancelled context stops the cursor at
// the next file boundary, never mid-file.
type Context struct {
	// ID uniquely identifies the operation, for logs and correlation.
	ID string

	// Target is the destination the plugin is bound to.
	Target *target.Target

	// WorkspaceRoot anchors relative file paths.
	WorkspaceRoot string

	// OnBeforeFile runs before each file is processed. Returning an error
	// records a failure for that file and skips it; the cursor continues.
	OnBeforeFile func(file string) error

	// OnFileDone runs after each file, with the plugin's error if any.
	OnFileDone func(file string, err error)

	files     []string
	cursorMu  sync.Mutex
	cursor    int
	cancelled atomic.Bool
}

// NewContext creates an operation context over the given files.
func NewContext(t *target.Target, workspaceRoot string, files []string) *Context {
	return &Context{
		ID:            uuid.NewString(),
		Target:        t,
		WorkspaceRoot: workspaceRoot,
		files:         files,
	}
}

// Files returns every file in the operation, regardless of cursor position.
func (c *Context) Files() []string {
	return c.files
}

// Next returns the next file to process. It returns false when the files are
// exhausted or the operation has been cancelled.
func (c *Context) Next() (string, bool) {
	if c.cancelled.Load() {
		return "", false
	}
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	if c.cursor >= len(c.files) {
		return "", false
	}
	file := c.files[c.cursor]
	c.cursor++
	return file, true
}

// Cancel requests the operation stop at the next file boundary. Safe to call
// from any goroutine.
func (c *Context) Cancel() {
	c.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (c *Context) Cancelled() bool {
	return c.cancelled.Load()
}

// BeforeFile invokes the OnBeforeFile callback if set.
func (c *Context) BeforeFile(file string) error {
	if c.OnBeforeFile == nil {
		return nil
	}
	return c.OnBeforeFile(file)
}

// FileDone invokes the OnFileDone callback if set.
func (c *Context) FileDone(file string, err error) {
	if c.OnFileDone != nil {
		c.OnFileDone(file, err)
	}
}
