package window

import (
	"errors"
	"sync"

	"github.com/cbegin/fxhost-go/internal/plugin"
)

var errEditorClosed = errors.New("editor is closed")

// GenericEditor edits a plugin through its parameter list. It stands in for
// plugins that ship no editor of their own.
type GenericEditor struct {
	title  string
	target plugin.Parameterized

	mu     sync.Mutex
	closed bool
}

func NewGenericEditor(title string, target plugin.Parameterized) *GenericEditor {
	return &GenericEditor{title: title, target: target}
}

func (e *GenericEditor) Title() string { return e.title }

func (e *GenericEditor) Params() []plugin.Param {
	return e.target.Params()
}

// Set changes a parameter. A closed editor no longer reaches the plugin.
func (e *GenericEditor) Set(name string, value float64) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return errEditorClosed
	}
	return e.target.SetParam(name, value)
}

func (e *GenericEditor) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *GenericEditor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
