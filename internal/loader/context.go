package loader

import (
	"log/slog"

	"github.com/sturdy-barnacle/tibok-plugins/internal/permission"
)

// Gate answers runtime capability checks for a plugin. The approval
// validator implements it.
type Gate interface {
	HasPermission(p permission.Permission, pluginID string) bool
}

// EditorSurface is the host's document surface. Supplied by the editor,
// consumed by the context behind the editor-content permission.
type EditorSurface interface {
	Content() string
	SetContent(content string)
}

// Notifier shows user notifications.
type Notifier interface {
	Notify(message string)
}

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	Read() (string, error)
	Write(content string) error
}

// Context is the capability-scoped view of the host handed to a plugin.
// Every operation checks the plugin's granted permissions at call time; a
// grant revoked mid-session takes effect on the next call. The context
// holds no mutable back-references into host state.
type Context struct {
	pluginID string
	gate     Gate
	logger   *slog.Logger

	editor    EditorSurface
	notifier  Notifier
	clipboard Clipboard
}

// ContextOption wires a host collaborator into a Context.
type ContextOption func(*Context)

// WithEditor supplies the document surface.
func WithEditor(e EditorSurface) ContextOption {
	return func(c *Context) {
		c.editor = e
	}
}

// WithNotifier supplies the notification sink.
func WithNotifier(n Notifier) ContextOption {
	return func(c *Context) {
		c.notifier = n
	}
}

// WithClipboard supplies the clipboard.
func WithClipboard(cb Clipboard) ContextOption {
	return func(c *Context) {
		c.clipboard = cb
	}
}

// NewContext creates a capability-scoped context for one plugin.
func NewContext(pluginID string, gate Gate, logger *slog.Logger, opts ...ContextOption) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Context{
		pluginID: pluginID,
		gate:     gate,
		logger:   logger.With(slog.String("plugin", pluginID)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PluginID returns the owning plugin's identifier.
func (c *Context) PluginID() string {
	return c.pluginID
}

// Logger returns a logger tagged with the plugin identifier.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// Can reports whether the plugin currently holds a permission.
func (c *Context) Can(p permission.Permission) bool {
	return c.gate.HasPermission(p, c.pluginID)
}

// Check returns a CapabilityError if the permission is not held.
func (c *Context) Check(p permission.Permission, operation string) error {
	if !c.Can(p) {
		return newCapabilityError(c.pluginID, p, operation)
	}
	return nil
}

// EditorContent returns the active document's content.
func (c *Context) EditorContent() (string, error) {
	if err := c.Check(permission.PermEditorContent, "read editor content"); err != nil {
		return "", err
	}
	if c.editor == nil {
		return "", nil
	}
	return c.editor.Content(), nil
}

// SetEditorContent replaces the active document's content.
func (c *Context) SetEditorContent(content string) error {
	if err := c.Check(permission.PermEditorContent, "write editor content"); err != nil {
		return err
	}
	if c.editor != nil {
		c.editor.SetContent(content)
	}
	return nil
}

// Notify shows a user notification on the plugin's behalf.
func (c *Context) Notify(message string) error {
	if err := c.Check(permission.PermNotifications, "show notification"); err != nil {
		return err
	}
	if c.notifier != nil {
		c.notifier.Notify(message)
	}
	return nil
}

// ReadClipboard returns the clipboard content.
func (c *Context) ReadClipboard() (string, error) {
	if err := c.Check(permission.PermClipboardAccess, "read clipboard"); err != nil {
		return "", err
	}
	if c.clipboard == nil {
		return "", nil
	}
	return c.clipboard.Read()
}

// WriteClipboard replaces the clipboard content.
func (c *Context) WriteClipboard(content string) error {
	if err := c.Check(permission.PermClipboardAccess, "write clipboard"); err != nil {
		return err
	}
	if c.clipboard == nil {
		return nil
	}
	return c.clipboard.Write(content)
}
