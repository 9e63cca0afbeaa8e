package messages

import (
	"context"
	"fmt"
)

// Plugin extends the service with behavior initialized on Connect and
// torn down on Close.
type Plugin interface {
	// Name identifies the plugin in errors and logs.
	Name() string
	// Init is called during Connect, after the store and event bus are
	// ready. Returning an error aborts Connect.
	Init(ctx context.Context, svc *Service) error
	// Close is called during service shutdown.
	Close(ctx context.Context) error
}

// SendHook is implemented by plugins that intercept the send pipeline.
type SendHook interface {
	// BeforeSend runs after validation and may veto or mutate the
	// request. Returning an error aborts the send.
	BeforeSend(ctx context.Context, req *SendRequest) error
	// AfterSend runs after the messages are persisted and events
	// published. Errors here cannot undo the send and are not returned.
	AfterSend(ctx context.Context, req *SendRequest, sent []Message)
}

// PluginError reports which plugin failed and during what.
type PluginError struct {
	Plugin string
	Op     string
	Err    error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("messages: plugin %s %s: %v", e.Plugin, e.Op, e.Err)
}

func (e *PluginError) Unwrap() error {
	return e.Err
}

type pluginRegistry struct {
	plugins []Plugin
}

// initAll initializes plugins in order. On failure, already initialized
// plugins are closed in reverse order before returning.
func (r *pluginRegistry) initAll(ctx context.Context, svc *Service) error {
	for i, p := range r.plugins {
		if err := p.Init(ctx, svc); err != nil {
			for j := i - 1; j >= 0; j-- {
				if cerr := r.plugins[j].Close(ctx); cerr != nil {
					svc.logger.Error("plugin close during init rollback failed",
						"plugin", r.plugins[j].Name(), "error", cerr)
				}
			}
			return &PluginError{Plugin: p.Name(), Op: "init", Err: err}
		}
	}
	return nil
}

// closeAll closes plugins in reverse order, returning the first error.
func (r *pluginRegistry) closeAll(ctx context.Context) error {
	var firstErr error
	for i := len(r.plugins) - 1; i >= 0; i-- {
		p := r.plugins[i]
		if err := p.Close(ctx); err != nil && firstErr == nil {
			firstErr = &PluginError{Plugin: p.Name(), Op: "close", Err: err}
		}
	}
	return firstErr
}

// sendHooks returns the plugins that intercept sends, in registration order.
func (r *pluginRegistry) sendHooks() []SendHook {
	var hooks []SendHook
	for _, p := range r.plugins {
		if h, ok := p.(SendHook); ok {
			hooks = append(hooks, h)
		}
	}
	return hooks
}
