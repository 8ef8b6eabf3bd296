package plugins

import (
	"context"

	envelop "github.com/hanpama/envelope/internal/envelop"
	executor "github.com/hanpama/envelope/internal/executor"
)

// DefaultMaskedMessage replaces the message of unexpected errors.
const DefaultMaskedMessage = "Unexpected error."

type maskedErrors struct {
	message  string
	expected func(executor.GraphQLError) bool
}

type MaskOption func(*maskedErrors)

// WithMaskedMessage sets the replacement message.
func WithMaskedMessage(msg string) MaskOption {
	return func(p *maskedErrors) { p.message = msg }
}

// WithExpected decides which errors are shown unchanged.
func WithExpected(fn func(executor.GraphQLError) bool) MaskOption {
	return func(p *maskedErrors) { p.expected = fn }
}

// HasCode reports whether e carries an extensions.code; such errors are
// expected by default.
func HasCode(e executor.GraphQLError) bool {
	_, ok := e.Extensions["code"]
	return ok
}

// UseMaskedErrors hides the message of unexpected execution errors. Paths
// and locations are kept.
func UseMaskedErrors(opts ...MaskOption) envelop.Plugin {
	p := &maskedErrors{message: DefaultMaskedMessage, expected: HasCode}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *maskedErrors) PluginName() string { return "maskedErrors" }

func (p *maskedErrors) OnExecute(ctx context.Context, api *envelop.ExecuteAPI) (envelop.AfterExecuteHook, error) {
	return func(ctx context.Context, done *envelop.AfterExecuteAPI) error {
		if done.Result == nil || len(done.Result.Errors) == 0 {
			return nil
		}
		masked := *done.Result
		masked.Errors = make([]executor.GraphQLError, len(done.Result.Errors))
		for i, e := range done.Result.Errors {
			if !p.expected(e) {
				e.Message = p.message
			}
			masked.Errors[i] = e
		}
		done.SetResult(&masked)
		return nil
	}, nil
}
