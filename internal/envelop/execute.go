package envelop

import (
	"context"
	"time"

	eventbus "github.com/hanpama/envelope/internal/eventbus"
	events "github.com/hanpama/envelope/internal/events"
	executor "github.com/hanpama/envelope/internal/executor"
	language "github.com/hanpama/envelope/internal/language"
	schema "github.com/hanpama/envelope/internal/schema"
)

// ExecutableSchema is a schema together with the runtime resolving it.
type ExecutableSchema interface {
	executor.Runtime
	Schema() *schema.Schema
}

// Request is one GraphQL operation to run through the plugins.
type Request struct {
	Query string
	// Document skips parsing when set.
	Document      *language.QueryDocument
	OperationName string
	Variables     map[string]any
	RootValue     map[string]any
	// ContextSeed is the initial context. It is copied, never modified.
	ContextSeed map[string]any
}

// Execute parses req, builds its context and executes it against es.
//
// Syntax and validation failures come back as a result carrying GraphQL
// errors. Hook failures are returned as errors and nothing is executed.
func (r *Registry) Execute(ctx context.Context, es ExecutableSchema, req Request) (*executor.ExecutionResult, error) {
	doc := req.Document
	if doc == nil {
		var errs language.ErrorList
		doc, errs = parse(es.Schema(), req.Query)
		if len(errs) > 0 {
			return &executor.ExecutionResult{Errors: toGraphQLErrors(errs)}, nil
		}
	}

	doc, err := r.runParseHooks(ctx, req, doc)
	if err != nil {
		return nil, err
	}

	built, err := r.BuildContext(ctx, req.ContextSeed)
	if err != nil {
		return nil, err
	}

	args := &ExecuteArgs{
		Document:      doc,
		OperationName: req.OperationName,
		Variables:     req.Variables,
		RootValue:     req.RootValue,
		ContextValue:  built.Context,
	}
	return r.execute(ctx, es, req.Query, args)
}

func parse(sch *schema.Schema, query string) (*language.QueryDocument, language.ErrorList) {
	if sch != nil && sch.AST != nil {
		return language.LoadQuery(sch.AST, query)
	}
	doc, err := language.ParseQuery(query)
	if err != nil {
		if ge, ok := err.(*language.Error); ok {
			return nil, language.ErrorList{ge}
		}
		return nil, language.ErrorList{{Message: err.Error()}}
	}
	return doc, nil
}

func toGraphQLErrors(errs language.ErrorList) []executor.GraphQLError {
	out := make([]executor.GraphQLError, len(errs))
	for i, e := range errs {
		ge := executor.GraphQLError{Message: e.Message, Extensions: e.Extensions}
		for _, loc := range e.Locations {
			ge.Locations = append(ge.Locations, executor.Location{Line: loc.Line, Column: loc.Column})
		}
		out[i] = ge
	}
	return out
}

func (r *Registry) runParseHooks(ctx context.Context, req Request, doc *language.QueryDocument) (*language.QueryDocument, error) {
	api := &ParseAPI{Query: req.Query, OperationName: req.OperationName, Document: doc}
	for _, e := range r.entries {
		if e.parse == nil {
			continue
		}
		err := guard(ctx, e.name, PhaseParse, func() error { return e.parse(ctx, api) })
		if err != nil {
			return nil, err
		}
	}
	return api.Document, nil
}

type pendingExecute struct {
	plugin string
	hook   AfterExecuteHook
}

func (r *Registry) execute(ctx context.Context, es ExecutableSchema, query string, args *ExecuteArgs) (*executor.ExecutionResult, error) {
	api := &ExecuteAPI{Args: args}
	var pending []pendingExecute
	for _, e := range r.entries {
		if e.execute == nil {
			continue
		}
		var after AfterExecuteHook
		err := guard(ctx, e.name, PhaseExecute, func() (err error) {
			after, err = e.execute(ctx, api)
			return err
		})
		if err != nil {
			return nil, err
		}
		if after != nil {
			pending = append(pending, pendingExecute{plugin: e.name, hook: after})
		}
		if api.stopped != nil {
			break
		}
	}

	result := api.stopped
	if result == nil {
		result = run(ctx, es, query, args)
	}

	done := &AfterExecuteAPI{Args: args, Result: result}
	for _, p := range pending {
		err := guard(ctx, p.plugin, PhaseAfterExecute, func() error { return p.hook(ctx, done) })
		if err != nil {
			return nil, err
		}
	}
	return done.Result, nil
}

func run(ctx context.Context, es ExecutableSchema, query string, args *ExecuteArgs) *executor.ExecutionResult {
	opType := ""
	if op := operationOf(args.Document, args.OperationName); op != nil {
		opType = string(op.Operation)
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: query, OperationName: args.OperationName, OperationType: opType})
	result := executor.NewExecutor(es, es.Schema()).ExecuteRequest(ctx, executor.Params{
		Document:      args.Document,
		OperationName: args.OperationName,
		Variables:     args.Variables,
		RootValue:     args.RootValue,
		ContextValue:  args.ContextValue,
	})
	errs := make([]error, len(result.Errors))
	for i := range result.Errors {
		errs[i] = result.Errors[i]
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         query,
		OperationName: args.OperationName,
		OperationType: opType,
		Errors:        errs,
		Duration:      time.Since(start),
	})
	return result
}

func operationOf(doc *language.QueryDocument, name string) *language.OperationDefinition {
	if doc == nil {
		return nil
	}
	if op := doc.Operations.ForName(name); op != nil {
		return op
	}
	if len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	return nil
}

// guard runs fn as the phase hook of plugin, turning errors and panics into
// a *HookError.
func guard(ctx context.Context, plugin string, phase Phase, fn func() error) (err error) {
	start := time.Now()
	eventbus.Publish(ctx, events.HookStart{Plugin: plugin, Phase: string(phase)})
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
		if err != nil {
			err = &HookError{Plugin: plugin, Phase: phase, Err: err}
		}
		eventbus.Publish(ctx, events.HookFinish{
			Plugin:   plugin,
			Phase:    string(phase),
			Err:      err,
			Duration: time.Since(start),
		})
	}()
	return fn()
}
