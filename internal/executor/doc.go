// Package executor implements a breadth-first, batch-friendly GraphQL
// executor. It is the engine behind the plugin pipeline: once the request
// context has been sealed it is passed in Params.ContextValue and reaches
// every Runtime call through ContextValueFrom.
//
// # Execution model
//
// Work advances depth by depth:
//
//	A. Sync expansion: fields marked synchronous (schema.Field.Async == false)
//	   are resolved with Runtime.ResolveSync and completed immediately.
//	   Descending through them does not increase depth.
//	B. Batch: async fields found at the current depth are handed to
//	   Runtime.BatchResolveAsync in a single call. Results come back in task
//	   order and are completed; their async children wait for the next depth.
//	C. Non-Null propagation: a null in a Non-Null position nullifies the
//	   nearest nullable ancestor and drops queued tasks under that path.
//
// For a graph with asynchronous depth d, BatchResolveAsync is called exactly
// d times.
//
// # Value completion
//
// Lists complete element-wise with index paths, leaves go through
// Runtime.SerializeLeafValue, abstract types through Runtime.ResolveType.
// Fragment type conditions match the object type itself, interfaces it
// implements and unions it belongs to.
//
// # Errors
//
// Errors are accumulated as located GraphQL errors (message and path) and
// execution continues where the type system allows partial results.
package executor
