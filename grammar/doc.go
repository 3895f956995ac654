// Package grammar provides the permission-grammar collaborator used by the
// cache engine to classify permission tokens, build context filters, and
// test tokens against patterns.
//
// The engine treats the grammar as an external, pluggable dependency: it
// never parses or validates patterns itself (see scripts.Engine). A Provider
// implementation must be pure and total — the same token always yields the
// same type, and TypeOf/ContextFilterFor never block or perform I/O.
package grammar
