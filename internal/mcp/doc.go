// Package mcp implements the Model Context Protocol (MCP) server for the
// solution memory.
//
// The server exposes four tools to AI coding assistants over stdio:
//   - save_solution: persist a solved problem with tags and error messages
//   - search_solutions: hybrid keyword + semantic retrieval over past solutions
//   - get_solution: fetch the full record behind a search result
//   - list_tags: browse the tag catalog with live usage counts
//
// MCP is JSON-RPC 2.0 over stdio; stdout is reserved for the protocol, so
// all logging goes to stderr.
//
// # Error Handling
//
// Invalid arguments map to JSON-RPC invalid-params errors (-32602).
// Storage failures map to internal errors (-32603). A lookup miss is not
// a protocol error: get_solution returns an error payload in the result
// body, matching how clients expect to browse history.
package mcp
