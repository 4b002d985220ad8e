// Package llm provides the fallback client boundary to external
// text-generation services used to clean payee names when no approved
// rule matches.
package llm
