// Package conflict resolves competing version requirements on a plugin.
//
// A version wins only if it satisfies every requester's range at once.
// Strategies pick among the winners: highest, lowest, or prompt, which
// always defers to a human. An empty winner set is an UnresolvableError
// carrying every requester and range, never a silent guess.
package conflict
