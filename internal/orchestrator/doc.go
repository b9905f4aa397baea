// Package orchestrator is the UI-facing chat state machine. It turns user
// actions into executor commands and folds executor events back into a
// session snapshot. It never blocks: commands go through a non-blocking
// Sender and state changes are reported through OnChange.
package orchestrator
