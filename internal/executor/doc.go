// Package executor runs model loading and generation on a single worker
// goroutine. Callers talk to it only through Send and the Events channel:
//
//   - executor.go: Executor, Send, Run and the command handlers.
//   - queue.go: unbounded FIFO used for the mailbox and the outbox.
//   - config.go: Config and defaults.
//   - metrics.go: Prometheus instruments.
//
// interrupt is applied on receipt; every other command is processed in
// arrival order, one at a time. A load received while a generation is
// queued or running is answered with a rejected event and dropped.
package executor
