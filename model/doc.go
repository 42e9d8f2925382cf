// Package model contains the data exchanged between the batcher and its
// workers.
//
// The `job` sub-package describes a unit of work (a function identifier or an
// inline function plus its arguments), the `command` sub-package describes the
// messages travelling through the inbox and outbox queues, and `types` holds
// the function, service and argument contracts shared by both.
package model
