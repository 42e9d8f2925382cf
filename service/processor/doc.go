// Package processor hosts the long-lived workers of a batcher. Every worker
// consumes commands from the shared inbox, executes job commands through the
// executor and publishes one result per job to the shared outbox until it
// receives a kill command.
package processor
