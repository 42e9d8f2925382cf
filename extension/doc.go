// Package extension provides the run-time registry that resolves a job's
// "service/method" identifier into an executable function.
//
// The registry is normally populated through the options of the root batcher
// package, therefore most applications do not need to import this package
// directly.
package extension
