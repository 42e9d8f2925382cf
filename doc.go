// Package batcher provides a bounded worker pool that executes a batch of
// heterogeneous jobs concurrently and returns the results in submission order.
//
// A Batcher owns a fixed set of long-lived workers connected to it by a pair
// of queues: the inbox carries commands to the workers and the outbox carries
// results back. Every dispatched job is tagged with its position in the
// pending buffer so the collected results can be re-aligned regardless of
// which worker finished first.
//
//	b, _ := batcher.New(4)
//	defer b.Close(ctx)
//	for i := 0; i < 16; i++ {
//		b.EnqueueJob(job.Named("math/sum", 1, 2, 3, 4, 5, i))
//	}
//	results, _ := b.Process(ctx)
//	fmt.Println(results.Values()) // [15 16 ... 30]
//
// Jobs either reference a registered function by "service/method" or carry an
// inline function. Inline functions only survive the in-process memory
// transport; the file system transport serialises every command as JSON.
package batcher
