// Package compute provides the accelerator plumbing the solver runs on.
//
// A [Backend] exposes devices. A [Device] allocates buffers, builds a kernel
// [Library] into a [Program] and hands out in-order [Queue]s:
//
//	backend, _ := compute.Lookup("cpu", compute.Options{})
//	sess, _ := compute.OpenSession(backend, compute.SessionConfig{})
//	defer sess.Close()
//
//	prog, _ := sess.Device().Build(lib)
//	k, _ := prog.Kernel("scaler")
//	_ = k.SetArg("srcBuffer", buf)
//	_ = sess.Queue().Dispatch(k, []int{blocks, rows, cols}, nil)
//
// # Ordering
//
// Commands on one queue execute in submission order but asynchronously to
// the caller. [Queue.Map] and [Queue.Finish] are the only blocking calls.
// Kernel arguments are captured when a dispatch is enqueued.
//
// The built-in "cpu" backend runs kernels on a bounded goroutine pool and is
// always available.
package compute
