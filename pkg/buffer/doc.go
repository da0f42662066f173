// Package buffer provides a thread-safe unbounded FIFO queue for streaming
// data between producers and consumers.
//
// Queue never blocks producers: the backing ring grows on demand. Consumers
// block on Next until an element arrives or the queue is closed. Graceful
// shutdown goes through CloseWrite (readers drain, then ErrDone); immediate
// shutdown goes through CloseWithError.
//
// Example usage:
//
//	q := buffer.NewQueue[[]int16](64)
//
//	// Producer
//	q.Add(frame)
//	q.CloseWrite()
//
//	// Consumer
//	for {
//		frame, err := q.Next()
//		if err != nil {
//			break // buffer.ErrDone after drain
//		}
//		process(frame)
//	}
package buffer
