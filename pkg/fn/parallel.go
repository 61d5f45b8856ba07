package fn

import "sync"

// ParMapResult runs f over items on at most workers goroutines and returns
// the Results in input order. workers <= 0 runs every item at once.
func ParMapResult[T, U any](items []T, workers int, f func(T) Result[U]) []Result[U] {
	out := make([]Result[U], len(items))
	if len(items) == 0 {
		return out
	}
	if workers <= 0 || workers > len(items) {
		workers = len(items)
	}

	next := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range next {
				out[i] = f(items[i])
			}
		}()
	}
	for i := range items {
		next <- i
	}
	close(next)
	wg.Wait()
	return out
}

// FanOut runs each function on its own goroutine; Results keep argument order.
func FanOut[T any](fns ...func() Result[T]) []Result[T] {
	return ParMapResult(fns, 0, func(f func() Result[T]) Result[T] { return f() })
}

// FanOutResult is FanOut collapsed with Collect.
func FanOutResult[T any](fns ...func() Result[T]) Result[[]T] {
	return Collect(FanOut(fns...))
}
