package utils

import "sync"

// ParallelMap 用固定数量的 worker 并发处理 items，结果顺序与输入一致。
// 单元素输入直接同步处理，不起协程。
func ParallelMap[T any, R any](items []T, workers int, fn func(T) R) []R {
	if len(items) == 0 {
		return nil
	}
	results := make([]R, len(items))
	if len(items) == 1 || workers <= 1 {
		for i, item := range items {
			results[i] = fn(item)
		}
		return results
	}
	if workers > len(items) {
		workers = len(items)
	}

	indexes := make(chan int, len(items))
	for i := range items {
		indexes <- i
	}
	close(indexes)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = fn(items[i])
			}
		}()
	}
	wg.Wait()
	return results
}
