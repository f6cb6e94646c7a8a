package impulse

import (
	"math"
	"sync"
)

// task splits data into one contiguous chunk per worker. fn receives the index of each
// element, so that workers write their results into disjoint slots.
func task[T any](workersCount int, data []T, fn func(i int, data T)) {
	workersCount = max(DEFAULT_WORKERS, workersCount)
	dataSize := len(data)
	if dataSize == 0 {
		return
	}
	if workersCount == 1 {
		for i, d := range data {
			fn(i, d)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := (dataSize + workersCount - 1) / workersCount

	for workerID := 0; workerID < workersCount; workerID++ {
		start, end := workerID*chunkSize, min((workerID+1)*chunkSize, dataSize)
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i, data[i])
			}
		}(start, end)
	}
	wg.Wait()
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
