package sparse

import (
	"context"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Lambdas returns count geometrically spaced thresholds from lo to hi
// inclusive.
func Lambdas(lo, hi float64, count int) []float64 {
	if count < 2 {
		return []float64{lo}
	}
	out := make([]float64, count)
	step := (math.Log10(hi) - math.Log10(lo)) / float64(count-1)
	for i := range out {
		out[i] = math.Pow(10, math.Log10(lo)+float64(i)*step)
	}
	return out
}

// Sweep runs STLSQ once per threshold. Fits are independent and execute on
// a bounded worker pool with read-only access to the shared matrices;
// results keep the lambda ordering regardless of completion order.
func Sweep(ctx context.Context, design, targets *mat.Dense, lambdas []float64, workers int) ([]*Fit, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(lambdas) {
		workers = len(lambdas)
	}

	fits := make([]*Fit, len(lambdas))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fits[i] = STLSQ(design, targets, lambdas[i], DefaultMaxIter)
			}
		}()
	}

	for i := range lambdas {
		if err := ctx.Err(); err != nil {
			close(jobs)
			wg.Wait()
			return nil, err
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return fits, nil
}
