package analyzer

import (
	"runtime"
	"sync"
	"testing"

	"github.com/anime-shed/sem-inspector-go/internal/imaging"
)

func TestNewWorkerPool(t *testing.T) {
	pool := NewWorkerPool(4)
	if pool == nil {
		t.Fatal("Expected non-nil worker pool")
	}
	if pool.Workers() != 4 {
		t.Errorf("Expected 4 workers, got %d", pool.Workers())
	}
}

func TestNewWorkerPool_ZeroWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	if pool == nil {
		t.Error("Expected non-nil WorkerPool")
	}
	if pool.Workers() != runtime.NumCPU() {
		t.Errorf("Expected %d workers, got %d", runtime.NumCPU(), pool.Workers())
	}
}

func TestWorkerPool_Submit(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	defer pool.Close()

	// Test submitting jobs and waiting for completion
	var counter int
	var mu sync.Mutex

	for i := 0; i < 5; i++ {
		pool.Submit(func() {
			mu.Lock()
			counter++
			mu.Unlock()
		})
	}

	pool.Wait()

	if counter != 5 {
		t.Errorf("Expected counter to be 5, got %d", counter)
	}
}

func TestWorkerPool_ScoresMatchSequential(t *testing.T) {
	pool := NewWorkerPool(3)
	pool.Start()
	defer pool.Close()

	calc := NewMetricsCalculator()
	base := createCheckerboard(t, 48, 48, 6)
	images := make([]*imaging.Image, 6)
	for i := range images {
		images[i] = blurImage(t, base, 2*i+1, 0.5*float64(i))
	}

	// Jobs share the calculator's scratch pool; each writes its own slot
	got := make([]float64, len(images))
	for i, img := range images {
		pool.Submit(func() {
			got[i] = calc.LaplacianVariance(img)
		})
	}
	pool.Wait()

	for i, img := range images {
		if want := calc.LaplacianVariance(img); got[i] != want {
			t.Errorf("image %d: pooled score %v, sequential %v", i, got[i], want)
		}
	}
}

func TestWorkerPool_StartOnce(t *testing.T) {
	pool := NewWorkerPool(2)

	// Start should be idempotent
	pool.Start()
	pool.Start() // Should not panic or create duplicate workers

	defer pool.Close()

	// Test that pool still works after multiple Start calls
	var executed bool
	pool.Submit(func() {
		executed = true
	})

	pool.Wait()

	if !executed {
		t.Error("Expected job to be executed")
	}
}

func TestWorkerPool_CloseTwice(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()

	// Submit a job
	var executed bool
	pool.Submit(func() {
		executed = true
	})

	pool.Wait()
	pool.Close()
	pool.Close() // second close must not panic

	if !executed {
		t.Error("Expected job to be executed before close")
	}
}
