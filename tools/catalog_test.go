package tools

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCatalogHolderConcurrentReads(t *testing.T) {
	holder := &catalogHolder{}
	holder.current.Store(mockCatalog(newMockIndex(1)))

	const numReaders = 50
	errChan := make(chan error, numReaders)
	var wg sync.WaitGroup

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			c, release := holder.acquire()
			defer release()

			if c == nil {
				errChan <- fmt.Errorf("goroutine %d: got nil catalog", id)
				return
			}
			count, err := c.index.DocCount()
			if err != nil {
				errChan <- fmt.Errorf("goroutine %d: DocCount failed: %v", id, err)
				return
			}
			if count != 100 {
				errChan <- fmt.Errorf("goroutine %d: expected 100, got %d", id, count)
			}
		}(i)
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		t.Error(err)
	}

	holder.wg.Wait()
}

func TestCatalogHolderSwapWaitsForReaders(t *testing.T) {
	mock1 := newMockIndex(1)
	mock2 := newMockIndex(2)

	holder := &catalogHolder{}
	holder.swap(mockCatalog(mock1))

	// Hold a reader on the first catalog across the swap
	c, release := holder.acquire()
	if c.index != mock1 {
		t.Fatal("expected first catalog")
	}

	holder.swap(mockCatalog(mock2))

	if got := holder.current.Load(); got.index != mock2 {
		t.Error("expected second catalog after swap")
	}

	time.Sleep(50 * time.Millisecond)
	if mock1.IsClosed() {
		t.Fatal("old index closed while a search was still using it")
	}

	release()
	holder.closing.Wait()

	if !mock1.IsClosed() {
		t.Error("old index should be closed after readers drain")
	}
	if mock2.IsClosed() {
		t.Error("current index should stay open")
	}
}

func TestCatalogHolderConcurrentSwapAndRead(t *testing.T) {
	holder := &catalogHolder{}
	holder.swap(mockCatalog(newMockIndex(0)))

	const numReaders = 20
	const iterations = 5
	errChan := make(chan error, numReaders*iterations)
	var wg sync.WaitGroup

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				c, release := holder.acquire()
				if c == nil {
					release()
					errChan <- fmt.Errorf("reader %d iteration %d: got nil", id, j)
					return
				}
				_, err := c.index.DocCount()
				release()
				if err != nil {
					errChan <- fmt.Errorf("reader %d iteration %d: %v", id, j, err)
					return
				}
			}
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 3; i++ {
			holder.swap(mockCatalog(newMockIndex(i)))
		}
	}()

	wg.Wait()
	close(errChan)
	for err := range errChan {
		t.Error(err)
	}

	holder.closing.Wait()
}

func TestCatalogHolderRefreshMutexSerialization(t *testing.T) {
	holder := &catalogHolder{}

	const numGoroutines = 10
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			holder.refreshMu.Lock()
			defer holder.refreshMu.Unlock()

			old := counter
			time.Sleep(time.Millisecond)
			counter = old + 1
		}()
	}

	wg.Wait()
	if counter != numGoroutines {
		t.Errorf("Expected counter=%d, got %d (mutex not properly serializing)", numGoroutines, counter)
	}
}

func TestIndexVersion(t *testing.T) {
	oldDataDir := dataDir
	dataDir = t.TempDir()
	defer func() { dataDir = oldDataDir }()

	if v := getIndexVersion(); v != 0 {
		t.Errorf("missing version file should read as 0, got %d", v)
	}
	if err := writeIndexVersion(); err != nil {
		t.Fatalf("writeIndexVersion() error = %v", err)
	}
	if v := getIndexVersion(); v == 0 {
		t.Error("expected non-zero version after write")
	}
}
