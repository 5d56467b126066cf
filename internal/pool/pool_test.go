package pool

import (
	"sync"
	"testing"
)

func TestGetLength(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		minCap int
	}{
		{"tiny", 1, Size64K},
		{"64K", Size64K, Size64K},
		{"64K+1", Size64K + 1, Size256K},
		{"1M", Size1M, Size1M},
		{"frame 640x480", 640 * 480 * 4, Size4M},
		{"64M", Size64M, Size64M},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Get(tt.size)
			if len(b) != tt.size {
				t.Errorf("Get(%d): len = %d", tt.size, len(b))
			}
			if cap(b) < tt.minCap {
				t.Errorf("Get(%d): cap = %d, want >= %d", tt.size, cap(b), tt.minCap)
			}
			Put(b)
		})
	}
}

func TestGetAboveLargestClass(t *testing.T) {
	size := Size64M + 1
	b := Get(size)
	if len(b) != size {
		t.Fatalf("len = %d, want %d", len(b), size)
	}
	Put(b) // dropped, must not panic
}

func TestGetFrame(t *testing.T) {
	b := GetFrame(3, 5)
	if len(b) != 60 {
		t.Errorf("len = %d, want 60", len(b))
	}
	Put(b)
}

func TestBucketIndex(t *testing.T) {
	tests := []struct {
		size, want int
	}{
		{0, 0},
		{Size64K, 0},
		{Size64K + 1, 1},
		{Size4M, 3},
		{Size16M + 1, 5},
		{Size64M + 1, -1},
	}
	for _, tt := range tests {
		if got := bucketIndex(tt.size); got != tt.want {
			t.Errorf("bucketIndex(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestPutOddCapacity(t *testing.T) {
	// A foreign slice between classes is filed under the class below it,
	// so a later Get of that class can always reslice it.
	Put(make([]byte, 10, Size256K+100))
	for i := 0; i < 4; i++ {
		b := Get(Size256K)
		if len(b) != Size256K {
			t.Fatalf("len = %d", len(b))
		}
	}
	Put(make([]byte, 100)) // below the smallest class
}

func TestConcurrency(t *testing.T) {
	const goroutines = 16
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				for _, size := range []int{1000, 70000, 300000, 2000000} {
					b := Get(size)
					if len(b) != size {
						t.Errorf("concurrent Get(%d): len = %d", size, len(b))
						return
					}
					for j := 0; j < len(b); j += 4096 {
						b[j] = byte(j)
					}
					Put(b)
				}
			}
		}()
	}
	wg.Wait()
}
