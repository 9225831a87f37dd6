package cache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/rebalancer/pkg/cache"
)

type momentumRecord struct {
	Ticker  string  `json:"ticker"`
	Average float64 `json:"average"`
}

// Example_getOrSet demonstrates the read-through path: the loader runs on
// the first miss and later reads come from the store
func Example_getOrSet() {
	c := cache.New(cache.NewMemoryStore(), "momentum", nil)
	ctx := context.Background()

	loads := 0
	load := func(ctx context.Context) (interface{}, error) {
		loads++
		return momentumRecord{Ticker: "VTI", Average: 12.5}, nil
	}

	for i := 0; i < 3; i++ {
		var rec momentumRecord
		if err := c.GetOrSet(ctx, "momentum:VTI:3-6-9-12", &rec, time.Hour, load); err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Printf("%s %.2f\n", rec.Ticker, rec.Average)
	}
	fmt.Println("loads:", loads)

	// Output:
	// VTI 12.50
	// VTI 12.50
	// VTI 12.50
	// loads: 1
}

// Example_invalidate demonstrates dropping a stale record
func Example_invalidate() {
	c := cache.New(cache.NewMemoryStore(), "momentum", nil)
	ctx := context.Background()

	_ = c.Set(ctx, "momentum:TLT:3-6-9-12", momentumRecord{Ticker: "TLT", Average: -2.1}, time.Hour)

	var rec momentumRecord
	found, _ := c.Get(ctx, "momentum:TLT:3-6-9-12", &rec)
	fmt.Println("before delete:", found, rec.Average)

	_ = c.Delete(ctx, "momentum:TLT:3-6-9-12")
	found, _ = c.Get(ctx, "momentum:TLT:3-6-9-12", &rec)
	fmt.Println("after delete:", found)

	// Output:
	// before delete: true -2.1
	// after delete: false
}
