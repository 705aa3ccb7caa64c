package cache

import (
	"context"
	"strconv"
	"testing"
	"time"
)

func BenchmarkInMemoryCache_Get_Hit(b *testing.B) {
	c := NewInMemoryCache(time.Hour)
	ctx := context.Background()
	_ = c.Set(ctx, "seattle", report("seattle", time.Now()), 5*time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Get(ctx, "seattle")
	}
}

func BenchmarkInMemoryCache_Set(b *testing.B) {
	c := NewInMemoryCache(time.Hour)
	ctx := context.Background()
	r := report("seattle", time.Now())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, "seattle", r, 5*time.Minute)
	}
}

func BenchmarkInMemoryCache_Parallel(b *testing.B) {
	c := NewInMemoryCache(time.Hour)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		_ = c.Set(ctx, "city"+strconv.Itoa(i), report("city", time.Now()), 5*time.Minute)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := "city" + strconv.Itoa(i%100)
			if i%10 == 0 {
				_ = c.Set(ctx, key, report(key, time.Now()), 5*time.Minute)
			} else {
				_, _, _ = c.Get(ctx, key)
			}
			i++
		}
	})
}
