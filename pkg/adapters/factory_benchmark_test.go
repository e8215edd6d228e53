package adapters_test

import (
	"context"
	"testing"

	"github.com/ruslano69/tablekit/pkg/adapters"
	_ "github.com/ruslano69/tablekit/pkg/adapters/sqlite"
)

// BenchmarkFactory_CreateAdapter измеряет производительность создания адаптера через фабрику
func BenchmarkFactory_CreateAdapter(b *testing.B) {
	ctx := context.Background()
	cfg := adapters.Config{
		Type: "sqlite",
		DSN:  ":memory:",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		adapter, err := adapters.New(ctx, cfg)
		if err != nil {
			b.Fatalf("Failed to create adapter: %v", err)
		}
		adapter.Close(ctx)
	}
}

// BenchmarkFactory_CreateAdapter_Parallel измеряет производительность параллельного создания адаптеров
func BenchmarkFactory_CreateAdapter_Parallel(b *testing.B) {
	ctx := context.Background()
	cfg := adapters.Config{
		Type: "sqlite",
		DSN:  ":memory:",
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			adapter, err := adapters.New(ctx, cfg)
			if err != nil {
				b.Fatalf("Failed to create adapter: %v", err)
			}
			adapter.Close(ctx)
		}
	})
}
