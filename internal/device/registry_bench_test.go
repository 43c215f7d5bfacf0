package device

import (
	"fmt"
	"testing"
)

// setupBenchRegistry creates a registry with n discovered devices, every
// third one ready.
func setupBenchRegistry(b *testing.B, n int) *Registry {
	b.Helper()
	reg := NewRegistry()

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("AA:BB:CC:00:%02X:%02X", i/256, i%256)
		reg.Apply(Discovered(id, fmt.Sprintf("NODE %d", i), -60))
		if i%3 == 0 {
			reg.Apply(ConnectRequested(id))
			reg.Apply(Connected(id))
			reg.Apply(ChannelReady(id, &fakeChannel{}))
		}
	}
	return reg
}

func BenchmarkRegistryFindByName_Exact(b *testing.B) {
	reg := setupBenchRegistry(b, 50)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.FindByName("node 49")
	}
}

func BenchmarkRegistryFindByName_Parallel(b *testing.B) {
	reg := setupBenchRegistry(b, 50)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			reg.FindByName("NODE 25")
		}
	})
}

func BenchmarkRegistryApply_Disconnect(b *testing.B) {
	reg := setupBenchRegistry(b, 1)
	id := "AA:BB:CC:00:00:00"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.Apply(Disconnected(id, nil))
		reg.Apply(ConnectRequested(id))
	}
}

func BenchmarkNormalize(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Normalize("ｓｅｎｄａｉ　ＮＯＤＥ")
	}
}
