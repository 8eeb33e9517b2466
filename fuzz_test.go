package agentwire

import "testing"

func FuzzResolveOptions(f *testing.F) {
	f.Add(0, false)
	f.Add(4096, true)
	f.Add(-1, true)

	f.Fuzz(func(t *testing.T, size int, strict bool) {
		opts := []Option{WithBufferSize(size)}
		if strict {
			opts = append(opts, WithStrictCorrelation())
		}
		got := ResolveOptions(opts...)
		want := size
		if size <= 0 {
			want = DefaultBufferSize
		}
		if got.BufferSize != want {
			t.Errorf("BufferSize = %d, want %d", got.BufferSize, want)
		}
		if got.StrictCorrelation != strict {
			t.Errorf("StrictCorrelation = %t, want %t", got.StrictCorrelation, strict)
		}
	})
}
