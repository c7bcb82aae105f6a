package fusion

import (
	"fmt"
	"testing"
)

func BenchmarkFuse(b *testing.B) {
	lex := make([]Ranked, 100)
	vec := make([]Ranked, 100)
	for i := 0; i < 100; i++ {
		lex[i] = Ranked{ID: fmt.Sprintf("doc-%03d", i), Score: float64(100-i) / 100}
		vec[i] = Ranked{ID: fmt.Sprintf("doc-%03d", (i*7+13)%150), Score: float64(100-i) / 100}
	}
	p := DefaultParams()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Fuse(lex, vec, p, 10)
	}
}
