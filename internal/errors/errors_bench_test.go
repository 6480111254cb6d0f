package errors

import (
	"fmt"
	"testing"
)

func benchDiagnostics(n int) Diagnostics {
	diags := make(Diagnostics, n)
	for i := range n {
		diags[i] = BuildError{
			File:     fmt.Sprintf("src/file%d.ts", i%50),
			Line:     i,
			Column:   i % 80,
			Message:  fmt.Sprintf("Error message %d", i),
			Severity: ErrorSeverityError,
		}
	}
	return diags
}

func BenchmarkErrorCollector_Add(b *testing.B) {
	collector := NewErrorCollector()
	diags := benchDiagnostics(1000)

	b.ResetTimer()
	for i := range b.N {
		collector.Add(diags[i%len(diags)])
	}
}

func BenchmarkErrorCollector_Replace(b *testing.B) {
	collector := NewErrorCollector()
	diags := benchDiagnostics(200)

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		collector.Replace(diags)
	}
}

func BenchmarkErrorCollector_GetErrors(b *testing.B) {
	collector := NewErrorCollector()
	collector.Replace(benchDiagnostics(1000))

	b.ResetTimer()
	for range b.N {
		collector.GetErrors()
	}
}

func BenchmarkDiagnosticsError(b *testing.B) {
	diags := benchDiagnostics(100)

	b.ResetTimer()
	for range b.N {
		_ = diags.Error()
	}
}
