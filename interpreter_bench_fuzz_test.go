package basic

import (
	"context"
	"strings"
	"testing"

	"github.com/oarkflow/convert"
	"github.com/oarkflow/expr"
)

// Expressions whose syntax and meaning are shared with expr, which serves as
// a reference evaluator for arithmetic, comparisons and logic.
var sharedExpressions = []string{
	"1 + 2 * 3",
	"(4 - 9) * 2",
	"-3 + 5 * -2",
	"(1 + 2) * (3 + 4) - 5",
	"10 / 4",
	"9 / 3",
	"2 ^ 10",
	"2 ^ 3 ^ 2",
	"17 % 5",
	"7 > 3",
	"2 == 3",
	"4 <= 4",
	"1 < 2 and 3 > 4",
	"1 > 2 or 2 > 1",
}

func TestArithmeticAgreesWithExpr(t *testing.T) {
	for _, input := range sharedExpressions {
		got, ok := evalSource(t, NewGlobalEnvironment(), input).(Number)
		if !ok {
			t.Fatalf("%q: expected a number", input)
		}
		program, err := expr.Compile(input)
		if err != nil {
			t.Fatalf("%q: expr compile failed: %v", input, err)
		}
		out, err := expr.Run(program, nil)
		if err != nil {
			t.Fatalf("%q: expr run failed: %v", input, err)
		}
		var want float64
		if b, isBool := out.(bool); isBool {
			if b {
				want = 1
			}
		} else if want, ok = convert.ToFloat64(out); !ok {
			t.Fatalf("%q: unexpected expr result %T %v", input, out, out)
		}
		if got.Float64() != want {
			t.Fatalf("%q: got %s, expr gives %v", input, got, want)
		}
	}
}

// --- Arithmetic: 1 + 2 * 3 ---

func BenchmarkBasicMathParseAndEval(b *testing.B) {
	input := "1 + 2 * 3"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		program, err := Parse(context.Background(), input)
		if err != nil {
			b.Fatalf("parse failed: %v", err)
		}
		if _, err := Evaluate(program, NewGlobalEnvironment()); err != nil {
			b.Fatalf("evaluation failed: %v", err)
		}
	}
}

func BenchmarkExprMathParseAndEval(b *testing.B) {
	input := "1 + 2 * 3"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		program, err := expr.Compile(input)
		if err != nil {
			b.Fatal(err)
		}
		expr.Run(program, nil)
	}
}

func BenchmarkBasicMathEvalOnly(b *testing.B) {
	program, err := Parse(context.Background(), "1 + 2 * 3")
	if err != nil {
		b.Fatalf("parse failed: %v", err)
	}
	env := NewGlobalEnvironment()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Evaluate(program, env); err != nil {
			b.Fatalf("evaluation failed: %v", err)
		}
	}
}

func BenchmarkExprMathEvalOnly(b *testing.B) {
	program, err := expr.Compile("1 + 2 * 3")
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		expr.Run(program, nil)
	}
}

// --- Loop: sum 1..100 ---

func BenchmarkBasicWhileLoop(b *testing.B) {
	program, err := Parse(context.Background(), "i = 0 s = 0 while (i < 100) then i = i + 1 s = s + i endwhile")
	if err != nil {
		b.Fatalf("parse failed: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Evaluate(program, NewGlobalEnvironment()); err != nil {
			b.Fatalf("evaluation failed: %v", err)
		}
	}
}

func BenchmarkTokenize(b *testing.B) {
	input := strings.Repeat("var total = total + 3.5 * (x - 2) ^ 2\n", 50)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Tokenize(input); err != nil {
			b.Fatalf("tokenize failed: %v", err)
		}
	}
}

func FuzzTokenizeNoPanic(f *testing.F) {
	seeds := []string{
		"3 + 2 * 5",
		"var x = 5 x != 4",
		`"unterminated`,
		"a ! b",
		"if (1) then 2 endif",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, source string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("lexer panicked for %q: %v", source, r)
			}
		}()
		tokens, err := Tokenize(source)
		if err != nil {
			return
		}
		if len(tokens) == 0 || tokens[len(tokens)-1].Type != EOF {
			t.Fatalf("token stream for %q does not end with EOF", source)
		}
	})
}

func FuzzParseAndEvaluateNoPanic(f *testing.F) {
	seeds := []string{
		"2^2^3",
		"switch 2 case 1 : 10 case 2 : 20 default : 0 endswitch",
		"if (0) then 1 elif (1) then 2 else 3 endif",
		"i = 0 while (i < 3) then i = i + 1 endwhile",
		"not not 0 and 1 or 5 % 0",
		"((((((1))))))",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	limit := 1000
	ctx := WithRuntimeConfigOverride(context.Background(), RuntimeConfigOverride{MaxLoopIterations: &limit})
	f.Fuzz(func(t *testing.T, source string) {
		if strings.TrimSpace(source) == "" {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("interpreter panicked for %q: %v", source, r)
			}
		}()
		_, _ = Run(ctx, source)
	})
}
