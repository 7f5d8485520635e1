package diag

import "testing"

func TestSpanJoin(t *testing.T) {
	tests := []struct {
		a, b Span
		want Span
	}{
		{NewSpan(0, 3), NewSpan(5, 8), NewSpan(0, 8)},
		{NewSpan(5, 8), NewSpan(0, 3), NewSpan(0, 8)},
		{NewSpan(2, 4), NewSpan(3, 6), NewSpan(2, 6)},
		{NewSpan(2, 4), Span{}, NewSpan(2, 4)},
		{Span{}, NewSpan(2, 4), NewSpan(2, 4)},
	}

	for _, tt := range tests {
		got := tt.a.Join(tt.b)
		if got != tt.want {
			t.Errorf("%v.Join(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCodeString(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{CodeUnknownChar, "P0001"},
		{CodeUnterminatedString, "P0002"},
	}

	for _, tt := range tests {
		got := tt.code.String()
		if got != tt.want {
			t.Errorf("Code(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestSortOrdersByPosition(t *testing.T) {
	ds := []Diagnostic{
		Warning(CodeDeprecated, NewSpan(10, 12), "later"),
		Error(CodeUnexpectedToken, NewSpan(0, 2), "earlier"),
		Warning(CodeDeprecated, NewSpan(0, 2), "warning at same offset"),
	}

	Sort(ds)

	if ds[0].Message != "earlier" {
		t.Errorf("ds[0].Message = %q, want the error at offset 0 first", ds[0].Message)
	}
	if ds[1].Message != "warning at same offset" {
		t.Errorf("ds[1].Message = %q, want the warning at offset 0 second", ds[1].Message)
	}
	if ds[2].Message != "later" {
		t.Errorf("ds[2].Message = %q, want the diagnostic at offset 10 last", ds[2].Message)
	}
}

func TestHasErrors(t *testing.T) {
	warnOnly := []Diagnostic{Warning(CodeDeprecated, NewSpan(0, 1), "w")}
	if HasErrors(warnOnly) {
		t.Error("HasErrors should be false for warnings only")
	}

	withError := append(warnOnly, Error(CodeUnexpectedToken, NewSpan(0, 1), "e"))
	if !HasErrors(withError) {
		t.Error("HasErrors should be true when an error is present")
	}

	withInternal := []Diagnostic{Internal(NewSpan(0, 1), "broken")}
	if !HasErrors(withInternal) {
		t.Error("HasErrors should be true for internal diagnostics")
	}
}

func TestWithHelp(t *testing.T) {
	d := Error(CodeUnexpectedToken, NewSpan(0, 1), "oops")
	helped := d.WithHelp("try this")
	if helped.Help != "try this" {
		t.Errorf("Help = %q, want %q", helped.Help, "try this")
	}
	if d.Help != "" {
		t.Error("WithHelp must not mutate the receiver")
	}
}
