package logger

import "testing"

func TestRedact(t *testing.T) {
	tests := []struct {
		name string
		in   []interface{}
		want []interface{}
	}{
		{
			name: "plain fields untouched",
			in:   []interface{}{"plan_id", 4, "student_id", 7},
			want: []interface{}{"plan_id", 4, "student_id", 7},
		},
		{
			name: "token masked",
			in:   []interface{}{"access_token", "abc", "path", "/api"},
			want: []interface{}{"access_token", "[REDACTED]", "path", "/api"},
		},
		{
			name: "authorization header masked",
			in:   []interface{}{"Authorization", "Bearer x"},
			want: []interface{}{"Authorization", "[REDACTED]"},
		},
		{
			name: "odd length keeps trailing key",
			in:   []interface{}{"secret", "s", "dangling"},
			want: []interface{}{"secret", "[REDACTED]", "dangling"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redact(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("item %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRedactDoesNotMutateInput(t *testing.T) {
	in := []interface{}{"token", "abc"}
	_ = redact(in)
	if in[1] != "abc" {
		t.Fatalf("input slice was modified: %v", in)
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNop().With("component", "test")
	l.Info("hello", "k", "v")
	l.Sync()
}
