package position

import (
	"errors"
	"reflect"
	"testing"
)

func TestSequence(t *testing.T) {
	if got := Sequence(0); got != nil {
		t.Errorf("Sequence(0) = %v, want nil", got)
	}
	if got, want := Sequence(4), []int{1, 2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("Sequence(4) = %v, want %v", got, want)
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		max, want int
	}{
		{0, 1},
		{-1, 1},
		{3, 4},
		{9, 10},
	}
	for _, tt := range tests {
		if got := Next(tt.max); got != tt.want {
			t.Errorf("Next(%d) = %d, want %d", tt.max, got, tt.want)
		}
	}
}

func TestReorder(t *testing.T) {
	const a, b, c = int64(10), int64(20), int64(30)
	current := []int64{a, b, c}

	tests := []struct {
		name    string
		ordered []int64
		want    []Assignment
		wantErr bool
	}{
		{
			name:    "permutation",
			ordered: []int64{c, a, b},
			want:    []Assignment{{c, 1}, {a, 2}, {b, 3}},
		},
		{
			name:    "identity",
			ordered: []int64{a, b, c},
			want:    []Assignment{{a, 1}, {b, 2}, {c, 3}},
		},
		{name: "missing child", ordered: []int64{a, b}, wantErr: true},
		{name: "foreign id", ordered: []int64{a, b, 99}, wantErr: true},
		{name: "duplicate", ordered: []int64{a, a, b}, wantErr: true},
		{name: "extra id", ordered: []int64{a, b, c, 40}, wantErr: true},
		{name: "empty", ordered: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reorder(current, tt.ordered)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOrder) {
					t.Fatalf("Reorder() error = %v, want ErrInvalidOrder", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Reorder() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Reorder() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssign(t *testing.T) {
	got, err := Assign(Batch, []int64{7, 3, 5}, 0, nil)
	if err != nil {
		t.Fatalf("Assign(Batch) error: %v", err)
	}
	if want := []Assignment{{7, 1}, {3, 2}, {5, 3}}; !reflect.DeepEqual(got, want) {
		t.Errorf("Assign(Batch) = %v, want %v", got, want)
	}

	got, err = Assign(Append, []int64{42}, 3, nil)
	if err != nil {
		t.Fatalf("Assign(Append) error: %v", err)
	}
	if want := []Assignment{{42, 4}}; !reflect.DeepEqual(got, want) {
		t.Errorf("Assign(Append) = %v, want %v", got, want)
	}

	if _, err := Assign(Append, []int64{1, 2}, 0, nil); err == nil {
		t.Error("Assign(Append) with two items should fail")
	}

	got, err = Assign(Explicit, []int64{2, 1}, 0, []int64{1, 2})
	if err != nil {
		t.Fatalf("Assign(Explicit) error: %v", err)
	}
	if want := []Assignment{{2, 1}, {1, 2}}; !reflect.DeepEqual(got, want) {
		t.Errorf("Assign(Explicit) = %v, want %v", got, want)
	}

	if _, err := Assign(Policy(9), nil, 0, nil); err == nil {
		t.Error("unknown policy should fail")
	}
}

func TestParseScope(t *testing.T) {
	for _, s := range []string{"plan-templates", "sprint-templates", "plans", "sprints"} {
		sc, err := ParseScope(s)
		if err != nil {
			t.Fatalf("ParseScope(%q) error: %v", s, err)
		}
		if sc.Table().Name == "" {
			t.Errorf("scope %q has no table", s)
		}
	}
	if _, err := ParseScope("goals"); err == nil {
		t.Error("ParseScope(goals) should fail")
	}
	if !ScopeSprintTemplate.IsTemplate() || ScopeSprint.IsTemplate() {
		t.Error("IsTemplate mismatch")
	}
}
