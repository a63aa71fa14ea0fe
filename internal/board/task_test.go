package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCompletionPercent verifies the round-half-up percentage computation
// across boundary inputs.
func TestCompletionPercent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		subtasks []Subtask
		want     int
	}{
		{name: "nil sequence", subtasks: nil, want: 0},
		{name: "empty sequence", subtasks: []Subtask{}, want: 0},
		{
			name:     "two of three completed rounds up",
			subtasks: []Subtask{{Completed: true}, {Completed: false}, {Completed: true}},
			want:     67,
		},
		{
			name:     "one of three completed rounds down",
			subtasks: []Subtask{{Completed: true}, {Completed: false}, {Completed: false}},
			want:     33,
		},
		{
			name:     "exact half rounds up",
			subtasks: []Subtask{{Completed: true}, {Completed: true}, {Completed: false}, {Completed: false}, {Completed: false}, {Completed: false}, {Completed: false}, {Completed: false}},
			want:     25,
		},
		{
			name:     "half of eight",
			subtasks: []Subtask{{Completed: true}, {Completed: true}, {Completed: true}, {Completed: true}, {Completed: false}, {Completed: false}, {Completed: false}, {Completed: false}},
			want:     50,
		},
		{
			name:     "none completed",
			subtasks: []Subtask{{}, {}, {}},
			want:     0,
		},
		{
			name:     "all completed",
			subtasks: []Subtask{{Completed: true}, {Completed: true}},
			want:     100,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := CompletionPercent(tc.subtasks)
			require.Equal(t, tc.want, got)
			require.GreaterOrEqual(t, got, 0)
			require.LessOrEqual(t, got, 100)
		})
	}
}

// TestCompletionPercentHalfUp pins the round-half-up rule on a true .5 case.
func TestCompletionPercentHalfUp(t *testing.T) {
	t.Parallel()

	// 1/8 = 12.5% must round to 13, not 12.
	subtasks := []Subtask{{Completed: true}, {}, {}, {}, {}, {}, {}, {}}
	require.Equal(t, 13, CompletionPercent(subtasks))
}

// TestProgressOf checks the full snapshot including the label form.
func TestProgressOf(t *testing.T) {
	t.Parallel()

	task := Task{
		ID:       "t-1",
		Category: "doing",
		Subtasks: []Subtask{{Completed: true}, {Completed: false}, {Completed: true}},
	}
	p := ProgressOf(task)
	require.Equal(t, "t-1", p.TaskID)
	require.Equal(t, "doing", p.Category)
	require.Equal(t, 2, p.Completed)
	require.Equal(t, 3, p.Total)
	require.Equal(t, 67, p.Percent)
	require.Equal(t, "2/3", p.Label())
}

// TestCloneSubtasks ensures snapshots do not alias the source slice.
func TestCloneSubtasks(t *testing.T) {
	t.Parallel()

	require.Nil(t, CloneSubtasks(nil))

	src := []Subtask{{Title: "a"}, {Title: "b", Completed: true}}
	dst := CloneSubtasks(src)
	require.Equal(t, src, dst)

	dst[0].Completed = true
	require.False(t, src[0].Completed)
}
