package roi

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, doc string) *Schedule {
	t.Helper()
	s, err := ParseSchedule([]byte(doc))
	require.NoError(t, err)
	return s
}

func TestParseSchedule_Valid(t *testing.T) {
	s := mustParse(t, `{
		"version": 1,
		"time_unit": "frames",
		"rois": [
			{"id": "speed-1", "label": "SS speed", "x": 10, "y": 20, "w": 100, "h": 30,
			 "start_time": 0, "end_time": 500, "match_to_role": "ss_speed"},
			{"id": "speed-2", "label": "SS speed late", "x": 12, "y": 20, "w": 100, "h": 30,
			 "start_time": 500, "end_time": null, "match_to_role": "ss_speed"},
			{"id": "clock", "label": "T clock", "x": 900, "y": 20, "w": 120, "h": 30,
			 "start_time": null, "end_time": null, "match_to_role": "time"}
		]
	}`)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, UnitFrames, s.TimeUnit)
	assert.Equal(t, []string{"ss_speed", "time"}, s.Roles())
}

func TestParseSchedule_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown version", `{"version": 9, "time_unit": "frames", "rois": []}`},
		{"unknown time unit", `{"version": 1, "time_unit": "minutes", "rois": []}`},
		{"duplicate id", `{"version": 1, "time_unit": "frames", "rois": [
			{"id": "a", "x": 0, "y": 0, "w": 1, "h": 1, "match_to_role": "speed"},
			{"id": "a", "x": 5, "y": 5, "w": 1, "h": 1, "start_time": 10, "end_time": 20, "match_to_role": "alt"}]}`},
		{"negative rectangle", `{"version": 1, "time_unit": "frames", "rois": [
			{"id": "a", "x": -4, "y": 0, "w": 10, "h": 10, "match_to_role": "speed"}]}`},
		{"zero-size rectangle", `{"version": 1, "time_unit": "frames", "rois": [
			{"id": "a", "x": 0, "y": 0, "w": 0, "h": 10, "match_to_role": "speed"}]}`},
		{"empty window", `{"version": 1, "time_unit": "frames", "rois": [
			{"id": "a", "x": 0, "y": 0, "w": 1, "h": 1, "start_time": 20, "end_time": 20, "match_to_role": "speed"}]}`},
		{"missing role", `{"version": 1, "time_unit": "frames", "rois": [
			{"id": "a", "x": 0, "y": 0, "w": 1, "h": 1}]}`},
		{"overlapping windows same role", `{"version": 1, "time_unit": "frames", "rois": [
			{"id": "a", "x": 0, "y": 0, "w": 1, "h": 1, "start_time": 0, "end_time": 100, "match_to_role": "speed"},
			{"id": "b", "x": 0, "y": 0, "w": 1, "h": 1, "start_time": 99, "end_time": 200, "match_to_role": "speed"}]}`},
		{"open-ended overlap same role", `{"version": 1, "time_unit": "frames", "rois": [
			{"id": "a", "x": 0, "y": 0, "w": 1, "h": 1, "match_to_role": "speed"},
			{"id": "b", "x": 0, "y": 0, "w": 1, "h": 1, "start_time": 50, "end_time": 60, "match_to_role": "speed"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchedule([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestActiveAt_WindowBounds(t *testing.T) {
	s := mustParse(t, `{
		"version": 1,
		"time_unit": "frames",
		"rois": [
			{"id": "a", "x": 0, "y": 0, "w": 1, "h": 1, "start_time": 100, "end_time": 200, "match_to_role": "speed"},
			{"id": "b", "x": 0, "y": 0, "w": 1, "h": 1, "start_time": 150, "end_time": 300, "match_to_role": "altitude"},
			{"id": "c", "x": 0, "y": 0, "w": 1, "h": 1, "match_to_role": "time"}
		]
	}`)

	ids := func(t1 float64) []string {
		var out []string
		for _, r := range s.ActiveAt(t1) {
			out = append(out, r.ID)
		}
		return out
	}

	// Half-open: active at start, inactive at end.
	assert.ElementsMatch(t, []string{"c"}, ids(50))
	assert.ElementsMatch(t, []string{"a", "c"}, ids(100))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids(150))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids(199))
	assert.ElementsMatch(t, []string{"b", "c"}, ids(200))
	assert.ElementsMatch(t, []string{"c"}, ids(300))
}

func TestActiveAt_EmptyOutsideAllWindows(t *testing.T) {
	s := mustParse(t, `{
		"version": 1,
		"time_unit": "seconds",
		"rois": [
			{"id": "a", "x": 0, "y": 0, "w": 1, "h": 1, "start_time": 10, "end_time": 20, "match_to_role": "speed"}
		]
	}`)
	assert.Empty(t, s.ActiveAt(5))
	assert.Empty(t, s.ActiveAt(20))
}

func TestResolveRole(t *testing.T) {
	s := mustParse(t, `{
		"version": 1,
		"time_unit": "frames",
		"rois": [
			{"id": "early", "x": 0, "y": 0, "w": 1, "h": 1, "start_time": 0, "end_time": 100, "match_to_role": "speed"},
			{"id": "late", "x": 0, "y": 0, "w": 1, "h": 1, "start_time": 100, "end_time": null, "match_to_role": "speed"}
		]
	}`)

	r, err := s.ResolveRole("speed", 50)
	require.NoError(t, err)
	assert.Equal(t, "early", r.ID)

	r, err = s.ResolveRole("speed", 100)
	require.NoError(t, err)
	assert.Equal(t, "late", r.ID)

	_, err = s.ResolveRole("altitude", 50)
	assert.Error(t, err)
}

// Schedules may carry hundreds of ROIs; the index has to stay correct for
// many adjacent windows of the same shape.
func TestActiveAt_ManyWindows(t *testing.T) {
	doc := `{"version": 1, "time_unit": "frames", "rois": [`
	for i := 0; i < 200; i++ {
		if i > 0 {
			doc += ","
		}
		doc += fmt.Sprintf(`{"id": "r%d", "x": 0, "y": 0, "w": 1, "h": 1, "start_time": %d, "end_time": %d, "match_to_role": "role_%d"}`,
			i, i*10, i*10+10, i)
	}
	doc += `]}`
	s := mustParse(t, doc)

	for i := 0; i < 200; i++ {
		active := s.ActiveAt(float64(i*10 + 5))
		require.Len(t, active, 1)
		assert.Equal(t, fmt.Sprintf("r%d", i), active[0].ID)
	}
	assert.Empty(t, s.ActiveAt(2005))
}
