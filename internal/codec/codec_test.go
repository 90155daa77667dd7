package codec_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micro-nova/taskd/internal/codec"
	"github.com/micro-nova/taskd/internal/models"
)

func at(hour, min int) models.Timestamp {
	return models.NewTimestamp(time.Date(2024, 1, 15, hour, min, 0, 0, time.UTC))
}

func sampleTasks() []models.Task {
	return []models.Task{
		{ID: "1705314600000-abcdef12", Text: "buy milk", Created: at(10, 30), StatusID: "status-1"},
		{ID: "1705314660000-0badf00d", Text: "walk <dog> & cat", Created: at(10, 31), StatusID: "status-2"},
	}
}

func sampleStatuses() []models.Status {
	return []models.Status{
		{ID: "status-1a2b3c4d", Label: "Open", Color: "#4a90e2"},
		{ID: "status-5e6f7a8b", Label: "Done", Color: "#2ECC71"},
	}
}

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestEncodeGolden(t *testing.T) {
	g := newGolden(t)

	data, err := codec.Encode(sampleTasks())
	require.NoError(t, err)
	g.Assert(t, "tasks", data)

	data, err = codec.Encode(sampleStatuses())
	require.NoError(t, err)
	g.Assert(t, "statuses", data)
}

func TestEncodeDeterministic(t *testing.T) {
	a, err := codec.Encode(sampleTasks())
	require.NoError(t, err)
	b, err := codec.Encode(sampleTasks())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeEmpty(t *testing.T) {
	data, err := codec.Encode[models.Task](nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	data, err = codec.Encode([]models.Status{})
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestRoundTrip(t *testing.T) {
	tasks := sampleTasks()
	data, err := codec.Encode(tasks)
	require.NoError(t, err)
	got, err := codec.Decode[models.Task](data)
	require.NoError(t, err)
	require.Len(t, got, len(tasks))
	for i := range tasks {
		assert.Equal(t, tasks[i].ID, got[i].ID)
		assert.Equal(t, tasks[i].Text, got[i].Text)
		assert.True(t, tasks[i].Created.Equal(got[i].Created.Time), "created[%d]", i)
		assert.Equal(t, tasks[i].StatusID, got[i].StatusID)
	}

	statuses := sampleStatuses()
	data, err = codec.Encode(statuses)
	require.NoError(t, err)
	gotStatuses, err := codec.Decode[models.Status](data)
	require.NoError(t, err)
	assert.Equal(t, statuses, gotStatuses)
}

func TestDecodeEmptyForms(t *testing.T) {
	for _, in := range []string{"", "   \n\t", "[]", " [ ] \n"} {
		got, err := codec.Decode[models.Task]([]byte(in))
		require.NoError(t, err, "input %q", in)
		assert.NotNil(t, got, "input %q", in)
		assert.Empty(t, got, "input %q", in)
	}
}

func TestDecodeCompactInput(t *testing.T) {
	got, err := codec.Decode[models.Status]([]byte(`[{"id":"s1","label":"Open","color":"#000000"}]`))
	require.NoError(t, err)
	assert.Equal(t, []models.Status{{ID: "s1", Label: "Open", Color: "#000000"}}, got)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		index int
	}{
		{"truncated", `[{"id":"s1","label":"Open"`, -1},
		{"object instead of array", `{"id":"s1","label":"Open","color":"#000000"}`, -1},
		{"null document", `null`, -1},
		{"scalar document", `42`, -1},
		{"trailing data", `[] []`, -1},
		{"null element", `[null]`, 0},
		{"scalar element", `[{"id":"s1","label":"a","color":"#000000"}, "oops"]`, 1},
		{"wrong field type", `[{"id":7,"label":"Open","color":"#000000"}]`, 0},
		{"unknown field", `[{"id":"s1","label":"Open","color":"#000000","extra":true}]`, 0},
		{"empty object", `[{}]`, 0},
		{"missing label", `[{"id":"s1","color":"#000000"}]`, 0},
		{"null label", `[{"id":"s1","label":null,"color":"#000000"}]`, 0},
		{"empty id", `[{"id":"","label":"Open","color":"#000000"}]`, 0},
		{"bad color", `[{"id":"s1","label":"Open","color":"#000000"},{"id":"s2","label":"Done","color":"green"}]`, 1},
		{"short color", `[{"id":"s1","label":"Open","color":"#fff"}]`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.Decode[models.Status]([]byte(tt.in))
			require.Error(t, err)
			assert.Nil(t, got, "no partial collection on error")
			assert.ErrorIs(t, err, codec.ErrMalformedData)

			var me *codec.MalformedError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tt.index, me.Index)
		})
	}
}

func TestDecodeBadTimestamp(t *testing.T) {
	_, err := codec.Decode[models.Task]([]byte(`[{"id":"t1","text":"x","created":"yesterday","statusId":"s"}]`))
	assert.ErrorIs(t, err, codec.ErrMalformedData)
}

func TestDecodeFractionalTimestamp(t *testing.T) {
	for _, created := range []string{"2024-01-15T10:30:00.123Z", "2024-01-15T10:30:00.5Z"} {
		in := `[{"id":"t1","text":"x","created":"` + created + `","statusId":"s"}]`
		got, err := codec.Decode[models.Task]([]byte(in))
		assert.ErrorIs(t, err, codec.ErrMalformedData, created)
		assert.Nil(t, got, created)
	}
}

func TestDecodeIncompleteTask(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty object", `[{}]`},
		{"null created", `[{"id":"t1","text":"x","created":null,"statusId":"s"}]`},
		{"missing created", `[{"id":"t1","text":"x","statusId":"s"}]`},
		{"empty id", `[{"id":"","text":"x","created":"2024-01-15T10:30:00Z","statusId":"s"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode[models.Task]([]byte(tt.in))
			require.Error(t, err)
			assert.ErrorIs(t, err, codec.ErrMalformedData)

			var me *codec.MalformedError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, 0, me.Index)
		})
	}
}
