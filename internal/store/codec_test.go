package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"juggle/internal/model"
)

func fullEvent() model.Event {
	ev := model.NewEvent("Hackathon Prep", time.Date(2025, 5, 17, 9, 30, 15, 123000000, time.UTC))
	ev.Description = "Bring snacks\nand a charger"
	ev.Category = model.CategoryHackathons
	ev.Recurrence = model.RecurrenceWeekly
	ev.AddChecklistItem("register team")
	item, _ := ev.AddChecklistItem("book room")
	ev.ToggleChecklistItem(item.ID)
	return ev
}

func bareEvent() model.Event {
	ev := model.NewEvent("Quiet day", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ev.Category = "Gardening"
	return ev
}

func TestCodecRoundTrip(t *testing.T) {
	codecs := map[string]Codec{"json": JSONCodec{}, "yaml": YAMLCodec{}}
	events := []model.Event{fullEvent(), bareEvent()}

	for name, codec := range codecs {
		t.Run(name, func(t *testing.T) {
			data, err := codec.Marshal(events)
			require.NoError(t, err)

			got, err := codec.Unmarshal(data)
			require.NoError(t, err)
			require.Len(t, got, 2)

			for i := range events {
				want := events[i]
				assert.Equal(t, want.ID, got[i].ID)
				assert.Equal(t, want.Name, got[i].Name)
				assert.True(t, want.Date.Equal(got[i].Date), "date %v != %v", want.Date, got[i].Date)
				assert.Equal(t, want.Description, got[i].Description)
				assert.Equal(t, want.Category, got[i].Category)
				assert.Equal(t, want.Recurrence, got[i].Recurrence)
				assert.Equal(t, want.Checklist, got[i].Checklist)
			}
		})
	}
}

func TestJSONRoundTripIsExact(t *testing.T) {
	events := []model.Event{fullEvent(), bareEvent()}

	data, err := JSONCodec{}.Marshal(events)
	require.NoError(t, err)
	got, err := JSONCodec{}.Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, events, got)
}

func TestJSONFieldNames(t *testing.T) {
	data, err := JSONCodec{}.Marshal([]model.Event{fullEvent()})
	require.NoError(t, err)

	for _, key := range []string{`"id"`, `"name"`, `"date"`, `"description"`, `"category"`,
		`"recurrence": "Weekly"`, `"checklist"`, `"title"`, `"completed": true`, `"2025-05-17T09:30:15.123Z"`} {
		assert.Contains(t, string(data), key)
	}
}

func TestUnmarshalEmptyList(t *testing.T) {
	got, err := JSONCodec{}.Unmarshal([]byte("[]"))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = JSONCodec{}.Unmarshal([]byte("null"))
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestUnmarshalRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"truncated":      `[{"id":"` + uuid.NewString() + `","name":"x"`,
		"bad id":         `[{"id":"not-a-uuid","name":"x"}]`,
		"bad recurrence": `[{"id":"` + uuid.NewString() + `","recurrence":"Hourly"}]`,
		"not a list":     `{"events":[]}`,
		"unknown field":  `[{"id":"` + uuid.NewString() + `","colour":"red"}]`,
		"trailing junk":  `[] }}} not json`,
		"two documents":  `[] []`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := JSONCodec{}.Unmarshal([]byte(body))
			assert.Error(t, err)
		})
	}

	yamlCases := map[string]string{
		"bad id":        "- id: nope\n  name: x\n",
		"two documents": "[]\n---\n- name: x\n",
		"trailing junk": "[]\n--- {{{\n",
	}
	for name, body := range yamlCases {
		t.Run("yaml "+name, func(t *testing.T) {
			_, err := YAMLCodec{}.Unmarshal([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestCodecFor(t *testing.T) {
	assert.IsType(t, YAMLCodec{}, CodecFor("/data/events.yaml"))
	assert.IsType(t, YAMLCodec{}, CodecFor("events.YML"))
	assert.IsType(t, JSONCodec{}, CodecFor("events.json"))
	assert.IsType(t, JSONCodec{}, CodecFor("events"))
}
