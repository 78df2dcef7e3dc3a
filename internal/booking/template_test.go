package booking

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayCode(t *testing.T) {
	assert.Equal(t, "mon", WeekdayCode(time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "sun", WeekdayCode(time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "sat", WeekdayCode(time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)))
}

func TestTemplateValidate(t *testing.T) {
	assert.NoError(t, WeeklyTemplate{
		{"mon": {"09:00"}},
		{"tue": {"09:00"}},
	}.Validate())

	assert.ErrorIs(t, WeeklyTemplate{
		{"mon": {"09:00"}},
		{"mon": {"10:00"}},
	}.Validate(), ErrDuplicateWeekday)

	assert.ErrorIs(t, WeeklyTemplate{
		{"monday": {"09:00"}},
	}.Validate(), ErrUnknownWeekday)

	// Two weekdays inside one entry are fine as long as neither repeats.
	assert.NoError(t, WeeklyTemplate{
		{"mon": {"09:00"}, "tue": {"10:00"}},
	}.Validate())
	assert.ErrorIs(t, WeeklyTemplate{
		{"mon": {"09:00"}},
		{"tue": {"10:00"}, "mon": {"11:00"}},
	}.Validate(), ErrDuplicateWeekday)
}

func TestTemplateSlotsFor(t *testing.T) {
	tpl := WeeklyTemplate{
		{"mon": {"09:00", "09:30"}},
		{"wed": {"14:00"}},
	}

	assert.Equal(t, []string{"09:00", "09:30"}, tpl.SlotsFor("mon"))
	assert.Equal(t, []string{"14:00"}, tpl.SlotsFor("wed"))
	assert.Nil(t, tpl.SlotsFor("fri"))

	var empty WeeklyTemplate
	assert.Nil(t, empty.SlotsFor("mon"))
}

func TestTemplateJSONShape(t *testing.T) {
	// The stored shape is an array of one-key objects, as the frontend
	// submits it.
	raw := `[{"mon":["09:00","09:30"]},{"sat":["10:00"]}]`

	var tpl WeeklyTemplate
	require.NoError(t, json.Unmarshal([]byte(raw), &tpl))
	require.NoError(t, tpl.Validate())
	assert.Equal(t, []string{"10:00"}, tpl.SlotsFor("sat"))
}
