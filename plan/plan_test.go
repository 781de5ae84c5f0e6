package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogJSON = `{
	"durations": [30, 90, 365],
	"plans": [
		{"devices": 1, "prices": {"RUB": {"30": 150, "90": 400, "365": 1400}}},
		{"devices": 3, "prices": {"RUB": {"30": 300, "90": 800, "365": 2800}}},
		{"devices": -1, "prices": {"RUB": {"30": 600, "90": 1600, "365": 5600}}}
	]
}`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "plans.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeCatalog(t, catalogJSON))
	require.NoError(t, err)
	assert.Len(t, c.Plans, 3)
	assert.Equal(t, []int{30, 90, 365}, c.Durations)

	p, err := c.Plan(3)
	require.NoError(t, err)
	assert.Equal(t, 800.0, p.Price("RUB", 90))
	assert.Equal(t, 0.0, p.Price("RUB", 7))
	assert.Equal(t, 0.0, p.Price("USD", 90))

	_, err = c.Plan(10)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(writeCatalog(t, `{"durations": [30], "plans": []}`))
	assert.Error(t, err)

	_, err = Load(writeCatalog(t, `{"durations": [], "plans": [{"devices": 1}]}`))
	assert.Error(t, err)

	_, err = Load(writeCatalog(t, `not json`))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFormatDevices(t *testing.T) {
	assert.Equal(t, "1 device", FormatDevices(1))
	assert.Equal(t, "3 devices", FormatDevices(3))
	assert.Equal(t, "unlimited devices", FormatDevices(Unlimited))
}

func TestFormatPeriod(t *testing.T) {
	assert.Equal(t, "1 day", FormatPeriod(1))
	assert.Equal(t, "7 days", FormatPeriod(7))
	assert.Equal(t, "1 month", FormatPeriod(30))
	assert.Equal(t, "3 months", FormatPeriod(90))
	assert.Equal(t, "1 year", FormatPeriod(365))
	assert.Equal(t, "2 years", FormatPeriod(730))
	assert.Equal(t, "unlimited", FormatPeriod(Unlimited))
}
