package touch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDevices(t *testing.T) []DeviceInfo {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", "devices"))
	require.NoError(t, err)
	defer f.Close()

	all, err := ParseDeviceList(f)
	require.NoError(t, err)
	return all
}

func TestParseDeviceList(t *testing.T) {
	all := loadDevices(t)
	require.Len(t, all, 4)

	ts := all[1]
	assert.Equal(t, "ELAN Touchscreen", ts.Name)
	assert.Equal(t, "i2c-ELAN9008:00", ts.Phys)
	assert.Equal(t, []string{"mouse1", "event5"}, ts.Handlers)
	assert.Equal(t, "/dev/input/event5", ts.EventPath())
	assert.True(t, ts.Multitouch())
	assert.True(t, ts.Direct())

	pad := all[2]
	assert.True(t, pad.Multitouch())
	assert.False(t, pad.Direct())

	assert.False(t, all[0].Multitouch())
	assert.False(t, all[3].Multitouch())
}

func TestParseDeviceListBadBitmap(t *testing.T) {
	_, err := ParseDeviceList(strings.NewReader("N: Name=\"x\"\nB: ABS=zz\n"))
	assert.Error(t, err)
}

func TestSelectDevices(t *testing.T) {
	all := loadDevices(t)

	tests := []struct {
		name    string
		names   []string
		want    []string
		missing []string
		err     error
	}{
		{
			name: "touch screens by default",
			want: []string{"ELAN Touchscreen"},
		},
		{
			name:  "by name includes touchpads",
			names: []string{"SYNA7DB5:01 06CB:CD41 Touchpad", "ELAN Touchscreen"},
			want:  []string{"SYNA7DB5:01 06CB:CD41 Touchpad", "ELAN Touchscreen"},
		},
		{
			name:    "missing names reported",
			names:   []string{"ELAN Touchscreen", "Nope"},
			want:    []string{"ELAN Touchscreen"},
			missing: []string{"Nope"},
		},
		{
			name:    "non multitouch device is not selected",
			names:   []string{"Wacom Pen"},
			missing: []string{"Wacom Pen"},
			err:     ErrNoDevices,
		},
		{
			name:  "duplicates collapse",
			names: []string{"ELAN Touchscreen", "ELAN Touchscreen"},
			want:  []string{"ELAN Touchscreen"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing, err := SelectDevices(all, tt.names)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				require.NoError(t, err)
			}

			var names []string
			for _, d := range got {
				names = append(names, d.Name)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, tt.missing, missing)
		})
	}
}

func TestFindDevicesFromPath(t *testing.T) {
	old := DeviceListPath
	t.Cleanup(func() { DeviceListPath = old })

	DeviceListPath = filepath.Join("testdata", "devices")
	got, missing, err := FindDevices(nil)
	require.NoError(t, err)
	assert.Empty(t, missing)
	require.Len(t, got, 1)
	assert.Equal(t, "/dev/input/event5", got[0].EventPath())

	list, err := ListDevices()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	DeviceListPath = filepath.Join(t.TempDir(), "missing")
	_, _, err = FindDevices(nil)
	assert.Error(t, err)
}
