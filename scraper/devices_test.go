package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devicesListHTML = `<table>
	<tr>
		<td><div id="cbi-table-1-ipmac"><p class="visible-xs">192.168.10.100<br>AA:BB:CC:DD:EE:01</p></div></td>
		<td><div id="cbi-table-1-speed"><p class="visible-xs">2 Mbps<br>80 Mbps</p></div></td>
		<td><div id="cbi-table-1-hostname"><p class="visible-xs">laptop<br>more</p></div></td>
	</tr>
	<tr>
		<td><div id="cbi-table-2-ipmac"><p class="visible-xs">192.168.10.101<br>AA:BB:CC:DD:EE:02</p></div></td>
		<td><div id="cbi-table-2-speed"><p class="visible-xs">15 Mbps<br>3 Mbps</p></div></td>
		<td><div id="cbi-table-2-hostname"><p class="visible-xs">nas<br>more</p></div></td>
	</tr>
</table>`

func TestParseAllDevices(t *testing.T) {
	devices := parseAllDevices(devicesListHTML)
	require.Len(t, devices, 2)

	assert.Equal(t, "192.168.10.100", devices[0].IP)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", devices[0].MAC)
	assert.Equal(t, "laptop", devices[0].Hostname)
	require.NotNil(t, devices[0].UpSpeedMbps)
	require.NotNil(t, devices[0].DownSpeedMbps)
	assert.InDelta(t, 2, *devices[0].UpSpeedMbps, 0.001)
	assert.InDelta(t, 80, *devices[0].DownSpeedMbps, 0.001)
}

func TestParseAllDevicesEmpty(t *testing.T) {
	assert.Empty(t, parseAllDevices(""))
	assert.Empty(t, parseAllDevices("<table><tr><td>nothing</td></tr></table>"))
}

func TestParseDevices(t *testing.T) {
	data := ParseDevices(devicesListHTML, "")

	assert.Equal(t, 2, data["device_count"].Value)
	assert.InDelta(t, 83, data["total_down_speed"].Value.(float64), 0.001)
	assert.InDelta(t, 17, data["total_up_speed"].Value.(float64), 0.001)

	assert.InDelta(t, 80, data["top_downloader_speed"].Value.(float64), 0.001)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", data["top_downloader_mac"].Value)
	assert.Equal(t, "laptop", data["top_downloader_hostname"].Value)

	assert.InDelta(t, 15, data["top_uploader_speed"].Value.(float64), 0.001)
	assert.Equal(t, "AA:BB:CC:DD:EE:02", data["top_uploader_mac"].Value)
	assert.Equal(t, "nas", data["top_uploader_hostname"].Value)
}

func TestParseDevicesDetailedList(t *testing.T) {
	data := ParseDevices(devicesListHTML, "nas, AA:BB:CC:DD:EE:01")

	detailed, ok := data["detailed"].Value.(map[string]Device)
	require.True(t, ok)
	require.Len(t, detailed, 2)

	assert.Equal(t, "192.168.10.101", detailed["nas"].IP)
	assert.Equal(t, "laptop", detailed["AA:BB:CC:DD:EE:01"].Hostname)
}

func TestParseDevicesNoClients(t *testing.T) {
	data := ParseDevices("", "")
	assert.Equal(t, 0, data["device_count"].Value)
	_, hasTop := data["top_downloader_speed"]
	assert.False(t, hasTop)
}
