package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSystemStatus(t *testing.T) {
	input := `<table>
		<tr><th>Firmware Version</th><td>2.3.6-20240115</td></tr>
		<tr><th>Uptime</th><td>01:00:00</td></tr>
		<tr><th>Local Time</th><td>2024-03-15 12:00:00</td></tr>
	</table>`

	data := ParseSystemStatus(input)
	assert.Equal(t, "2.3.6-20240115", data["firmware_version"].Value)
	assert.Equal(t, "2024-03-15 12:00:00", data["local_time"].Value)
	assert.InDelta(t, 3600, data["uptime"].Value.(float64), 0.001)
}

func TestParseSystemStatusFirmwareAliases(t *testing.T) {
	tests := []struct {
		name  string
		label string
	}{
		{name: "software version", label: "Software Version"},
		{name: "sw version", label: "SW Version"},
		{name: "current version", label: "Current Version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := `<table><tr><th>` + tt.label + `</th><td>1.2.3</td></tr></table>`
			data := ParseSystemStatus(input)
			assert.Equal(t, "1.2.3", data["firmware_version"].Value)
		})
	}
}

func TestParseSystemStatusFirmwareFromScript(t *testing.T) {
	input := `<html><script>var firmware = "2.3.9-20240301";</script></html>`

	data := ParseSystemStatus(input)
	assert.Equal(t, "2.3.9-20240301", data["firmware_version"].Value)
}

func TestParseSystemStatusEmpty(t *testing.T) {
	data := ParseSystemStatus("")
	assert.Nil(t, data["firmware_version"].Value)
	assert.Nil(t, data["uptime"].Value)
	assert.Nil(t, data["local_time"].Value)
}

func TestParseDataUsage(t *testing.T) {
	input := `<table>
		<tr><th>Current Traffic:</th><td>1.5 GB</td></tr>
		<tr><th>Monthly Traffic:</th><td>100 MB</td></tr>
		<tr><th>Total Traffic:</th><td>219.49 GB</td></tr>
	</table>`

	data := ParseDataUsage(input)
	assert.InDelta(t, 1536, data["current_traffic"].Value.(float64), 0.001)
	assert.InDelta(t, 100, data["monthly_traffic"].Value.(float64), 0.001)
	assert.InDelta(t, 224757.76, data["total_traffic"].Value.(float64), 0.001)
}

func TestParseSMSStatus(t *testing.T) {
	input := `<table>
		<tr><th>Inbox</th><td>12</td></tr>
		<tr><th>Outbox</th><td>4</td></tr>
		<tr><th class="text-primary">New Messages</th><th>3</th></tr>
	</table>`

	data := ParseSMSStatus(input)
	assert.Equal(t, 12, data["inbox_count"].Value)
	assert.Equal(t, 4, data["outbox_count"].Value)
	assert.Equal(t, 3, data["unread_count"].Value)
}

func TestParseSMSStatusNoUnreadHeader(t *testing.T) {
	data := ParseSMSStatus(`<table><tr><th>Inbox</th><td>1</td></tr></table>`)
	assert.Equal(t, 0, data["unread_count"].Value)
}

func TestParseWifiStatus(t *testing.T) {
	input := `<table>
		<tr><th>SSID</th><td>HomeNet</td></tr>
		<tr><th>Channel</th><td>36</td></tr>
		<tr><th>Status</th><td>Enabled</td></tr>
	</table>`

	data := ParseWifiStatus(input)
	assert.Equal(t, "HomeNet", data["ssid"].Value)
	assert.Equal(t, 36, data["channel"].Value)
	assert.Equal(t, true, data["enabled"].Value)
}

func TestParseWifiStatusDisabled(t *testing.T) {
	data := ParseWifiStatus(`<table><tr><th>Status</th><td>Disabled</td></tr></table>`)
	assert.Equal(t, false, data["enabled"].Value)
}

func TestParseLANStatus(t *testing.T) {
	input := `<table>
		<tr><th>IP Address</th><td>192.168.10.1</td></tr>
		<tr><th>MAC-Address</th><td>AA:BB:CC:DD:EE:FF</td></tr>
	</table>`

	data := ParseLANStatus(input)
	assert.Equal(t, "192.168.10.1", data["ip_address"].Value)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", data["mac_address"].Value)
}

func TestParseDevicesStatus(t *testing.T) {
	input := `<table>
		<tr><th>2.4G Clients</th><td>3</td></tr>
		<tr><th>5G Clients</th><td>5</td></tr>
		<tr><th>Wired</th><td>2</td></tr>
	</table>`

	data := ParseDevicesStatus(input)
	assert.Equal(t, 3, data["wifi_2g_clients"].Value)
	assert.Equal(t, 5, data["wifi_5g_clients"].Value)
	assert.Equal(t, 2, data["wired_clients"].Value)
	// No explicit total: computed from the known categories.
	assert.Equal(t, 10, data["total_clients"].Value)
}

func TestParseDevicesStatusZeroCountSkipsToNextAlias(t *testing.T) {
	input := `<table>
		<tr><th>2.4G Clients</th><td>0</td></tr>
		<tr><th>2.4GHz Clients</th><td>4</td></tr>
	</table>`

	data := ParseDevicesStatus(input)
	assert.Equal(t, 4, data["wifi_2g_clients"].Value)
}

func TestParseDevicesStatusScriptFallback(t *testing.T) {
	input := `<html><script>
		var wifi_2g = 2; var wifi_5g = 6; var total_clients = 9;
	</script></html>`

	data := ParseDevicesStatus(input)
	assert.Equal(t, 2, data["wifi_2g_clients"].Value)
	assert.Equal(t, 6, data["wifi_5g_clients"].Value)
	assert.Equal(t, 9, data["total_clients"].Value)
}
