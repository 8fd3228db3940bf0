package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTablesMobileParagraphs(t *testing.T) {
	input := `<table><tr>
		<td><p class="visible-xs">RSSI</p></td>
		<td><p class="visible-xs">18</p></td>
	</tr></table>`

	data := ParseTables(input)
	assert.Equal(t, "18", data["RSSI"])
}

func TestParseTablesDirectCells(t *testing.T) {
	input := `<table>
		<tr><td>Network Type</td><td><span>5G-SA ...</span></td></tr>
		<tr><td>IP Address</td><td>10.20.30.40</td></tr>
	</table>`

	data := ParseTables(input)
	assert.Equal(t, "5G-SA ...", data["Network Type"])
	assert.Equal(t, "10.20.30.40", data["IP Address"])
}

func TestParseTablesHeaderValuePairs(t *testing.T) {
	input := `<table>
		<tr><th>Inbox</th><td>5</td></tr>
		<tr><th>Outbox</th><td>2</td></tr>
	</table>`

	data := ParseTables(input)
	assert.Equal(t, "5", data["Inbox"])
	assert.Equal(t, "2", data["Outbox"])
}

func TestParseTablesDuplicateLabels(t *testing.T) {
	input := `<table>
		<tr><th>SCC</th><td>Band 3</td></tr>
		<tr><th>SCC</th><td>Band 7</td></tr>
		<tr><th>SCC</th><td>Band 20</td></tr>
	</table>`

	data := ParseTables(input)
	assert.Equal(t, "Band 3", data["SCC"])
	assert.Equal(t, "Band 7", data["SCC2"])
	assert.Equal(t, "Band 20", data["SCC3"])
}

func TestParseTablesVacantEntryIsFilled(t *testing.T) {
	input := `<table>
		<tr><th>Status</th><td></td></tr>
		<tr><th>Status</th><td>Connected</td></tr>
	</table>`

	data := ParseTables(input)
	assert.Equal(t, "Connected", data["Status"])
}

func TestParseTablesDivGrid(t *testing.T) {
	input := `<div class="info-row">
		<div class="label">Gateway</div>
		<div class="value">192.168.10.1</div>
	</div>`

	data := ParseTables(input)
	assert.Equal(t, "192.168.10.1", data["Gateway"])
}

func TestParseTablesMultilineValue(t *testing.T) {
	input := `<table>
		<tr><th>DNS</th><td>1.1.1.1<br>8.8.8.8</td></tr>
	</table>`

	data := ParseTables(input)
	// Newlines inside values are flattened.
	assert.Equal(t, "1.1.1.18.8.8.8", data["DNS"])
}

func TestParseTablesEmptyInput(t *testing.T) {
	assert.Empty(t, ParseTables(""))
}
