package scraper

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var selSimIcon = cascadia.MustCompile(`i.icon[class*="sim"]`)

// simValue reads the active SIM slot from the slot icon's class list.
func simValue(inputHTML string) string {
	doc, err := html.Parse(strings.NewReader(inputHTML))
	if err != nil {
		return StateUnavailable
	}
	icon := cascadia.Query(doc, selSimIcon)
	if icon == nil {
		return StateUnavailable
	}
	for _, class := range strings.Fields(attrVal(icon, "class")) {
		if strings.Contains(class, "sim1") {
			return "Sim 1"
		}
		if strings.Contains(class, "sim2") {
			return "Sim 2"
		}
	}
	return StateUnavailable
}

// ParseModemInfo parses the cellular modem status pages. The input is
// the concatenation of the overview and detail pages; carrier
// aggregation shows up as SCC rows the table extractor disambiguates
// with numeric suffixes.
func ParseModemInfo(inputHTML string) Module {
	raw := ParseTables(inputHTML)

	cellID := HexAsInt(pickFirst(raw, "Cell ID", "CellID"))

	bandValue := pickFirst(raw, "Band", "Current Band", "LTE Band", "Active Band")
	dlBandwidth := pickFirst(raw, "DL Bandwidth", "Bandwidth", "DL BW")

	pcc := raw["PCC"]
	if pcc == "" {
		if bandValue != "" && dlBandwidth != "" {
			pcc = fmt.Sprintf("BAND %s / %s", bandValue, dlBandwidth)
		} else {
			pcc = bandValue
		}
	}
	scc1 := pickFirst(raw, "SCC", "SCC1")
	scc2 := raw["SCC2"]
	scc3 := raw["SCC3"]
	scc4 := raw["SCC4"]

	sessionUpload, sessionDownload := uploadDownloadValues(
		pickFirst(raw, "Upload / Download", "Upload/Download"))

	var bandParts []string
	for _, carrier := range []string{pcc, scc1, scc2, scc3} {
		if b := Band(carrier); b != nil {
			bandParts = append(bandParts, *b)
		}
	}

	cellAttrs := map[string]any{
		"id":     intVal(cellID),
		"enb":    nil,
		"sector": nil,
		"pcid":   intVal(AsInt(raw["PCID"])),
	}
	if cellID != nil && *cellID != 0 {
		cellAttrs["enb"] = *cellID / 256
		cellAttrs["sector"] = *cellID % 256
	}

	rssi := AsInt(raw["RSSI"])

	return Module{
		"network": {
			Value:      strings.ReplaceAll(raw["Network Type"], " ...", ""),
			Attributes: map[string]any{"mcc": strOrNil(raw["MCC"]), "mnc": strOrNil(raw["MNC"])},
		},
		"connected_time": {Value: numVal(SecondsDuration(raw["Connected Time"]))},
		"signal":         {Value: SignalStrength(rssi)},
		"rssi":           {Value: intVal(rssi)},
		"rsrp":           {Value: intVal(AsInt(raw["RSRP"]))},
		"rsrq":           {Value: intVal(AsInt(raw["RSRQ"]))},
		"sinr":           {Value: intVal(AsInt(raw["SINR"]))},
		"sim":            {Value: simValue(inputHTML)},
		"band": {
			Value: strOrNil(strings.Join(bandParts, "+")),
			Attributes: map[string]any{
				"pcc":  strVal(Band(pcc)),
				"scc1": strVal(Band(scc1)),
				"scc2": strVal(Band(scc2)),
				"scc3": strVal(Band(scc3)),
				"scc4": strVal(Band(scc4)),
			},
		},
		"cell": {
			Value:      strOrNil(raw["Cell ID"]),
			Attributes: cellAttrs,
		},
		"public_ip":        {Value: strOrNil(raw["Public IP"])},
		"wan_ip":           {Value: strOrNil(strings.TrimSpace(raw["IP Address"]))},
		"imsi":             {Value: strOrNil(raw["IMSI"])},
		"imei":             {Value: strOrNil(raw["IMEI"])},
		"iccid":            {Value: strOrNil(raw["ICCID"])},
		"mode":             {Value: strOrNil(strings.TrimSpace(raw["Mode"]))},
		"bandwidth":        {Value: strOrNil(raw["DL Bandwidth"])},
		"session_upload":   {Value: numVal(sessionUpload)},
		"session_download": {Value: numVal(sessionDownload)},
	}
}
