package scraper

import (
	"crypto/md5"
	"fmt"
	"regexp"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	selPanel   = cascadia.MustCompile("div.panel")
	selAnyCell = cascadia.MustCompile("td, th")

	macAddrRe   = regexp.MustCompile(`([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}`)
	ipAddrRe    = regexp.MustCompile(`(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	fwVersionRe = regexp.MustCompile(`(\d+\.\d+\.\d+(?:\.\d+)?)`)
	// Keeps trailing build suffixes ("2.3.6-rc1") intact.
	fwLineRe  = regexp.MustCompile(`(\d+\.\d+\.\d+[^\n]*)`)
	fwShortRe = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

	meshDivIDRe   = regexp.MustCompile(`(?i)mesh|node|satellite`)
	meshNamePats  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Device\s*Name|Name|Hostname)[:\s]*([^\n]+)`),
		regexp.MustCompile(`(?i)(?:Node\s*Name)[:\s]*([^\n]+)`),
	}
	meshModelPats = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Model|Device\s*Model|Product)[:\s]*([^\n]+)`),
		regexp.MustCompile(`(Cudy\s*[A-Z0-9]+)`),
	}
	meshFwLabelRe = regexp.MustCompile(`(?i)(?:Firmware|FW|Version|Firmware\s*Version)[:\s]*([^\n]+)`)
	offlineRe     = regexp.MustCompile(`(?i)offline|disconnected`)
	onlineRe      = regexp.MustCompile(`(?i)online|connected`)
	offlineDownRe = regexp.MustCompile(`(?i)offline|disconnected|down`)
	onlineUpRe    = regexp.MustCompile(`(?i)online|connected|up`)

	cudySpecificNameRe = regexp.MustCompile(`(?i)(Main\s*Router|Satellite|Node\s*\d+|^Mesh$)`)
	cudyDeviceNameRe   = regexp.MustCompile(`(?i)Device\s*Name[:\s]+([A-Za-z][A-Za-z0-9\s\-_]+?)(?:\s+(?:Mesh|Device|Status|More)|$)`)
	cudyShortModelRe   = regexp.MustCompile(`((?:Cudy\s*)?[A-Z]?\d{3,4}[A-Z]?)`)
	rowModelRe         = regexp.MustCompile(`(?i)(Cudy\s*[A-Z0-9]+|M[0-9]{4})`)

	statusContentRe = regexp.MustCompile(`cbi-table-\d+-content`)
	statusDataRe    = regexp.MustCompile(`cbi-table-\d+-data`)
	devRowIDRe      = regexp.MustCompile(`cbi-table-\d+`)

	meshScriptPats = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:meshNodes|mesh_nodes|nodes)\s*[=:]\s*(\[[\s\S]*?\])\s*[;,]`),
		regexp.MustCompile(`(?i)(?:satellites|mesh_devices)\s*[=:]\s*(\[[\s\S]*?\])\s*[;,]`),
		regexp.MustCompile(`(?i)(?:unit_list|mesh_units)\s*[=:]\s*(\[[\s\S]*?\])\s*[;,]`),
		regexp.MustCompile(`"nodes"\s*:\s*(\[[\s\S]*?\])`),
		regexp.MustCompile(`"devices"\s*:\s*(\[[\s\S]*?\])`),
	}
)

// meshPage is the outcome of parsing the mesh topology HTML before the
// clients JSON and per-client fetches are folded in.
type meshPage struct {
	// Count is the number of satellite units; the main router is never
	// counted as a mesh device.
	Count   int
	Devices map[string]*MeshDevice
	// MainRouterName is the display name configured for the main router
	// in the mesh settings, when the coarse panel exposes it.
	MainRouterName string
	// MainRouterLED carries the main router's LED state once the
	// reserved all-zero client id has been seen in the clients JSON.
	MainRouterLED string
}

// pseudoMAC derives a deterministic locally-administered MAC from a
// display name, for satellite panels that expose no real MAC.
func pseudoMAC(name string) string {
	sum := md5.Sum([]byte(name))
	b := sum[:6]
	b[0] = (b[0] & 0xFC) | 0x02
	parts := make([]string, len(b))
	for i, octet := range b {
		parts[i] = fmt.Sprintf("%02X", octet)
	}
	return strings.Join(parts, ":")
}

func canonicalMAC(raw string) string {
	return strings.ReplaceAll(strings.ToUpper(raw), "-", ":")
}

// parseMeshDevices extracts satellite units from the combined mesh
// topology HTML. Four strategies are tried in priority order: device
// panels, table rows, id-hinted divs and script-embedded JSON arrays.
// A coarse "Device Name"/"Mesh Units" summary panel, when present,
// seeds the satellite count and the main router's display name.
func parseMeshDevices(inputHTML string) meshPage {
	page := meshPage{Devices: map[string]*MeshDevice{}}
	if inputHTML == "" {
		return page
	}

	raw := ParseTables(inputHTML)
	if raw["Device Name"] != "" || raw["Mesh Units"] != "" {
		if units := AsInt(raw["Mesh Units"]); units != nil {
			// The unit count includes the main router.
			if satellites := *units - 1; satellites > 0 {
				page.Count = satellites
			}
		}
		page.MainRouterName = raw["Device Name"]
	}

	doc, err := html.Parse(strings.NewReader(inputHTML))
	if err != nil {
		return page
	}

	var found []*MeshDevice
	for _, panel := range cascadia.QueryAll(doc, selPanel) {
		if dev := extractMeshDeviceInfo(panel); dev != nil && dev.MACAddress != "" {
			found = append(found, dev)
		} else if dev := extractCudyMeshDevice(panel); dev != nil {
			found = append(found, dev)
		}
	}

	if len(found) == 0 {
		for _, table := range cascadia.QueryAll(doc, selTable) {
			for _, row := range cascadia.QueryAll(table, selRow) {
				if dev := extractMeshFromRow(row); dev != nil {
					found = append(found, dev)
				}
			}
		}
	}

	if len(found) == 0 {
		var walk func(*html.Node)
		walk = func(n *html.Node) {
			if n.Type == html.ElementNode && n.Data == "div" && meshDivIDRe.MatchString(attrVal(n, "id")) {
				if dev := extractMeshDeviceInfo(n); dev != nil && dev.MACAddress != "" {
					found = append(found, dev)
				}
				return
			}
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				walk(child)
			}
		}
		walk(doc)
	}

	if len(found) == 0 {
		found = extractMeshFromScript(inputHTML)
	}

	seen := map[string]bool{}
	for _, dev := range found {
		mac := strings.ToUpper(dev.MACAddress)
		name := strings.ToLower(dev.Name)

		// The main router is not a satellite.
		switch name {
		case "main router", "mainrouter", "main_router", "router":
			continue
		}
		if mac == "" || seen[mac] {
			continue
		}
		seen[mac] = true
		dev.MACAddress = mac
		page.Devices[mac] = dev
	}

	if len(page.Devices) > 0 {
		page.Count = len(page.Devices)
	}
	return page
}

// extractMeshDeviceInfo pulls a satellite record out of a DOM element
// that contains a visible MAC address.
func extractMeshDeviceInfo(element *html.Node) *MeshDevice {
	text := strings.Join(textLines(element), "\n")

	mac := macAddrRe.FindString(text)
	if mac == "" {
		return nil
	}

	dev := &MeshDevice{
		MACAddress: canonicalMAC(mac),
		Status:     MeshStatusOnline,
	}

	for _, pattern := range meshNamePats {
		if m := pattern.FindStringSubmatch(text); m != nil {
			dev.Name = strings.TrimSpace(m[1])
			break
		}
	}
	for _, pattern := range meshModelPats {
		if m := pattern.FindStringSubmatch(text); m != nil {
			dev.Model = strings.TrimSpace(m[1])
			break
		}
	}
	if m := meshFwLabelRe.FindStringSubmatch(text); m != nil {
		dev.FirmwareVersion = strings.TrimSpace(m[1])
	} else if m := fwLineRe.FindStringSubmatch(text); m != nil {
		dev.FirmwareVersion = strings.TrimSpace(m[1])
	}
	if m := ipAddrRe.FindStringSubmatch(text); m != nil {
		dev.IPAddress = m[1]
	}
	if offlineRe.MatchString(text) {
		dev.Status = MeshStatusOffline
	} else if onlineRe.MatchString(text) {
		dev.Status = MeshStatusOnline
	}
	return dev
}

// extractCudyMeshDevice handles panels that never show a MAC. Satellite
// panels on these pages may hold nothing but a short display name, so
// the record is admitted on a recognized name and keyed by a
// deterministic pseudo-MAC.
func extractCudyMeshDevice(element *html.Node) *MeshDevice {
	text := strings.Join(textLines(element), "\n")
	textLower := strings.ToLower(strings.TrimSpace(text))

	shortNames := []string{"mesh", "satellite", "node", "extender", "repeater"}
	isShortName := false
	for _, name := range shortNames {
		if textLower == name || strings.HasPrefix(textLower, name+" ") {
			isShortName = true
			break
		}
	}

	if len(text) < 20 && !isShortName {
		return nil
	}

	// Navigation and header panels match the same selector.
	for _, skip := range []string{"logout", "menu", "settings", "wizard", "more details"} {
		if strings.Contains(textLower, skip) {
			if !cudySpecificNameRe.MatchString(text) {
				return nil
			}
			break
		}
	}

	// Label-only panels repeat the column header.
	if strings.Count(textLower, "device name") > 1 && !strings.Contains(textLower, "main router") {
		return nil
	}

	dev := &MeshDevice{Status: MeshStatusOnline}

	if m := macAddrRe.FindString(text); m != "" {
		dev.MACAddress = canonicalMAC(m)
	}

	if isShortName {
		dev.Name = strings.TrimSpace(text)
	} else if m := cudySpecificNameRe.FindStringSubmatch(text); m != nil {
		dev.Name = strings.TrimSpace(m[1])
	} else if m := cudyDeviceNameRe.FindStringSubmatch(text); m != nil {
		candidate := strings.TrimSpace(m[1])
		switch strings.ToLower(candidate) {
		case "device name", "name", "hostname", "device":
		default:
			dev.Name = candidate
		}
	}

	if m := cudyShortModelRe.FindStringSubmatch(text); m != nil {
		dev.Model = strings.TrimSpace(m[1])
	}
	if m := fwVersionRe.FindStringSubmatch(text); m != nil {
		dev.FirmwareVersion = m[1]
	}
	if m := ipAddrRe.FindStringSubmatch(text); m != nil {
		dev.IPAddress = m[1]
	}
	if offlineDownRe.MatchString(text) {
		dev.Status = MeshStatusOffline
	} else if onlineUpRe.MatchString(text) {
		dev.Status = MeshStatusOnline
	}

	if dev.Name == "" {
		return nil
	}
	if dev.MACAddress == "" {
		dev.MACAddress = pseudoMAC(dev.Name)
		dev.synthetic = true
	}
	return dev
}

// extractMeshFromRow pulls a satellite record out of a table row that
// carries a MAC address.
func extractMeshFromRow(row *html.Node) *MeshDevice {
	cells := cascadia.QueryAll(row, selAnyCell)
	if len(cells) < 2 {
		return nil
	}

	var cellTexts []string
	for _, cell := range cells {
		cellTexts = append(cellTexts, nodeText(cell))
	}
	text := strings.Join(cellTexts, " ")

	mac := macAddrRe.FindString(text)
	if mac == "" {
		return nil
	}

	dev := &MeshDevice{
		MACAddress: canonicalMAC(mac),
		Status:     MeshStatusOnline,
	}

	if first := cellTexts[0]; !macAddrRe.MatchString(first) {
		dev.Name = first
	}
	for _, cellText := range cellTexts {
		if m := ipAddrRe.FindStringSubmatch(cellText); m != nil {
			dev.IPAddress = m[1]
			break
		}
	}
	if m := rowModelRe.FindStringSubmatch(text); m != nil {
		dev.Model = m[1]
	}
	if m := fwShortRe.FindStringSubmatch(text); m != nil {
		dev.FirmwareVersion = m[1]
	}
	return dev
}

// extractMeshFromScript finds satellite units in JSON arrays embedded in
// the page's scripts.
func extractMeshFromScript(inputHTML string) []*MeshDevice {
	var devices []*MeshDevice
	for _, pattern := range meshScriptPats {
		m := pattern.FindStringSubmatch(inputHTML)
		if m == nil {
			continue
		}
		parsed, err := gabs.ParseJSON([]byte(m[1]))
		if err != nil {
			continue
		}
		for _, item := range parsed.Children() {
			mac := firstString(item, "mac", "mac_address", "macAddress")
			if mac == "" {
				continue
			}
			status := firstString(item, "status")
			if status == "" {
				status = MeshStatusOnline
			}
			devices = append(devices, &MeshDevice{
				MACAddress:      canonicalMAC(mac),
				Name:            firstString(item, "name", "hostname"),
				Model:           firstString(item, "model", "device_model"),
				FirmwareVersion: firstString(item, "firmware", "fw_version", "version"),
				Status:          status,
				IPAddress:       firstString(item, "ip", "ip_address"),
			})
		}
	}
	return devices
}

// MeshClientInfo holds the per-client facts scraped from the devstatus
// and devlist detail pages.
type MeshClientInfo struct {
	Model            string
	Name             string
	IPAddress        string
	MACAddress       string
	FirmwareVersion  string
	Backhaul         string
	ConnectedDevices int
	Status           string
}

// ParseMeshClientStatus extracts one satellite's detail from its
// devstatus page, plus its connected-client count from the devlist page.
// Returns nil when the pages carry nothing meaningful.
func ParseMeshClientStatus(devstatusHTML, devlistHTML string) *MeshClientInfo {
	if devstatusHTML == "" {
		return nil
	}

	info := &MeshClientInfo{Status: MeshStatusOnline}

	doc, err := html.Parse(strings.NewReader(devstatusHTML))
	if err != nil {
		return nil
	}

	// Rows pair a cbi-table-N-content label div with a cbi-table-N-data
	// value div.
	for _, row := range cascadia.QueryAll(doc, selRow) {
		labelDiv := findByID(row, statusContentRe)
		valueDiv := findByID(row, statusDataRe)
		if labelDiv == nil || valueDiv == nil {
			continue
		}
		label := strings.ToLower(nodeText(labelDiv))
		value := nodeText(valueDiv)

		switch label {
		case "model":
			info.Model = value
		case "device name", "name":
			info.Name = value
		case "ip address", "ip-address", "ipaddress":
			info.IPAddress = value
		case "mac-address", "mac address", "macaddress":
			info.MACAddress = strings.ToUpper(value)
		case "firmware version", "firmware":
			info.FirmwareVersion = value
		case "backhaul":
			info.Backhaul = value
		case "status":
			lower := strings.ToLower(value)
			if strings.Contains(lower, "online") {
				info.Status = MeshStatusOnline
			} else if strings.Contains(lower, "offline") {
				info.Status = MeshStatusOffline
			}
		}
	}

	if devlistHTML != "" {
		if listDoc, err := html.Parse(strings.NewReader(devlistHTML)); err == nil {
			for _, row := range cascadia.QueryAll(listDoc, selRow) {
				if devRowIDRe.MatchString(attrVal(row, "id")) {
					info.ConnectedDevices++
				}
			}
		}
	}

	if info.Name == "" && info.MACAddress == "" && info.Model == "" && info.ConnectedDevices == 0 {
		return nil
	}
	return info
}

func firstString(item *gabs.Container, paths ...string) string {
	for _, path := range paths {
		if s, ok := item.Path(path).Data().(string); ok && s != "" {
			return s
		}
	}
	return ""
}
