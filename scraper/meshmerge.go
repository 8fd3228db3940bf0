package scraper

import (
	"context"
	"regexp"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"github.com/go-kit/log/level"
)

// Reconciliation of the mesh picture from its three sources: the
// topology HTML, the clients JSON endpoint and the per-client detail
// pages. JSON fields win over HTML fields except connected_devices,
// which only the devlist page knows.

const mainRouterClientID = "000000000000"

var (
	jsonArrayRe   = regexp.MustCompile(`(?s)\[.*\]`)
	tabMACRe      = regexp.MustCompile(`tab-([0-9A-Fa-f]{12})-`)
	clientParamRe = regexp.MustCompile(`client=([0-9A-Fa-f]{12})`)
)

// formatMAC renders a bare 12-hex client id as canonical
// colon-separated upper hex.
func formatMAC(id string) string {
	id = strings.ToUpper(id)
	parts := make([]string, 0, 6)
	for i := 0; i+2 <= len(id); i += 2 {
		parts = append(parts, id[i:i+2])
	}
	return strings.Join(parts, ":")
}

// parseMeshClientsJSON parses the clients endpoint's JSON array into
// per-client records keyed by formatted MAC, plus the raw client ids in
// order of appearance. The payload is embedded in a page on some
// firmware, so the array is located by regex before parsing.
func parseMeshClientsJSON(raw string) (map[string]*MeshDevice, []string) {
	records := map[string]*MeshDevice{}
	var ids []string

	if raw == "" {
		return records, ids
	}
	arr := jsonArrayRe.FindString(raw)
	if arr == "" {
		return records, ids
	}
	parsed, err := gabs.ParseJSON([]byte(arr))
	if err != nil {
		return records, ids
	}

	for _, client := range parsed.Children() {
		id, _ := client.Path("id").Data().(string)
		if id == "" {
			continue
		}
		ids = append(ids, id)

		mac := formatMAC(id)
		hardware, _ := client.Path("sysreport.hardware").Data().(string)
		model := ""
		if hardware != "" {
			model = strings.SplitN(hardware, " ", 2)[0]
		} else {
			model = firstString(client, "sysreport.board", "sysreport.model")
		}

		status := MeshStatusOffline
		if state, _ := client.Path("state").Data().(string); state == "connected" {
			status = MeshStatusOnline
		}

		name, _ := client.Path("name").Data().(string)
		firmware, _ := client.Path("sysreport.firmware").Data().(string)
		ip, _ := client.Path("sysreport.ipaddr").Data().(string)
		led, _ := client.Path("sysreport.ledstatus").Data().(string)

		records[mac] = &MeshDevice{
			MACAddress:      mac,
			Name:            name,
			Model:           model,
			FirmwareVersion: firmware,
			IPAddress:       ip,
			Status:          status,
			LEDStatus:       led,
		}
	}
	return records, ids
}

// mergeClientInfo folds the HTML detail into a JSON-seeded record. HTML
// only fills fields the JSON left empty; the connected-devices count
// always comes from the devlist page.
func mergeClientInfo(dst *MeshDevice, info *MeshClientInfo) {
	dst.ConnectedDevices = info.ConnectedDevices

	if dst.Model == "" || dst.Model == "Unknown" {
		dst.Model = info.Model
	}
	if dst.Name == "" || dst.Name == "Unknown" {
		dst.Name = info.Name
	}
	if dst.IPAddress == "" {
		dst.IPAddress = info.IPAddress
	}
	if dst.FirmwareVersion == "" {
		dst.FirmwareVersion = info.FirmwareVersion
	}
	if dst.Backhaul == "" {
		dst.Backhaul = info.Backhaul
	}
	if dst.Status == "" {
		dst.Status = info.Status
	}
}

// foldClientInfo merges one reconciled client record into the topology
// page's device map. A MAC match updates the existing record in place;
// failing that, a display-name match against a synthesized record
// replaces its pseudo-MAC key with the real one; otherwise the record
// is added fresh.
func foldClientInfo(page *meshPage, clientID string, info *MeshDevice) {
	formatted := formatMAC(clientID)
	bare := strings.ToUpper(clientID)

	for mac, dev := range page.Devices {
		if strings.ReplaceAll(mac, ":", "") == bare {
			applyClientInfo(dev, info)
			return
		}
	}

	for mac, dev := range page.Devices {
		if dev.synthetic && dev.Name != "" && strings.EqualFold(dev.Name, info.Name) {
			delete(page.Devices, mac)
			page.Devices[formatted] = info
			return
		}
	}

	page.Devices[formatted] = info
}

// applyClientInfo overwrites a topology record's fields with the richer
// reconciled values, keeping whatever the reconciliation did not learn.
func applyClientInfo(dst *MeshDevice, src *MeshDevice) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.FirmwareVersion != "" {
		dst.FirmwareVersion = src.FirmwareVersion
	}
	if src.IPAddress != "" {
		dst.IPAddress = src.IPAddress
	}
	if src.Status != "" {
		dst.Status = src.Status
	}
	if src.Backhaul != "" {
		dst.Backhaul = src.Backhaul
	}
	if src.LEDStatus != "" {
		dst.LEDStatus = src.LEDStatus
	}
	dst.ConnectedDevices = src.ConnectedDevices
	dst.synthetic = false
}

// meshEndpoints are probed in order; responses carrying mesh markers
// are concatenated, since different firmware builds split the topology
// across different pages.
var meshEndpoints = []string{
	"admin/network/mesh/status",
	"admin/network/mesh",
	"admin/network/mesh/topology",
	"admin/network/mesh/nodes",
	"admin/easymesh/status",
	"admin/easymesh",
}

// collectMesh assembles the mesh module: topology HTML first, then the
// clients JSON and one devstatus/devlist fetch per satellite.
func (s *Scraper) collectMesh(ctx context.Context) Module {
	var meshHTML strings.Builder
	for _, endpoint := range meshEndpoints {
		result := s.Get(ctx, endpoint, true)
		if result == "" {
			continue
		}
		lower := strings.ToLower(result)
		if strings.Contains(lower, "mesh") || strings.Contains(lower, "node") || strings.Contains(lower, "satellite") {
			meshHTML.WriteString(result)
			level.Debug(s.Logger).Log("msg", "found mesh data", "endpoint", endpoint, "length", len(result))
		}
	}

	page := parseMeshDevices(meshHTML.String())

	clientsRaw := s.Get(ctx, "admin/network/mesh/clients?clients=all", true)
	jsonClients, clientIDs := parseMeshClientsJSON(clientsRaw)

	for _, m := range tabMACRe.FindAllStringSubmatch(meshHTML.String(), -1) {
		clientIDs = append(clientIDs, m[1])
	}
	for _, m := range clientParamRe.FindAllStringSubmatch(meshHTML.String(), -1) {
		clientIDs = append(clientIDs, m[1])
	}

	seen := map[string]bool{}
	for _, clientID := range clientIDs {
		if len(clientID) != 12 {
			continue
		}
		upper := strings.ToUpper(clientID)
		if seen[upper] {
			continue
		}
		seen[upper] = true

		// The reserved all-zero id is the main router itself; it only
		// contributes its LED state.
		if upper == mainRouterClientID {
			if main, ok := jsonClients[formatMAC(clientID)]; ok {
				page.MainRouterLED = main.LEDStatus
			}
			continue
		}

		formatted := formatMAC(clientID)

		var info *MeshDevice
		if jsonDev, ok := jsonClients[formatted]; ok {
			clone := *jsonDev
			info = &clone
		} else {
			info = &MeshDevice{MACAddress: formatted, Status: MeshStatusOnline}
		}

		devstatusHTML := s.Get(ctx, "admin/network/mesh/client/devstatus?embedded=&client="+clientID, true)
		devlistHTML := s.Get(ctx, "admin/network/mesh/client/devlist?embedded=&client="+clientID, true)
		if htmlInfo := ParseMeshClientStatus(devstatusHTML, devlistHTML); htmlInfo != nil {
			mergeClientInfo(info, htmlInfo)
		}

		if info.Name == "" {
			info.Name = "Mesh Device " + upper[len(upper)-6:]
		}
		info.MACAddress = formatted

		foldClientInfo(&page, clientID, info)
	}

	module := Module{
		"mesh_count":   {Value: page.Count},
		"mesh_devices": {Value: page.Devices},
	}
	if page.MainRouterName != "" {
		module["main_router_name"] = Field{Value: page.MainRouterName}
	}
	if page.MainRouterLED != "" {
		module["main_router_led_status"] = Field{Value: page.MainRouterLED}
	}
	return module
}
