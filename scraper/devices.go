package scraper

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var selCellDiv = cascadia.MustCompile("td div")

// parseAllDevices extracts the connected-client list from the device
// list page. Each client row packs its values into id-suffixed divs
// whose mobile-view paragraph holds two lines separated by a <br>.
func parseAllDevices(inputHTML string) []Device {
	var devices []Device
	if inputHTML == "" {
		return devices
	}
	doc, err := html.Parse(strings.NewReader(inputHTML))
	if err != nil {
		return devices
	}

	for _, table := range cascadia.QueryAll(doc, selTable) {
		for _, row := range cascadia.QueryAll(table, selRow) {
			var dev Device
			for _, div := range cascadia.QueryAll(row, selCellDiv) {
				divID := attrVal(div, "id")
				content := cascadia.Query(div, selMobileCell)
				if divID == "" || content == nil {
					continue
				}
				text := nodeText(content)
				if !strings.Contains(text, "\n") {
					continue
				}
				lines := strings.SplitN(text, "\n", 2)
				switch {
				case strings.HasSuffix(divID, "ipmac"):
					dev.IP = strings.TrimSpace(lines[0])
					dev.MAC = strings.TrimSpace(lines[1])
				case strings.HasSuffix(divID, "speed"):
					dev.UpSpeedMbps = ParseSpeed(strings.TrimSpace(lines[0]))
					dev.DownSpeedMbps = ParseSpeed(strings.TrimSpace(lines[1]))
				case strings.HasSuffix(divID, "hostname"):
					dev.Hostname = strings.TrimSpace(lines[0])
				}
			}
			if dev.MAC != "" || dev.IP != "" {
				devices = append(devices, dev)
			}
		}
	}

	return devices
}

// ParseDevices parses the device list page into the devices module:
// client count, top talkers in both directions, aggregate speeds and a
// detailed entry for each client named in deviceList (comma-separated
// MACs or hostnames).
func ParseDevices(inputHTML, deviceList string) Module {
	devices := parseAllDevices(inputHTML)
	data := Module{"device_count": {Value: len(devices)}}
	if len(devices) == 0 {
		return data
	}

	topDown, topUp := devices[0], devices[0]
	var totalDown, totalUp float64
	for _, dev := range devices {
		if speedOr0(dev.DownSpeedMbps) > speedOr0(topDown.DownSpeedMbps) {
			topDown = dev
		}
		if speedOr0(dev.UpSpeedMbps) > speedOr0(topUp.UpSpeedMbps) {
			topUp = dev
		}
		totalDown += speedOr0(dev.DownSpeedMbps)
		totalUp += speedOr0(dev.UpSpeedMbps)
	}

	data["top_downloader_speed"] = Field{Value: numVal(topDown.DownSpeedMbps)}
	data["top_downloader_mac"] = Field{Value: strOrNil(topDown.MAC)}
	data["top_downloader_hostname"] = Field{Value: strOrNil(topDown.Hostname)}
	data["top_uploader_speed"] = Field{Value: numVal(topUp.UpSpeedMbps)}
	data["top_uploader_mac"] = Field{Value: strOrNil(topUp.MAC)}
	data["top_uploader_hostname"] = Field{Value: strOrNil(topUp.Hostname)}

	wanted := map[string]bool{}
	for _, entry := range strings.Split(deviceList, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			wanted[entry] = true
		}
	}
	detailed := map[string]Device{}
	for _, dev := range devices {
		if wanted[dev.MAC] {
			detailed[dev.MAC] = dev
		}
		if wanted[dev.Hostname] {
			detailed[dev.Hostname] = dev
		}
	}
	data["detailed"] = Field{Value: detailed}

	data["total_down_speed"] = Field{Value: totalDown}
	data["total_up_speed"] = Field{Value: totalUp}
	return data
}

func speedOr0(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
