package scraper

// ParseVPNStatus parses the VPN server status page.
func ParseVPNStatus(inputHTML string) Module {
	raw := ParseTables(inputHTML)

	return Module{
		"protocol":    {Value: strOrNil(raw["Protocol"])},
		"vpn_clients": {Value: strOrNil(raw["Devices"])},
	}
}

// ParseWANStatus parses the WAN status page. Values run through
// cleanText since wired-WAN firmware masks parts of addresses with
// asterisks and renders dash placeholders for unset fields.
func ParseWANStatus(inputHTML string) Module {
	raw := ParseTables(inputHTML)

	sessionUpload, sessionDownload := uploadDownloadValues(
		pickFirst(raw, "Upload / Download", "Upload/Download", "Upload/Down"))

	var connectedTime *float64
	if ct := pickFirst(raw, "Connected Time", "Connect Time", "Connection Time"); ct != "" {
		connectedTime = SecondsDuration(ct)
	}

	return Module{
		"protocol":         {Value: strVal(cleanText(pickFirst(raw, "Protocol", "Connection Type", "WAN Protocol")))},
		"connected_time":   {Value: numVal(connectedTime)},
		"mac_address":      {Value: strVal(cleanText(pickFirst(raw, "MAC-Address", "MAC Address", "WAN MAC")))},
		"public_ip":        {Value: strVal(cleanText(pickFirst(raw, "Public IP", "Public IPv4", "WAN Public IP")))},
		"wan_ip":           {Value: strVal(cleanText(pickFirst(raw, "IP Address", "WAN IP", "IP")))},
		"subnet_mask":      {Value: strVal(cleanText(pickFirst(raw, "Subnet Mask", "Subnet", "Netmask", "Mask")))},
		"gateway":          {Value: strVal(cleanText(pickFirst(raw, "Gateway", "Default Gateway")))},
		"dns":              {Value: strVal(cleanText(pickFirst(raw, "DNS", "Preferred DNS", "Primary DNS")))},
		"session_upload":   {Value: numVal(sessionUpload)},
		"session_download": {Value: numVal(sessionDownload)},
	}
}

// ParseDHCPStatus parses the DHCP server status page.
func ParseDHCPStatus(inputHTML string) Module {
	raw := ParseTables(inputHTML)

	return Module{
		"dhcp_ip_start":        {Value: strVal(cleanText(pickFirst(raw, "IP Start", "Start IP")))},
		"dhcp_ip_end":          {Value: strVal(cleanText(pickFirst(raw, "IP End", "End IP")))},
		"dhcp_prefered_dns":    {Value: strVal(cleanText(pickFirst(raw, "Preferred DNS", "DNS", "Primary DNS")))},
		"dhcp_default_gateway": {Value: strVal(cleanText(pickFirst(raw, "Default Gateway", "Gateway")))},
		"dhcp_leasetime":       {Value: strVal(cleanText(pickFirst(raw, "Leasetime", "Lease Time")))},
	}
}
