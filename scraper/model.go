package scraper

// Module names. A module is present in a snapshot iff the feature matrix
// marks it supported for the router model being polled; absence of a
// module is distinct from a module with all-nil fields.
const (
	ModuleModem     = "modem"
	ModuleDevices   = "devices"
	ModuleSystem    = "system"
	ModuleDataUsage = "data_usage"
	ModuleSMS       = "sms"
	ModuleWifi2G    = "wifi_2g"
	ModuleWifi5G    = "wifi_5g"
	ModuleLAN       = "lan"
	ModuleMesh      = "mesh"
	ModuleVPN       = "vpn"
	ModuleWAN       = "wan"
	ModuleDHCP      = "dhcp"
)

// StateUnavailable marks a field whose source element exists but carries
// no readable value, as opposed to a nil Value which means the page did
// not expose the field at all.
const StateUnavailable = "unavailable"

// Field is a single normalized data point scraped from a status page.
// Value is a scalar (float64, int, string, bool), a nested device map
// for the two list-valued fields, or nil when the source page did not
// expose the field. Attributes carry secondary facts that ride along
// with the primary value (per-carrier sub-bands, cell decomposition).
type Field struct {
	Value      any
	Attributes map[string]any
}

// Module maps field keys to parsed values for one router subsystem.
type Module map[string]Field

// Snapshot is the result of one poll cycle: one Module per supported
// subsystem.
type Snapshot map[string]Module

// Options control optional data-collection behavior.
type Options struct {
	// DeviceList is a comma-separated list of MAC addresses or hostnames
	// whose per-device details should be surfaced under the devices
	// module's "detailed" field.
	DeviceList string
}

// Device is one connected client from the devices list page. Devices are
// reconstructed fresh every poll; there is no identity across polls.
type Device struct {
	Hostname      string
	IP            string
	MAC           string
	UpSpeedMbps   *float64
	DownSpeedMbps *float64
}

// Mesh device status values.
const (
	MeshStatusOnline  = "online"
	MeshStatusOffline = "offline"
)

// MeshDevice is one satellite unit of a mesh network, merged from the
// scraped mesh pages, the clients JSON endpoint and the per-client
// detail pages.
type MeshDevice struct {
	// MACAddress is the primary key, canonical colon-separated
	// upper-hex. Satellites whose panels expose no MAC get a
	// deterministic pseudo-MAC derived from their display name.
	MACAddress       string
	Name             string
	Model            string
	FirmwareVersion  string
	IPAddress        string
	Status           string
	Backhaul         string
	ConnectedDevices int
	LEDStatus        string

	// synthetic records carry a pseudo-MAC; they are replaced in place
	// when a real-MAC record with the same display name shows up.
	synthetic bool
}
