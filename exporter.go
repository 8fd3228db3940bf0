package main

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/brundin/cudy-stats-exporter/scraper"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cudy_router"

type Exporter struct {
	mu sync.Mutex

	s       *scraper.Scraper
	model   string
	opts    scraper.Options
	timeout time.Duration

	// Exporter metrics.
	totalScrapes prometheus.Counter
	scrapeErrors prometheus.Counter

	// Modem metrics.
	modemSignal          *prometheus.Desc
	modemRSSI            *prometheus.Desc
	modemRSRP            *prometheus.Desc
	modemRSRQ            *prometheus.Desc
	modemSINR            *prometheus.Desc
	modemConnectedTime   *prometheus.Desc
	modemSessionUpload   *prometheus.Desc
	modemSessionDownload *prometheus.Desc
	modemInfo            *prometheus.Desc

	// Devices metrics.
	deviceCount         *prometheus.Desc
	totalDownSpeed      *prometheus.Desc
	totalUpSpeed        *prometheus.Desc
	topDownloaderSpeed  *prometheus.Desc
	topUploaderSpeed    *prometheus.Desc
	clientsByCategory   *prometheus.Desc
	detailedDeviceSpeed *prometheus.Desc

	// System metrics.
	systemUptime *prometheus.Desc
	systemInfo   *prometheus.Desc

	// Data usage metrics.
	trafficMegabytes *prometheus.Desc

	// SMS metrics.
	smsCount *prometheus.Desc

	// WiFi metrics.
	wifiEnabled *prometheus.Desc
	wifiInfo    *prometheus.Desc

	// LAN, VPN and DHCP info metrics.
	lanInfo  *prometheus.Desc
	vpnInfo  *prometheus.Desc
	dhcpInfo *prometheus.Desc

	// WAN metrics.
	wanConnectedTime   *prometheus.Desc
	wanSessionUpload   *prometheus.Desc
	wanSessionDownload *prometheus.Desc
	wanInfo            *prometheus.Desc

	// Mesh metrics.
	meshCount            *prometheus.Desc
	meshDeviceUp         *prometheus.Desc
	meshDeviceClients    *prometheus.Desc
}

func NewExporter(s *scraper.Scraper, model string, opts scraper.Options, timeout time.Duration) *Exporter {
	return &Exporter{
		s:       s,
		model:   model,
		opts:    opts,
		timeout: timeout,

		totalScrapes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_scrapes_total",
			Help:      "Total number of scrapes of the router status pages.",
		}),
		scrapeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_scrape_errors_total",
			Help:      "Total number of scrapes that yielded no modules at all.",
		}),

		modemSignal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "modem", "signal_bars"),
			"Signal strength bucketed into 0-4 bars.",
			nil, nil,
		),
		modemRSSI: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "modem", "rssi_dbm"),
			"Modem RSSI.",
			nil, nil,
		),
		modemRSRP: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "modem", "rsrp_dbm"),
			"Modem RSRP.",
			nil, nil,
		),
		modemRSRQ: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "modem", "rsrq_db"),
			"Modem RSRQ.",
			nil, nil,
		),
		modemSINR: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "modem", "sinr_db"),
			"Modem SINR.",
			nil, nil,
		),
		modemConnectedTime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "modem", "connected_seconds"),
			"Seconds since the cellular connection was established.",
			nil, nil,
		),
		modemSessionUpload: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "modem", "session_upload_megabytes"),
			"Megabytes uploaded in the current session.",
			nil, nil,
		),
		modemSessionDownload: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "modem", "session_download_megabytes"),
			"Megabytes downloaded in the current session.",
			nil, nil,
		),
		modemInfo: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "modem", "info"),
			"Modem connection info.",
			[]string{"network", "sim", "band", "cell"}, nil,
		),

		deviceCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "devices", "connected_total"),
			"Number of connected client devices.",
			nil, nil,
		),
		totalDownSpeed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "devices", "total_down_speed_mbps"),
			"Summed download speed over all clients.",
			nil, nil,
		),
		totalUpSpeed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "devices", "total_up_speed_mbps"),
			"Summed upload speed over all clients.",
			nil, nil,
		),
		topDownloaderSpeed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "devices", "top_downloader_speed_mbps"),
			"Download speed of the busiest client.",
			[]string{"mac", "hostname"}, nil,
		),
		topUploaderSpeed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "devices", "top_uploader_speed_mbps"),
			"Upload speed of the busiest client.",
			[]string{"mac", "hostname"}, nil,
		),
		clientsByCategory: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "devices", "clients"),
			"Connected clients per access category.",
			[]string{"category"}, nil,
		),
		detailedDeviceSpeed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "devices", "tracked_speed_mbps"),
			"Per-direction speed of explicitly tracked devices.",
			[]string{"device", "mac", "hostname", "direction"}, nil,
		),

		systemUptime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "system", "uptime_seconds"),
			"Router uptime.",
			nil, nil,
		),
		systemInfo: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "system", "info"),
			"Router firmware info.",
			[]string{"firmware_version"}, nil,
		),

		trafficMegabytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "data_usage", "traffic_megabytes"),
			"Cellular traffic per accounting window.",
			[]string{"window"}, nil,
		),

		smsCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sms", "messages"),
			"SMS message counts per box.",
			[]string{"box"}, nil,
		),

		wifiEnabled: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wifi", "enabled"),
			"Whether the radio is enabled.",
			[]string{"radio"}, nil,
		),
		wifiInfo: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wifi", "info"),
			"Radio configuration info.",
			[]string{"radio", "ssid", "channel"}, nil,
		),

		lanInfo: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "lan", "info"),
			"LAN interface info.",
			[]string{"ip", "mac"}, nil,
		),
		vpnInfo: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "vpn", "info"),
			"VPN server info.",
			[]string{"protocol", "clients"}, nil,
		),
		dhcpInfo: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "dhcp", "info"),
			"DHCP server configuration info.",
			[]string{"ip_start", "ip_end", "dns", "gateway", "leasetime"}, nil,
		),

		wanConnectedTime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wan", "connected_seconds"),
			"Seconds since the WAN connection was established.",
			nil, nil,
		),
		wanSessionUpload: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wan", "session_upload_megabytes"),
			"Megabytes uploaded over the WAN in the current session.",
			nil, nil,
		),
		wanSessionDownload: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wan", "session_download_megabytes"),
			"Megabytes downloaded over the WAN in the current session.",
			nil, nil,
		),
		wanInfo: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wan", "info"),
			"WAN connection info.",
			[]string{"protocol", "public_ip", "wan_ip", "gateway"}, nil,
		),

		meshCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "mesh", "satellites"),
			"Number of mesh satellite units.",
			nil, nil,
		),
		meshDeviceUp: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "mesh", "device_up"),
			"Whether a mesh satellite is online.",
			[]string{"mac", "name", "model"}, nil,
		),
		meshDeviceClients: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "mesh", "device_connected_clients"),
			"Clients connected through a mesh satellite.",
			[]string{"mac", "name"}, nil,
		),
	}
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.totalScrapes.Desc()
	ch <- e.scrapeErrors.Desc()

	ch <- e.modemSignal
	ch <- e.modemRSSI
	ch <- e.modemRSRP
	ch <- e.modemRSRQ
	ch <- e.modemSINR
	ch <- e.modemConnectedTime
	ch <- e.modemSessionUpload
	ch <- e.modemSessionDownload
	ch <- e.modemInfo

	ch <- e.deviceCount
	ch <- e.totalDownSpeed
	ch <- e.totalUpSpeed
	ch <- e.topDownloaderSpeed
	ch <- e.topUploaderSpeed
	ch <- e.clientsByCategory
	ch <- e.detailedDeviceSpeed

	ch <- e.systemUptime
	ch <- e.systemInfo
	ch <- e.trafficMegabytes
	ch <- e.smsCount
	ch <- e.wifiEnabled
	ch <- e.wifiInfo
	ch <- e.lanInfo
	ch <- e.vpnInfo
	ch <- e.dhcpInfo
	ch <- e.wanConnectedTime
	ch <- e.wanSessionUpload
	ch <- e.wanSessionDownload
	ch <- e.wanInfo
	ch <- e.meshCount
	ch <- e.meshDeviceUp
	ch <- e.meshDeviceClients
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.totalScrapes.Inc()

	// One deadline bounds the whole poll cycle; a router that stalls
	// mid-cycle degrades to empty fields instead of holding the scrape.
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	data := e.s.GetData(ctx, e.opts, e.model)
	if len(data) == 0 || ctx.Err() != nil {
		e.scrapeErrors.Inc()
	}

	e.collectModem(ch, data[scraper.ModuleModem])
	e.collectDevices(ch, data[scraper.ModuleDevices])
	e.collectSystem(ch, data[scraper.ModuleSystem])
	e.collectDataUsage(ch, data[scraper.ModuleDataUsage])
	e.collectSMS(ch, data[scraper.ModuleSMS])
	e.collectWifi(ch, "2g", data[scraper.ModuleWifi2G])
	e.collectWifi(ch, "5g", data[scraper.ModuleWifi5G])
	e.collectLAN(ch, data[scraper.ModuleLAN])
	e.collectVPN(ch, data[scraper.ModuleVPN])
	e.collectDHCP(ch, data[scraper.ModuleDHCP])
	e.collectWAN(ch, data[scraper.ModuleWAN])
	e.collectMesh(ch, data[scraper.ModuleMesh])

	e.totalScrapes.Collect(ch)
	e.scrapeErrors.Collect(ch)
}

func (e *Exporter) collectModem(ch chan<- prometheus.Metric, m scraper.Module) {
	if m == nil {
		return
	}

	if v, ok := fieldNumber(m, "signal"); ok {
		ch <- prometheus.MustNewConstMetric(e.modemSignal, prometheus.GaugeValue, v)
	}
	if v, ok := fieldNumber(m, "rssi"); ok {
		ch <- prometheus.MustNewConstMetric(e.modemRSSI, prometheus.GaugeValue, v)
	}
	if v, ok := fieldNumber(m, "rsrp"); ok {
		ch <- prometheus.MustNewConstMetric(e.modemRSRP, prometheus.GaugeValue, v)
	}
	if v, ok := fieldNumber(m, "rsrq"); ok {
		ch <- prometheus.MustNewConstMetric(e.modemRSRQ, prometheus.GaugeValue, v)
	}
	if v, ok := fieldNumber(m, "sinr"); ok {
		ch <- prometheus.MustNewConstMetric(e.modemSINR, prometheus.GaugeValue, v)
	}
	if v, ok := fieldNumber(m, "connected_time"); ok {
		ch <- prometheus.MustNewConstMetric(e.modemConnectedTime, prometheus.GaugeValue, v)
	}
	if v, ok := fieldNumber(m, "session_upload"); ok {
		ch <- prometheus.MustNewConstMetric(e.modemSessionUpload, prometheus.GaugeValue, v)
	}
	if v, ok := fieldNumber(m, "session_download"); ok {
		ch <- prometheus.MustNewConstMetric(e.modemSessionDownload, prometheus.GaugeValue, v)
	}

	ch <- prometheus.MustNewConstMetric(e.modemInfo, prometheus.GaugeValue, 1,
		fieldString(m, "network"),
		fieldString(m, "sim"),
		fieldString(m, "band"),
		fieldString(m, "cell"),
	)
}

func (e *Exporter) collectDevices(ch chan<- prometheus.Metric, m scraper.Module) {
	if m == nil {
		return
	}

	if v, ok := fieldNumber(m, "device_count"); ok {
		ch <- prometheus.MustNewConstMetric(e.deviceCount, prometheus.GaugeValue, v)
	}
	if v, ok := fieldNumber(m, "total_down_speed"); ok {
		ch <- prometheus.MustNewConstMetric(e.totalDownSpeed, prometheus.GaugeValue, v)
	}
	if v, ok := fieldNumber(m, "total_up_speed"); ok {
		ch <- prometheus.MustNewConstMetric(e.totalUpSpeed, prometheus.GaugeValue, v)
	}
	if v, ok := fieldNumber(m, "top_downloader_speed"); ok {
		ch <- prometheus.MustNewConstMetric(e.topDownloaderSpeed, prometheus.GaugeValue, v,
			fieldString(m, "top_downloader_mac"), fieldString(m, "top_downloader_hostname"))
	}
	if v, ok := fieldNumber(m, "top_uploader_speed"); ok {
		ch <- prometheus.MustNewConstMetric(e.topUploaderSpeed, prometheus.GaugeValue, v,
			fieldString(m, "top_uploader_mac"), fieldString(m, "top_uploader_hostname"))
	}

	for key, category := range map[string]string{
		"wifi_2g_clients": "wifi_2g",
		"wifi_5g_clients": "wifi_5g",
		"wired_clients":   "wired",
		"total_clients":   "total",
	} {
		if v, ok := fieldNumber(m, key); ok {
			ch <- prometheus.MustNewConstMetric(e.clientsByCategory, prometheus.GaugeValue, v, category)
		}
	}

	if detailed, ok := m["detailed"].Value.(map[string]scraper.Device); ok {
		for name, dev := range detailed {
			if dev.DownSpeedMbps != nil {
				ch <- prometheus.MustNewConstMetric(e.detailedDeviceSpeed, prometheus.GaugeValue,
					*dev.DownSpeedMbps, name, dev.MAC, dev.Hostname, "down")
			}
			if dev.UpSpeedMbps != nil {
				ch <- prometheus.MustNewConstMetric(e.detailedDeviceSpeed, prometheus.GaugeValue,
					*dev.UpSpeedMbps, name, dev.MAC, dev.Hostname, "up")
			}
		}
	}
}

func (e *Exporter) collectSystem(ch chan<- prometheus.Metric, m scraper.Module) {
	if m == nil {
		return
	}

	if v, ok := fieldNumber(m, "uptime"); ok {
		ch <- prometheus.MustNewConstMetric(e.systemUptime, prometheus.GaugeValue, v)
	}
	ch <- prometheus.MustNewConstMetric(e.systemInfo, prometheus.GaugeValue, 1,
		fieldString(m, "firmware_version"))
}

func (e *Exporter) collectDataUsage(ch chan<- prometheus.Metric, m scraper.Module) {
	if m == nil {
		return
	}

	for key, window := range map[string]string{
		"current_traffic": "current",
		"monthly_traffic": "monthly",
		"total_traffic":   "total",
	} {
		if v, ok := fieldNumber(m, key); ok {
			ch <- prometheus.MustNewConstMetric(e.trafficMegabytes, prometheus.GaugeValue, v, window)
		}
	}
}

func (e *Exporter) collectSMS(ch chan<- prometheus.Metric, m scraper.Module) {
	if m == nil {
		return
	}

	for key, box := range map[string]string{
		"inbox_count":  "inbox",
		"outbox_count": "outbox",
		"unread_count": "unread",
	} {
		if v, ok := fieldNumber(m, key); ok {
			ch <- prometheus.MustNewConstMetric(e.smsCount, prometheus.GaugeValue, v, box)
		}
	}
}

func (e *Exporter) collectWifi(ch chan<- prometheus.Metric, radio string, m scraper.Module) {
	if m == nil {
		return
	}

	enabled := 0.0
	if on, ok := m["enabled"].Value.(bool); ok && on {
		enabled = 1
	}
	ch <- prometheus.MustNewConstMetric(e.wifiEnabled, prometheus.GaugeValue, enabled, radio)
	ch <- prometheus.MustNewConstMetric(e.wifiInfo, prometheus.GaugeValue, 1,
		radio, fieldString(m, "ssid"), fieldString(m, "channel"))
}

func (e *Exporter) collectLAN(ch chan<- prometheus.Metric, m scraper.Module) {
	if m == nil {
		return
	}

	ch <- prometheus.MustNewConstMetric(e.lanInfo, prometheus.GaugeValue, 1,
		fieldString(m, "ip_address"),
		fieldString(m, "mac_address"),
	)
}

func (e *Exporter) collectVPN(ch chan<- prometheus.Metric, m scraper.Module) {
	if m == nil {
		return
	}

	ch <- prometheus.MustNewConstMetric(e.vpnInfo, prometheus.GaugeValue, 1,
		fieldString(m, "protocol"),
		fieldString(m, "vpn_clients"),
	)
}

func (e *Exporter) collectDHCP(ch chan<- prometheus.Metric, m scraper.Module) {
	if m == nil {
		return
	}

	ch <- prometheus.MustNewConstMetric(e.dhcpInfo, prometheus.GaugeValue, 1,
		fieldString(m, "dhcp_ip_start"),
		fieldString(m, "dhcp_ip_end"),
		fieldString(m, "dhcp_prefered_dns"),
		fieldString(m, "dhcp_default_gateway"),
		fieldString(m, "dhcp_leasetime"),
	)
}

func (e *Exporter) collectWAN(ch chan<- prometheus.Metric, m scraper.Module) {
	if m == nil {
		return
	}

	if v, ok := fieldNumber(m, "connected_time"); ok {
		ch <- prometheus.MustNewConstMetric(e.wanConnectedTime, prometheus.GaugeValue, v)
	}
	if v, ok := fieldNumber(m, "session_upload"); ok {
		ch <- prometheus.MustNewConstMetric(e.wanSessionUpload, prometheus.GaugeValue, v)
	}
	if v, ok := fieldNumber(m, "session_download"); ok {
		ch <- prometheus.MustNewConstMetric(e.wanSessionDownload, prometheus.GaugeValue, v)
	}
	ch <- prometheus.MustNewConstMetric(e.wanInfo, prometheus.GaugeValue, 1,
		fieldString(m, "protocol"),
		fieldString(m, "public_ip"),
		fieldString(m, "wan_ip"),
		fieldString(m, "gateway"),
	)
}

func (e *Exporter) collectMesh(ch chan<- prometheus.Metric, m scraper.Module) {
	if m == nil {
		return
	}

	if v, ok := fieldNumber(m, "mesh_count"); ok {
		ch <- prometheus.MustNewConstMetric(e.meshCount, prometheus.GaugeValue, v)
	}

	devices, ok := m["mesh_devices"].Value.(map[string]*scraper.MeshDevice)
	if !ok {
		return
	}
	for mac, dev := range devices {
		up := 0.0
		if dev.Status == scraper.MeshStatusOnline {
			up = 1
		}
		ch <- prometheus.MustNewConstMetric(e.meshDeviceUp, prometheus.GaugeValue, up,
			mac, dev.Name, dev.Model)
		ch <- prometheus.MustNewConstMetric(e.meshDeviceClients, prometheus.GaugeValue,
			float64(dev.ConnectedDevices), mac, dev.Name)
	}
}

// fieldNumber reads a numeric field value; nil values and the
// "unavailable" sentinel report false.
func fieldNumber(m scraper.Module, key string) (float64, bool) {
	switch v := m[key].Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func fieldString(m scraper.Module, key string) string {
	switch v := m[key].Value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	}
	return ""
}
