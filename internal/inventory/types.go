// Package inventory defines core types shared across subsystems.
package inventory

import (
	"strings"
	"time"
)

// Phone is the device record reconciled from AXL metadata and RisPort
// registration state. DeviceName is the identity and is stored upper-cased.
type Phone struct {
	// Registration fields.
	DeviceName       string     `json:"devicename"`
	Firmware         string     `json:"firmware"`
	IPv4             string     `json:"ipv4"`
	FirstSeen        time.Time  `json:"first_seen_reg"`
	LastSeen         time.Time  `json:"last_seen_reg"`
	RegistrationTime time.Time  `json:"registration_time"`
	Cluster          string     `json:"cluster"`
	Protocol         string     `json:"protocol"`
	Model            string     `json:"model"`

	// Metadata fields. Empty when the device had no metadata entry.
	DevicePool  string     `json:"devicepool"`
	DeviceCSS   string     `json:"devicecss"`
	Description string     `json:"description"`
	EMProfile   string     `json:"em_profile"`
	EMLoginTime *time.Time `json:"em_time,omitempty"`
}

// PhoneScrape holds fields extracted from a device's own web pages. Every
// field except DeviceName is optional; absence means the model's pages do not
// expose it, not that extraction failed.
type PhoneScrape struct {
	DeviceName   string `json:"devicename"`
	SerialNumber string `json:"sn"`
	Firmware     string `json:"firmware"`
	DN           string `json:"dn"`
	Model        string `json:"model"`
	KEM1         string `json:"kem1"`
	KEM2         string `json:"kem2"`

	DomainName string `json:"domain_name"`
	DHCPServer string `json:"dhcp_server"`
	DHCP       string `json:"dhcp"`
	IPAddress  string `json:"ip_address"`
	SubnetMask string `json:"subnetmask"`
	Gateway    string `json:"gateway"`
	DNS1       string `json:"dns1"`
	DNS2       string `json:"dns2"`
	AltTFTP    string `json:"alt_tftp"`
	TFTP1      string `json:"tftp1"`
	TFTP2      string `json:"tftp2"`
	OpVLAN     string `json:"op_vlan"`
	AdminVLAN  string `json:"admin_vlan"`

	CUCM1 string `json:"cucm1"`
	CUCM2 string `json:"cucm2"`
	CUCM3 string `json:"cucm3"`
	CUCM4 string `json:"cucm4"`
	CUCM5 string `json:"cucm5"`

	InfoURL     string `json:"info_url"`
	DirURL      string `json:"dir_url"`
	MsgURL      string `json:"msg_url"`
	SvcURL      string `json:"svc_url"`
	IdleURL     string `json:"idle_url"`
	IdleURLTime string `json:"idle_url_time"`
	ProxyURL    string `json:"proxy_url"`
	AuthURL     string `json:"auth_url"`
	TVS         string `json:"tvs"`

	CDPNeighborID    string `json:"cdp_neighbor_id"`
	CDPNeighborIP    string `json:"cdp_neighbor_ip"`
	CDPNeighborPort  string `json:"cdp_neighbor_port"`
	LLDPNeighborID   string `json:"lldp_neighbor_id"`
	LLDPNeighborIP   string `json:"lldp_neighbor_ip"`
	LLDPNeighborPort string `json:"lldp_neighbor_port"`

	ITL            string   `json:"itl"`
	StatusMessages []string `json:"status_messages,omitempty"`

	DateModified time.Time `json:"date_modified"`
}

// JobStatus tracks the last run of a named background job. Result doubles as
// the "still running" sentinel and the final outcome text.
type JobStatus struct {
	JobName       string    `json:"jobname"`
	LastStartTime time.Time `json:"laststarttime"`
	Result        string    `json:"result"`
}

// JobKind identifies a triggerable background job family.
type JobKind string

// Job kinds accepted by the scheduler's manual trigger.
const (
	JobClusterSync JobKind = "cluster-sync"
	JobPhoneScrape JobKind = "phone-scrape"
)

// ScrapeUnit is one device's worth of scrape work placed on the queue.
type ScrapeUnit struct {
	IP    string `json:"ip"`
	Model string `json:"model"`
}

// MetadataEntry is one phone's configuration row returned by the AXL API.
type MetadataEntry struct {
	Name           string
	DevicePool     string
	DeviceCSS      string
	Description    string
	EMProfile      string
	EMLoginEpoch   int64
}

// RegistrationEntry is one phone's live state returned by the RisPort API.
type RegistrationEntry struct {
	Name             string
	Status           string
	ModelCode        string
	ActiveLoadID     string
	IPAddress        string
	Protocol         string
	RegistrationUnix int64
}

// NormalizeDeviceName upper-cases a device name for use as an identity key.
func NormalizeDeviceName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
