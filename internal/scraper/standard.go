package scraper

import (
	"strings"

	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
)

// Label grammars shared by the standard and legacy families. Each rule lists
// the label variants seen across firmware generations; the newer pages wrap
// labels in table cells ("Label_\n_\n_value") while older ones emit
// "Label_value" with mixed capitalization.
var (
	hostnameRe = labeled(`Host Name_\n_\n_`, `Host name_`, `Host Name_`)

	serialRe   = labeled(`Serial Number_\n_\n_`, `Serial number_`, `Serial Number_`)
	versionRe  = labeled(`Version__\n_\n_`, `Version_`)
	phoneDNRe  = labeled(`Phone DN_\n_\n_`, `Phone DN_`)
	modelNoRe  = labeled(`Model Number_\n_\n_`, `Model number_`, `Model Number_`)
	kem1Re     = labeled(`Key expansion module 1_`, `Key Expansion Module 1_`)
	kem2Re     = labeled(`Key expansion module 2_`, `Key Expansion Module 2_`)

	domainNameRe = labeled(`Domain Name_\n_\n_`, `Domain name_`, `Domain Name_`)
	dhcpServerRe = labeled(`DHCP Server_\n_\n_`, `DHCP server_`, `DHCP Server_`)
	dhcpRe       = labeled(`DHCP Enabled_\n_\n_`, `DHCP_`)
	ipAddressRe  = labeled(`IP Address_\n_\n_`, `IP address_`, `IP Address_`)
	subnetRe     = labeled(`Subnet Mask_\n_\n_`, `Subnet mask_`, `Subnet Mask_`)
	gatewayRe    = labeled(`Default Router 1_\n_\n_`, `Default router_`, `Default Router 1_`)
	dns1Re       = labeled(`DNS Server 1_\n_\n_`, `DNS server 1_`, `DNS Server 1_`)
	dns2Re       = labeled(`DNS Server 2_\n_\n_`, `DNS server 2_`, `DNS Server 2_`)
	altTFTPRe    = labeled(`Alternate TFTP_\n_\n_`, `Alternate TFTP_`)
	tftp1Re      = labeled(`TFTP Server 1_\n_\n_`, `TFTP server 1_`, `TFTP Server 1_`, `TFTP Server 1`)
	tftp2Re      = labeled(`TFTP Server 2_\n_\n_`, `TFTP server 2_`, `TFTP Server 2_`, `TFTP Server 2`)
	opVLANRe     = labeled(`Operational VLAN Id_\n_\n_`, `Operational VLAN ID_`, `Operational VLAN Id_`)
	adminVLANRe  = labeled(`Admin. VLAN Id_\n_\n_`, `Admin VLAN ID_`, `Admin VLAN Id_`)

	cucm1Re = labeled(`CUCM server1_`, `Unified CM 1_`, `CallManager 1_\n_\n_`)
	cucm2Re = labeled(`CUCM server2_`, `Unified CM 2_`, `CallManager 2_\n_\n_`)
	cucm3Re = labeled(`CUCM server3_`, `Unified CM 3_`, `CallManager 3_\n_\n_`, `CallManager 3 SRST_\n_\n_`)
	cucm4Re = labeled(`CUCM server4_`, `Unified CM 4_`, `CallManager 4_\n_\n_`, `CallManager 4 SRST_\n_\n_`)
	cucm5Re = labeled(`CUCM server5_`, `Unified CM 5_`, `CallManager 5_\n_\n_`)

	infoURLRe     = labeled(`Information URL_`)
	dirURLRe      = labeled(`Directories URL_`)
	msgURLRe      = labeled(`Messages URL_`)
	svcURLRe      = labeled(`Services URL_`)
	idleURLRe     = labeled(`Idle URL_`)
	idleURLTimeRe = labeled(`Idle URL time_`)
	proxyURLRe    = labeled(`Proxy Server URL_`, `Proxy server URL`)
	authURLRe     = labeled(`Authentication URL_`)
	tvsRe         = labeled(`TVS_`)

	cdpIDRe    = labeled(`Neighbor Device ID_\n_\n_`, `CDP Neighbor device ID_`, `CDP Neighbor Device ID_`)
	cdpIPRe    = labeled(`Neighbor IP Address_\n_\n_`, `CDP Neighbor IP address_`, `CDP Neighbor IP Address_`)
	cdpPortRe  = labeledLoose(`Neighbor Port_\n_\n_`, `CDP Neighbor Port_`, `CDP Neighbor port_`)
	lldpIDRe   = labeled(`LLDP Neighbor Device ID_`, `LLDP Neighbor device ID_`)
	lldpIPRe   = labeled(`LLDP Neighbor IP Address_`, `LLDP Neighbor IP address_`)
	lldpPortRe = labeled(`LLDP Neighbor Port_`, `LLDP Neighbor port_`)
)

// standardFamily covers the bulk of current models: four Serviceability CGI
// pages and the shared label grammar.
type standardFamily struct{}

func (standardFamily) Name() string { return "standard" }

func (standardFamily) Endpoints(ip string) map[Page]string {
	base := "http://" + ip + "/CGI/Java/Serviceability?adapter="
	return map[Page]string{
		PageConfig:  base + "device.statistics.configuration",
		PageDevice:  base + "device.statistics.device",
		PageStatus:  base + "device.settings.status.messages",
		PageNetwork: base + "device.statistics.port.network",
	}
}

func (standardFamily) Parse(pages map[Page]string) (inventory.PhoneScrape, error) {
	record, err := parseCommon(pages)
	if err != nil {
		return inventory.PhoneScrape{}, err
	}
	record.Model = normalizeModelNumber(record.Model)
	applyStatusMessages(&record, pages[PageStatus])
	return record, nil
}

// parseCommon extracts the field set shared by the standard and legacy
// grammars. Only the hostname is mandatory; every other rule that misses
// simply leaves its field empty.
func parseCommon(pages map[Page]string) (inventory.PhoneScrape, error) {
	configText := pages[PageConfig]
	deviceText := pages[PageDevice]
	networkText := pages[PageNetwork]

	hostname, ok := extract(configText, hostnameRe)
	if !ok || hostname == "" {
		return inventory.PhoneScrape{}, ErrNoHostname
	}
	record := inventory.PhoneScrape{DeviceName: hostname}

	setIfMatched(&record.SerialNumber, deviceText, serialRe)
	setIfMatched(&record.Firmware, deviceText, versionRe)
	setIfMatched(&record.DN, deviceText, phoneDNRe)
	setIfMatched(&record.Model, deviceText, modelNoRe)
	setIfMatched(&record.KEM1, deviceText, kem1Re)
	setIfMatched(&record.KEM2, deviceText, kem2Re)

	setIfMatched(&record.DomainName, configText, domainNameRe)
	setIfMatched(&record.DHCPServer, configText, dhcpServerRe)
	setIfMatched(&record.DHCP, configText, dhcpRe)
	setIfMatched(&record.IPAddress, configText, ipAddressRe)
	setIfMatched(&record.SubnetMask, configText, subnetRe)
	setIfMatched(&record.Gateway, configText, gatewayRe)
	setIfMatched(&record.DNS1, configText, dns1Re)
	setIfMatched(&record.DNS2, configText, dns2Re)
	setIfMatched(&record.AltTFTP, configText, altTFTPRe)
	setIfMatched(&record.TFTP1, configText, tftp1Re)
	setIfMatched(&record.TFTP2, configText, tftp2Re)
	setIfMatched(&record.OpVLAN, configText, opVLANRe)
	setIfMatched(&record.AdminVLAN, configText, adminVLANRe)

	setIfMatched(&record.CUCM1, configText, cucm1Re)
	setIfMatched(&record.CUCM2, configText, cucm2Re)
	setIfMatched(&record.CUCM3, configText, cucm3Re)
	setIfMatched(&record.CUCM4, configText, cucm4Re)
	setIfMatched(&record.CUCM5, configText, cucm5Re)

	setIfMatched(&record.InfoURL, configText, infoURLRe)
	setIfMatched(&record.DirURL, configText, dirURLRe)
	setIfMatched(&record.MsgURL, configText, msgURLRe)
	setIfMatched(&record.SvcURL, configText, svcURLRe)
	setIfMatched(&record.IdleURL, configText, idleURLRe)
	setIfMatched(&record.IdleURLTime, configText, idleURLTimeRe)
	setIfMatched(&record.ProxyURL, configText, proxyURLRe)
	setIfMatched(&record.AuthURL, configText, authURLRe)
	setIfMatched(&record.TVS, configText, tvsRe)

	setIfMatched(&record.CDPNeighborID, networkText, cdpIDRe)
	setIfMatched(&record.CDPNeighborIP, networkText, cdpIPRe)
	setIfMatched(&record.CDPNeighborPort, networkText, cdpPortRe)
	setIfMatched(&record.LLDPNeighborID, networkText, lldpIDRe)
	setIfMatched(&record.LLDPNeighborIP, networkText, lldpIPRe)
	setIfMatched(&record.LLDPNeighborPort, networkText, lldpPortRe)

	return record, nil
}

// normalizeModelNumber strips the vendor prefix ("CP-7841" -> "7841") and a
// trailing hardware revision "G" ("7961G" -> "7961").
func normalizeModelNumber(model string) string {
	model = strings.ReplaceAll(model, "CP-", "")
	if strings.HasSuffix(model, "G") {
		model = strings.TrimSuffix(model, "G")
	}
	return model
}
