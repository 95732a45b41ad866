// Package axl implements the CUCM AXL listPhone client used to page device
// metadata out of a cluster's configuration database.
package axl

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"

	"github.com/jsteinberg1/cucm-phone-info/internal/config"
	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
)

const requestTimeout = 20 * time.Second

// Client talks to one cluster's AXL endpoint. It implements
// inventory.MetadataAPI.
type Client struct {
	endpoint string
	username string
	password string
	version  string
	http     *http.Client
	logger   *zap.Logger
}

// New builds an AXL client from cluster connection settings. The version
// selects the AXL schema namespace, e.g. "12.5".
func New(cluster config.ClusterConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport, err := newTLSTransport(cluster)
	if err != nil {
		return nil, err
	}
	return &Client{
		endpoint: fmt.Sprintf("https://%s:8443/axl/", cluster.Server),
		username: cluster.Username,
		password: cluster.Password,
		version:  cluster.Version,
		http:     &http.Client{Timeout: requestTimeout, Transport: transport},
		logger:   logger.With(zap.String("cluster", cluster.Name)),
	}, nil
}

// newTLSTransport applies the cluster's trust settings. CUCM publishers
// routinely run self-signed or privately-signed certificates, so both a
// custom CA bundle and outright verification bypass are supported.
func newTLSTransport(cluster config.ClusterConfig) (*http.Transport, error) {
	tlsConfig := &tls.Config{}
	switch {
	case !cluster.SSLVerify:
		tlsConfig.InsecureSkipVerify = true
	case cluster.CATrustFile != "":
		pem, err := os.ReadFile(cluster.CATrustFile)
		if err != nil {
			return nil, fmt.Errorf("read ca trust file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates parsed from %s", cluster.CATrustFile)
		}
		tlsConfig.RootCAs = pool
	}
	return &http.Transport{TLSClientConfig: tlsConfig}, nil
}

// ListPhonesPage issues one paged listPhone request. The search matches every
// device name and asks only for the handful of tags the inventory merge
// needs. An exhausted listing comes back as an empty slice, not an error.
func (c *Client) ListPhonesPage(ctx context.Context, pageSize, skip int) ([]inventory.MetadataEntry, error) {
	c.logger.Debug("axl listPhone page", zap.Int("first", pageSize), zap.Int("skip", skip))

	envelope := c.listPhoneEnvelope(pageSize, skip)
	action := fmt.Sprintf(`"CUCM:DB ver=%s listPhone"`, c.version)

	doc, err := c.call(ctx, envelope, action)
	if err != nil {
		return nil, fmt.Errorf("listPhone: %w", err)
	}

	var entries []inventory.MetadataEntry
	for _, node := range xmlquery.Find(doc, "//return/phone") {
		entry := inventory.MetadataEntry{
			Name:        childText(node, "name"),
			DevicePool:  childText(node, "devicePoolName"),
			DeviceCSS:   childText(node, "callingSearchSpaceName"),
			Description: childText(node, "description"),
			EMProfile:   childText(node, "currentProfileName"),
		}
		if login := childText(node, "loginTime"); login != "" && entry.EMProfile != "" {
			if epoch, err := strconv.ParseInt(login, 10, 64); err == nil {
				entry.EMLoginEpoch = epoch
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *Client) listPhoneEnvelope(pageSize, skip int) string {
	var b strings.Builder
	b.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns="http://www.cisco.com/AXL/API/` + xmlEscape(c.version) + `">`)
	b.WriteString(`<soapenv:Header/><soapenv:Body><ns:listPhone>`)
	b.WriteString(`<searchCriteria><name>%</name></searchCriteria>`)
	b.WriteString(`<returnedTags><name/><devicePoolName/><description/><callingSearchSpaceName/><currentProfileName/><loginTime/></returnedTags>`)
	b.WriteString(`<first>` + strconv.Itoa(pageSize) + `</first>`)
	b.WriteString(`<skip>` + strconv.Itoa(skip) + `</skip>`)
	b.WriteString(`</ns:listPhone></soapenv:Body></soapenv:Envelope>`)
	return b.String()
}

// call posts a SOAP envelope and parses the response document, surfacing any
// SOAP fault as an error.
func (c *Client) call(ctx context.Context, envelope, action string) (*xmlquery.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if fault := xmlquery.FindOne(doc, "//faultstring"); fault != nil {
		return nil, fmt.Errorf("soap fault: %s", fault.InnerText())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return doc, nil
}

// childText returns the trimmed text of a direct child element, empty when
// the element is absent or nil-valued.
func childText(node *xmlquery.Node, name string) string {
	child := xmlquery.FindOne(node, name)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.InnerText())
}

func xmlEscape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
