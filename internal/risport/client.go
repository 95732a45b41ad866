// Package risport implements the CUCM RisPort70 client used to read realtime
// registration state for a batch of devices.
package risport

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

const (
	requestTimeout            = 20 * time.Second
	defaultMaxReturnedDevices = 1000
)

// Client talks to one cluster's RisPort70 service. It implements
// inventory.RegistrationAPI.
type Client struct {
	endpoint   string
	username   string
	password   string
	maxDevices int
	http       *http.Client
	logger     *zap.Logger
}

// New builds a RisPort client from cluster connection settings.
func New(cluster config.ClusterConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport, err := newTLSTransport(cluster)
	if err != nil {
		return nil, err
	}
	maxDevices := cluster.MaxRISDevices
	if maxDevices <= 0 {
		maxDevices = defaultMaxReturnedDevices
	}
	return &Client{
		endpoint:   fmt.Sprintf("https://%s:8443/realtimeservice2/services/RISService70", cluster.Server),
		username:   cluster.Username,
		password:   cluster.Password,
		maxDevices: maxDevices,
		http:       &http.Client{Timeout: requestTimeout, Transport: transport},
		logger:     logger.With(zap.String("cluster", cluster.Name)),
	}, nil
}

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

// GetRegisteredPhones runs selectCmDeviceExt for one batch of device names
// and returns only the devices every cluster node reports as Registered.
// Callers are responsible for keeping the batch within the RisPort item
// limit.
func (c *Client) GetRegisteredPhones(ctx context.Context, names []string) ([]inventory.RegistrationEntry, error) {
	if len(names) == 0 {
		return nil, nil
	}
	c.logger.Debug("risport selectCmDeviceExt", zap.Int("devices", len(names)))

	doc, err := c.call(ctx, c.selectCmDeviceExtEnvelope(names))
	if err != nil {
		return nil, fmt.Errorf("selectCmDeviceExt: %w", err)
	}

	var entries []inventory.RegistrationEntry
	for _, node := range xmlquery.Find(doc, "//CmNodes/item/CmDevices/item") {
		entry := inventory.RegistrationEntry{
			Name:         childText(node, "Name"),
			Status:       childText(node, "Status"),
			ModelCode:    childText(node, "Model"),
			ActiveLoadID: childText(node, "ActiveLoadID"),
			Protocol:     childText(node, "Protocol"),
			IPAddress:    childText(node, "IPAddress/item/IP"),
		}
		if entry.Status != "Registered" {
			continue
		}
		if stamp := childText(node, "TimeStamp"); stamp != "" {
			if epoch, err := strconv.ParseInt(stamp, 10, 64); err == nil {
				entry.RegistrationUnix = epoch
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *Client) selectCmDeviceExtEnvelope(names []string) string {
	var b strings.Builder
	b.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:soap="http://schemas.cisco.com/ast/soap">`)
	b.WriteString(`<soapenv:Header/><soapenv:Body><soap:selectCmDeviceExt>`)
	b.WriteString(`<soap:StateInfo></soap:StateInfo>`)
	b.WriteString(`<soap:CmSelectionCriteria>`)
	b.WriteString(`<soap:MaxReturnedDevices>` + strconv.Itoa(c.maxDevices) + `</soap:MaxReturnedDevices>`)
	b.WriteString(`<soap:DeviceClass>Phone</soap:DeviceClass>`)
	b.WriteString(`<soap:Model>255</soap:Model>`)
	b.WriteString(`<soap:Status>Registered</soap:Status>`)
	b.WriteString(`<soap:NodeName></soap:NodeName>`)
	b.WriteString(`<soap:SelectBy>Name</soap:SelectBy>`)
	b.WriteString(`<soap:SelectItems>`)
	for _, name := range names {
		b.WriteString(`<soap:item><soap:Item>` + xmlEscape(name) + `</soap:Item></soap:item>`)
	}
	b.WriteString(`</soap:SelectItems>`)
	b.WriteString(`<soap:Protocol>Any</soap:Protocol>`)
	b.WriteString(`<soap:DownloadStatus>Any</soap:DownloadStatus>`)
	b.WriteString(`</soap:CmSelectionCriteria>`)
	b.WriteString(`</soap:selectCmDeviceExt></soapenv:Body></soapenv:Envelope>`)
	return b.String()
}

func (c *Client) call(ctx context.Context, envelope string) (*xmlquery.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"selectCmDeviceExt"`)

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
