package axl

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jsteinberg1/cucm-phone-info/internal/config"
)

const listPhoneResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <ns:listPhoneResponse xmlns:ns="http://www.cisco.com/AXL/API/12.5">
      <return>
        <phone uuid="{1}">
          <name>SEP001122334455</name>
          <description>Front Desk</description>
          <devicePoolName uuid="{2}">HQ-Pool</devicePoolName>
          <callingSearchSpaceName uuid="{3}">Internal-CSS</callingSearchSpaceName>
          <currentProfileName uuid="{4}">EM-JDOE</currentProfileName>
          <loginTime>1714650000</loginTime>
        </phone>
        <phone uuid="{5}">
          <name>SEPAABBCCDDEEFF</name>
          <description>Lobby</description>
          <devicePoolName uuid="{6}">Branch-Pool</devicePoolName>
          <callingSearchSpaceName/>
          <currentProfileName/>
          <loginTime>1714650000</loginTime>
        </phone>
      </return>
    </ns:listPhoneResponse>
  </soapenv:Body>
</soapenv:Envelope>`

const faultResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <soapenv:Fault>
      <faultcode>soapenv:Client</faultcode>
      <faultstring>Query request too large</faultstring>
    </soapenv:Fault>
  </soapenv:Body>
</soapenv:Envelope>`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Client{
		endpoint: server.URL,
		username: "axluser",
		password: "axlpass",
		version:  "12.5",
		http:     server.Client(),
		logger:   zap.NewNop(),
	}
}

func TestListPhonesPageParsesEntries(t *testing.T) {
	t.Parallel()

	var gotBody string
	var gotAuth, gotAction string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		user, pass, _ := r.BasicAuth()
		gotAuth = user + ":" + pass
		gotAction = r.Header.Get("SOAPAction")
		_, _ = w.Write([]byte(listPhoneResponse))
	})

	entries, err := client.ListPhonesPage(context.Background(), 1000, 2000)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "SEP001122334455", entries[0].Name)
	require.Equal(t, "HQ-Pool", entries[0].DevicePool)
	require.Equal(t, "Internal-CSS", entries[0].DeviceCSS)
	require.Equal(t, "Front Desk", entries[0].Description)
	require.Equal(t, "EM-JDOE", entries[0].EMProfile)
	require.EqualValues(t, 1714650000, entries[0].EMLoginEpoch)

	// No extension mobility profile means the login time is ignored.
	require.Empty(t, entries[1].EMProfile)
	require.Zero(t, entries[1].EMLoginEpoch)

	require.Equal(t, "axluser:axlpass", gotAuth)
	require.Equal(t, `"CUCM:DB ver=12.5 listPhone"`, gotAction)
	require.Contains(t, gotBody, "<first>1000</first>")
	require.Contains(t, gotBody, "<skip>2000</skip>")
	require.Contains(t, gotBody, "<name>%</name>")
}

func TestListPhonesPageEmptyReturn(t *testing.T) {
	t.Parallel()

	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><soapenv:Body><ns:listPhoneResponse xmlns:ns="http://www.cisco.com/AXL/API/12.5"><return/></ns:listPhoneResponse></soapenv:Body></soapenv:Envelope>`))
	})

	entries, err := client.ListPhonesPage(context.Background(), 1000, 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestListPhonesPageSoapFault(t *testing.T) {
	t.Parallel()

	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(faultResponse))
	})

	_, err := client.ListPhonesPage(context.Background(), 1000, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Query request too large")
}

func TestNewTLSTransportInsecure(t *testing.T) {
	t.Parallel()

	transport, err := newTLSTransport(config.ClusterConfig{SSLVerify: false})
	require.NoError(t, err)
	require.True(t, transport.TLSClientConfig.InsecureSkipVerify)

	transport, err = newTLSTransport(config.ClusterConfig{SSLVerify: true})
	require.NoError(t, err)
	require.False(t, transport.TLSClientConfig.InsecureSkipVerify)
	require.Nil(t, transport.TLSClientConfig.RootCAs)
}

func TestNewTLSTransportMissingTrustFile(t *testing.T) {
	t.Parallel()

	_, err := newTLSTransport(config.ClusterConfig{SSLVerify: true, CATrustFile: "/nonexistent/ca.pem"})
	require.Error(t, err)
}
