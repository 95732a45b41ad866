package risport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const selectCmDeviceResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <ns1:selectCmDeviceResponse xmlns:ns1="http://schemas.cisco.com/ast/soap">
      <selectCmDeviceReturn>
        <SelectCmDeviceResult>
          <TotalDevicesFound>3</TotalDevicesFound>
          <CmNodes>
            <item>
              <Name>cucm-sub1.example.com</Name>
              <CmDevices>
                <item>
                  <Name>SEP001122334455</Name>
                  <DirNumber>2001-Registered</DirNumber>
                  <DeviceClass>Phone</DeviceClass>
                  <Model>36216</Model>
                  <Status>Registered</Status>
                  <TimeStamp>1714650123</TimeStamp>
                  <Protocol>SIP</Protocol>
                  <ActiveLoadID>sip88xx.12-0-1ES2</ActiveLoadID>
                  <IPAddress>
                    <item>
                      <IP>10.20.30.40</IP>
                      <IPAddrType>ipv4</IPAddrType>
                    </item>
                  </IPAddress>
                </item>
                <item>
                  <Name>SEPAABBCCDDEEFF</Name>
                  <DeviceClass>Phone</DeviceClass>
                  <Model>7</Model>
                  <Status>UnRegistered</Status>
                  <TimeStamp>1714640000</TimeStamp>
                  <Protocol>SCCP</Protocol>
                  <ActiveLoadID>P00308010200</ActiveLoadID>
                  <IPAddress>
                    <item>
                      <IP>10.20.30.41</IP>
                    </item>
                  </IPAddress>
                </item>
              </CmDevices>
            </item>
            <item>
              <Name>cucm-sub2.example.com</Name>
              <CmDevices>
                <item>
                  <Name>SEP005566778899</Name>
                  <DeviceClass>Phone</DeviceClass>
                  <Model>36224</Model>
                  <Status>Registered</Status>
                  <TimeStamp>1714650200</TimeStamp>
                  <Protocol>SIP</Protocol>
                  <ActiveLoadID>sip88xx.12-0-1ES2</ActiveLoadID>
                  <IPAddress>
                    <item>
                      <IP>10.20.31.77</IP>
                    </item>
                  </IPAddress>
                </item>
              </CmDevices>
            </item>
          </CmNodes>
        </SelectCmDeviceResult>
      </selectCmDeviceReturn>
    </ns1:selectCmDeviceResponse>
  </soapenv:Body>
</soapenv:Envelope>`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Client{
		endpoint:   server.URL,
		username:   "risuser",
		password:   "rispass",
		maxDevices: 1000,
		http:       server.Client(),
		logger:     zap.NewNop(),
	}
}

func TestGetRegisteredPhonesKeepsOnlyRegistered(t *testing.T) {
	t.Parallel()

	var gotBody string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = w.Write([]byte(selectCmDeviceResponse))
	})

	entries, err := client.GetRegisteredPhones(context.Background(),
		[]string{"SEP001122334455", "SEPAABBCCDDEEFF", "SEP005566778899"})
	require.NoError(t, err)

	// Devices are collected across every cluster node; the unregistered
	// one is dropped.
	require.Len(t, entries, 2)

	require.Equal(t, "SEP001122334455", entries[0].Name)
	require.Equal(t, "36216", entries[0].ModelCode)
	require.Equal(t, "sip88xx.12-0-1ES2", entries[0].ActiveLoadID)
	require.Equal(t, "10.20.30.40", entries[0].IPAddress)
	require.Equal(t, "SIP", entries[0].Protocol)
	require.EqualValues(t, 1714650123, entries[0].RegistrationUnix)

	require.Equal(t, "SEP005566778899", entries[1].Name)
	require.Equal(t, "10.20.31.77", entries[1].IPAddress)

	require.Contains(t, gotBody, "<soap:Status>Registered</soap:Status>")
	require.Contains(t, gotBody, "<soap:MaxReturnedDevices>1000</soap:MaxReturnedDevices>")
	require.Contains(t, gotBody, "<soap:Item>SEPAABBCCDDEEFF</soap:Item>")
}

func TestGetRegisteredPhonesEmptyBatch(t *testing.T) {
	t.Parallel()

	client := testClient(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected for an empty batch")
	})

	entries, err := client.GetRegisteredPhones(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, entries)
}

func TestGetRegisteredPhonesSoapFault(t *testing.T) {
	t.Parallel()

	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><soapenv:Body><soapenv:Fault><faultstring>Exceeded allowed rate for Reatime information</faultstring></soapenv:Fault></soapenv:Body></soapenv:Envelope>`))
	})

	_, err := client.GetRegisteredPhones(context.Background(), []string{"SEP001122334455"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Exceeded allowed rate")
}
