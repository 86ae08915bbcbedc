package dlna

import (
	"testing"
)

func TestGetTransportInfoSoapBuild(t *testing.T) {
	want := `<?xml version='1.0' encoding='utf-8'?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body><u:GetTransportInfo xmlns:u="urn:schemas-upnp-org:service:AVTransport:1"><InstanceID>0</InstanceID></u:GetTransportInfo></s:Body></s:Envelope>`

	out, err := getTransportInfoSoapBuild()
	if err != nil {
		t.Fatalf("Failed to call getTransportInfoSoapBuild due to %s", err.Error())
	}

	if string(out) != want {
		t.Fatalf("getTransportInfoSoapBuild: got: %s, want: %s.", out, want)
	}
}

func TestGetPositionInfoSoapBuild(t *testing.T) {
	want := `<?xml version='1.0' encoding='utf-8'?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body><u:GetPositionInfo xmlns:u="urn:schemas-upnp-org:service:AVTransport:1"><InstanceID>0</InstanceID></u:GetPositionInfo></s:Body></s:Envelope>`

	out, err := getPositionInfoSoapBuild()
	if err != nil {
		t.Fatalf("Failed to call getPositionInfoSoapBuild due to %s", err.Error())
	}

	if string(out) != want {
		t.Fatalf("getPositionInfoSoapBuild: got: %s, want: %s.", out, want)
	}
}
