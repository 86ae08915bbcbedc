package dlna

import (
	"encoding/xml"
	"fmt"
)

// GetTransportInfoEnvelope - AVTransport status query.
type GetTransportInfoEnvelope struct {
	XMLName  xml.Name             `xml:"s:Envelope"`
	Schema   string               `xml:"xmlns:s,attr"`
	Encoding string               `xml:"s:encodingStyle,attr"`
	Body     GetTransportInfoBody `xml:"s:Body"`
}

// GetTransportInfoBody .
type GetTransportInfoBody struct {
	XMLName xml.Name               `xml:"s:Body"`
	Action  GetTransportInfoAction `xml:"u:GetTransportInfo"`
}

// GetTransportInfoAction .
type GetTransportInfoAction struct {
	XMLName     xml.Name `xml:"u:GetTransportInfo"`
	AVTransport string   `xml:"xmlns:u,attr"`
	InstanceID  string
}

// GetPositionInfoEnvelope - AVTransport track metadata query.
type GetPositionInfoEnvelope struct {
	XMLName  xml.Name            `xml:"s:Envelope"`
	Schema   string              `xml:"xmlns:s,attr"`
	Encoding string              `xml:"s:encodingStyle,attr"`
	Body     GetPositionInfoBody `xml:"s:Body"`
}

// GetPositionInfoBody .
type GetPositionInfoBody struct {
	XMLName xml.Name              `xml:"s:Body"`
	Action  GetPositionInfoAction `xml:"u:GetPositionInfo"`
}

// GetPositionInfoAction .
type GetPositionInfoAction struct {
	XMLName     xml.Name `xml:"u:GetPositionInfo"`
	AVTransport string   `xml:"xmlns:u,attr"`
	InstanceID  string
}

func getTransportInfoSoapBuild() ([]byte, error) {
	d := GetTransportInfoEnvelope{
		XMLName:  xml.Name{},
		Schema:   "http://schemas.xmlsoap.org/soap/envelope/",
		Encoding: "http://schemas.xmlsoap.org/soap/encoding/",
		Body: GetTransportInfoBody{
			XMLName: xml.Name{},
			Action: GetTransportInfoAction{
				XMLName:     xml.Name{},
				AVTransport: "urn:schemas-upnp-org:service:AVTransport:1",
				InstanceID:  "0",
			},
		},
	}
	xmlStart := []byte("<?xml version='1.0' encoding='utf-8'?>")
	b, err := xml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("getTransportInfoSoapBuild Marshal error: %w", err)
	}

	return append(xmlStart, b...), nil
}

func getPositionInfoSoapBuild() ([]byte, error) {
	d := GetPositionInfoEnvelope{
		XMLName:  xml.Name{},
		Schema:   "http://schemas.xmlsoap.org/soap/envelope/",
		Encoding: "http://schemas.xmlsoap.org/soap/encoding/",
		Body: GetPositionInfoBody{
			XMLName: xml.Name{},
			Action: GetPositionInfoAction{
				XMLName:     xml.Name{},
				AVTransport: "urn:schemas-upnp-org:service:AVTransport:1",
				InstanceID:  "0",
			},
		},
	}
	xmlStart := []byte("<?xml version='1.0' encoding='utf-8'?>")
	b, err := xml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("getPositionInfoSoapBuild Marshal error: %w", err)
	}

	return append(xmlStart, b...), nil
}
