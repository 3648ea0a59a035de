package isapi

import (
	"encoding/xml"
	"time"
)

// deviceTimeLayout is the UTC timestamp format the device speaks.
const deviceTimeLayout = "2006-01-02T15:04:05Z"

// Track is one contiguous recorded clip matched by a search.
type Track struct {
	Start       time.Time
	End         time.Time
	PlaybackURI string
}

// searchDescription is the CMSearchDescription request body. The
// searchResultPostion misspelling is the device's own.
type searchDescription struct {
	XMLName        xml.Name       `xml:"CMSearchDescription"`
	SearchID       string         `xml:"searchID"`
	TrackIDs       []string       `xml:"trackIDList>trackID"`
	TimeSpans      []timeSpan     `xml:"timeSpanList>timeSpan"`
	MaxResults     int            `xml:"maxResults"`
	ResultPosition int            `xml:"searchResultPostion"`
	Metadata       []metadataDesc `xml:"metadataList>metadataDescriptor"`
}

type timeSpan struct {
	StartTime string `xml:"startTime"`
	EndTime   string `xml:"endTime"`
}

type metadataDesc struct {
	Descriptor string `xml:",chardata"`
}

// searchResult is the CMSearchResult response body.
type searchResult struct {
	XMLName        xml.Name    `xml:"CMSearchResult"`
	SearchID       string      `xml:"searchID"`
	ResponseStatus bool        `xml:"responseStatus"`
	StatusString   string      `xml:"responseStatusStrg"`
	NumOfMatches   int         `xml:"numOfMatches"`
	Matches        []matchItem `xml:"matchList>searchMatchItem"`
}

// statusMore is reported by the device while further result pages remain.
const statusMore = "MORE"

type matchItem struct {
	TrackID string   `xml:"trackID"`
	Span    timeSpan `xml:"timeSpan"`
	Media   struct {
		ContentType string `xml:"contentType"`
		CodecType   string `xml:"codecType"`
		PlaybackURI string `xml:"playbackURI"`
	} `xml:"mediaSegmentDescriptor"`
}

// downloadRequest wraps the playback URI for the media download endpoint.
type downloadRequest struct {
	XMLName     xml.Name `xml:"downloadRequest"`
	PlaybackURI string   `xml:"playbackURI"`
}

// responseStatus is the device's generic error body.
type responseStatus struct {
	XMLName       xml.Name `xml:"ResponseStatus"`
	StatusCode    int      `xml:"statusCode"`
	StatusString  string   `xml:"statusString"`
	SubStatusCode string   `xml:"subStatusCode"`
}

// timeInfo is the /ISAPI/System/time response; timeZone carries the device's
// offset in a "CST-8:00:00" style string.
type timeInfo struct {
	XMLName  xml.Name `xml:"Time"`
	Mode     string   `xml:"timeMode"`
	TimeZone string   `xml:"timeZone"`
}
