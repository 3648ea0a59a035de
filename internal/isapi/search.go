package isapi

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// recordTypeMetadata selects recorded-video matches in a search.
const recordTypeMetadata = "//recordType.meta.std-cgi.com"

// SearchRecordings lists the recorded tracks for channel whose segments fall
// inside [start, end), in the order the device returns them. The device pages
// its results; pages are fetched until it stops reporting more, up to the
// client's page cap. Hitting the cap returns the tracks gathered so far
// together with ErrTruncated.
func (c *Client) SearchRecordings(ctx context.Context, channel int, start, end time.Time) ([]Track, error) {
	trackID := fmt.Sprintf("%d01", channel)
	var tracks []Track
	var lastStart time.Time

	position := 0
	for page := 0; page < c.pageCap; page++ {
		result, err := c.searchPage(ctx, trackID, start, end, position)
		if err != nil {
			return nil, err
		}

		for _, match := range result.Matches {
			track, err := trackFromMatch(match)
			if err != nil {
				return nil, err
			}
			if !lastStart.IsZero() && track.Start.Before(lastStart) {
				c.log.Warn("track order regression in device response",
					"device", c.address, "track", track.Start, "previous", lastStart)
			}
			lastStart = track.Start
			tracks = append(tracks, track)
		}
		c.log.Debug("search page fetched",
			"device", c.address, "page", page, "matches", len(result.Matches), "status", result.StatusString)

		if result.StatusString != statusMore || len(result.Matches) == 0 {
			return tracks, nil
		}
		position += len(result.Matches)
	}

	return tracks, fmt.Errorf("%w after %d pages", ErrTruncated, c.pageCap)
}

func (c *Client) searchPage(ctx context.Context, trackID string, start, end time.Time, position int) (*searchResult, error) {
	desc := searchDescription{
		SearchID: uuid.NewString(),
		TrackIDs: []string{trackID},
		TimeSpans: []timeSpan{{
			StartTime: start.UTC().Format(deviceTimeLayout),
			EndTime:   end.UTC().Format(deviceTimeLayout),
		}},
		MaxResults:     c.pageSize,
		ResultPosition: position,
		Metadata:       []metadataDesc{{Descriptor: recordTypeMetadata}},
	}
	body, err := xml.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.do(ctx, http.MethodGet, searchPath, body)
	if err != nil {
		return nil, fmt.Errorf("searching recordings on %s: %w", c.address, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.deviceError(resp)
	}

	var result searchResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return &result, nil
}

func trackFromMatch(match matchItem) (Track, error) {
	start, err := time.Parse(deviceTimeLayout, match.Span.StartTime)
	if err != nil {
		return Track{}, fmt.Errorf("parsing track start %q: %w", match.Span.StartTime, err)
	}
	end, err := time.Parse(deviceTimeLayout, match.Span.EndTime)
	if err != nil {
		return Track{}, fmt.Errorf("parsing track end %q: %w", match.Span.EndTime, err)
	}
	return Track{Start: start, End: end, PlaybackURI: match.Media.PlaybackURI}, nil
}
