package tariff

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultURLFormat is the ENTSO-E day-ahead price query with period
// start, period end and security token placeholders.
const DefaultURLFormat = "https://web-api.tp.entsoe.eu/api?documentType=A44&out_Domain=10YLV-1001A00074&in_Domain=10YLV-1001A00074&periodStart=%s&periodEnd=%s&securityToken=%s"

// Client downloads day-ahead price documents from the ENTSO-E API.
type Client struct {
	httpClient *http.Client
	userAgent  string
	urlFormat  string
	token      string
	timeout    time.Duration
}

// NewClient returns a client for the given security token using the
// default URL format.
func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{},
		userAgent:  "enduseroptimizer-tariff/1.0",
		urlFormat:  DefaultURLFormat,
		token:      token,
		timeout:    30 * time.Second,
	}
}

// SetUserAgent overrides the User-Agent header.
func (c *Client) SetUserAgent(userAgent string) { c.userAgent = userAgent }

// SetURLFormat overrides the API URL format string.
func (c *Client) SetURLFormat(urlFormat string) { c.urlFormat = urlFormat }

// apiTimeString formats a time the way the API expects: YYYYMMDDHHmm in
// UTC.
func apiTimeString(t time.Time) string {
	return t.UTC().Format("200601021504")
}

// buildURL assembles the query URL for the day containing day.
func (c *Client) buildURL(day time.Time) string {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return fmt.Sprintf(c.urlFormat, apiTimeString(start), apiTimeString(start.AddDate(0, 0, 1)), c.token)
}

// DownloadDay fetches and decodes the price document for the day
// containing day.
func (c *Client) DownloadDay(ctx context.Context, day time.Time) (*PublicationMarketDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(day), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP request failed with status %d: %s", resp.StatusCode, resp.Status)
	}

	doc, err := DecodeEnergyPricesXML(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode XML response: %w", err)
	}
	return doc, nil
}

// DownloadHorizon fetches enough daily documents to cover [start,
// start+span) and merges them. The day-ahead auction publishes the next
// day around 13:00, so requesting beyond the published range fails with
// the API's error status.
func (c *Client) DownloadHorizon(ctx context.Context, start time.Time, span time.Duration) (*PublicationMarketDocument, error) {
	end := start.Add(span)
	var merged *PublicationMarketDocument
	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	for day := first; day.Before(end); day = day.AddDate(0, 0, 1) {
		doc, err := c.DownloadDay(ctx, day)
		if err != nil {
			return nil, err
		}
		merged = Merge(merged, doc)
	}
	return merged, nil
}
