// Package tariff ingests ENTSO-E day-ahead electricity prices and turns
// them into per-step tariff arrays for the optimizer's grid model.
package tariff

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// PublicationMarketDocument is the root element of the ENTSO-E
// day-ahead price XML.
type PublicationMarketDocument struct {
	XMLName            xml.Name     `xml:"Publication_MarketDocument"`
	MRID               string       `xml:"mRID"`
	RevisionNumber     int          `xml:"revisionNumber"`
	Type               string       `xml:"type"`
	CreatedDateTime    string       `xml:"createdDateTime"`
	PeriodTimeInterval TimeInterval `xml:"period.timeInterval"`
	TimeSeries         []TimeSeries `xml:"TimeSeries"`
}

// TimeSeries is one auction result series inside the document.
type TimeSeries struct {
	MRID                 string `xml:"mRID"`
	BusinessType         string `xml:"businessType"`
	CurrencyUnitName     string `xml:"currency_Unit.name"`
	PriceMeasureUnitName string `xml:"price_Measure_Unit.name"`
	CurveType            string `xml:"curveType"`
	Period               Period `xml:"Period"`
}

// Period holds the priced interval, its resolution and the price points.
type Period struct {
	TimeInterval TimeInterval  `xml:"timeInterval"`
	Resolution   time.Duration `xml:"resolution"`
	Points       []Point       `xml:"Point"`
}

// Point is one price sample; positions are 1-based and may skip numbers
// when consecutive intervals share a price.
type Point struct {
	Position    int     `xml:"position"`
	PriceAmount float64 `xml:"price.amount"`
}

// TimeInterval is a start/end pair in the ENTSO-E time format.
type TimeInterval struct {
	Start time.Time `xml:"start"`
	End   time.Time `xml:"end"`
}

// UnmarshalXML parses the interval with the API's abbreviated time
// formats.
func (ti *TimeInterval) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var aux struct {
		Start string `xml:"start"`
		End   string `xml:"end"`
	}
	if err := d.DecodeElement(&aux, &start); err != nil {
		return err
	}
	var err error
	if ti.Start, err = parseTimeString(aux.Start); err != nil {
		return fmt.Errorf("parsing interval start: %w", err)
	}
	if ti.End, err = parseTimeString(aux.End); err != nil {
		return fmt.Errorf("parsing interval end: %w", err)
	}
	return nil
}

// parseTimeString accepts the time layouts the API is known to emit.
func parseTimeString(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z", "2006-01-02T15:04Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time string: %s", s)
}

// UnmarshalXML parses the period and its ISO 8601 resolution.
func (p *Period) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var aux struct {
		TimeInterval TimeInterval `xml:"timeInterval"`
		Resolution   string       `xml:"resolution"`
		Points       []Point      `xml:"Point"`
	}
	if err := d.DecodeElement(&aux, &start); err != nil {
		return err
	}
	p.TimeInterval = aux.TimeInterval
	p.Points = aux.Points
	var err error
	if p.Resolution, err = parseISO8601Duration(aux.Resolution); err != nil {
		return fmt.Errorf("parsing resolution: %w", err)
	}
	return nil
}

// parseISO8601Duration handles the duration subset the API uses
// (PT15M, PT30M, PT60M, PT1H, P1D).
func parseISO8601Duration(s string) (time.Duration, error) {
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("invalid ISO 8601 duration: %s", s)
	}
	rest := s[1:]
	var total time.Duration
	if i := strings.IndexByte(rest, 'T'); i >= 0 {
		datePart := rest[:i]
		rest = rest[i+1:]
		d, err := parseDurationPart(datePart, map[byte]time.Duration{'D': 24 * time.Hour})
		if err != nil {
			return 0, err
		}
		total += d
		d, err = parseDurationPart(rest, map[byte]time.Duration{
			'H': time.Hour, 'M': time.Minute, 'S': time.Second,
		})
		if err != nil {
			return 0, err
		}
		return total + d, nil
	}
	return parseDurationPart(rest, map[byte]time.Duration{'D': 24 * time.Hour})
}

func parseDurationPart(s string, units map[byte]time.Duration) (time.Duration, error) {
	var total time.Duration
	num := ""
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			num += string(c)
			continue
		}
		unit, ok := units[c]
		if !ok || num == "" {
			return 0, fmt.Errorf("invalid duration component %q", s)
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return 0, err
		}
		total += time.Duration(n) * unit
		num = ""
	}
	if num != "" {
		return 0, fmt.Errorf("trailing number in duration %q", s)
	}
	return total, nil
}

// DecodeEnergyPricesXML decodes one day-ahead price document.
func DecodeEnergyPricesXML(r io.Reader) (*PublicationMarketDocument, error) {
	var doc PublicationMarketDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("error parsing XML: %w", err)
	}
	return &doc, nil
}

// PriceAt searches all series for the price of the interval containing
// t, in EUR/MWh as published.
func (pmd *PublicationMarketDocument) PriceAt(t time.Time) (float64, bool) {
	for _, ts := range pmd.TimeSeries {
		if price, found := ts.Period.priceAt(t); found {
			return price, true
		}
	}
	return 0, false
}

// priceAt maps t onto a 1-based position and returns its price. Curve
// type A03 omits points whose price repeats the previous one, so the
// lookup carries the last seen point forward.
func (p *Period) priceAt(t time.Time) (float64, bool) {
	if p.Resolution <= 0 || t.Before(p.TimeInterval.Start) || !t.Before(p.TimeInterval.End) {
		return 0, false
	}
	position := int(t.Sub(p.TimeInterval.Start)/p.Resolution) + 1

	var last *Point
	for i := range p.Points {
		point := &p.Points[i]
		if point.Position == position {
			return point.PriceAmount, true
		}
		if point.Position > position {
			break
		}
		last = point
	}
	if last != nil {
		return last.PriceAmount, true
	}
	return 0, false
}

// Merge combines two documents by concatenating their series, extending
// the covered interval. Either argument may be nil.
func Merge(first, second *PublicationMarketDocument) *PublicationMarketDocument {
	if first == nil {
		return second
	}
	if second == nil {
		return first
	}
	merged := *first
	merged.TimeSeries = append(append([]TimeSeries{}, first.TimeSeries...), second.TimeSeries...)
	if second.PeriodTimeInterval.End.After(merged.PeriodTimeInterval.End) {
		merged.PeriodTimeInterval.End = second.PeriodTimeInterval.End
	}
	return &merged
}
