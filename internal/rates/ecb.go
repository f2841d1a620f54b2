package rates

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultECBRateURL is the European Central Bank daily reference rate feed.
const DefaultECBRateURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

const ecbBaseCurrency = "EUR"

// ECBProvider resolves cross-rates from the ECB daily reference rates. The
// feed quotes every currency against EUR, so the pair rate is
// rate(to)/rate(from) with EUR itself at 1.
type ECBProvider struct {
	url    string
	client *http.Client
}

// NewECB builds a provider fetching the given feed URL. An empty URL selects
// the public ECB endpoint.
func NewECB(url string, timeout time.Duration) *ECBProvider {
	if url == "" {
		url = DefaultECBRateURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ECBProvider{url: url, client: &http.Client{Timeout: timeout}}
}

type ecbEnvelope struct {
	XMLName xml.Name  `xml:"Envelope"`
	Rates   []ecbRate `xml:"Cube>Cube>Cube"`
}

type ecbRate struct {
	Currency string `xml:"currency,attr"`
	Rate     string `xml:"rate,attr"`
}

// Rate fetches the feed and computes the conversion rate for the pair.
func (p *ECBProvider) Rate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, bool, error) {
	if fromCurrency == toCurrency {
		return decimal.NewFromInt(1), true, nil
	}

	table, err := p.fetch(ctx)
	if err != nil {
		return decimal.Decimal{}, false, err
	}

	fromRate, ok := table[fromCurrency]
	if !ok {
		return decimal.Decimal{}, false, nil
	}
	toRate, ok := table[toCurrency]
	if !ok {
		return decimal.Decimal{}, false, nil
	}
	return toRate.Div(fromRate), true, nil
}

func (p *ECBProvider) fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate feed responded %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rate feed: %w", err)
	}

	var envelope ecbEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse rate feed: %w", err)
	}

	table := map[string]decimal.Decimal{ecbBaseCurrency: decimal.NewFromInt(1)}
	for _, r := range envelope.Rates {
		rate, err := decimal.NewFromString(r.Rate)
		if err != nil || rate.Sign() <= 0 {
			continue
		}
		table[r.Currency] = rate
	}
	return table, nil
}
