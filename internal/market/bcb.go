package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Official USD rate bounds, in BOB per USD.
const (
	MinOfficialRate = 6.50
	MaxOfficialRate = 7.50
)

// OfficialRate is the BCB USD quote for one day.
type OfficialRate struct {
	Sell float64
	Buy  float64
}

// RateSource fetches the official exchange rate.
type RateSource interface {
	FetchRate(ctx context.Context) (OfficialRate, error)
}

// BCBClient scrapes the Banco Central de Bolivia indicators page.
type BCBClient struct {
	url    string
	client *http.Client
}

func NewBCBClient(url string, timeout time.Duration) *BCBClient {
	return &BCBClient{url: url, client: &http.Client{Timeout: timeout}}
}

func (c *BCBClient) FetchRate(ctx context.Context) (OfficialRate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return OfficialRate{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "es-BO,es;q=0.9,en;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return OfficialRate{}, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return OfficialRate{}, fmt.Errorf("%w: status %d", ErrSourceUnreachable, resp.StatusCode)
	}

	rate, err := ParseBCBTable(resp.Body)
	if err != nil {
		return OfficialRate{}, err
	}
	if err := rate.Validate(); err != nil {
		return OfficialRate{}, err
	}
	return rate, nil
}

var rateCell = regexp.MustCompile(`^\d+[.,]\d+$`)

// ParseBCBTable extracts the USD VENTA and COMPRA rates from the indicators
// page. Each rate sits in a table row whose cells mention the side and end
// with the numeric value.
func ParseBCBTable(r io.Reader) (OfficialRate, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return OfficialRate{}, fmt.Errorf("%w: parsing html: %v", ErrSourceResponse, err)
	}

	var sell, buy float64
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			cells := rowCells(n)
			rowText := strings.ToUpper(strings.Join(cells, " "))
			value := 0.0
			for _, c := range cells {
				if rateCell.MatchString(c) {
					value, _ = strconv.ParseFloat(strings.ReplaceAll(c, ",", "."), 64)
				}
			}
			switch {
			case value == 0:
			case strings.Contains(rowText, "VENTA") && sell == 0:
				sell = value
			case strings.Contains(rowText, "COMPRA") && buy == 0:
				buy = value
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if sell == 0 {
		return OfficialRate{}, fmt.Errorf("%w: VENTA rate not found in BCB table", ErrSourceResponse)
	}
	if buy == 0 {
		return OfficialRate{}, fmt.Errorf("%w: COMPRA rate not found in BCB table", ErrSourceResponse)
	}
	return OfficialRate{Sell: sell, Buy: buy}, nil
}

func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, strings.TrimSpace(textContent(c)))
		}
	}
	return cells
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

// Validate checks both rates are within the official bounds and that the
// buy rate is below the sell rate.
func (r OfficialRate) Validate() error {
	for _, v := range []struct {
		name string
		rate float64
	}{{"venta", r.Sell}, {"compra", r.Buy}} {
		if v.rate < MinOfficialRate || v.rate > MaxOfficialRate {
			return fmt.Errorf("%w: %s rate %.2f outside [%.2f, %.2f]",
				ErrSourceResponse, v.name, v.rate, MinOfficialRate, MaxOfficialRate)
		}
	}
	if r.Buy >= r.Sell {
		return fmt.Errorf("%w: buy rate %.2f must be less than sell rate %.2f", ErrSourceResponse, r.Buy, r.Sell)
	}
	return nil
}

var _ RateSource = (*BCBClient)(nil)
