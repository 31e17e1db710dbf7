package market

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"stock-ticker/http"
)

// https://www.nseindia.com/market-data - the quote API refuses cookie-less
// requests, so a priming GET against the landing page runs first and the
// session is reused until NSE invalidates it.
const nseBaseURL = "https://www.nseindia.com"

const nseSessionMaxAge = 5 * time.Minute

type nseClient struct {
	resty *resty.Client

	mu       sync.Mutex
	primedAt time.Time
}

type nseQuoteResponse struct {
	Info struct {
		Symbol      string `json:"symbol"`
		CompanyName string `json:"companyName"`
	} `json:"info"`
	PriceInfo struct {
		LastPrice     float64 `json:"lastPrice"`
		PreviousClose float64 `json:"previousClose"`
		WeekHighLow   struct {
			Max float64 `json:"max"`
			Min float64 `json:"min"`
		} `json:"weekHighLow"`
	} `json:"priceInfo"`
	SecurityWiseDP struct {
		QuantityTraded int64 `json:"quantityTraded"`
	} `json:"securityWiseDP"`
}

func NewNSEClient(httpClient *http.Client) *nseClient {
	r := resty.New().
		SetBaseURL(nseBaseURL).
		SetTimeout(httpClient.StdClient.Timeout).
		SetHeaders(map[string]string{
			"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Accept":          "application/json, text/plain, */*",
			"Accept-Language": "en-US,en;q=0.9",
			"Referer":         nseBaseURL,
		})
	if httpClient.StdClient.Transport != nil {
		r.SetTransport(httpClient.StdClient.Transport)
	}
	return &nseClient{resty: r}
}

func (client *nseClient) Name() string {
	return string(SourceNSE)
}

// primeSession collects the session cookies the quote API insists on.
func (client *nseClient) primeSession(ctx context.Context) error {
	client.mu.Lock()
	defer client.mu.Unlock()
	if time.Since(client.primedAt) < nseSessionMaxAge {
		return nil
	}
	resp, err := client.resty.R().SetContext(ctx).Get("/")
	if err != nil {
		return errors.Wrap(err, "prime NSE session")
	}
	if resp.IsError() {
		return errors.Errorf("prime NSE session: HTTP %s", resp.Status())
	}
	client.primedAt = time.Now()
	logrus.Debugf("%s - session primed", client.Name())
	return nil
}

func (client *nseClient) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	if err := client.primeSession(ctx); err != nil {
		return nil, NewFetchError(symbol, client.Name(), ErrNetwork, err)
	}

	// NSE wants the bare scrip name, without the exchange suffix
	scrip := strings.TrimSuffix(strings.TrimSuffix(symbol, ".NS"), ".BO")

	var respJSON nseQuoteResponse
	resp, err := client.resty.R().
		SetContext(ctx).
		SetQueryParam("symbol", scrip).
		SetResult(&respJSON).
		Get("/api/quote-equity")
	if err != nil {
		return nil, NewFetchError(symbol, client.Name(), ErrNetwork, err)
	}
	switch {
	case resp.StatusCode() == 429:
		return nil, NewFetchError(symbol, client.Name(), ErrRateLimited, errors.Errorf("HTTP %s", resp.Status()))
	case resp.StatusCode() == 401 || resp.StatusCode() == 403:
		// NSE throttles by expiring the session, force a new one next call
		client.mu.Lock()
		client.primedAt = time.Time{}
		client.mu.Unlock()
		return nil, NewFetchError(symbol, client.Name(), ErrRateLimited, errors.Errorf("HTTP %s", resp.Status()))
	case resp.StatusCode() == 404:
		return nil, NewFetchError(symbol, client.Name(), ErrNotFound, errors.Errorf("HTTP %s", resp.Status()))
	case resp.IsError():
		return nil, NewFetchError(symbol, client.Name(), ErrNetwork, errors.Errorf("HTTP %s", resp.Status()))
	}

	if respJSON.Info.Symbol == "" && respJSON.PriceInfo.LastPrice == 0 {
		// NSE answers 200 with an empty body for unknown scrips
		return nil, NewFetchError(symbol, client.Name(), ErrNotFound, errors.Errorf("no data for %q", scrip))
	}
	if respJSON.PriceInfo.LastPrice < 0 {
		return nil, NewFetchError(symbol, client.Name(), ErrMalformed,
			errors.Errorf("negative last price %v", respJSON.PriceInfo.LastPrice))
	}

	changeAbs, changePct := ComputeChange(respJSON.PriceInfo.LastPrice, respJSON.PriceInfo.PreviousClose)
	quote := &Quote{
		Symbol:        symbol,
		Name:          respJSON.Info.CompanyName,
		Price:         respJSON.PriceInfo.LastPrice,
		PreviousClose: respJSON.PriceInfo.PreviousClose,
		ChangeAbs:     changeAbs,
		ChangePct:     changePct,
		Volume:        respJSON.SecurityWiseDP.QuantityTraded,
		Source:        SourceNSE,
		FetchedAt:     time.Now(),
	}
	if max := respJSON.PriceInfo.WeekHighLow.Max; max != 0 {
		quote.High52 = &max
	}
	if min := respJSON.PriceInfo.WeekHighLow.Min; min != 0 {
		quote.Low52 = &min
	}
	return quote, nil
}

func init() {
	Register(string(SourceNSE), func(client *http.Client) Provider {
		return NewNSEClient(client)
	})
}
