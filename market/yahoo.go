package market

import (
	"context"
	"net/url"
	"time"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"

	"stock-ticker/http"
)

// https://query1.finance.yahoo.com/v8/finance/chart/RELIANCE.NS
const yahooBaseAPI = "https://query1.finance.yahoo.com"

type yahooClient struct {
	*http.Client
	baseURL string
}

func NewYahooClient(httpClient *http.Client) *yahooClient {
	return &yahooClient{Client: httpClient, baseURL: yahooBaseAPI}
}

func (client *yahooClient) Name() string {
	return string(SourceYahoo)
}

func (client *yahooClient) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	respBytes, err := client.Get(client.baseURL+"/v8/finance/chart/"+url.PathEscape(symbol),
		map[string]string{"range": "1d", "interval": "1d"})
	if err != nil {
		if respErr, ok := err.(*http.ResponseError); ok {
			switch respErr.StatusCode {
			case 429:
				return nil, NewFetchError(symbol, client.Name(), ErrRateLimited, err)
			case 404:
				return nil, NewFetchError(symbol, client.Name(), ErrNotFound, err)
			}
		}
		return nil, NewFetchError(symbol, client.Name(), ErrNetwork, err)
	}

	if desc, derr := jsonparser.GetString(respBytes, "chart", "error", "description"); derr == nil {
		return nil, NewFetchError(symbol, client.Name(), ErrNotFound, errors.New(desc))
	}

	meta, _, _, merr := jsonparser.Get(respBytes, "chart", "result", "[0]", "meta")
	if merr != nil {
		return nil, NewFetchError(symbol, client.Name(), ErrMalformed, errors.Wrap(merr, "no chart meta"))
	}
	price, perr := jsonparser.GetFloat(meta, "regularMarketPrice")
	if perr != nil {
		return nil, NewFetchError(symbol, client.Name(), ErrMalformed, errors.Wrap(perr, "no market price"))
	}
	if price < 0 {
		return nil, NewFetchError(symbol, client.Name(), ErrMalformed, errors.Errorf("negative market price %v", price))
	}

	// chartPreviousClose is the previous session's close, previousClose may be
	// the pre-market reference - prefer the former
	prevClose, pcerr := jsonparser.GetFloat(meta, "chartPreviousClose")
	if pcerr != nil {
		prevClose, _ = jsonparser.GetFloat(meta, "previousClose")
	}

	volume, verr := jsonparser.GetInt(meta, "regularMarketVolume")
	if verr != nil {
		// Older chart payloads only carry volume in the indicator arrays
		jsonparser.ArrayEach(respBytes, func(value []byte, dataType jsonparser.ValueType, offset int, _ error) {
			if dataType == jsonparser.Number {
				if v, e := jsonparser.ParseInt(value); e == nil {
					volume += v
				}
			}
		}, "chart", "result", "[0]", "indicators", "quote", "[0]", "volume")
	}
	if volume < 0 {
		volume = 0
	}

	changeAbs, changePct := ComputeChange(price, prevClose)
	quote := &Quote{
		Symbol:        symbol,
		Price:         price,
		PreviousClose: prevClose,
		ChangeAbs:     changeAbs,
		ChangePct:     changePct,
		Volume:        volume,
		Source:        SourceYahoo,
		FetchedAt:     time.Now(),
	}
	if name, nerr := jsonparser.GetString(meta, "longName"); nerr == nil {
		quote.Name = name
	}
	if high, herr := jsonparser.GetFloat(meta, "fiftyTwoWeekHigh"); herr == nil && high != 0 {
		quote.High52 = &high
	}
	if low, lerr := jsonparser.GetFloat(meta, "fiftyTwoWeekLow"); lerr == nil && low != 0 {
		quote.Low52 = &low
	}
	return quote, nil
}

func init() {
	Register(string(SourceYahoo), func(client *http.Client) Provider {
		return NewYahooClient(client)
	})
}
