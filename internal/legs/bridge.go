package legs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

// BridgeClient fetches live option legs from the market data bridge over
// HTTP. The bridge returns one snapshot per requested symbol.
type BridgeClient struct {
	baseURL string
	client  *http.Client
}

// NewBridgeClient creates a client for the bridge at baseURL. A nil
// httpClient gets a default with a 10 second timeout.
func NewBridgeClient(baseURL string, httpClient *http.Client) *BridgeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &BridgeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// FetchLiveOptions implements Fetcher.
func (b *BridgeClient) FetchLiveOptions(ctx context.Context, symbols []string, targetWinProb int, dteWindow string) ([]models.LiveOptionSnapshot, error) {
	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	params.Set("target_win_prob", strconv.Itoa(targetWinProb))
	if dteWindow != "" {
		params.Set("dte_window", dteWindow)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/live-options?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build bridge request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bridge returned status %d", resp.StatusCode)
	}

	var snapshots []models.LiveOptionSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode bridge response: %w", err)
	}
	return snapshots, nil
}
