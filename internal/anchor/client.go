package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Receipt 上链回执
type Receipt struct {
	TxID  string `json:"tx_id"`
	Chain string `json:"chain"`
}

// Anchorer 外部账本锚定接口
// 只拿内容哈希换交易号,账本自身的共识机制不在本服务范围内
type Anchorer interface {
	Anchor(ctx context.Context, contentHash string) (*Receipt, error)
}

// HTTPAnchorer 基于 HTTP 的锚定服务客户端
type HTTPAnchorer struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPAnchorer 创建锚定服务客户端
func NewHTTPAnchorer(baseURL string, timeout time.Duration) *HTTPAnchorer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPAnchorer{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// anchorRequest 锚定请求体
type anchorRequest struct {
	ContentHash string `json:"content_hash"`
}

// Anchor 把内容哈希提交到外部账本
func (a *HTTPAnchorer) Anchor(ctx context.Context, contentHash string) (*Receipt, error) {
	payload, err := json.Marshal(&anchorRequest{ContentHash: contentHash})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal anchor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/anchor", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build anchor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call anchoring service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anchoring service returned status %d", resp.StatusCode)
	}

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("failed to decode anchor response: %w", err)
	}
	if receipt.TxID == "" {
		return nil, fmt.Errorf("anchoring service returned empty tx ID")
	}

	return &receipt, nil
}
