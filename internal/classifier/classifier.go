package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
)

// Classifier 药材分类网关接口
// 样本创建时同步调用一次;失败则整个提交中止,不会留下半成品分析字段
type Classifier interface {
	Analyze(ctx context.Context, imageRef string) (*model.AnalysisResult, error)
}

// HTTPClassifier 基于 HTTP 的分类网关实现
// 调用外部 AI 分析服务并把结果规整为样本的分析字段
type HTTPClassifier struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClassifier 创建 HTTP 分类网关
func NewHTTPClassifier(baseURL string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClassifier{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// analyzeRequest 分析请求体
type analyzeRequest struct {
	ImageRef string `json:"image_ref"`
}

// analyzeResponse 分析响应体
type analyzeResponse struct {
	Species      string  `json:"species"`
	Confidence   float64 `json:"confidence"`
	QualityScore int     `json:"quality_score"`
}

// Analyze 调用外部 AI 服务分析样本图片
func (c *HTTPClassifier) Analyze(ctx context.Context, imageRef string) (*model.AnalysisResult, error) {
	payload, err := json.Marshal(&analyzeRequest{ImageRef: imageRef})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var body analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	result := &model.AnalysisResult{
		Species:      body.Species,
		Confidence:   body.Confidence,
		QualityScore: body.QualityScore,
	}
	// 外部服务返回的越界值同样视为分析失败
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("classifier returned invalid result: %w", err)
	}

	return result, nil
}
