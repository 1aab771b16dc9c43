package backend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
	"github.com/shouni/dreamcatcher-kit/pkg/prompts"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultCacheTTL    = 30 * time.Minute
	maxErrorBodyBytes  = 4 << 10
	panelPromptsPath   = "/api/dreams/panel-prompts"
	imageGeneratePath  = "/api/images/generate"
	uploadPath         = "/api/uploads"
	visualizationsPath = "/api/visualizations"
)

// Client は Dreamcatcher バックエンドを HTTP で呼び出します。
// 生成パイプラインの RemoteProvider としてそのまま使えるのだ。
type Client struct {
	baseURL    string
	httpClient *http.Client
	prompts    *cache.Cache
	now        func() time.Time
	token      string
}

// Option は Client の設定を変更する関数です。
type Option func(*Client)

// WithHTTPClient は HTTP クライアントを差し替えます。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken は認証トークンを設定します。
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithPromptCacheTTL はパネルプロンプトのキャッシュ期間を変更します。0 以下でキャッシュしません。
func WithPromptCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl <= 0 {
			c.prompts = nil
			return
		}
		c.prompts = cache.New(ttl, 2*ttl)
	}
}

// WithClock はトークン期限の判定に使う時計を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient は baseURL 向けのクライアントを生成します。
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		prompts:    cache.New(defaultCacheTTL, 2*defaultCacheTTL),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsAuthenticated はトークンを持っていて、それが JWT なら期限内かどうかを返します。
// 署名の検証はバックエンドの責務なので、ここでは exp だけを見るのだ。
func (c *Client) IsAuthenticated() bool {
	if c.baseURL == "" {
		return false
	}
	token := c.token
	if token == "" {
		return false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		// JWT ではない不透明なトークン
		return true
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return c.now().Before(exp.Time)
}

type panelPromptsRequest struct {
	Prompt     string `json:"prompt"`
	Style      string `json:"style"`
	PanelCount int    `json:"panel_count"`
}

type panelPromptsResponse struct {
	PanelPrompts []string `json:"panel_prompts"`
}

// RequestPanelPrompts はナラティブからパネルごとの画像プロンプトを取得します。
// 同じ入力への応答は一定時間キャッシュします。
func (c *Client) RequestPanelPrompts(ctx context.Context, text string, style domain.ImageStyle, count int) ([]string, error) {
	key := promptCacheKey(text, style, count)
	if c.prompts != nil {
		if cached, ok := c.prompts.Get(key); ok {
			slog.Debug("パネルプロンプトをキャッシュから返します", "count", count)
			return append([]string(nil), cached.([]string)...), nil
		}
	}

	var resp panelPromptsResponse
	body := panelPromptsRequest{Prompt: text, Style: style.String(), PanelCount: count}
	if err := c.postJSON(ctx, panelPromptsPath, body, &resp); err != nil {
		return nil, fmt.Errorf("パネルプロンプトの取得に失敗しました: %w", err)
	}

	out := make([]string, 0, len(resp.PanelPrompts))
	for _, p := range resp.PanelPrompts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if c.prompts != nil && len(out) > 0 {
		c.prompts.SetDefault(key, append([]string(nil), out...))
	}
	return out, nil
}

// PlanPanels はバックエンドのプロンプトに、手元でのシーン分割から作ったオーバーレイを添えて返します。
func (c *Client) PlanPanels(ctx context.Context, text string, style domain.ImageStyle, count int) ([]domain.PanelPlan, error) {
	ps, err := c.RequestPanelPrompts(ctx, text, style, count)
	if err != nil {
		return nil, err
	}
	scenes, err := prompts.SegmentScenes(text, count)
	if err != nil {
		scenes = nil
	}
	return prompts.BuildPlans(scenes, ps), nil
}

type generateImageRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
}

type generateImageResponse struct {
	ImageURL string `json:"image_url"`
}

// RenderImage はバックエンドで1枚描画し、data URL を画像バイト列に戻して返します。
func (c *Client) RenderImage(ctx context.Context, prompt string, style domain.ImageStyle) (*imagedom.ImageResponse, error) {
	var resp generateImageResponse
	if err := c.postJSON(ctx, imageGeneratePath, generateImageRequest{Prompt: prompt, Style: style.String()}, &resp); err != nil {
		return nil, fmt.Errorf("画像生成リクエストに失敗しました: %w", err)
	}
	data, mime, err := DecodeImagePayload(resp.ImageURL)
	if err != nil {
		return nil, err
	}
	return &imagedom.ImageResponse{Data: data, MimeType: mime}, nil
}

type uploadResponse struct {
	URL string `json:"url"`
}

// UploadImage は画像を multipart でアップロードし、公開 URL を返します。
func (c *Client) UploadImage(ctx context.Context, filename string, data []byte, mimeType string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp uploadResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("%s のアップロードに失敗しました: %w", filename, err)
	}
	return resp.URL, nil
}

// Visualization はアップロード済み画像をまとめた可視化レコードです。
type Visualization struct {
	DreamID string   `json:"dream_id"`
	Kind    string   `json:"kind"`
	URLs    []string `json:"urls"`
	Status  string   `json:"status"`
}

// CreateVisualization は可視化レコードを登録します。
func (c *Client) CreateVisualization(ctx context.Context, v Visualization) error {
	if err := c.postJSON(ctx, visualizationsPath, v, nil); err != nil {
		return fmt.Errorf("可視化レコードの登録に失敗しました: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if token := c.token; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return readAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("レスポンスの解析に失敗しました: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if json.Unmarshal(raw, &errResp) == nil {
		apiErr.Code = errResp.Code
		apiErr.Message = errResp.Error
		if apiErr.Message == "" {
			apiErr.Message = errResp.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func promptCacheKey(text string, style domain.ImageStyle, count int) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%d:%s", style, count, hex.EncodeToString(sum[:]))
}
