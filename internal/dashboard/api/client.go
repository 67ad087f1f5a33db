package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client는 메타데이터 저장소 API 클라이언트
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient는 새 API 클라이언트 생성
func NewClient(host string, port int) *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// RestResp는 API 응답 래퍼
type RestResp struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// StoreInfo는 / 응답
type StoreInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	WSClients int    `json:"wsClients"`
}

// EntrySummary는 저장된 항목 요약
type EntrySummary struct {
	Address    string `json:"address"`
	TypeID     int32  `json:"typeId"`
	WriteCount uint64 `json:"writeCount"`
	MagicHash  string `json:"magicHash"`
}

// StoreStats는 /stats 응답
type StoreStats struct {
	Entries     int            `json:"entries"`
	TotalWrites uint64         `json:"totalWrites"`
	WSClients   int            `json:"wsClients"`
	List        []EntrySummary `json:"list"`
}

// GetInfo는 저장소 정보 조회
func (c *Client) GetInfo() (*StoreInfo, error) {
	resp, err := c.get("/")
	if err != nil {
		return nil, err
	}

	var info StoreInfo
	if err := json.Unmarshal(resp.Data, &info); err != nil {
		return nil, fmt.Errorf("parse info: %w", err)
	}
	return &info, nil
}

// GetStats는 저장 항목 통계 조회
func (c *Client) GetStats() (*StoreStats, error) {
	resp, err := c.get("/stats")
	if err != nil {
		return nil, err
	}

	var stats StoreStats
	if err := json.Unmarshal(resp.Data, &stats); err != nil {
		return nil, fmt.Errorf("parse stats: %w", err)
	}
	return &stats, nil
}

func (c *Client) get(path string) (*RestResp, error) {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result RestResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("api error: %s", result.Error)
	}

	return &result, nil
}
