package oracle

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
)

type Client struct {
	base   string
	client *http.Client
}

func NewClient(base string, httpClient *http.Client) *Client {
	return &Client{base: strings.TrimRight(base, "/"), client: httpClient}
}

// IsEligible queries the eligibility endpoint for addr.
func (c *Client) IsEligible(addr string) (bool, error) {
	u := c.base + "/v1/eligibility/" + url.PathEscape(addr)
	resp, err := c.client.Get(u)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("oracle eligibility: %s", string(b))
	}
	var out struct {
		Address  string `json:"address"`
		Eligible bool   `json:"eligible"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Eligible, nil
}
