package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// LandscapeMember is a member entry as returned by the landscape API. The
// name may carry a kind suffix, e.g. "Acme (Platinum)".
type LandscapeMember struct {
	Name        string `json:"name"`
	Subcategory string `json:"subcategory"`
	LogoURL     string `json:"logo_url"`
}

// LandscapeProject is a project entry as returned by the landscape API.
type LandscapeProject struct {
	Name     string `json:"name"`
	Maturity string `json:"maturity"`
	LogoURL  string `json:"logo_url"`
}

// LandscapeClient fetches foundation catalogs from a landscape API.
type LandscapeClient struct {
	httpClient *http.Client
}

// NewLandscapeClient creates a new landscape API client.
func NewLandscapeClient() *LandscapeClient {
	return &LandscapeClient{
		httpClient: &http.Client{Timeout: time.Minute},
	}
}

// Members returns all members listed in the landscape.
func (c *LandscapeClient) Members(ctx context.Context, landscapeURL string) ([]LandscapeMember, error) {
	var members []LandscapeMember
	if err := c.get(ctx, landscapeURL, "/api/members/all.json", &members); err != nil {
		return nil, fmt.Errorf("error fetching landscape members: %w", err)
	}
	return members, nil
}

// Projects returns all projects listed in the landscape.
func (c *LandscapeClient) Projects(ctx context.Context, landscapeURL string) ([]LandscapeProject, error) {
	var projects []LandscapeProject
	if err := c.get(ctx, landscapeURL, "/api/projects/all.json", &projects); err != nil {
		return nil, fmt.Errorf("error fetching landscape projects: %w", err)
	}
	return projects, nil
}

func (c *LandscapeClient) get(ctx context.Context, base, path string, out any) error {
	url := strings.TrimSuffix(base, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response from %s: %w", url, err)
	}
	return nil
}
