// internal/infra/directory/http_directory.go
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const requestTimeout = 10 * time.Second

// HTTPDirectory implements membership.Directory against the permissions
// directory's read-only JSON API:
//
//	GET {base}/groups                       -> {"groups": [{"name": ..., "display_name": ...}]}
//	GET {base}/groups/{name}/members/count  -> {"count": N}
//	GET {base}/players/{id}/groups          -> {"groups": ["..."]}
//
// Results are eventually consistent; a missing group reads as zero members.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Entry
}

func NewHTTPDirectory(baseURL string, logger *logrus.Entry) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

type groupInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type groupsResponse struct {
	Groups []groupInfo `json:"groups"`
}

type playerGroupsResponse struct {
	Groups []string `json:"groups"`
}

type countResponse struct {
	Count int `json:"count"`
}

func (d *HTTPDirectory) ListGroups(ctx context.Context) ([]string, error) {
	var resp groupsResponse
	if err := d.getJSON(ctx, "/groups", &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Groups))
	for _, g := range resp.Groups {
		names = append(names, g.Name)
	}
	return names, nil
}

func (d *HTTPDirectory) MemberCount(ctx context.Context, groupName string) (int, error) {
	var resp countResponse
	path := fmt.Sprintf("/groups/%s/members/count", url.PathEscape(groupName))
	if err := d.getJSON(ctx, path, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (d *HTTPDirectory) PlayerGroups(ctx context.Context, playerID string) ([]string, error) {
	var resp playerGroupsResponse
	path := fmt.Sprintf("/players/%s/groups", url.PathEscape(playerID))
	if err := d.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

// DisplayName resolves the group's display name, falling back to the raw
// name when the directory is unreachable or has none configured.
func (d *HTTPDirectory) DisplayName(ctx context.Context, groupName string) string {
	var resp groupsResponse
	if err := d.getJSON(ctx, "/groups", &resp); err != nil {
		d.logger.WithError(err).WithField("group", groupName).Debug("Display name lookup failed. Using raw name.")
		return groupName
	}
	for _, g := range resp.Groups {
		if g.Name == groupName && g.DisplayName != "" {
			return g.DisplayName
		}
	}
	return groupName
}

func (d *HTTPDirectory) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	// A missing resource is a zero-member/zero-group answer, not a fault.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory request returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode directory response: %w", err)
	}
	return nil
}
