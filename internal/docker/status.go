package docker

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"
)

// ServiceStatus represents the status of a service
type ServiceStatus int

const (
	ServiceUnknown ServiceStatus = iota
	ServiceUp
	ServiceDown
	ServiceStarting
)

func (s ServiceStatus) String() string {
	switch s {
	case ServiceUp:
		return "up"
	case ServiceDown:
		return "down"
	case ServiceStarting:
		return "starting"
	default:
		return "unknown"
	}
}

const healthTimeout = 2 * time.Second

// SiteStatus probes the site URL. Any 2xx or 3xx answer means the stack
// serves requests; 5xx usually means nginx is up but PHP is still booting.
func SiteStatus(ctx context.Context, url string) ServiceStatus {
	client := &http.Client{
		Timeout: healthTimeout,
		Transport: &http.Transport{
			// Local environments use self-signed certificates.
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // local development only
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return checkHealth(ctx, client, url)
}

func checkHealth(ctx context.Context, client *http.Client, url string) ServiceStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ServiceUnknown
	}

	resp, err := client.Do(req)
	if err != nil {
		return ServiceDown
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 400:
		return ServiceUp
	case resp.StatusCode >= 500:
		return ServiceStarting
	default:
		return ServiceDown
	}
}
