package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Pinger is the subset of a database pool needed for a readiness probe.
// *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Database returns a [Checker] that pings the given pool.
func Database(p Pinger) Checker {
	return Checker{
		Name: "database",
		Check: func(ctx context.Context) error {
			return p.Ping(ctx)
		},
	}
}

// Endpoint returns a [Checker] that issues a GET request to url and treats
// any response below 500 as healthy. Used for the local speech engine, a
// fallback channel the server can run without, so the check is optional.
func Endpoint(name, url string, client *http.Client) Checker {
	if client == nil {
		client = http.DefaultClient
	}
	return Checker{
		Name:     name,
		Optional: true,
		Check: func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			resp.Body.Close()
			if resp.StatusCode >= http.StatusInternalServerError {
				return fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
			return nil
		},
	}
}

// Credential returns a [Checker] that fails when usable reports false. It
// lets /readyz surface a missing or placeholder model API key before the
// first grading request does. Degraded mode is supported, so the check is
// optional: the pod stays ready, the breakdown names the missing key.
func Credential(name string, usable func() bool) Checker {
	return Checker{
		Name:     name,
		Optional: true,
		Check: func(context.Context) error {
			if !usable() {
				return errors.New("credential missing or not usable")
			}
			return nil
		},
	}
}
