package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const netClientTimeout = 4500 * time.Millisecond

// ServerError carries the message the switch server attached to a rejected
// request. Message may be empty when the server gave no reason.
type ServerError struct {
	Message string
}

func (se *ServerError) Error() string {
	if len(se.Message) == 0 {
		return "switch server rejected the request"
	}
	return fmt.Sprintf("switch server rejected the request: %s", se.Message)
}

// Client talks to the switch server status api:
// GET /api/status and POST /api/set_switch?switch=<name>:<0|1>.
type Client struct {
	statusUrl *url.URL
	setUrl    *url.URL

	netClient *http.Client
}

func NewClient(serverAddress string) (*Client, error) {
	base, err := url.Parse(serverAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse server address")
	}
	if len(base.Scheme) == 0 || len(base.Host) == 0 {
		return nil, errors.Errorf("server address (%s) is missing scheme or host", serverAddress)
	}

	return &Client{
		statusUrl: base.JoinPath("api", "status"),
		setUrl:    base.JoinPath("api", "set_switch"),
		netClient: &http.Client{Timeout: netClientTimeout},
	}, nil
}

// FetchStatus requests the full current snapshot.
func (cl *Client) FetchStatus(ctx context.Context) ([]SwitchValue, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cl.statusUrl.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "preparing status request failed")
	}

	response, err := cl.netClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "status request failed")
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read status response")
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Errorf("status endpoint returned non success code (%d): %s", response.StatusCode, serverMessage(body))
	}

	switches, err := ParseSwitchMap(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse status response")
	}

	return switches, nil
}

// SetSwitch requests a single switch to take the desired state and returns
// the full mapping the server reports back.
func (cl *Client) SetSwitch(ctx context.Context, name string, value int) ([]SwitchValue, error) {
	return cl.SetSwitches(ctx, []SwitchValue{{Name: name, Value: value}})
}

// SetSwitches requests new states for multiple switches in one call, the
// server accepts a repeated switch query parameter.
func (cl *Client) SetSwitches(ctx context.Context, requested []SwitchValue) ([]SwitchValue, error) {
	if len(requested) == 0 {
		return nil, errors.New("no switch states requested")
	}

	reqUrl := *cl.setUrl
	query := reqUrl.Query()
	for _, sv := range requested {
		query.Add("switch", fmt.Sprintf("%s:%d", sv.Name, sv.Value))
	}
	reqUrl.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqUrl.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "preparing set_switch request failed")
	}

	response, err := cl.netClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "set_switch request failed")
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read set_switch response")
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, &ServerError{Message: serverMessage(body)}
	}

	switches, err := ParseSwitchMap(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse set_switch response")
	}

	return switches, nil
}

// serverMessage pulls a human readable reason out of an error envelope like
// {"status":"error","error_code":"TIMEOUT","message":"..."}. Some deployments
// use an "error" field instead of "message".
func serverMessage(body []byte) string {
	envelope := struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{}

	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if len(envelope.Error) > 0 {
		return envelope.Error
	}
	return envelope.Message
}
